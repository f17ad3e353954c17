package stabilisation

import (
	"fmt"

	"github.com/san-kum/timelag/internal/permeation"
)

const (
	DefaultWindow    = 5
	DefaultThreshold = 0.001

	WorkflowWindow    = 70
	WorkflowThreshold = 0.003
)

// Options controls detection. RequireMax additionally gates on the rolling
// max; it is off for standard analyses.
type Options struct {
	Window     int
	Threshold  float64
	RequireMax bool
}

// DefaultOptions returns the detector's general-purpose settings.
func DefaultOptions() Options {
	return Options{Window: DefaultWindow, Threshold: DefaultThreshold}
}

// WorkflowOptions returns the settings used on cumulative flux by the
// time-lag workflow.
func WorkflowOptions() Options {
	return Options{Window: WorkflowWindow, Threshold: WorkflowThreshold}
}

// Validate checks the window and threshold ranges.
func (o Options) Validate() error {
	if o.Window < 1 {
		return fmt.Errorf("%w: window must be at least 1, got %d", permeation.ErrInvalidParameter, o.Window)
	}
	if !(o.Threshold > 0) {
		return fmt.Errorf("%w: threshold must be positive, got %g", permeation.ErrInvalidParameter, o.Threshold)
	}
	return nil
}

// Result is a detected stabilisation point.
type Result struct {
	Time  float64
	Index int
	Stats Stats
}

// Profile returns the rolling statistics of the relative derivative change
// at every index.
func Profile(times, values []float64, window int) ([]Stats, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", permeation.ErrLengthMismatch, len(times), len(values))
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", permeation.ErrInvalidParameter, window)
	}
	return Rolling(RelativeChange(Gradient(times, values)), window), nil
}

// Detect returns the earliest time at which values has stabilised. It fails
// with permeation.ErrNotStabilised when no index meets the threshold.
func Detect(times, values []float64, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	stats, err := Profile(times, values, opts.Window)
	if err != nil {
		return Result{}, err
	}

	for i, s := range stats {
		if !(s.Mean <= opts.Threshold) {
			continue
		}
		if opts.RequireMax && !(s.Max <= opts.Threshold) {
			continue
		}
		return Result{Time: times[i], Index: i, Stats: s}, nil
	}

	return Result{}, fmt.Errorf("%w: window=%d threshold=%g over %d samples",
		permeation.ErrNotStabilised, opts.Window, opts.Threshold, len(values))
}

// DetectColumn runs Detect on one column of a preprocessed series.
func DetectColumn(samples []permeation.Sample, column permeation.Column, opts Options) (Result, error) {
	values, err := permeation.Extract(samples, column)
	if err != nil {
		return Result{}, err
	}
	times, _ := permeation.Extract(samples, permeation.ColumnTime)
	return Detect(times, values, opts)
}
