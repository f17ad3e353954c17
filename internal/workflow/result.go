package workflow

import (
	"github.com/san-kum/timelag/internal/diffusion"
	"github.com/san-kum/timelag/internal/permeation"
)

// Result is everything one analysis produces. Samples are capped at EndTime.
type Result struct {
	Experiment         string
	Thickness          float64
	Diameter           float64
	FlowRate           *float64
	Temperature        float64
	StabilisationTime  float64
	EndTime            float64
	StabilisationIndex int
	Detected           bool

	permeation.FitResult
	SteadyStateFlux float64

	Samples        []permeation.Sample
	NormalisedFlux []float64
	Field          *diffusion.Field

	Validation Validation
}

// Validation compares the simulation with the measurement.
type Validation struct {
	RSquared     float64
	RelativeRMSE float64
	Metrics      map[string]float64
}

// SteadyStateSamples returns the samples used by the fit.
func (r *Result) SteadyStateSamples() []permeation.Sample {
	out := make([]permeation.Sample, 0, len(r.Samples))
	for _, s := range r.Samples {
		if s.Time > r.StabilisationTime {
			out = append(out, s)
		}
	}
	return out
}
