package permeation

import "errors"

// Domain errors for analysis operations.
var (
	// ErrMissingColumn indicates a required input column is absent.
	ErrMissingColumn = errors.New("permeation: required column missing")

	// ErrEmptySeries indicates an input series with no samples.
	ErrEmptySeries = errors.New("permeation: empty series")

	// ErrUnorderedTime indicates sample times that are not strictly increasing.
	ErrUnorderedTime = errors.New("permeation: time must be strictly increasing")

	// ErrMissingFlowRate indicates neither an explicit nor a per-sample flow rate.
	ErrMissingFlowRate = errors.New("permeation: carrier-gas flow rate not available")

	// ErrInvalidParameter indicates a parameter value outside its valid range.
	ErrInvalidParameter = errors.New("permeation: parameter out of valid range")

	// ErrInvalidOverride indicates a stabilisation window with start >= end.
	ErrInvalidOverride = errors.New("permeation: invalid stabilisation window")

	// ErrNotStabilised indicates that no sample met the stability criterion.
	ErrNotStabilised = errors.New("permeation: no stabilisation point found")

	// ErrInsufficientData indicates too few samples for the requested operation.
	ErrInsufficientData = errors.New("permeation: insufficient data")

	// ErrUnstable indicates an explicit scheme whose time step violates
	// dt <= dx²/(2D). The simulation refuses to run.
	ErrUnstable = errors.New("permeation: stability condition not met, reduce dt or increase dx")

	// ErrLengthMismatch indicates parallel slices of different length.
	ErrLengthMismatch = errors.New("permeation: series length mismatch")
)

// Stage names a step of the analysis workflow.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageDetect     Stage = "detect"
	StageFit        Stage = "fit"
	StageSimulate   Stage = "simulate"
	StageValidate   Stage = "validate"
)

// AnalysisError wraps an error with the workflow stage that raised it.
type AnalysisError struct {
	Experiment string
	Stage      Stage
	Wrapped    error
}

func (e *AnalysisError) Error() string {
	if e.Experiment == "" {
		return string(e.Stage) + ": " + e.Wrapped.Error()
	}
	return e.Experiment + ": " + string(e.Stage) + ": " + e.Wrapped.Error()
}

func (e *AnalysisError) Unwrap() error {
	return e.Wrapped
}
