// Package stabilisation finds the onset of steady state in a noisy
// permeation signal.
//
// The detector differentiates the target column with respect to time, takes
// the absolute fractional change of that derivative from one sample to the
// next, and averages it over a trailing window. The first sample whose
// window mean falls at or below the threshold is the stabilisation point.
//
//	res, err := stabilisation.DetectColumn(samples, permeation.ColumnCumulativeFlux, stabilisation.WorkflowOptions())
//	if errors.Is(err, permeation.ErrNotStabilised) {
//	    // no steady state under this window/threshold
//	}
//
// # Rolling statistics
//
// [Profile] also reports the rolling min, max and median. Only the mean
// gates detection; a stricter mean-and-max gate is available through
// [Options.RequireMax] but is off by default.
package stabilisation
