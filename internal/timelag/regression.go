// Package timelag fits the steady-state segment of a cumulative-flux curve
// and derives diffusivity, permeability and solubility from it.
//
// For a membrane of thickness L the extrapolated steady-state line crosses
// zero at the time lag τ, and D = L²/(6τ). A slope near zero is not trapped:
// τ becomes infinite and the derived coefficients non-finite, which callers
// can check with [permeation.FitResult.IsFinite].
package timelag

import (
	"fmt"

	"github.com/san-kum/timelag/internal/permeation"
	"gonum.org/v1/gonum/stat"
)

// SteadyState returns the samples strictly after the stabilisation time.
func SteadyState(samples []permeation.Sample, stabilisationTime float64) []permeation.Sample {
	out := make([]permeation.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Time > stabilisationTime {
			out = append(out, s)
		}
	}
	return out
}

// Fit performs the time-lag analysis on samples with time > stabilisationTime.
func Fit(samples []permeation.Sample, stabilisationTime, thickness float64) (permeation.FitResult, error) {
	if !(thickness > 0) {
		return permeation.FitResult{}, fmt.Errorf("%w: thickness must be positive, got %g", permeation.ErrInvalidParameter, thickness)
	}

	ss := SteadyState(samples, stabilisationTime)
	if len(ss) < 2 {
		return permeation.FitResult{}, fmt.Errorf("%w: %d samples after t=%g, need at least 2",
			permeation.ErrInsufficientData, len(ss), stabilisationTime)
	}

	times, _ := permeation.Extract(ss, permeation.ColumnTime)
	cumulative, _ := permeation.Extract(ss, permeation.ColumnCumulativeFlux)
	pressure, _ := permeation.Extract(ss, permeation.ColumnPressure)

	intercept, slope := stat.LinearRegression(times, cumulative, nil, false)

	return Derive(slope, intercept, thickness, stat.Mean(pressure, nil)), nil
}

// Derive computes every coefficient from a fitted line, a thickness and the
// mean steady-state pressure. The evaluation order is fixed so repeated
// calls reproduce identical values.
func Derive(slope, intercept, thickness, pressure float64) permeation.FitResult {
	timeLag := -intercept / slope
	diffusion := thickness * thickness / (6 * timeLag)
	permeability := thickness * slope / pressure
	solubility := slope * thickness / diffusion
	solubilityCoefficient := permeability / diffusion

	return permeation.FitResult{
		Slope:                 slope,
		Intercept:             intercept,
		TimeLag:               timeLag,
		DiffusionCoefficient:  diffusion,
		Permeability:          permeability,
		SolubilityCoefficient: solubilityCoefficient,
		Solubility:            solubility,
		Pressure:              pressure,
	}
}
