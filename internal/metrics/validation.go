package metrics

import (
	"fmt"

	"github.com/san-kum/timelag/internal/permeation"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// Compare interpolates the simulated flux at every measured sample time,
// feeds the pairs to ms and returns their values keyed by name.
func Compare(simTimes, simFlux []float64, samples []permeation.Sample, ms ...Metric) (map[string]float64, error) {
	if len(simTimes) != len(simFlux) {
		return nil, fmt.Errorf("%w: %d times, %d flux values", permeation.ErrLengthMismatch, len(simTimes), len(simFlux))
	}
	if len(simTimes) == 0 {
		return nil, fmt.Errorf("%w: empty simulation", permeation.ErrInsufficientData)
	}

	predict := func(float64) float64 { return simFlux[0] }
	if len(simTimes) > 1 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(simTimes, simFlux); err != nil {
			return nil, fmt.Errorf("interpolate simulated flux: %w", err)
		}
		predict = pl.Predict
	}

	for _, m := range ms {
		m.Reset()
	}
	for _, s := range samples {
		sim := predict(s.Time)
		for _, m := range ms {
			m.Observe(s.Time, s.Flux, sim)
		}
	}

	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out, nil
}

// RSquared is the coefficient of determination of the fitted line over
// the steady-state samples.
func RSquared(steady []permeation.Sample, fit permeation.FitResult) float64 {
	times, _ := permeation.Extract(steady, permeation.ColumnTime)
	cumulative, _ := permeation.Extract(steady, permeation.ColumnCumulativeFlux)
	return stat.RSquared(times, cumulative, nil, fit.Intercept, fit.Slope)
}

// SteadyStateFlux is the mean instantaneous flux over start < t < end.
func SteadyStateFlux(samples []permeation.Sample, start, end float64) float64 {
	flux := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Time > start && s.Time < end {
			flux = append(flux, s.Flux)
		}
	}
	return stat.Mean(flux, nil)
}

// NormalisedFlux divides each sample's flux by the steady-state flux.
func NormalisedFlux(samples []permeation.Sample, steadyFlux float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Flux / steadyFlux
	}
	return out
}
