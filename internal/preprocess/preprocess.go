// Package preprocess turns raw permeation-cell readings into calibrated
// pressure, flux and cumulative flux.
package preprocess

import (
	"fmt"
	"math"

	"github.com/san-kum/timelag/internal/permeation"
)

// BaselineSamples is the number of leading readings averaged into the
// concentration baseline.
const BaselineSamples = 11

// Params configures the conversion. FlowRate, when set, replaces any
// per-sample flow rate.
type Params struct {
	Diameter float64
	FlowRate *float64
}

// DiscArea returns the exposed membrane area π·d²/4 in cm².
func DiscArea(diameter float64) float64 {
	return math.Pi * diameter * diameter / 4
}

// Baseline returns the mean concentration over the first BaselineSamples
// readings, or over all of them when there are fewer.
func Baseline(raw []permeation.RawSample) float64 {
	n := len(raw)
	if n > BaselineSamples {
		n = BaselineSamples
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range raw[:n] {
		sum += r.Concentration
	}
	return sum / float64(n)
}

// AbsolutePressure converts a gauge reading in barg to bar.
func AbsolutePressure(gauge float64) float64 {
	return gauge + permeation.AtmosphericPressure
}

// Flux converts a baseline-corrected concentration in ppm, carried by a
// sweep gas at flowRate ml/min over area cm², to cm³(STP) cm⁻² s⁻¹.
func Flux(flowRate, correctedPPM, area float64) float64 {
	return (flowRate / 60) * (correctedPPM * 1e-6) / area
}

// Run preprocesses raw into a series of equal length and order.
func Run(raw []permeation.RawSample, p Params) ([]permeation.Sample, error) {
	if err := validate(raw, p); err != nil {
		return nil, err
	}

	area := DiscArea(p.Diameter)
	baseline := Baseline(raw)

	out := make([]permeation.Sample, len(raw))
	cumulative := 0.0
	for i, r := range raw {
		flowRate := 0.0
		if p.FlowRate != nil {
			flowRate = *p.FlowRate
		} else {
			flowRate = *r.FlowRate
		}

		corrected := r.Concentration - baseline
		flux := Flux(flowRate, corrected, area)

		dt := 0.0
		if i > 0 {
			dt = r.Time - raw[i-1].Time
		}
		cumulative += flux * dt

		out[i] = permeation.Sample{
			Time:                   r.Time,
			Pressure:               AbsolutePressure(r.GaugePressure),
			Temperature:            r.Temperature,
			Concentration:          r.Concentration,
			CorrectedConcentration: corrected,
			Flux:                   flux,
			CumulativeFlux:         cumulative,
		}
	}

	return out, nil
}

func validate(raw []permeation.RawSample, p Params) error {
	if len(raw) == 0 {
		return permeation.ErrEmptySeries
	}
	if !(p.Diameter > 0) {
		return fmt.Errorf("%w: diameter must be positive, got %g", permeation.ErrInvalidParameter, p.Diameter)
	}
	if p.FlowRate != nil && !(*p.FlowRate > 0) {
		return fmt.Errorf("%w: flow rate must be positive, got %g", permeation.ErrInvalidParameter, *p.FlowRate)
	}

	for i, r := range raw {
		if i > 0 && !(r.Time > raw[i-1].Time) {
			return fmt.Errorf("%w: sample %d at t=%g follows t=%g", permeation.ErrUnorderedTime, i, r.Time, raw[i-1].Time)
		}
		if p.FlowRate == nil && r.FlowRate == nil {
			return fmt.Errorf("%w: sample %d has no flow rate", permeation.ErrMissingFlowRate, i)
		}
	}
	return nil
}
