package workflow_test

import (
	"math"

	"github.com/san-kum/timelag/internal/permeation"
)

const (
	fixtureThickness = 0.1
	fixtureDiameter  = 1.0
	fixtureFlowRate  = 8.0
	fixtureSlope     = 1e-6
	fixtureLag       = 5000.0
	fixtureEnd       = 20000.0
	fixtureStep      = 10.0
	fixtureBaseline  = 2.0
)

// stepPermeation returns a series whose outlet concentration jumps from the
// baseline to a constant at fixtureLag, so the cumulative flux is exactly
// fixtureSlope*(t - fixtureLag) afterwards.
func stepPermeation() []permeation.RawSample {
	area := math.Pi * fixtureDiameter * fixtureDiameter / 4
	ppm := fixtureSlope * area * 60 / (fixtureFlowRate * 1e-6)

	n := int(fixtureEnd/fixtureStep) + 1
	raw := make([]permeation.RawSample, n)
	for i := range raw {
		t := float64(i) * fixtureStep
		conc := fixtureBaseline
		if t > fixtureLag {
			conc += ppm
		}
		raw[i] = permeation.RawSample{
			Time:          t,
			Concentration: conc,
			GaugePressure: 49,
			Temperature:   35,
			FlowRate:      permeation.Float(fixtureFlowRate),
		}
	}
	return raw
}

func flatSeries() []permeation.RawSample {
	raw := stepPermeation()
	for i := range raw {
		raw[i].Concentration = fixtureBaseline
	}
	return raw
}
