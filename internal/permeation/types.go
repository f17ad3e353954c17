package permeation

import (
	"fmt"
	"math"
)

// AtmosphericPressure converts gauge to absolute pressure, in bar.
const AtmosphericPressure = 1.01325

// RawSample is one measurement row. FlowRate is nil when the file carries no
// carrier-gas flow column.
type RawSample struct {
	Time          float64
	Concentration float64
	GaugePressure float64
	Temperature   float64
	FlowRate      *float64
}

// Sample is a preprocessed row.
type Sample struct {
	Time                   float64
	Pressure               float64
	Temperature            float64
	Concentration          float64
	CorrectedConcentration float64
	Flux                   float64
	CumulativeFlux         float64
}

// Column names one field of a Sample.
type Column int

const (
	ColumnTime Column = iota
	ColumnPressure
	ColumnTemperature
	ColumnConcentration
	ColumnCorrectedConcentration
	ColumnFlux
	ColumnCumulativeFlux
)

var columnNames = map[Column]string{
	ColumnTime:                   "t / s",
	ColumnPressure:               "P_cell / bar",
	ColumnTemperature:            "T / °C",
	ColumnConcentration:          "y_CO2 / ppm",
	ColumnCorrectedConcentration: "y_CO2_bl / ppm",
	ColumnFlux:                   "flux / cm^3(STP) cm^-2 s^-1",
	ColumnCumulativeFlux:         "cumulative flux / cm^3(STP) cm^-2",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return fmt.Sprintf("column(%d)", int(c))
}

// Valid reports whether c names a Sample field.
func (c Column) Valid() bool {
	_, ok := columnNames[c]
	return ok
}

// Columns lists every Sample column in table order.
func Columns() []Column {
	return []Column{
		ColumnTime,
		ColumnPressure,
		ColumnTemperature,
		ColumnConcentration,
		ColumnCorrectedConcentration,
		ColumnFlux,
		ColumnCumulativeFlux,
	}
}

// Value returns the field of s selected by c.
func (s Sample) Value(c Column) (float64, error) {
	switch c {
	case ColumnTime:
		return s.Time, nil
	case ColumnPressure:
		return s.Pressure, nil
	case ColumnTemperature:
		return s.Temperature, nil
	case ColumnConcentration:
		return s.Concentration, nil
	case ColumnCorrectedConcentration:
		return s.CorrectedConcentration, nil
	case ColumnFlux:
		return s.Flux, nil
	case ColumnCumulativeFlux:
		return s.CumulativeFlux, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingColumn, c)
}

// Extract copies one column out of samples.
func Extract(samples []Sample, c Column) ([]float64, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i], _ = s.Value(c)
	}
	return out, nil
}

// Override is an explicit stabilisation window. A nil bound means "not given".
type Override struct {
	Start *float64
	End   *float64
}

// Validate rejects a window whose start is not before its end.
func (o Override) Validate() error {
	if o.Start != nil && o.End != nil && *o.Start >= *o.End {
		return fmt.Errorf("%w: start %g must be less than end %g", ErrInvalidOverride, *o.Start, *o.End)
	}
	return nil
}

// FitResult holds the steady-state line and everything derived from it.
// Slope is the steady-state flux.
type FitResult struct {
	Slope                 float64
	Intercept             float64
	TimeLag               float64
	DiffusionCoefficient  float64
	Permeability          float64
	SolubilityCoefficient float64
	Solubility            float64
	Pressure              float64
}

// Line evaluates the fitted cumulative flux at time t.
func (f FitResult) Line(t float64) float64 {
	return f.Slope*t + f.Intercept
}

// EquilibriumConcentration is the upstream surface concentration used as the
// x=0 boundary of the diffusion simulation.
func (f FitResult) EquilibriumConcentration() float64 {
	return f.SolubilityCoefficient * f.Pressure
}

// IsFinite reports whether every derived quantity is a finite number. A
// near-zero slope produces infinities that are passed through untouched.
func (f FitResult) IsFinite() bool {
	for _, v := range []float64{f.Slope, f.Intercept, f.TimeLag, f.DiffusionCoefficient,
		f.Permeability, f.SolubilityCoefficient, f.Solubility, f.Pressure} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Float returns a pointer to v, for optional parameters.
func Float(v float64) *float64 {
	return &v
}
