package diffusion

import (
	"fmt"
	"strconv"

	"github.com/san-kum/timelag/internal/permeation"
)

// Field is the result of one simulation: Concentration[n][i] is C at
// Times[n] and Positions[i]. Flux[n] is the outlet flux at Times[n].
type Field struct {
	Params        Params
	Times         []float64
	Positions     []float64
	Concentration [][]float64
	Flux          []float64
}

// NewField assembles a field from stored values, checking them against the
// grid p describes.
func NewField(p Params, concentration [][]float64, flux []float64) (*Field, error) {
	times, positions := p.Axes()
	if len(concentration) != len(times) || len(flux) != len(times) {
		return nil, fmt.Errorf("%w: grid has %d steps, got %d rows and %d flux values",
			permeation.ErrLengthMismatch, len(times), len(concentration), len(flux))
	}
	for n, row := range concentration {
		if len(row) != len(positions) {
			return nil, fmt.Errorf("%w: row %d has %d nodes, grid has %d",
				permeation.ErrLengthMismatch, n, len(row), len(positions))
		}
	}
	return &Field{
		Params:        p,
		Times:         times,
		Positions:     positions,
		Concentration: concentration,
		Flux:          flux,
	}, nil
}

// Shape returns (time steps, spatial nodes).
func (f *Field) Shape() (nt, nx int) {
	return len(f.Times), len(f.Positions)
}

// At returns C at time step n and node i.
func (f *Field) At(n, i int) float64 {
	return f.Concentration[n][i]
}

// ProfileAt returns the concentration row for time t, chosen as
// int(t/T·(Nt-1)) and clamped to the grid.
func (f *Field) ProfileAt(t float64) []float64 {
	nt := len(f.Times)
	idx := 0
	if f.Params.Duration > 0 {
		idx = int(t / f.Params.Duration * float64(nt-1))
	}
	if idx < 0 {
		idx = 0
	}
	if idx > nt-1 {
		idx = nt - 1
	}
	return f.Concentration[idx]
}

// ConcentrationTable returns a header row followed by one row per time
// step: time, then C at each position.
func (f *Field) ConcentrationTable() [][]string {
	header := make([]string, 0, len(f.Positions)+1)
	header = append(header, "Time")
	for _, x := range f.Positions {
		header = append(header, fmt.Sprintf("x = %.3g", x))
	}

	rows := make([][]string, 0, len(f.Times)+1)
	rows = append(rows, header)
	for n, t := range f.Times {
		row := make([]string, 0, len(f.Positions)+1)
		row = append(row, formatFloat(t))
		for _, c := range f.Concentration[n] {
			row = append(row, formatFloat(c))
		}
		rows = append(rows, row)
	}
	return rows
}

// FluxTable returns a header row followed by (time, flux) rows.
func (f *Field) FluxTable() [][]string {
	rows := make([][]string, 0, len(f.Times)+1)
	rows = append(rows, []string{"Time", "Flux"})
	for n, t := range f.Times {
		rows = append(rows, []string{formatFloat(t), formatFloat(f.Flux[n])})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
