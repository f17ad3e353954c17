// Package export renders analysis results as SVG figures.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/san-kum/timelag/internal/workflow"
)

// Style is passed to every figure; nothing here reads or sets shared state.
type Style struct {
	Width  int
	Height int

	Data          drawing.Color
	Fit           drawing.Color
	Model         drawing.Color
	Measurement   drawing.Color
	Profiles      []drawing.Color
	Background    drawing.Color
	StrokeWidth   float64
	DashPattern   []float64
	DottedPattern []float64
}

func DefaultStyle() Style {
	return Style{
		Width:         800,
		Height:        500,
		Data:          drawing.ColorBlack,
		Fit:           drawing.ColorRed,
		Model:         chart.ColorBlue,
		Measurement:   chart.ColorOrange,
		Profiles:      []drawing.Color{chart.ColorBlue, chart.ColorGreen, chart.ColorRed, chart.ColorOrange, chart.ColorCyan, chart.ColorAlternateGray},
		Background:    drawing.ColorWhite,
		StrokeWidth:   1.5,
		DashPattern:   []float64{6, 4},
		DottedPattern: []float64{2, 3},
	}
}

func (s Style) line(c drawing.Color, dash []float64) chart.Style {
	return chart.Style{StrokeColor: c, StrokeWidth: s.StrokeWidth, StrokeDashArray: dash}
}

func sci(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.3g", f)
	}
	return fmt.Sprint(v)
}

func (s Style) render(w io.Writer, title, xName, yName string, series []chart.Series) error {
	ch := chart.Chart{
		Title:      title,
		Width:      s.Width,
		Height:     s.Height,
		Background: chart.Style{FillColor: s.Background, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, ValueFormatter: sci},
		YAxis:      chart.YAxis{Name: yName, ValueFormatter: sci},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.LegendThin(&ch)}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %q: %w", title, err)
	}
	return nil
}

// TimeLagSVG plots cumulative flux with the steady-state fit, extrapolated
// back over the transient.
func TimeLagSVG(w io.Writer, res *workflow.Result, st Style) error {
	var (
		t, y           []float64
		fitT, fitY     []float64
		extraT, extraY []float64
	)
	for _, s := range res.Samples {
		t = append(t, s.Time)
		y = append(y, s.CumulativeFlux)
		if s.Time > res.StabilisationTime {
			fitT = append(fitT, s.Time)
			fitY = append(fitY, res.Line(s.Time))
		} else {
			extraT = append(extraT, s.Time)
			extraY = append(extraY, res.Line(s.Time))
		}
	}

	series := []chart.Series{
		chart.ContinuousSeries{Name: "Data", XValues: t, YValues: y, Style: st.line(st.Data, nil)},
	}
	if len(fitT) > 1 {
		series = append(series, chart.ContinuousSeries{Name: "Fit (steady-state)", XValues: fitT, YValues: fitY, Style: st.line(st.Fit, st.DashPattern)})
	}
	if len(extraT) > 1 {
		series = append(series, chart.ContinuousSeries{Name: "Fit (extrapolated)", XValues: extraT, YValues: extraY, Style: st.line(st.Fit, st.DottedPattern)})
	}
	return st.render(w, res.Experiment+" time-lag analysis", "Time / s", "Cumulative flux / cm3(STP) cm-2", series)
}

// FluxSVG plots the simulated outlet flux against the measured flux.
func FluxSVG(w io.Writer, res *workflow.Result, st Style) error {
	if res.Field == nil {
		return fmt.Errorf("%s: no simulation to plot", res.Experiment)
	}
	t := make([]float64, len(res.Samples))
	flux := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		t[i] = s.Time
		flux[i] = s.Flux
	}
	series := []chart.Series{
		chart.ContinuousSeries{Name: "Model", XValues: res.Field.Times, YValues: res.Field.Flux, Style: st.line(st.Model, nil)},
		chart.ContinuousSeries{Name: "Measurement", XValues: t, YValues: flux, Style: st.line(st.Measurement, st.DashPattern)},
	}
	return st.render(w, res.Experiment+" flux over time", "Time / s", "Flux / cm3(STP) cm-2 s-1", series)
}

// ProfileTimes returns 0 followed by five log-spaced times from T/100 to T.
func ProfileTimes(T float64) []float64 {
	out := []float64{0}
	if !(T > 0) {
		return out
	}
	lo, hi := math.Log10(T/100), math.Log10(T)
	for i := range 5 {
		out = append(out, math.Pow(10, lo+(hi-lo)*float64(i)/4))
	}
	return out
}

// ProfileSVG plots concentration across the membrane at the profile times up
// to the stabilisation time.
func ProfileSVG(w io.Writer, res *workflow.Result, st Style) error {
	if res.Field == nil {
		return fmt.Errorf("%s: no simulation to plot", res.Experiment)
	}
	series := make([]chart.Series, 0, 6)
	for i, t := range ProfileTimes(res.StabilisationTime) {
		color := st.Data
		if len(st.Profiles) > 0 {
			color = st.Profiles[i%len(st.Profiles)]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("t = %.0f s", t),
			XValues: res.Field.Positions,
			YValues: res.Field.ProfileAt(t),
			Style:   st.line(color, nil),
		})
	}
	return st.render(w, res.Experiment+" concentration profile", "Position / cm", "Concentration / cm3(STP) cm-3", series)
}

// WriteFigures writes the three figures for res into dir and returns their
// paths.
func WriteFigures(dir string, res *workflow.Result, st Style) ([]string, error) {
	figures := []struct {
		suffix string
		draw   func(io.Writer, *workflow.Result, Style) error
	}{
		{"time_lag_analysis", TimeLagSVG},
		{"flux_over_time", FluxSVG},
		{"concentration_location_profile", ProfileSVG},
	}

	paths := make([]string, 0, len(figures))
	for _, fig := range figures {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.svg", res.Experiment, fig.suffix))
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		err = fig.draw(f, res, st)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
