package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/timelag/internal/export"
	"github.com/san-kum/timelag/internal/workflow"
)

// PlotSize is the ASCII chart area in characters.
type PlotSize struct {
	Width  int
	Height int
}

func DefaultPlotSize() PlotSize {
	return PlotSize{Width: 70, Height: 15}
}

// scale returns a power of ten that brings the largest magnitude in data
// into [1, 1000), so axis labels stay readable for values like 1e-7.
func scale(data ...[]float64) float64 {
	peak := 0.0
	for _, d := range data {
		for _, v := range d {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				peak = max(peak, math.Abs(v))
			}
		}
	}
	if peak == 0 {
		return 1
	}
	return math.Pow(10, 3*math.Floor(math.Log10(peak)/3))
}

func scaled(data []float64, factor float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v / factor
	}
	return out
}

func caption(title string, factor float64) string {
	if factor == 1 {
		return title
	}
	return fmt.Sprintf("%s (×%.0e)", title, factor)
}

// resample picks n evenly spaced points of ys at the times xs, holding the
// last value before each point.
func resample(xs, ys []float64, lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	j := 0
	for i := range out {
		t := lo
		if n > 1 {
			t = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		for j+1 < len(xs) && xs[j+1] <= t {
			j++
		}
		out[i] = ys[j]
	}
	return out
}

// CumulativeFluxPlot charts measured cumulative flux and the fitted line on a
// common time axis.
func CumulativeFluxPlot(res *workflow.Result, size PlotSize) string {
	if len(res.Samples) < 2 {
		return ""
	}
	times := make([]float64, len(res.Samples))
	cum := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		times[i], cum[i] = s.Time, s.CumulativeFlux
	}
	lo, hi := times[0], times[len(times)-1]

	data := resample(times, cum, lo, hi, size.Width)
	fit := make([]float64, size.Width)
	for i := range fit {
		t := lo + (hi-lo)*float64(i)/float64(max(size.Width-1, 1))
		fit[i] = res.Line(t)
	}

	f := scale(data, fit)
	return asciigraph.PlotMany([][]float64{scaled(data, f), scaled(fit, f)},
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.White, asciigraph.Red),
		asciigraph.SeriesLegends("data", "fit"),
		asciigraph.Caption(caption("cumulative flux / cm³(STP) cm⁻² vs time", f)),
	)
}

// FluxPlot charts the simulated outlet flux against the measured flux.
func FluxPlot(res *workflow.Result, size PlotSize) string {
	if res.Field == nil || len(res.Samples) < 2 {
		return ""
	}
	times := make([]float64, len(res.Samples))
	flux := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		times[i], flux[i] = s.Time, s.Flux
	}
	lo, hi := times[0], times[len(times)-1]

	measured := resample(times, flux, lo, hi, size.Width)
	model := resample(res.Field.Times, res.Field.Flux, lo, hi, size.Width)

	f := scale(measured, model)
	return asciigraph.PlotMany([][]float64{scaled(model, f), scaled(measured, f)},
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Yellow),
		asciigraph.SeriesLegends("model", "measurement"),
		asciigraph.Caption(caption("flux / cm³(STP) cm⁻² s⁻¹ vs time", f)),
	)
}

// ProfilePlot charts concentration across the membrane at the profile times.
func ProfilePlot(res *workflow.Result, size PlotSize) string {
	if res.Field == nil {
		return ""
	}
	times := export.ProfileTimes(res.StabilisationTime)
	series := make([][]float64, 0, len(times))
	legends := make([]string, 0, len(times))
	for _, t := range times {
		series = append(series, res.Field.ProfileAt(t))
		legends = append(legends, fmt.Sprintf("t=%.0fs", t))
	}

	f := scale(series...)
	for i := range series {
		series[i] = scaled(series[i], f)
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Green, asciigraph.Red, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(caption("concentration / cm³(STP) cm⁻³ vs position", f)),
	)
}
