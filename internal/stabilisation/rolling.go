package stabilisation

import (
	"math"
	"sort"
)

// Gradient returns the backward difference quotient of values over times.
// Index 0 has no predecessor and is NaN.
func Gradient(times, values []float64) []float64 {
	out := make([]float64, len(values))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		out[i] = (values[i] - values[i-1]) / (times[i] - times[i-1])
	}
	return out
}

// RelativeChange returns |x[i]/x[i-1] - 1|. Undefined ratios stay NaN and a
// change away from zero is +Inf.
func RelativeChange(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(x); i++ {
		out[i] = math.Abs(x[i]/x[i-1] - 1)
	}
	return out
}

// Stats are the trailing-window statistics at one index. A window that is
// not yet full, or that holds a NaN, has all fields NaN.
type Stats struct {
	Mean   float64
	Min    float64
	Max    float64
	Median float64
}

func nanStats() Stats {
	nan := math.NaN()
	return Stats{Mean: nan, Min: nan, Max: nan, Median: nan}
}

// Rolling computes Stats over each trailing window of size w.
func Rolling(x []float64, w int) []Stats {
	out := make([]Stats, len(x))
	buf := make([]float64, w)
	for i := range x {
		if i+1 < w {
			out[i] = nanStats()
			continue
		}
		out[i] = windowStats(x[i+1-w:i+1], buf)
	}
	return out
}

func windowStats(win, buf []float64) Stats {
	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range win {
		if math.IsNaN(v) {
			return nanStats()
		}
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	copy(buf, win)
	sort.Float64s(buf)
	n := len(buf)
	median := buf[n/2]
	if n%2 == 0 {
		median = (buf[n/2-1] + buf[n/2]) / 2
	}

	return Stats{Mean: sum / float64(n), Min: lo, Max: hi, Median: median}
}
