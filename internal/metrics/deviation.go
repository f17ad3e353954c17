package metrics

import "math"

type RMSE struct {
	name    string
	sumSq   float64
	samples int
}

func NewRMSE() *RMSE {
	return &RMSE{name: "flux_rmse"}
}

func (r *RMSE) Name() string {
	return r.name
}

func (r *RMSE) Observe(t, measured, simulated float64) {
	d := simulated - measured
	r.sumSq += d * d
	r.samples++
}

func (r *RMSE) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.samples))
}

func (r *RMSE) Reset() {
	r.sumSq = 0
	r.samples = 0
}

type MaxDeviation struct {
	name string
	max  float64
}

func NewMaxDeviation() *MaxDeviation {
	return &MaxDeviation{name: "flux_max_deviation"}
}

func (m *MaxDeviation) Name() string {
	return m.name
}

func (m *MaxDeviation) Observe(t, measured, simulated float64) {
	if d := math.Abs(simulated - measured); d > m.max {
		m.max = d
	}
}

func (m *MaxDeviation) Value() float64 {
	return m.max
}

func (m *MaxDeviation) Reset() {
	m.max = 0
}

// Bias is the mean signed deviation, simulated minus measured.
type Bias struct {
	name    string
	sum     float64
	samples int
}

func NewBias() *Bias {
	return &Bias{name: "flux_bias"}
}

func (b *Bias) Name() string {
	return b.name
}

func (b *Bias) Observe(t, measured, simulated float64) {
	b.sum += simulated - measured
	b.samples++
}

func (b *Bias) Value() float64 {
	if b.samples == 0 {
		return 0
	}
	return b.sum / float64(b.samples)
}

func (b *Bias) Reset() {
	b.sum = 0
	b.samples = 0
}
