// Package metrics scores how well a simulated outlet flux reproduces the
// measured one, and how well the steady-state line fits the data.
package metrics

// Metric accumulates one score over (time, measured, simulated) triples.
// A Metric holds state; concurrent analyses each need their own.
type Metric interface {
	Name() string
	Observe(t, measured, simulated float64)
	Value() float64
	Reset()
}

// Factory builds a fresh Metric.
type Factory func() Metric

// DefaultFactories returns the metrics reported for every analysis.
func DefaultFactories() []Factory {
	return []Factory{
		func() Metric { return NewRMSE() },
		func() Metric { return NewMaxDeviation() },
		func() Metric { return NewBias() },
	}
}

// New builds one Metric from each factory.
func New(fs ...Factory) []Metric {
	ms := make([]Metric, len(fs))
	for i, f := range fs {
		ms[i] = f()
	}
	return ms
}

func Defaults() []Metric {
	return New(DefaultFactories()...)
}
