package permeation

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

func TestSample_Value(t *testing.T) {
	s := Sample{Time: 1, Pressure: 2, Temperature: 3, Concentration: 4,
		CorrectedConcentration: 5, Flux: 6, CumulativeFlux: 7}

	for i, c := range Columns() {
		got, err := s.Value(c)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c, err)
		}
		if got != float64(i+1) {
			t.Errorf("%s = %v, want %v", c, got, i+1)
		}
	}

	if _, err := s.Value(Column(99)); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	samples := []Sample{{Time: 0, Flux: 1}, {Time: 1, Flux: 2}}

	flux, err := Extract(samples, ColumnFlux)
	if err != nil {
		t.Fatal(err)
	}
	if len(flux) != 2 || flux[0] != 1 || flux[1] != 2 {
		t.Errorf("Extract flux = %v", flux)
	}

	if _, err := Extract(samples, Column(-1)); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestOverride_Validate(t *testing.T) {
	tests := []struct {
		name    string
		o       Override
		wantErr bool
	}{
		{"empty", Override{}, false},
		{"start only", Override{Start: Float(10)}, false},
		{"end only", Override{End: Float(10)}, false},
		{"ordered", Override{Start: Float(10), End: Float(20)}, false},
		{"equal", Override{Start: Float(20), End: Float(20)}, true},
		{"reversed", Override{Start: Float(30), End: Float(20)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.o.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOverride) {
				t.Errorf("expected ErrInvalidOverride, got %v", err)
			}
		})
	}
}

func TestFitResult_IsFinite(t *testing.T) {
	f := FitResult{Slope: 1, Intercept: -1, TimeLag: 1, DiffusionCoefficient: 1,
		Permeability: 1, SolubilityCoefficient: 1, Solubility: 1, Pressure: 1}
	if !f.IsFinite() {
		t.Error("expected finite result")
	}

	f.TimeLag = math.Inf(1)
	if f.IsFinite() {
		t.Error("expected non-finite result")
	}

	if got := f.EquilibriumConcentration(); got != 1 {
		t.Errorf("EquilibriumConcentration() = %v, want 1", got)
	}
	if got := f.Line(2); got != 1 {
		t.Errorf("Line(2) = %v, want 1", got)
	}
}

func TestAnalysisError(t *testing.T) {
	err := &AnalysisError{Experiment: "S3R1", Stage: StageDetect, Wrapped: ErrNotStabilised}
	if !errors.Is(err, ErrNotStabilised) {
		t.Error("AnalysisError does not unwrap")
	}
	want := "S3R1: detect: " + ErrNotStabilised.Error()
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParallelFor(t *testing.T) {
	for _, n := range []int{0, 1, 10, 1000, 10007} {
		var sum atomic.Int64
		hits := make([]int32, n)
		ParallelFor(n, 64, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
				sum.Add(1)
			}
		})
		if int(sum.Load()) != n {
			t.Errorf("n=%d: visited %d indices", n, sum.Load())
		}
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}
