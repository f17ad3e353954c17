package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/timelag/internal/diffusion"
	"github.com/san-kum/timelag/internal/metrics"
	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/preprocess"
	"github.com/san-kum/timelag/internal/stabilisation"
	"github.com/san-kum/timelag/internal/timelag"
	"gonum.org/v1/gonum/stat"
)

// Runner analyses raw series. Run and Batch may be called from several
// goroutines at once; each analysis builds its own metric set.
type Runner struct {
	logger  *slog.Logger
	metrics []metrics.Factory
}

// NewRunner returns a Runner that reports the default validation metrics.
// A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger, metrics: metrics.DefaultFactories()}
}

// AddMetric registers an extra validation metric built fresh for every run.
// It must not be called while Run or Batch is in progress.
func (r *Runner) AddMetric(f metrics.Factory) { r.metrics = append(r.metrics, f) }

// Run analyses one raw series. Failures are returned as *permeation.AnalysisError
// naming the stage that raised them.
func (r *Runner) Run(ctx context.Context, raw []permeation.RawSample, p Params) (*Result, error) {
	fail := func(stage permeation.Stage, err error) (*Result, error) {
		return nil, &permeation.AnalysisError{Experiment: p.Experiment, Stage: stage, Wrapped: err}
	}
	log := r.logger.With("experiment", p.Experiment)

	if err := p.Validate(); err != nil {
		return fail(permeation.StagePreprocess, err)
	}

	log.Debug("preprocessing", "samples", len(raw))
	samples, err := preprocess.Run(raw, preprocess.Params{Diameter: p.Diameter, FlowRate: p.FlowRate})
	if err != nil {
		return fail(permeation.StagePreprocess, err)
	}

	res := &Result{
		Experiment: p.Experiment,
		Thickness:  p.Thickness,
		Diameter:   p.Diameter,
		FlowRate:   p.FlowRate,
	}

	if p.Override.Start != nil {
		res.StabilisationTime = *p.Override.Start
	} else {
		log.Debug("detecting stabilisation", "window", p.Detection.Window, "threshold", p.Detection.Threshold)
		det, err := stabilisation.DetectColumn(samples, permeation.ColumnCumulativeFlux, p.Detection)
		if err != nil {
			return fail(permeation.StageDetect, err)
		}
		res.StabilisationTime = det.Time
		res.Detected = true
	}

	if p.Override.End != nil {
		res.EndTime = *p.Override.End
	} else {
		res.EndTime = samples[len(samples)-1].Time
	}

	res.StabilisationIndex = -1
	for i, s := range samples {
		if s.Time >= res.StabilisationTime {
			res.StabilisationIndex = i
			break
		}
	}
	if res.StabilisationIndex < 0 {
		return fail(permeation.StageDetect, fmt.Errorf("%w: no sample at or after t=%g",
			permeation.ErrInsufficientData, res.StabilisationTime))
	}

	res.Samples = capSamples(samples, res.EndTime)
	res.SteadyStateFlux = metrics.SteadyStateFlux(res.Samples, res.StabilisationTime, res.EndTime)
	res.NormalisedFlux = metrics.NormalisedFlux(res.Samples, res.SteadyStateFlux)
	res.Temperature = meanTemperatureAfter(res.Samples, res.StabilisationIndex)

	log.Debug("fitting steady state", "stabilisation_time", res.StabilisationTime, "end_time", res.EndTime)
	fit, err := timelag.Fit(res.Samples, res.StabilisationTime, p.Thickness)
	if err != nil {
		return fail(permeation.StageFit, err)
	}
	res.FitResult = fit
	if !fit.IsFinite() {
		log.Warn("degenerate fit, derived coefficients are not finite", "slope", fit.Slope)
	}

	sp := diffusion.Params{
		D:        fit.DiffusionCoefficient,
		CEq:      fit.EquilibriumConcentration(),
		Length:   p.Thickness,
		Duration: res.Samples[len(res.Samples)-1].Time,
		Dt:       p.Dt,
		Dx:       p.Thickness / float64(p.SpaceDivisions),
	}
	log.Debug("simulating diffusion", "d", sp.D, "c_eq", sp.CEq, "duration", sp.Duration)
	field, err := diffusion.Run(ctx, sp)
	if err != nil {
		return fail(permeation.StageSimulate, err)
	}
	res.Field = field

	vals, err := metrics.Compare(field.Times, field.Flux, res.Samples, metrics.New(r.metrics...)...)
	if err != nil {
		return fail(permeation.StageValidate, err)
	}
	res.Validation = Validation{
		RSquared:     metrics.RSquared(res.SteadyStateSamples(), fit),
		RelativeRMSE: vals["flux_rmse"] / res.SteadyStateFlux,
		Metrics:      vals,
	}

	log.Info("analysis complete",
		"stabilisation_time", res.StabilisationTime,
		"temperature", res.Temperature,
		"pressure", fit.Pressure,
		"time_lag", fit.TimeLag,
		"diffusion_coefficient", fit.DiffusionCoefficient,
		"permeability", fit.Permeability,
		"solubility_coefficient", fit.SolubilityCoefficient,
		"r_squared", res.Validation.RSquared,
	)
	return res, nil
}

func capSamples(samples []permeation.Sample, end float64) []permeation.Sample {
	n := 0
	for n < len(samples) && samples[n].Time <= end {
		n++
	}
	return samples[:n:n]
}

// meanTemperatureAfter averages temperature over samples strictly after index i.
func meanTemperatureAfter(samples []permeation.Sample, i int) float64 {
	if i+1 >= len(samples) {
		return math.NaN()
	}
	temps, _ := permeation.Extract(samples[i+1:], permeation.ColumnTemperature)
	return stat.Mean(temps, nil)
}
