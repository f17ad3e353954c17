package workflow_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/workflow"
)

func analysisStage(err error) permeation.Stage {
	var ae *permeation.AnalysisError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

var _ = Describe("Runner", func() {
	var (
		runner *workflow.Runner
		params workflow.Params
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = workflow.NewRunner(nil)
		params = workflow.DefaultParams("S1R1", fixtureThickness, fixtureDiameter)
	})

	Context("with an explicit stabilisation start", func() {
		var res *workflow.Result

		BeforeEach(func() {
			params.Override.Start = permeation.Float(6000)
			var err error
			res, err = runner.Run(ctx, stepPermeation(), params)
			Expect(err).NotTo(HaveOccurred())
		})

		It("recovers the time lag and diffusivity", func() {
			Expect(res.TimeLag).To(BeNumerically("~", fixtureLag, 1e-3))
			Expect(res.DiffusionCoefficient).To(BeNumerically("~", 0.1*0.1/(6*fixtureLag), 1e-12))
			Expect(res.Slope).To(BeNumerically("~", fixtureSlope, 1e-12))
		})

		It("uses the override and does not detect", func() {
			Expect(res.StabilisationTime).To(Equal(6000.0))
			Expect(res.Detected).To(BeFalse())
			Expect(res.StabilisationIndex).To(Equal(600))
			Expect(res.EndTime).To(Equal(fixtureEnd))
		})

		It("derives pressure and temperature from the steady state", func() {
			Expect(res.Pressure).To(BeNumerically("~", 50.01325, 1e-9))
			Expect(res.Temperature).To(BeNumerically("~", 35, 1e-9))
		})

		It("normalises the flux by its steady-state mean", func() {
			Expect(res.SteadyStateFlux).To(BeNumerically("~", fixtureSlope, 1e-12))
			Expect(res.NormalisedFlux).To(HaveLen(len(res.Samples)))
			Expect(res.NormalisedFlux[len(res.NormalisedFlux)-1]).To(BeNumerically("~", 1, 1e-9))
			Expect(res.NormalisedFlux[0]).To(BeZero())
		})

		It("simulates the membrane with the fitted coefficients", func() {
			nt, nx := res.Field.Shape()
			Expect(nx).To(Equal(51))
			Expect(nt).To(Equal(int(fixtureEnd) + 1))
			Expect(res.Field.At(0, 0)).To(Equal(res.EquilibriumConcentration()))
			Expect(res.Field.At(nt-1, nx-1)).To(BeZero())

			// the simulated steady flux is P*p/L, which is the fitted slope
			Expect(res.Field.Flux[nt-1]).To(BeNumerically("~", fixtureSlope, 2e-8))
		})

		It("reports validation metrics", func() {
			Expect(res.Validation.RSquared).To(BeNumerically("~", 1, 1e-9))
			Expect(res.Validation.Metrics).To(HaveKey("flux_rmse"))
			Expect(res.Validation.Metrics).To(HaveKey("flux_max_deviation"))
			Expect(res.Validation.Metrics["flux_rmse"]).To(BeNumerically(">", 0))
			Expect(res.Validation.RelativeRMSE).To(BeNumerically("<", 1))
		})
	})

	It("detects stabilisation on cumulative flux when no start is given", func() {
		res, err := runner.Run(ctx, stepPermeation(), params)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Detected).To(BeTrue())
		Expect(res.StabilisationTime).To(BeNumerically(">", fixtureLag))
		Expect(res.StabilisationTime).To(BeNumerically("<", fixtureLag+2000))
		Expect(res.TimeLag).To(BeNumerically("~", fixtureLag, 1e-3))
	})

	It("caps the series at the override end", func() {
		params.Override.Start = permeation.Float(6000)
		params.Override.End = permeation.Float(15000)
		res, err := runner.Run(ctx, stepPermeation(), params)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.EndTime).To(Equal(15000.0))
		Expect(res.Samples[len(res.Samples)-1].Time).To(Equal(15000.0))
		Expect(res.Field.Times[len(res.Field.Times)-1]).To(Equal(15000.0))
	})

	DescribeTable("failures name the stage that raised them",
		func(mutate func(*workflow.Params) []permeation.RawSample, stage permeation.Stage, target error) {
			raw := mutate(&params)
			res, err := runner.Run(ctx, raw, params)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(target))
			Expect(analysisStage(err)).To(Equal(stage))
		},
		Entry("reversed override", func(p *workflow.Params) []permeation.RawSample {
			p.Override = permeation.Override{Start: permeation.Float(9000), End: permeation.Float(8000)}
			return stepPermeation()
		}, permeation.StagePreprocess, permeation.ErrInvalidOverride),
		Entry("zero thickness", func(p *workflow.Params) []permeation.RawSample {
			p.Thickness = 0
			return stepPermeation()
		}, permeation.StagePreprocess, permeation.ErrInvalidParameter),
		Entry("negative flow rate", func(p *workflow.Params) []permeation.RawSample {
			p.FlowRate = permeation.Float(-1)
			return stepPermeation()
		}, permeation.StagePreprocess, permeation.ErrInvalidParameter),
		Entry("empty series", func(p *workflow.Params) []permeation.RawSample {
			return nil
		}, permeation.StagePreprocess, permeation.ErrEmptySeries),
		Entry("flat series", func(p *workflow.Params) []permeation.RawSample {
			return flatSeries()
		}, permeation.StageDetect, permeation.ErrNotStabilised),
		Entry("start after the last sample", func(p *workflow.Params) []permeation.RawSample {
			p.Override.Start = permeation.Float(1e9)
			return stepPermeation()
		}, permeation.StageDetect, permeation.ErrInsufficientData),
		Entry("unstable time step", func(p *workflow.Params) []permeation.RawSample {
			p.Override.Start = permeation.Float(6000)
			p.Dt = 100
			return stepPermeation()
		}, permeation.StageSimulate, permeation.ErrUnstable),
	)

	It("refuses to simulate a degenerate fit", func() {
		params.Override.Start = permeation.Float(6000)
		_, err := runner.Run(ctx, flatSeries(), params)
		// a flat line gives a NaN diffusivity, which no time step satisfies
		Expect(err).To(MatchError(permeation.ErrUnstable))
		Expect(analysisStage(err)).To(Equal(permeation.StageSimulate))
	})
})
