package workflow_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/workflow"
)

func job(name string, start float64, load func(context.Context) ([]permeation.RawSample, error)) workflow.Job {
	p := workflow.DefaultParams(name, fixtureThickness, fixtureDiameter)
	p.Override.Start = permeation.Float(start)
	return workflow.Job{Params: p, Load: load}
}

func loadStep(context.Context) ([]permeation.RawSample, error) {
	return stepPermeation(), nil
}

// loadScaled scales the concentration rise above the baseline by k, so
// each job's simulated flux deviates from the measurement by a different
// amount.
func loadScaled(k float64) func(context.Context) ([]permeation.RawSample, error) {
	return func(context.Context) ([]permeation.RawSample, error) {
		raw := stepPermeation()
		for i := range raw {
			raw[i].Concentration = fixtureBaseline + k*(raw[i].Concentration-fixtureBaseline)
		}
		return raw, nil
	}
}

var _ = Describe("Batch", func() {
	var runner *workflow.Runner

	BeforeEach(func() {
		runner = workflow.NewRunner(nil)
	})

	It("returns results in job order", func() {
		jobs := []workflow.Job{
			job("A", 6000, loadStep),
			job("B", 8000, loadStep),
			job("C", 10000, loadStep),
		}
		results, err := runner.Batch(context.Background(), jobs, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, name := range []string{"A", "B", "C"} {
			Expect(results[i].Experiment).To(Equal(name))
			Expect(results[i].TimeLag).To(BeNumerically("~", fixtureLag, 1e-3))
		}
		Expect(results[1].StabilisationTime).To(Equal(8000.0))
	})

	It("keeps each job's validation metrics independent", func() {
		jobs := make([]workflow.Job, 8)
		for i := range jobs {
			jobs[i] = job(fmt.Sprintf("J%d", i), 5500+float64(i)*250, loadScaled(1+float64(i)))
		}

		want := make([]map[string]float64, len(jobs))
		for i, j := range jobs {
			raw, err := j.Load(context.Background())
			Expect(err).NotTo(HaveOccurred())
			res, err := runner.Run(context.Background(), raw, j.Params)
			Expect(err).NotTo(HaveOccurred())
			want[i] = res.Validation.Metrics
		}

		results, err := runner.Batch(context.Background(), jobs, 0)
		Expect(err).NotTo(HaveOccurred())
		for i, res := range results {
			Expect(res.Validation.Metrics).To(Equal(want[i]), "job %s", jobs[i].Params.Experiment)
		}
		Expect(want[0]["flux_max_deviation"]).NotTo(Equal(want[7]["flux_max_deviation"]))
	})

	It("returns the first failure with the job name", func() {
		boom := errors.New("file not found")
		jobs := []workflow.Job{
			job("A", 6000, loadStep),
			job("missing", 6000, func(context.Context) ([]permeation.RawSample, error) { return nil, boom }),
		}
		results, err := runner.Batch(context.Background(), jobs, 0)
		Expect(results).To(BeNil())
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("missing"))
	})

	It("wraps analysis failures with their stage", func() {
		bad := job("bad", 6000, loadStep)
		bad.Params.Dt = 100
		_, err := runner.Batch(context.Background(), []workflow.Job{bad}, 1)

		var ae *permeation.AnalysisError
		Expect(errors.As(err, &ae)).To(BeTrue())
		Expect(ae.Experiment).To(Equal("bad"))
		Expect(ae.Stage).To(Equal(permeation.StageSimulate))
	})
})
