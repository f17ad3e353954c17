package timelag_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/timelag"
)

func linearSeries(m, c, noise float64, seed int64) []permeation.Sample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]permeation.Sample, 1001)
	for i := range samples {
		t := float64(i)
		samples[i] = permeation.Sample{
			Time:           t,
			CumulativeFlux: m*t + c + rng.NormFloat64()*noise,
			Pressure:       50,
			Flux:           m,
		}
	}
	return samples
}

var _ = Describe("Fit", func() {
	const (
		m         = 1e-6
		c         = -5e-3
		thickness = 0.1
	)

	Context("on an exactly linear steady state", func() {
		var fit permeation.FitResult

		BeforeEach(func() {
			var err error
			fit, err = timelag.Fit(linearSeries(m, c, 0, 1), 500, thickness)
			Expect(err).NotTo(HaveOccurred())
		})

		It("recovers slope and intercept", func() {
			Expect(fit.Slope).To(BeNumerically("~", m, 1e-12))
			Expect(fit.Intercept).To(BeNumerically("~", c, 1e-9))
		})

		It("derives the time lag and diffusivity", func() {
			Expect(fit.TimeLag).To(BeNumerically("~", 5000, 1e-3))
			Expect(fit.DiffusionCoefficient).To(BeNumerically("~", thickness*thickness/(6*5000), 1e-12))
		})

		It("uses the mean steady-state pressure", func() {
			Expect(fit.Pressure).To(Equal(50.0))
			Expect(fit.Permeability).To(BeNumerically("~", thickness*m/50, 1e-15))
		})

		It("keeps the closed-form identities", func() {
			Expect(fit.TimeLag).To(Equal(-fit.Intercept / fit.Slope))
			Expect(fit.SolubilityCoefficient).To(Equal(fit.Permeability / fit.DiffusionCoefficient))
			Expect(fit.Solubility).To(Equal(fit.Slope * thickness / fit.DiffusionCoefficient))
		})
	})

	DescribeTable("converges as noise vanishes",
		func(noise, slopeTol, interceptTol float64) {
			fit, err := timelag.Fit(linearSeries(m, c, noise, 42), 500, thickness)
			Expect(err).NotTo(HaveOccurred())
			Expect(fit.Slope).To(BeNumerically("~", m, slopeTol))
			Expect(fit.Intercept).To(BeNumerically("~", c, interceptTol))
			Expect(fit.DiffusionCoefficient).To(BeNumerically(">", 0))
			Expect(fit.Permeability).To(BeNumerically(">", 0))
			Expect(fit.Solubility).To(BeNumerically(">", 0))
			Expect(fit.SolubilityCoefficient).To(BeNumerically(">", 0))
		},
		Entry("noise 1e-7", 1e-7, 1e-9, 1e-6),
		Entry("noise 1e-8", 1e-8, 1e-10, 1e-7),
		Entry("noise 1e-10", 1e-10, 1e-12, 1e-9),
	)

	It("is deterministic", func() {
		samples := linearSeries(m, c, 1e-7, 3)
		a, err := timelag.Fit(samples, 500, thickness)
		Expect(err).NotTo(HaveOccurred())
		b, err := timelag.Fit(samples, 500, thickness)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("only uses samples strictly after the stabilisation time", func() {
		samples := linearSeries(m, c, 0, 1)
		for i := 0; i <= 500; i++ {
			samples[i].CumulativeFlux = 0
			samples[i].Pressure = 1
		}
		fit, err := timelag.Fit(samples, 500, thickness)
		Expect(err).NotTo(HaveOccurred())
		Expect(fit.Slope).To(BeNumerically("~", m, 1e-12))
		Expect(fit.Pressure).To(Equal(50.0))
	})

	It("lets a flat line propagate as non-finite values", func() {
		samples := linearSeries(0, 1e-3, 0, 1)
		fit, err := timelag.Fit(samples, 500, thickness)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsInf(fit.TimeLag, 0)).To(BeTrue())
		Expect(fit.IsFinite()).To(BeFalse())
	})

	It("rejects a non-positive thickness", func() {
		_, err := timelag.Fit(linearSeries(m, c, 0, 1), 500, 0)
		Expect(err).To(MatchError(permeation.ErrInvalidParameter))
	})

	It("needs two samples after the stabilisation time", func() {
		_, err := timelag.Fit(linearSeries(m, c, 0, 1), 999, thickness)
		Expect(err).To(MatchError(permeation.ErrInsufficientData))
	})
})

var _ = Describe("Derive", func() {
	It("matches the worked example", func() {
		fit := timelag.Derive(1e-6, -5e-3, 0.1, 50)
		Expect(fit.TimeLag).To(BeNumerically("~", 5000, 1e-9))
		Expect(fit.DiffusionCoefficient).To(BeNumerically("~", 3.3333e-7, 1e-11))
	})
})
