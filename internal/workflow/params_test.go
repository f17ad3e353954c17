package workflow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/stabilisation"
	"github.com/san-kum/timelag/internal/workflow"
)

var _ = Describe("Params", func() {
	It("defaults to the workflow detector and a 50-division grid", func() {
		p := workflow.DefaultParams("X", 0.1, 1)
		Expect(p.Detection).To(Equal(stabilisation.WorkflowOptions()))
		Expect(p.Dt).To(Equal(1.0))
		Expect(p.SpaceDivisions).To(Equal(50))
		Expect(p.Validate()).To(Succeed())
	})

	It("requires an experiment name", func() {
		p := workflow.DefaultParams("", 0.1, 1)
		Expect(p.Validate()).To(MatchError(permeation.ErrInvalidParameter))
	})

	It("accepts an explicit positive flow rate", func() {
		p := workflow.DefaultParams("X", 0.1, 1)
		p.FlowRate = permeation.Float(8)
		Expect(p.Validate()).To(Succeed())
	})

	It("rejects a zero-width override", func() {
		p := workflow.DefaultParams("X", 0.1, 1)
		p.Override = permeation.Override{Start: permeation.Float(5), End: permeation.Float(5)}
		Expect(p.Validate()).To(MatchError(permeation.ErrInvalidOverride))
	})
})
