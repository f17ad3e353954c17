package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/timelag/internal/workflow"
)

type reportRow struct {
	label string
	value float64
	unit  string
	fmt   string
}

func formatValue(v float64, format string) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return fmt.Sprintf(format, v)
}

// Report renders the analysis summary of res.
func Report(res *workflow.Result, th Theme) string {
	st := NewStyles(th)

	source := "detected"
	if !res.Detected {
		source = "override"
	}

	rows := []reportRow{
		{"Thickness", res.Thickness, "cm", "%.3g"},
		{"Temperature", res.Temperature, "°C", "%.0f"},
		{"Pressure", res.Pressure, "bar", "%.3g"},
		{"Stabilisation time", res.StabilisationTime, "s (" + source + ")", "%.0f"},
		{"End time", res.EndTime, "s", "%.0f"},
		{"Time lag", res.TimeLag, "s", "%.3g"},
		{"Slope", res.Slope, "cm³(STP) cm⁻² s⁻¹", "%.3g"},
		{"Intercept", res.Intercept, "cm³(STP) cm⁻²", "%.3g"},
		{"Diffusion coefficient", res.DiffusionCoefficient, "cm² s⁻¹", "%.3g"},
		{"Permeability", res.Permeability, "cm³(STP) cm⁻¹ s⁻¹ bar⁻¹", "%.3g"},
		{"Solubility coefficient", res.SolubilityCoefficient, "cm³(STP) cm⁻³ bar⁻¹", "%.3g"},
		{"Solubility", res.Solubility, "cm³(STP) cm⁻³", "%.3g"},
		{"Steady-state flux", res.SteadyStateFlux, "cm³(STP) cm⁻² s⁻¹", "%.3g"},
		{"R² (steady state)", res.Validation.RSquared, "", "%.5f"},
		{"Flux RMSE (relative)", res.Validation.RelativeRMSE, "", "%.3g"},
	}

	lines := make([]string, 0, len(rows)+4)
	lines = append(lines, st.Header.Render(res.Experiment))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			st.Label.Render(r.label),
			st.Value.Render(formatValue(r.value, r.fmt)),
			st.Unit.Render(r.unit),
		))
	}

	if len(res.NormalisedFlux) > 0 {
		lines = append(lines, "", st.Label.Render("Normalised flux")+" "+st.Sparkline(res.NormalisedFlux, 40))
	}
	if !res.IsFinite() {
		lines = append(lines, "", st.Warning.Render("fit is degenerate: derived coefficients are not finite"))
	}

	return st.Panel.Render(strings.Join(lines, "\n"))
}
