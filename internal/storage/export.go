package storage

import (
	"encoding/json"
	"io"
	"time"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/workflow"
)

type ExportSample struct {
	Time                   Number `json:"time"`
	Pressure               Number `json:"pressure"`
	Temperature            Number `json:"temperature"`
	Concentration          Number `json:"concentration"`
	CorrectedConcentration Number `json:"corrected_concentration"`
	Flux                   Number `json:"flux"`
	CumulativeFlux         Number `json:"cumulative_flux"`
	NormalisedFlux         Number `json:"normalised_flux"`
}

type ExportData struct {
	RunMetadata
	Samples        []ExportSample `json:"samples"`
	SimulatedTimes []float64      `json:"simulated_times,omitempty"`
	SimulatedFlux  []Number       `json:"simulated_flux,omitempty"`
}

func exportSample(s permeation.Sample, norm float64) ExportSample {
	return ExportSample{
		Time:                   Number(s.Time),
		Pressure:               Number(s.Pressure),
		Temperature:            Number(s.Temperature),
		Concentration:          Number(s.Concentration),
		CorrectedConcentration: Number(s.CorrectedConcentration),
		Flux:                   Number(s.Flux),
		CumulativeFlux:         Number(s.CumulativeFlux),
		NormalisedFlux:         Number(norm),
	}
}

// ExportJSON writes res as indented JSON. The concentration field is left
// out; the simulated outlet flux is included.
func ExportJSON(w io.Writer, res *workflow.Result) error {
	data := ExportData{
		RunMetadata: metadataFor("", time.Time{}, res),
		Samples:     make([]ExportSample, len(res.Samples)),
	}
	for i, s := range res.Samples {
		norm := 0.0
		if i < len(res.NormalisedFlux) {
			norm = res.NormalisedFlux[i]
		}
		data.Samples[i] = exportSample(s, norm)
	}
	if res.Field != nil {
		data.SimulatedTimes = res.Field.Times
		data.SimulatedFlux = numbers(res.Field.Flux)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
