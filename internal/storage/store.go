// Package storage persists analysis runs as a directory of CSV tables with a
// JSON metadata file, and exports results as JSON.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/timelag/internal/diffusion"
	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/workflow"
)

const (
	metadataFile      = "metadata.json"
	preprocessedFile  = "preprocessed.csv"
	resultsFile       = "results.csv"
	concentrationFile = "concentration_profile.csv"
	fluxFile          = "flux_profile.csv"

	normalisedFluxColumn = "normalised flux"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type SimulationMetadata struct {
	D        Number `json:"d"`
	CEq      Number `json:"c_eq"`
	Length   Number `json:"length"`
	Dt       Number `json:"dt"`
	Dx       Number `json:"dx"`
	Duration Number `json:"duration"`
	Nodes    int    `json:"nodes"`
	Steps    int    `json:"steps"`
}

type RunMetadata struct {
	ID                    string             `json:"id"`
	Experiment            string             `json:"experiment"`
	Timestamp             time.Time          `json:"timestamp"`
	Thickness             Number             `json:"thickness"`
	Diameter              Number             `json:"diameter"`
	FlowRate              *float64           `json:"flow_rate,omitempty"`
	Temperature           Number             `json:"temperature"`
	Pressure              Number             `json:"pressure"`
	StabilisationTime     Number             `json:"stabilisation_time"`
	EndTime               Number             `json:"end_time"`
	Detected              bool               `json:"detected"`
	Slope                 Number             `json:"slope"`
	Intercept             Number             `json:"intercept"`
	TimeLag               Number             `json:"time_lag"`
	DiffusionCoefficient  Number             `json:"diffusion_coefficient"`
	Permeability          Number             `json:"permeability"`
	SolubilityCoefficient Number             `json:"solubility_coefficient"`
	Solubility            Number             `json:"solubility"`
	SteadyStateFlux       Number             `json:"steady_state_flux"`
	RSquared              Number             `json:"r_squared"`
	RelativeRMSE          Number             `json:"relative_rmse"`
	Metrics               map[string]Number  `json:"metrics"`
	Simulation            SimulationMetadata `json:"simulation"`
}

// FitResult rebuilds the fitted coefficients.
func (m *RunMetadata) FitResult() permeation.FitResult {
	return permeation.FitResult{
		Slope:                 float64(m.Slope),
		Intercept:             float64(m.Intercept),
		TimeLag:               float64(m.TimeLag),
		DiffusionCoefficient:  float64(m.DiffusionCoefficient),
		Permeability:          float64(m.Permeability),
		SolubilityCoefficient: float64(m.SolubilityCoefficient),
		Solubility:            float64(m.Solubility),
		Pressure:              float64(m.Pressure),
	}
}

func metadataFor(id string, ts time.Time, res *workflow.Result) RunMetadata {
	meta := RunMetadata{
		ID:                    id,
		Experiment:            res.Experiment,
		Timestamp:             ts,
		Thickness:             Number(res.Thickness),
		Diameter:              Number(res.Diameter),
		FlowRate:              res.FlowRate,
		Temperature:           Number(res.Temperature),
		Pressure:              Number(res.Pressure),
		StabilisationTime:     Number(res.StabilisationTime),
		EndTime:               Number(res.EndTime),
		Detected:              res.Detected,
		Slope:                 Number(res.Slope),
		Intercept:             Number(res.Intercept),
		TimeLag:               Number(res.TimeLag),
		DiffusionCoefficient:  Number(res.DiffusionCoefficient),
		Permeability:          Number(res.Permeability),
		SolubilityCoefficient: Number(res.SolubilityCoefficient),
		Solubility:            Number(res.Solubility),
		SteadyStateFlux:       Number(res.SteadyStateFlux),
		RSquared:              Number(res.Validation.RSquared),
		RelativeRMSE:          Number(res.Validation.RelativeRMSE),
		Metrics:               numberMap(res.Validation.Metrics),
	}
	if f := res.Field; f != nil {
		nt, nx := f.Shape()
		meta.Simulation = SimulationMetadata{
			D:        Number(f.Params.D),
			CEq:      Number(f.Params.CEq),
			Length:   Number(f.Params.Length),
			Dt:       Number(f.Params.Dt),
			Dx:       Number(f.Params.Dx),
			Duration: Number(f.Params.Duration),
			Nodes:    nx,
			Steps:    nt,
		}
	}
	return meta
}

func (s *Store) newRunID(experiment string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s", experiment, ts.Format("060102-150405"), uuid.NewString()[:8])
}

// Save writes a run directory for res and returns its id. Metadata is
// written last, so a directory without it is an incomplete run; a failed
// save removes the directory.
func (s *Store) Save(res *workflow.Result) (runID string, err error) {
	ts := s.now()
	runID = s.newRunID(res.Experiment, ts)
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
		}
	}()

	tables := []table{
		{preprocessedFile, preprocessedTable(res)},
		{resultsFile, resultsTable(res)},
	}
	if res.Field != nil {
		tables = append(tables,
			table{concentrationFile, res.Field.ConcentrationTable()},
			table{fluxFile, res.Field.FluxTable()},
		)
	}
	for _, t := range tables {
		if err := writeCSV(filepath.Join(runDir, t.name), t.rows); err != nil {
			return "", fmt.Errorf("write %s: %w", t.name, err)
		}
	}

	data, err := json.MarshalIndent(metadataFor(runID, ts, res), "", "  ")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", metadataFile, err)
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), append(data, '\n'), 0644); err != nil {
		return "", err
	}
	return runID, nil
}

type table struct {
	name string
	rows [][]string
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func preprocessedTable(res *workflow.Result) [][]string {
	cols := permeation.Columns()
	header := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		header = append(header, c.String())
	}
	header = append(header, normalisedFluxColumn)

	rows := make([][]string, 0, len(res.Samples)+1)
	rows = append(rows, header)
	for i, s := range res.Samples {
		row := make([]string, 0, len(header))
		for _, c := range cols {
			v, _ := s.Value(c)
			row = append(row, formatFloat(v))
		}
		norm := 0.0
		if i < len(res.NormalisedFlux) {
			norm = res.NormalisedFlux[i]
		}
		row = append(row, formatFloat(norm))
		rows = append(rows, row)
	}
	return rows
}

func resultsTable(res *workflow.Result) [][]string {
	return [][]string{
		{
			"experiment",
			"thickness / cm",
			"temperature / °C",
			"pressure / bar",
			"slope / cm^3(STP) cm^-2 s^-1",
			"intercept / cm^3(STP) cm^-2",
			"time lag / s",
			"diffusion coefficient / cm^2 s^-1",
			"solubility coefficient / cm^3(STP) cm^-3 bar^-1",
			"permeability / cm^3(STP) cm^-1 s^-1 bar^-1",
			"solubility / cm^3(STP) cm^-3",
		},
		{
			res.Experiment,
			formatFloat(res.Thickness),
			formatFloat(res.Temperature),
			formatFloat(res.Pressure),
			formatFloat(res.Slope),
			formatFloat(res.Intercept),
			formatFloat(res.TimeLag),
			formatFloat(res.DiffusionCoefficient),
			formatFloat(res.SolubilityCoefficient),
			formatFloat(res.Permeability),
			formatFloat(res.Solubility),
		},
	}
}

// List returns every complete run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSamples reads back the preprocessed series and its normalised flux.
func (s *Store) LoadSamples(runID string) ([]permeation.Sample, []float64, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), preprocessedFile))
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []permeation.Sample{}, []float64{}, nil
	}

	cols := permeation.Columns()
	samples := make([]permeation.Sample, 0, len(records)-1)
	norm := make([]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		vals, err := parseRow(record, len(cols)+1)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", preprocessedFile, i+2, err)
		}
		samples = append(samples, permeation.Sample{
			Time:                   vals[0],
			Pressure:               vals[1],
			Temperature:            vals[2],
			Concentration:          vals[3],
			CorrectedConcentration: vals[4],
			Flux:                   vals[5],
			CumulativeFlux:         vals[6],
		})
		norm = append(norm, vals[7])
	}
	return samples, norm, nil
}

// LoadFlux reads back the simulated outlet flux.
func (s *Store) LoadFlux(runID string) (times, flux []float64, err error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), fluxFile))
	if err != nil {
		return nil, nil, err
	}
	for i, record := range records[min(1, len(records)):] {
		vals, err := parseRow(record, 2)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", fluxFile, i+2, err)
		}
		times = append(times, vals[0])
		flux = append(flux, vals[1])
	}
	return times, flux, nil
}

// LoadResult rebuilds the full analysis result of a stored run.
func (s *Store) LoadResult(runID string) (*workflow.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	samples, norm, err := s.LoadSamples(runID)
	if err != nil {
		return nil, err
	}

	res := &workflow.Result{
		Experiment:        meta.Experiment,
		Thickness:         float64(meta.Thickness),
		Diameter:          float64(meta.Diameter),
		FlowRate:          meta.FlowRate,
		Temperature:       float64(meta.Temperature),
		StabilisationTime: float64(meta.StabilisationTime),
		EndTime:           float64(meta.EndTime),
		Detected:          meta.Detected,
		FitResult:         meta.FitResult(),
		SteadyStateFlux:   float64(meta.SteadyStateFlux),
		Samples:           samples,
		NormalisedFlux:    norm,
		Validation: workflow.Validation{
			RSquared:     float64(meta.RSquared),
			RelativeRMSE: float64(meta.RelativeRMSE),
			Metrics:      floatMap(meta.Metrics),
		},
	}
	res.StabilisationIndex = -1
	for i, smp := range samples {
		if smp.Time >= res.StabilisationTime {
			res.StabilisationIndex = i
			break
		}
	}

	if meta.Simulation.Steps == 0 {
		return res, nil
	}
	res.Field, err = s.loadField(runID, meta.Simulation)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) loadField(runID string, sim SimulationMetadata) (*diffusion.Field, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), concentrationFile))
	if err != nil {
		return nil, err
	}
	conc := make([][]float64, 0, len(records))
	for i, record := range records[min(1, len(records)):] {
		vals, err := parseRow(record, len(record))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", concentrationFile, i+2, err)
		}
		conc = append(conc, vals[1:])
	}
	_, flux, err := s.LoadFlux(runID)
	if err != nil {
		return nil, err
	}

	p := diffusion.Params{
		D:        float64(sim.D),
		CEq:      float64(sim.CEq),
		Length:   float64(sim.Length),
		Duration: float64(sim.Duration),
		Dt:       float64(sim.Dt),
		Dx:       float64(sim.Dx),
	}
	field, err := diffusion.NewField(p, conc, flux)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return field, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func parseRow(record []string, n int) ([]float64, error) {
	if len(record) < n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(record))
	}
	vals := make([]float64, n)
	for i := range vals {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
