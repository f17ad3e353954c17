// Package config loads the tool's settings: directories, detection and
// simulation defaults, the input column map and the experiment registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/san-kum/timelag/internal/dataio"
	"github.com/san-kum/timelag/internal/logging"
	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/stabilisation"
	"github.com/san-kum/timelag/internal/workflow"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir   = "data"
	DefaultOutputDir = "output"
	DefaultTheme     = "default"
	DefaultDiameter  = 1.0

	// EnvPrefix prefixes every environment override, e.g. TIMELAG_DATA_DIR.
	EnvPrefix = "TIMELAG"
)

var ErrUnknownExperiment = errors.New("config: unknown experiment")

type Config struct {
	DataDir     string           `yaml:"data_dir" validate:"required"`
	OutputDir   string           `yaml:"output_dir" validate:"required"`
	Theme       string           `yaml:"theme" validate:"required"`
	Logging     logging.Options  `yaml:"logging"`
	Membrane    MembraneConfig   `yaml:"membrane"`
	Detection   DetectionConfig  `yaml:"detection"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Columns     dataio.ColumnMap `yaml:"columns"`
	Experiments Experiments      `yaml:"experiments" validate:"dive"`
}

type MembraneConfig struct {
	Diameter float64 `yaml:"diameter" validate:"gt=0"`
}

type DetectionConfig struct {
	Window     int     `yaml:"window" validate:"gte=1"`
	Threshold  float64 `yaml:"threshold" validate:"gt=0"`
	RequireMax bool    `yaml:"require_max"`
}

func (d DetectionConfig) Options() stabilisation.Options {
	return stabilisation.Options{Window: d.Window, Threshold: d.Threshold, RequireMax: d.RequireMax}
}

type SimulationConfig struct {
	Dt             float64 `yaml:"dt" validate:"gt=0"`
	SpaceDivisions int     `yaml:"space_divisions" validate:"gte=1"`
}

// Experiment is one registry entry. Nil fields fall back to the global
// settings: Diameter to membrane.diameter, FlowRate to the per-sample column,
// Start to detection.
type Experiment struct {
	File      string   `yaml:"file,omitempty"`
	Thickness float64  `yaml:"thickness" validate:"gt=0"`
	FlowRate  *float64 `yaml:"flow_rate,omitempty" validate:"omitempty,gt=0"`
	Diameter  *float64 `yaml:"diameter,omitempty" validate:"omitempty,gt=0"`
	Start     *float64 `yaml:"start,omitempty"`
	End       *float64 `yaml:"end,omitempty"`
}

type Experiments map[string]Experiment

func (e Experiments) Lookup(id string) (Experiment, error) {
	exp, ok := e[id]
	if !ok {
		return Experiment{}, fmt.Errorf("%w: %q", ErrUnknownExperiment, id)
	}
	return exp, nil
}

// IDs returns the experiment identifiers in sorted order.
func (e Experiments) IDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:   DefaultDataDir,
		OutputDir: DefaultOutputDir,
		Theme:     DefaultTheme,
		Logging:   logging.DefaultOptions(),
		Membrane:  MembraneConfig{Diameter: DefaultDiameter},
		Detection: DetectionConfig{
			Window:    stabilisation.WorkflowWindow,
			Threshold: stabilisation.WorkflowThreshold,
		},
		Simulation: SimulationConfig{
			Dt:             workflow.DefaultDt,
			SpaceDivisions: workflow.DefaultSpaceDivisions,
		},
		Columns:     dataio.DefaultColumns(),
		Experiments: Experiments{},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

type envOverrides struct {
	DataDir   string `envconfig:"DATA_DIR"`
	OutputDir string `envconfig:"OUTPUT_DIR"`
	Theme     string `envconfig:"THEME"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("load config from env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataDir, env.DataDir)
	set(&c.OutputDir, env.OutputDir)
	set(&c.Theme, env.Theme)
	set(&c.Logging.Level, env.LogLevel)
	set(&c.Logging.Format, env.LogFormat)
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", permeation.ErrInvalidParameter, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", permeation.ErrInvalidParameter, err)
	}
	for _, id := range c.Experiments.IDs() {
		exp := c.Experiments[id]
		o := permeation.Override{Start: exp.Start, End: exp.End}
		if err := o.Validate(); err != nil {
			return fmt.Errorf("experiment %q: %w", id, err)
		}
	}
	return nil
}

// DataPath resolves the input file of an experiment. Without an explicit
// file it is <data_dir>/<id>.xlsx.
func (c *Config) DataPath(id string) (string, error) {
	exp, err := c.Experiments.Lookup(id)
	if err != nil {
		return "", err
	}
	file := exp.File
	if file == "" {
		file = id + ".xlsx"
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	return filepath.Join(c.DataDir, file), nil
}

// Params builds the workflow parameters for a registered experiment.
func (c *Config) Params(id string) (workflow.Params, error) {
	exp, err := c.Experiments.Lookup(id)
	if err != nil {
		return workflow.Params{}, err
	}
	p := c.BaseParams(id, exp.Thickness)
	if exp.Diameter != nil {
		p.Diameter = *exp.Diameter
	}
	p.FlowRate = exp.FlowRate
	p.Override = permeation.Override{Start: exp.Start, End: exp.End}
	return p, nil
}

// BaseParams builds workflow parameters from the global settings only.
func (c *Config) BaseParams(experiment string, thickness float64) workflow.Params {
	p := workflow.DefaultParams(experiment, thickness, c.Membrane.Diameter)
	p.Detection = c.Detection.Options()
	p.Dt = c.Simulation.Dt
	p.SpaceDivisions = c.Simulation.SpaceDivisions
	return p
}
