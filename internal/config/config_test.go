package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/timelag/internal/permeation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timelag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 70, cfg.Detection.Window)
	assert.Equal(t, 0.003, cfg.Detection.Threshold)
	assert.Equal(t, 1.0, cfg.Simulation.Dt)
	assert.Equal(t, 50, cfg.Simulation.SpaceDivisions)
	assert.Equal(t, "t / s", cfg.Columns.Time)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/permeation
detection:
  threshold: 0.01
experiments:
  S4R3: {thickness: 0.025, flow_rate: 9.83}
  S3R1: {thickness: 0.1, start: 20000, end: 30000, file: s3r1.csv}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/permeation", cfg.DataDir)
	assert.Equal(t, 0.01, cfg.Detection.Threshold)
	assert.Equal(t, 70, cfg.Detection.Window, "unset keys keep their defaults")
	assert.Equal(t, []string{"S3R1", "S4R3"}, cfg.Experiments.IDs())

	exp, err := cfg.Experiments.Lookup("S4R3")
	require.NoError(t, err)
	assert.Equal(t, 0.025, exp.Thickness)
	require.NotNil(t, exp.FlowRate)
	assert.Equal(t, 9.83, *exp.FlowRate)
}

func TestLoadRepositoryConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "timelag.yaml"))
	require.NoError(t, err)

	assert.Len(t, cfg.Experiments.IDs(), 18)
	exp, err := cfg.Experiments.Lookup("S4R6")
	require.NoError(t, err)
	assert.Equal(t, 0.025, exp.Thickness)
	assert.Equal(t, 10.0, *exp.FlowRate)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIMELAG_OUTPUT_DIR", "/tmp/runs")
	t.Setenv("TIMELAG_LOG_LEVEL", "debug")
	t.Setenv("TIMELAG_THEME", "dracula")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/runs", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "dracula", cfg.Theme)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"zero thickness", "experiments: {X: {thickness: 0}}", permeation.ErrInvalidParameter},
		{"negative flow", "experiments: {X: {thickness: 0.1, flow_rate: -2}}", permeation.ErrInvalidParameter},
		{"zero window", "detection: {window: 0}", permeation.ErrInvalidParameter},
		{"bad log format", "logging: {format: xml}", permeation.ErrInvalidParameter},
		{"empty column", "columns: {time: ''}", permeation.ErrInvalidParameter},
		{"reversed window", "experiments: {X: {thickness: 0.1, start: 10, end: 5}}", permeation.ErrInvalidOverride},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.Experiments.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownExperiment)

	_, err = cfg.Params("nope")
	assert.ErrorIs(t, err, ErrUnknownExperiment)
}

func TestParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"
	cfg.Detection.Window = 30
	cfg.Experiments["S3R1"] = Experiment{
		Thickness: 0.1,
		FlowRate:  permeation.Float(4.17),
		Start:     permeation.Float(2e4),
		End:       permeation.Float(3e4),
	}
	cfg.Experiments["S4R3"] = Experiment{Thickness: 0.025, Diameter: permeation.Float(2), File: "/abs/s4r3.csv"}

	p, err := cfg.Params("S3R1")
	require.NoError(t, err)
	assert.Equal(t, "S3R1", p.Experiment)
	assert.Equal(t, 0.1, p.Thickness)
	assert.Equal(t, DefaultDiameter, p.Diameter)
	assert.Equal(t, 4.17, *p.FlowRate)
	assert.Equal(t, 2e4, *p.Override.Start)
	assert.Equal(t, 30, p.Detection.Window)
	assert.NoError(t, p.Validate())

	p, err = cfg.Params("S4R3")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Diameter)
	assert.Nil(t, p.FlowRate)

	path, err := cfg.DataPath("S3R1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "S3R1.xlsx"), path)

	path, err = cfg.DataPath("S4R3")
	require.NoError(t, err)
	assert.Equal(t, "/abs/s4r3.csv", path)
}

func TestPresets(t *testing.T) {
	p, ok := GetPreset("strict")
	require.True(t, ok)
	assert.True(t, p.RequireMax)

	_, ok = GetPreset("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"default", "fast", "strict", "workflow"}, ListPresets())
	for _, name := range ListPresets() {
		p, _ := GetPreset(name)
		assert.NoError(t, p.Options().Validate(), name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Experiments["S3R2"] = Experiment{Thickness: 0.1, FlowRate: permeation.Float(4.046)}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Experiments, loaded.Experiments)
}
