package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylab-research/atlas-cli/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a directory with no config file so only defaults apply.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://atlas.ripe.net/api/v2", cfg.Atlas.BaseURL)
	assert.Equal(t, 113897643, cfg.Atlas.MeasurementID)
	assert.Equal(t, 14593, cfg.Analysis.RelayASN)
	assert.Equal(t, "100.64.0.1", cfg.Analysis.RelayGateway)
	assert.Equal(t, 200, cfg.Analysis.MaxLatencyMs)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "plots", cfg.Paths.PlotDir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Probes)
}

func TestLoad_EnvOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("ATLAS_ATLAS_MEASUREMENT_ID", "42")
	t.Setenv("ATLAS_ANALYSIS_RELAY_GATEWAY", "100.64.0.99")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Atlas.MeasurementID)
	assert.Equal(t, "100.64.0.99", cfg.Analysis.RelayGateway)
}

func TestLoadProbeTable_EmbeddedDefault(t *testing.T) {
	table, err := LoadProbeTable("")
	require.NoError(t, err)
	assert.Len(t, table, 20)

	loc, err := table.Lookup(51475)
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Country)
	assert.NotEmpty(t, loc.Continent)
}

func TestLoadProbeTable_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
1001:
  country: Chile
  continent: South America
`), 0o644))

	table, err := LoadProbeTable(path)
	require.NoError(t, err)
	require.Len(t, table, 1)

	loc, err := table.Lookup(1001)
	require.NoError(t, err)
	assert.Equal(t, "Chile", loc.Country)
	assert.Equal(t, "South America", loc.Continent)
}

func TestLoadProbeTable_MissingFile(t *testing.T) {
	_, err := LoadProbeTable(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadProbeTable_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := LoadProbeTable(path)
	require.Error(t, err)
}

func TestProbeTable_Lookup_Unknown(t *testing.T) {
	table := ProbeTable{1: {Country: "UK", Continent: "Europe"}}

	_, err := table.Lookup(99999)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrUnknownProbe))
}

func TestProbeTable_IDs_Sorted(t *testing.T) {
	table := ProbeTable{
		30: {},
		10: {},
		20: {},
	}
	assert.Equal(t, []int{10, 20, 30}, table.IDs())
}

func TestMeasurementFile(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{DataDir: "data"}}
	assert.Equal(t, "data/measurement_113897643.json", cfg.MeasurementFile(113897643, "json"))
	assert.Equal(t, "data/measurement_113897643.csv", cfg.MeasurementFile(113897643, "csv"))
}

func TestProbesHistoryFile(t *testing.T) {
	cfg := &Config{
		Paths:  PathsConfig{DataDir: "data"},
		Probes: ProbeTable{20: {}, 5: {}, 12: {}},
	}
	assert.Equal(t, "data/probes_history_5_to_20.json", cfg.ProbesHistoryFile("json"))

	cfg.Probes = ProbeTable{7: {}}
	assert.Equal(t, "data/probes_history_7.csv", cfg.ProbesHistoryFile("csv"))
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	require.Error(t, err)
}
