// Package config loads application configuration and the static probe
// location table, and initializes the global logger.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/skylab-research/atlas-cli/internal/model"
)

//go:embed probes.yaml
var defaultProbesYAML []byte

// Config holds the full application configuration.
type Config struct {
	Atlas    AtlasConfig    `yaml:"atlas" mapstructure:"atlas"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	// Probes is the static probe -> location table, loaded from
	// analysis.probes_file or the embedded default.
	Probes ProbeTable `yaml:"-" mapstructure:"-"`
}

// AtlasConfig holds RIPE Atlas API settings.
type AtlasConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MeasurementID int    `yaml:"measurement_id" mapstructure:"measurement_id"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// AnalysisConfig configures the latency decomposition and the analysis window.
type AnalysisConfig struct {
	RelayASN     int    `yaml:"relay_asn" mapstructure:"relay_asn"`
	RelayGateway string `yaml:"relay_gateway" mapstructure:"relay_gateway"`
	WindowStart  int64  `yaml:"window_start" mapstructure:"window_start"`
	WindowEnd    int64  `yaml:"window_end" mapstructure:"window_end"`
	MaxLatencyMs int    `yaml:"max_latency_ms" mapstructure:"max_latency_ms"`
	ProbesFile   string `yaml:"probes_file" mapstructure:"probes_file"`
}

// PathsConfig holds the data and plot directories.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	PlotDir string `yaml:"plot_dir" mapstructure:"plot_dir"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Location is a probe's static country and continent.
type Location struct {
	Country   string `yaml:"country"`
	Continent string `yaml:"continent"`
}

// ProbeTable maps probe ids to their static locations.
type ProbeTable map[int]Location

// Lookup returns the location for a probe id. A missing probe is a
// configuration error, never silently dropped.
func (t ProbeTable) Lookup(probeID int) (Location, error) {
	loc, ok := t[probeID]
	if !ok {
		return Location{}, eris.Wrapf(model.ErrUnknownProbe, "probe %d", probeID)
	}
	return loc, nil
}

// IDs returns the probe ids in ascending order.
func (t ProbeTable) IDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Load reads configuration from file and environment, then loads the probe
// location table.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("atlas.base_url", "https://atlas.ripe.net/api/v2")
	v.SetDefault("atlas.measurement_id", 113897643)
	v.SetDefault("atlas.user_agent", "atlas-cli/1.0")
	v.SetDefault("atlas.timeout_secs", 60)
	v.SetDefault("atlas.max_retries", 3)
	v.SetDefault("analysis.relay_asn", 14593)
	v.SetDefault("analysis.relay_gateway", "100.64.0.1")
	v.SetDefault("analysis.max_latency_ms", 200)
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.plot_dir", "plots")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "atlas-cli.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	probes, err := LoadProbeTable(cfg.Analysis.ProbesFile)
	if err != nil {
		return nil, err
	}
	cfg.Probes = probes

	return &cfg, nil
}

// LoadProbeTable reads the probe location table from the given YAML file,
// or the embedded default table when path is empty.
func LoadProbeTable(path string) (ProbeTable, error) {
	raw := defaultProbesYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read probes file %s", path)
		}
		raw = b
	}

	var table ProbeTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, eris.Wrap(err, "config: parse probes table")
	}
	if len(table) == 0 {
		return nil, eris.New("config: probes table is empty")
	}
	return table, nil
}

// MeasurementFile returns the raw or derived file path for a measurement.
func (c *Config) MeasurementFile(measurementID int, ext string) string {
	return fmt.Sprintf("%s/measurement_%d.%s", c.Paths.DataDir, measurementID, ext)
}

// ProbesHistoryFile returns the raw or derived file path for the probe
// history snapshot covering the configured probe set.
func (c *Config) ProbesHistoryFile(ext string) string {
	ids := c.Probes.IDs()
	if len(ids) == 1 {
		return fmt.Sprintf("%s/probes_history_%d.%s", c.Paths.DataDir, ids[0], ext)
	}
	return fmt.Sprintf("%s/probes_history_%d_to_%d.%s", c.Paths.DataDir, ids[0], ids[len(ids)-1], ext)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
