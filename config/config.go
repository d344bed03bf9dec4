// Package config loads the service configuration from a JSON or YAML file
// with optional K_-prefixed environment overrides (K_SCHEDULER__MAX_MW=5.8
// overrides scheduler.max_mw).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pcwa-smotley/abayopt/core/bias"
	"github.com/pcwa-smotley/abayopt/core/inputs"
	"github.com/pcwa-smotley/abayopt/core/rafting"
	"github.com/pcwa-smotley/abayopt/core/recalc"
	"github.com/pcwa-smotley/abayopt/core/scheduler"
)

type Config struct {
	Reservoir ReservoirConfig `json:"reservoir"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Bias      BiasConfig      `json:"bias"`
	Rafting   rafting.Config  `json:"rafting"`
	Inputs    InputsConfig    `json:"inputs"`
	MQTT      MQTTConfig      `json:"mqtt"`
	Metrics   MetricsConfig   `json:"metrics"`
	Store     StoreConfig     `json:"store"`
	Logging   LoggingConfig   `json:"logging"`
}

// ReservoirConfig holds the pool limits shared by the solver and the replay.
type ReservoirConfig struct {
	DefaultElevFt float64 `json:"default_elev_ft"`
	MinElevFt     float64 `json:"min_elev_ft"`
	FloatBufferFt float64 `json:"float_buffer_ft"`
	TargetElevFt  float64 `json:"target_elev_ft"`
}

// Recalc maps the reservoir limits to the replay engine's config.
func (c ReservoirConfig) Recalc() recalc.Config {
	return recalc.Config{DefaultElevFt: c.DefaultElevFt, MinElevFt: c.MinElevFt}
}

// SchedulerConfig mirrors scheduler.Config with file-friendly durations.
type SchedulerConfig struct {
	RampMWPerHour       float64 `json:"ramp_mw_per_hour"`
	MinMW               float64 `json:"min_mw"`
	MaxMW               float64 `json:"max_mw"`
	WeightMinBreach     float64 `json:"weight_min_breach"`
	WeightSpill         float64 `json:"weight_spill"`
	WeightWindow        float64 `json:"weight_window"`
	WeightSmooth        float64 `json:"weight_smooth"`
	WeightTracking      float64 `json:"weight_tracking"`
	HeadCuts            int     `json:"head_cuts"`
	SolveTimeoutSeconds int     `json:"solve_timeout_seconds"`
}

// Core builds the scheduler config, pulling the pool limits from reservoir.
func (c SchedulerConfig) Core(res ReservoirConfig, raftTargetMW float64) scheduler.Config {
	return scheduler.Config{
		MinElevFt:       res.MinElevFt,
		FloatBufferFt:   res.FloatBufferFt,
		TargetElevFt:    res.TargetElevFt,
		RampMWPerHour:   c.RampMWPerHour,
		MinMW:           c.MinMW,
		MaxMW:           c.MaxMW,
		RaftTargetMW:    raftTargetMW,
		WeightMinBreach: c.WeightMinBreach,
		WeightSpill:     c.WeightSpill,
		WeightWindow:    c.WeightWindow,
		WeightSmooth:    c.WeightSmooth,
		WeightTracking:  c.WeightTracking,
		HeadCuts:        c.HeadCuts,
		SolveTimeout:    time.Duration(c.SolveTimeoutSeconds) * time.Second,
	}
}

// BiasConfig mirrors bias.Config with file-friendly durations.
type BiasConfig struct {
	LookbackHours int     `json:"lookback_hours"`
	ClampCFS      float64 `json:"clamp_cfs"`
	HalfLifeHours int     `json:"half_life_hours"`
}

func (c BiasConfig) Core() bias.Config {
	return bias.Config{
		LookbackHours: c.LookbackHours,
		ClampCFS:      c.ClampCFS,
		HalfLife:      time.Duration(c.HalfLifeHours) * time.Hour,
	}
}

// InputsConfig holds the assembly windows.
type InputsConfig struct {
	LookbackHours int `json:"lookback_hours"`
	HorizonHours  int `json:"horizon_hours"`
}

func (c InputsConfig) Core(biasHalfLife time.Duration) inputs.Config {
	return inputs.Config{
		LookbackHours: c.LookbackHours,
		HorizonHours:  c.HorizonHours,
		BiasHalfLife:  biasHalfLife,
	}
}

// MQTTConfig configures the gauge telemetry subscriber. An empty broker
// disables live telemetry.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// SetDefaults applies sane defaults.
func (c *MQTTConfig) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "abayopt"
	}
	if c.Topic == "" {
		c.Topic = "abay/gauges/#"
	}
}

// MetricsConfig configures the Influx sink and the Prometheus endpoint.
// An empty Influx URL disables persistence; an empty PromAddr disables the
// scrape server.
type MetricsConfig struct {
	InfluxURL    string `json:"influx_url"`
	InfluxToken  string `json:"influx_token"`
	InfluxOrg    string `json:"influx_org"`
	InfluxBucket string `json:"influx_bucket"`
	PromAddr     string `json:"prom_addr"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "runs.jsonl"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Rafting.SetDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Rafting.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
