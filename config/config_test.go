package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `reservoir:
  default_elev_ft: 1170.0
  min_elev_ft: 1168.0
  float_buffer_ft: 0.5
scheduler:
  max_mw: 5.8
  min_mw: 0.8
  solve_timeout_seconds: 20
bias:
  lookback_hours: 24
  clamp_cfs: 2000
  half_life_hours: 6
rafting:
  water_year_type: "Below Normal"
inputs:
  lookback_hours: 24
  horizon_hours: 48
mqtt:
  broker: "tcp://localhost:1883"
metrics:
  influx_url: "http://localhost:8086"
  influx_org: "ops"
  influx_bucket: "abay"
store:
  path: "runs.jsonl"
logging:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1170.0, cfg.Reservoir.DefaultElevFt)
	require.Equal(t, 5.8, cfg.Scheduler.MaxMW)
	require.Equal(t, 48, cfg.Inputs.HorizonHours)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, "abayopt", cfg.MQTT.ClientID) // default
	require.Equal(t, "http://localhost:8086", cfg.Metrics.InfluxURL)
	require.Equal(t, "debug", cfg.Logging.Level)

	require.Equal(t, 20*time.Second, cfg.Scheduler.Core(cfg.Reservoir, 5.8).SolveTimeout)
	require.Equal(t, 6*time.Hour, cfg.Bias.Core().HalfLife)
	require.Equal(t, 1168.0, cfg.Reservoir.Recalc().MinElevFt)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"scheduler": {"max_mw": 5.8}, "logging": {"level": "info"}}`)
	t.Setenv("K_SCHEDULER__MAX_MW", "5.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 5.5, cfg.Scheduler.MaxMW, 1e-9)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", "x = 1")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, "config.yaml", `logging:
  level: "loud"
`)
	_, err := Load(path)
	require.Error(t, err)
}
