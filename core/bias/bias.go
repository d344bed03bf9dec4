// Package bias derives the net-inflow correction from recent actual versus
// expected error and applies it, optionally decayed, across the forecast
// horizon.
package bias

import (
	"math"
	"time"

	"github.com/pcwa-smotley/abayopt/core/flow"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

// Config bounds the correction and selects the decay behaviour.
type Config struct {
	// LookbackHours is the trailing window used for the mean (24 by default).
	LookbackHours int `json:"lookback_hours"`
	// ClampCFS bounds each hourly error sample so one anomalous period cannot
	// run the correction away.
	ClampCFS float64 `json:"clamp_cfs"`
	// HalfLife decays the applied bias across the horizon. Zero keeps the
	// legacy constant-hold behaviour.
	HalfLife time.Duration `json:"half_life"`
}

// SetDefaults fills zero values with the reference constants.
func (c *Config) SetDefaults() {
	if c.LookbackHours == 0 {
		c.LookbackHours = 24
	}
	if c.ClampCFS == 0 {
		c.ClampCFS = 2000.0
	}
}

// Compute returns the signed mean of (actual net - expected net) over the
// trailing lookback window. Rows must carry observed elevations; hours
// without a usable elevation delta are skipped. An empty window yields zero.
func Compute(lookback model.RowSequence, cfg Config) float64 {
	cfg.SetDefaults()
	if len(lookback) < 2 {
		return 0
	}
	var samples []float64
	for i := 1; i < len(lookback); i++ {
		prev, cur := &lookback[i-1], &lookback[i]
		if prev.ElevationFt == 0 || cur.ElevationFt == 0 {
			continue
		}
		dAF := physics.StorageFromFeet(cur.ElevationFt) - physics.StorageFromFeet(prev.ElevationFt)
		actualNet := dAF * physics.CFSPerAFHour
		expectedNet := flow.ExpectedNetCFS(cur)
		e := actualNet - expectedNet
		if e > cfg.ClampCFS {
			e = cfg.ClampCFS
		} else if e < -cfg.ClampCFS {
			e = -cfg.ClampCFS
		}
		samples = append(samples, e)
	}
	if len(samples) == 0 {
		return 0
	}
	if len(samples) > cfg.LookbackHours {
		samples = samples[len(samples)-cfg.LookbackHours:]
	}
	var sum float64
	for _, e := range samples {
		sum += e
	}
	return sum / float64(len(samples))
}

// Decayed returns the bias applied at horizon offset t. A zero half-life
// holds the base value constant.
func Decayed(base float64, offset, halfLife time.Duration) float64 {
	if halfLife <= 0 || offset <= 0 {
		return base
	}
	return base * math.Exp(-offset.Hours()*math.Ln2/halfLife.Hours())
}

// Stamp writes the per-row bias onto the forecast block so the solve and any
// later replay agree on the exact correction used at each hour.
func Stamp(forecast model.RowSequence, base float64, halfLife time.Duration) {
	if len(forecast) == 0 {
		return
	}
	start := forecast[0].Timestamp
	for i := range forecast {
		offset := forecast[i].Timestamp.Sub(start)
		forecast[i].BiasCFS = Decayed(base, offset, halfLife)
	}
}
