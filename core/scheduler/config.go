package scheduler

import (
	"fmt"
	"time"

	"github.com/pcwa-smotley/abayopt/core/physics"
)

// Config holds the solver limits and the penalty weights. Weights keep a
// large-ratio ordering so higher-priority terms dominate: a single acre-foot
// of lower-band breach outweighs any achievable smoothing improvement.
type Config struct {
	MinElevFt     float64 `json:"min_elev_ft"`
	FloatBufferFt float64 `json:"float_buffer_ft"`
	// TargetElevFt is the midpoint the tracking term pulls toward. Zero
	// means "halfway between the minimum and the buffered float".
	TargetElevFt float64 `json:"target_elev_ft"`

	RampMWPerHour float64 `json:"ramp_mw_per_hour"`
	MinMW         float64 `json:"min_mw"`
	MaxMW         float64 `json:"max_mw"`

	// RaftTargetMW is the floor applied during recreational windows.
	RaftTargetMW float64 `json:"raft_target_mw"`

	WeightMinBreach float64 `json:"weight_min_breach"`
	WeightSpill     float64 `json:"weight_spill"`
	WeightWindow    float64 `json:"weight_window"`
	WeightSmooth    float64 `json:"weight_smooth"`
	WeightTracking  float64 `json:"weight_tracking"`

	// HeadCuts is the number of tangent cuts approximating the head limit.
	HeadCuts int `json:"head_cuts"`

	SolveTimeout time.Duration `json:"solve_timeout"`
}

// SetDefaults fills zero values with the reference constants.
func (c *Config) SetDefaults() {
	if c.MinElevFt == 0 {
		c.MinElevFt = physics.MinElevFt
	}
	if c.FloatBufferFt == 0 {
		c.FloatBufferFt = 0.5
	}
	if c.RampMWPerHour == 0 {
		c.RampMWPerHour = physics.OxbowRampPerHour
	}
	if c.MinMW == 0 {
		c.MinMW = physics.OxbowMinMW
	}
	if c.MaxMW == 0 {
		c.MaxMW = physics.OxbowMaxMW
	}
	if c.RaftTargetMW == 0 {
		c.RaftTargetMW = 5.8
	}
	if c.WeightMinBreach == 0 {
		c.WeightMinBreach = 1e5
	}
	if c.WeightSpill == 0 {
		c.WeightSpill = 1e4
	}
	if c.WeightWindow == 0 {
		c.WeightWindow = 1e3
	}
	if c.WeightSmooth == 0 {
		c.WeightSmooth = 10
	}
	if c.WeightTracking == 0 {
		c.WeightTracking = 1
	}
	if c.HeadCuts == 0 {
		c.HeadCuts = 3
	}
	if c.SolveTimeout == 0 {
		c.SolveTimeout = 2 * time.Minute
	}
}

// Validate rejects configurations the formulation cannot express.
func (c *Config) Validate() error {
	if c.MinMW >= c.MaxMW {
		return fmt.Errorf("min_mw %.2f must be below max_mw %.2f", c.MinMW, c.MaxMW)
	}
	if c.RampMWPerHour <= 0 {
		return fmt.Errorf("ramp_mw_per_hour must be positive, got %.3f", c.RampMWPerHour)
	}
	if c.FloatBufferFt < 0 {
		return fmt.Errorf("float_buffer_ft must not be negative, got %.2f", c.FloatBufferFt)
	}
	if c.HeadCuts < 1 {
		return fmt.Errorf("head_cuts must be at least 1, got %d", c.HeadCuts)
	}
	return nil
}
