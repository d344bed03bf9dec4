// Package recalc replays the Afterbay water balance forward from an edited
// hour without re-optimizing. It shares every physics and flow formula with
// the scheduler; any divergence between the two paths is a correctness bug.
package recalc

import (
	"errors"
	"fmt"
	"time"

	"github.com/pcwa-smotley/abayopt/core/flow"
	"github.com/pcwa-smotley/abayopt/core/logger"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

// ErrIndexOutOfRange is returned when the edited index does not address a row.
var ErrIndexOutOfRange = errors.New("edited index out of range")

// Config controls the replay clamps and the seed fallback.
type Config struct {
	// DefaultElevFt seeds the integration when no earlier row carries a
	// usable elevation.
	DefaultElevFt float64 `json:"default_elev_ft"`
	MinElevFt     float64 `json:"min_elev_ft"`
	// DisableHeadClamp turns off the closed-form head cap (diagnostics only).
	DisableHeadClamp bool `json:"disable_head_clamp"`
	// DisableBoundsClamp turns off the generation min/max clamp.
	DisableBoundsClamp bool `json:"disable_bounds_clamp"`
}

// SetDefaults fills zero values with the reference constants.
func (c *Config) SetDefaults() {
	if c.DefaultElevFt == 0 {
		c.DefaultElevFt = 1170.0
	}
	if c.MinElevFt == 0 {
		c.MinElevFt = physics.MinElevFt
	}
}

// Engine replays elevation from an edited row onward.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New creates an Engine.
func New(cfg Config, log logger.Logger) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg, log: log}
}

// Seed locates the starting storage state for a replay beginning at
// editedIdx: the most recent row before it with a known elevation, observed
// readings preferred over the expected trace on the same row. With no usable
// row the configured default elevation applies and seedIdx is -1. The
// scheduler uses the same rule so both paths integrate from the same state.
func (e *Engine) Seed(rows model.RowSequence, editedIdx int) (seedIdx int, elevFt float64) {
	for i := editedIdx - 1; i >= 0; i-- {
		if rows[i].ObservedElevationFt != nil {
			return i, *rows[i].ObservedElevationFt
		}
		if rows[i].ElevationFt > 0 {
			return i, rows[i].ElevationFt
		}
	}
	return -1, e.cfg.DefaultElevFt
}

// FromIndex replays the sequence from the edited index to the end and returns
// a new sequence; rows at or before the seed are copied through untouched.
func (e *Engine) FromIndex(rows model.RowSequence, editedIdx int) (model.RowSequence, error) {
	if editedIdx < 0 || editedIdx >= len(rows) {
		return nil, fmt.Errorf("%w: %d of %d rows", ErrIndexOutOfRange, editedIdx, len(rows))
	}
	out := rows.Clone()

	seedIdx, prevFt := e.Seed(out, editedIdx)
	prevAF := physics.StorageFromFeet(prevFt)

	for t := seedIdx + 1; t < len(out); t++ {
		row := &out[t]
		terms := flow.Resolve(row)
		known := terms.KnownCFS() + row.BiasCFS

		g := row.GenerationMW
		if !e.cfg.DisableHeadClamp {
			cap := physics.HeadLimitedCapMW(prevFt, known)
			if g > cap+1e-9 {
				g = cap
				row.ViolatesHead = true
			}
		}
		// Bounds clamp runs last so generation never lands below the unit
		// minimum even when the head cap goes pathological.
		if !e.cfg.DisableBoundsClamp {
			if g < physics.OxbowMinMW {
				g = physics.OxbowMinMW
			}
			if g > physics.OxbowMaxMW {
				g = physics.OxbowMaxMW
			}
		}

		af := prevAF + physics.AFPerCFSHour*(known-physics.OxbowCFSFactor*g)
		ft := physics.FeetFromStorage(af)

		// Once float is reached the bypass gates hold the pool at float.
		row.ViolatesFloat = false
		if row.FloatFt > 0 && ft > row.FloatFt {
			ft = row.FloatFt
			af = physics.StorageFromFeet(ft)
			row.ViolatesFloat = true
		}

		row.GenerationMW = g
		row.StorageAF = af
		row.ElevationFt = ft
		row.OutflowCFS = physics.OxbowCFS(g)
		row.HeadLimitMW = physics.HeadLimitMW(ft)
		row.MF12MW = terms.MF12MW
		row.MF12CFS = terms.MF12CFS
		row.RegulatedCFS = terms.RegulatedCFS
		row.ViolatesMin = ft < e.cfg.MinElevFt

		prevAF = af
		prevFt = ft
	}

	if e.log != nil {
		e.log.Debugf("replayed %d rows from index %d (seed %d)", len(out)-editedIdx, editedIdx, seedIdx)
	}
	return out, nil
}

// FromHour replays from the row holding the given hour-ending timestamp.
func (e *Engine) FromHour(rows model.RowSequence, ts time.Time) (model.RowSequence, error) {
	idx := rows.IndexAt(ts)
	if idx < 0 {
		return nil, fmt.Errorf("%w: timestamp %s not in sequence", ErrIndexOutOfRange, ts)
	}
	return e.FromIndex(rows, idx)
}
