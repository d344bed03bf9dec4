package scheduler

import (
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

// heuristic is the soft-constraint single-pass schedule used when the simplex
// call fails or times out. Each hour it picks the generation that steers
// storage toward the tracking target, then applies the window floor, the ramp
// limit, the head cap and the unit bounds in that order. Constraints are
// satisfied greedily per hour, so the result can be worse than the LP but it
// always exists.
func (e *Engine) heuristic(rows model.RowSequence, p *problem) []float64 {
	gen := make([]float64, p.T)

	_, seedFt := e.replay.Seed(rows, p.first)
	prevAF := physics.StorageFromFeet(seedFt)
	prevFt := seedFt
	prevMW := e.cfg.MinMW + p.yInit

	for t := 0; t < p.T; t++ {
		row := &rows[p.first+t]
		floatFt := row.FloatFt
		if floatFt <= 0 {
			floatFt = defaultFloatFt
		}
		targetAF := trackingAF(e.cfg, floatFt)

		// Generation that would land storage exactly on target this hour.
		g := (p.known[t] - (targetAF-prevAF)*physics.CFSPerAFHour) / physics.OxbowCFSFactor

		if row.SummerWindow && g < e.cfg.RaftTargetMW {
			g = e.cfg.RaftTargetMW
		}
		g = clamp(g, prevMW-e.cfg.RampMWPerHour, prevMW+e.cfg.RampMWPerHour)
		if cap := physics.HeadLimitedCapMW(prevFt, p.known[t]); g > cap {
			g = cap
		}
		g = clamp(g, e.cfg.MinMW, e.cfg.MaxMW)

		gen[t] = g
		prevAF += physics.AFPerCFSHour * (p.known[t] - physics.OxbowCFSFactor*g)
		prevFt = physics.FeetFromStorage(prevAF)
		prevMW = g
	}
	return gen
}
