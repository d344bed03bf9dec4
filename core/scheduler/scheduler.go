// Package scheduler solves for hourly Oxbow generation setpoints over the
// forecast horizon. The problem is a linear program in storage space: the
// elevation band converts exactly through the monotonic stage-storage
// quadratic, per-hour storage variables chained by balance equalities keep
// the constraint matrix banded, and the head limit, concave in storage, is
// outer-approximated by tangent cuts. Final elevations always come from the
// shared replay engine so the solve path and the edit path cannot drift
// apart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/pcwa-smotley/abayopt/core/flow"
	"github.com/pcwa-smotley/abayopt/core/logger"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
	"github.com/pcwa-smotley/abayopt/core/recalc"
)

// ErrNoForecastRows indicates the input sequence carries nothing to schedule.
var ErrNoForecastRows = errors.New("no forecast rows in sequence")

// ErrSolveTimeout aborts a simplex run that exceeds the configured timeout.
var ErrSolveTimeout = errors.New("solver timed out")

const defaultFloatFt = 1175.0

// Engine owns one solve invocation at a time; it holds no mutable state
// between calls, so distinct Engines (or sequential calls) are safe.
type Engine struct {
	cfg    Config
	replay *recalc.Engine
	log    logger.Logger
}

// New creates an Engine with a replay engine sharing the same elevation floor.
func New(cfg Config, log logger.Logger) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	rc := recalc.New(recalc.Config{MinElevFt: cfg.MinElevFt}, log)
	return &Engine{cfg: cfg, replay: rc, log: log}, nil
}

// problem is the assembled LP for one horizon, already in the standard form
// lp.Simplex consumes (Ax = b, x >= 0) with one slack column per inequality
// row. Decision blocks, each of length T (hours): generation above minimum,
// end-of-hour storage, spill slack, min-breach slack, smoothing split
// (pos/neg), window shortfall, plus a single end-of-horizon tracking
// deviation. Storage is carried hour to hour by per-hour balance equalities,
// so every row touches a handful of variables and the matrix stays banded.
type problem struct {
	T     int
	first int // index of the first forecast row

	n int // decision variables = 7*T + 1, excluding slack columns

	c []float64
	a *mat.Dense
	b []float64

	known []float64 // per-hour inflow CFS excluding Oxbow generation
	k     float64   // AF removed per hour per MW above minimum
	yInit float64   // initial generation above minimum
}

func (p *problem) idxY(t int) int     { return t }
func (p *problem) idxStor(t int) int  { return p.T + t }
func (p *problem) idxSpill(t int) int { return 2*p.T + t }
func (p *problem) idxMin(t int) int   { return 3*p.T + t }
func (p *problem) idxPos(t int) int   { return 4*p.T + t }
func (p *problem) idxNeg(t int) int   { return 5*p.T + t }
func (p *problem) idxWin(t int) int   { return 6*p.T + t }
func (p *problem) idxTrk() int        { return 7 * p.T }

// firstForecast returns the index of the first mutable row.
func firstForecast(rows model.RowSequence) int {
	for i := range rows {
		if rows[i].Provenance == model.ProvForecast {
			return i
		}
	}
	return -1
}

// buildProblem assembles matrices for the forecast block of rows.
func (e *Engine) buildProblem(rows model.RowSequence, run *model.RunContext) (*problem, error) {
	first := firstForecast(rows)
	if first < 0 {
		return nil, ErrNoForecastRows
	}
	T := len(rows) - first

	p := &problem{T: T, first: first, n: 7*T + 1}
	p.k = physics.AFPerCFSHour * physics.OxbowCFSFactor

	_, seedFt := e.replay.Seed(rows, first)
	seedAF := physics.StorageFromFeet(seedFt)

	initMW := e.cfg.MinMW
	if run != nil && run.InitialGenMW > 0 {
		initMW = run.InitialGenMW
	}
	p.yInit = clamp(initMW-e.cfg.MinMW, 0, e.cfg.MaxMW-e.cfg.MinMW)

	p.known = make([]float64, T)
	for t := 0; t < T; t++ {
		row := &rows[first+t]
		terms := flow.Resolve(row)
		p.known[t] = terms.KnownCFS() + row.BiasCFS
	}

	p.assemble(rows, e.cfg, seedAF)
	return p, nil
}

// lpRow is one constraint under construction: sparse coefficients over the
// decision variables plus a right-hand side.
type lpRow struct {
	coeffs map[int]float64
	rhs    float64
}

// assemble fills c, A and b from the per-hour data.
func (p *problem) assemble(rows model.RowSequence, cfg Config, seedAF float64) {
	T := p.T
	yMax := cfg.MaxMW - cfg.MinMW
	ramp := cfg.RampMWPerHour
	minAF := physics.StorageFromFeet(cfg.MinElevFt)

	var eqs, ineqs []lpRow
	addEq := func(coeffs map[int]float64, rhs float64) {
		eqs = append(eqs, lpRow{coeffs: coeffs, rhs: rhs})
	}
	addLE := func(coeffs map[int]float64, rhs float64) {
		ineqs = append(ineqs, lpRow{coeffs: coeffs, rhs: rhs})
	}

	cuts := tangentCuts(cfg, rows, p.first)

	for t := 0; t < T; t++ {
		row := &rows[p.first+t]

		// Water balance: storage carries hour to hour, each MW above the
		// unit minimum draining k acre-feet.
		wb := map[int]float64{p.idxStor(t): 1, p.idxY(t): p.k}
		rhs := physics.AFPerCFSHour*p.known[t] - p.k*cfg.MinMW
		if t == 0 {
			rhs += seedAF
		} else {
			wb[p.idxStor(t-1)] = -1
		}
		addEq(wb, rhs)

		// Smoothing split: pos - neg equals the hour-over-hour change.
		sm := map[int]float64{p.idxPos(t): 1, p.idxNeg(t): -1, p.idxY(t): -1}
		smRHS := 0.0
		if t == 0 {
			smRHS = -p.yInit
		} else {
			sm[p.idxY(t-1)] = 1
		}
		addEq(sm, smRHS)

		// Generation stays inside the unit band.
		addLE(map[int]float64{p.idxY(t): 1}, yMax)

		// Storage band, soft on both sides.
		floatFt := row.FloatFt
		if floatFt <= 0 {
			floatFt = defaultFloatFt
		}
		hiAF := physics.StorageFromFeet(floatFt - cfg.FloatBufferFt)
		addLE(map[int]float64{p.idxStor(t): 1, p.idxSpill(t): -1}, hiAF)
		addLE(map[int]float64{p.idxStor(t): -1, p.idxMin(t): -1}, -minAF)

		// Ramp between consecutive hours, anchored to the live unit.
		if t == 0 {
			addLE(map[int]float64{p.idxY(0): 1}, p.yInit+ramp)
			addLE(map[int]float64{p.idxY(0): -1}, ramp-p.yInit)
		} else {
			addLE(map[int]float64{p.idxY(t): 1, p.idxY(t - 1): -1}, ramp)
			addLE(map[int]float64{p.idxY(t): -1, p.idxY(t - 1): 1}, ramp)
		}

		// Head limit: generation at hour t is capped by a concave function
		// of the previous hour's storage; each tangent is a valid bound.
		// The first hour sees the fixed seed, so its cuts are constants;
		// the replay floors generation at the unit minimum, so a cap below
		// the minimum clamps to it rather than going infeasible.
		for _, cut := range cuts {
			if t == 0 {
				bound := cut.capAt(seedAF) - cfg.MinMW
				if bound < 0 {
					bound = 0
				}
				addLE(map[int]float64{p.idxY(0): 1}, bound)
			} else {
				addLE(map[int]float64{p.idxY(t): 1, p.idxStor(t - 1): -cut.slope},
					cut.mw0-cut.slope*cut.af0-cfg.MinMW)
			}
		}

		// Recreational window floor, shortfall penalized.
		if row.SummerWindow {
			addLE(map[int]float64{p.idxY(t): -1, p.idxWin(t): -1}, cfg.MinMW-cfg.RaftTargetMW)
		}
	}

	// End-of-horizon deviation from the target pool.
	lastFloat := rows[len(rows)-1].FloatFt
	if lastFloat <= 0 {
		lastFloat = defaultFloatFt
	}
	trkAF := trackingAF(cfg, lastFloat)
	addLE(map[int]float64{p.idxStor(T - 1): 1, p.idxTrk(): -1}, trkAF)
	addLE(map[int]float64{p.idxStor(T - 1): -1, p.idxTrk(): -1}, -trkAF)

	cols := p.n + len(ineqs)
	p.a = mat.NewDense(len(eqs)+len(ineqs), cols, nil)
	p.b = make([]float64, len(eqs)+len(ineqs))
	for i, r := range eqs {
		for j, v := range r.coeffs {
			p.a.Set(i, j, v)
		}
		p.b[i] = r.rhs
	}
	for i, r := range ineqs {
		ri := len(eqs) + i
		for j, v := range r.coeffs {
			p.a.Set(ri, j, v)
		}
		p.a.Set(ri, p.n+i, 1)
		p.b[ri] = r.rhs
	}

	p.c = make([]float64, cols)
	for t := 0; t < T; t++ {
		w := rows[p.first+t].SmoothWeight
		if w <= 0 {
			w = 1
		}
		p.c[p.idxSpill(t)] = cfg.WeightSpill
		p.c[p.idxMin(t)] = cfg.WeightMinBreach
		p.c[p.idxWin(t)] = cfg.WeightWindow
		p.c[p.idxPos(t)] = cfg.WeightSmooth * w
		p.c[p.idxNeg(t)] = cfg.WeightSmooth * w
	}
	p.c[p.idxTrk()] = cfg.WeightTracking
}

// cut is one tangent line bounding achievable MW as a function of storage AF.
type cut struct {
	slope float64 // MW per AF
	af0   float64
	mw0   float64
}

func (c cut) capAt(af float64) float64 {
	return c.mw0 + c.slope*(af-c.af0)
}

// tangentCuts samples the head-limit curve across the band the horizon can
// actually reach and linearizes at each sample. Tangents of a concave curve
// never under-estimate it, so every cut is a safe upper bound.
func tangentCuts(cfg Config, rows model.RowSequence, first int) []cut {
	topFt := defaultFloatFt
	for i := first; i < len(rows); i++ {
		if rows[i].FloatFt > topFt {
			topFt = rows[i].FloatFt
		}
	}
	cuts := make([]cut, cfg.HeadCuts)
	for j := range cuts {
		frac := float64(j) / float64(cfg.HeadCuts)
		ft := cfg.MinElevFt + frac*(topFt-cfg.MinElevFt)
		af := physics.StorageFromFeet(ft)
		// d(ft)/d(AF) is the reciprocal of the stage-storage slope.
		dFt := 1.0 / (2*physics.StorageQuadA*ft + physics.StorageQuadB)
		cuts[j] = cut{
			slope: physics.HeadSlope * dFt,
			af0:   af,
			mw0:   physics.HeadLimitMW(ft),
		}
	}
	return cuts
}

func trackingAF(cfg Config, floatFt float64) float64 {
	target := cfg.TargetElevFt
	if target == 0 {
		target = (cfg.MinElevFt + floatFt - cfg.FloatBufferFt) / 2
	}
	return physics.StorageFromFeet(target)
}

// solveSimplex runs the simplex method on the assembled standard form. Every
// decision variable is nonnegative, so no pos/neg splitting is needed and the
// solution maps back by truncating the slack columns.
func solveSimplex(p *problem) ([]float64, float64, error) {
	obj, sol, err := lp.Simplex(p.c, p.a, p.b, 1e-7, nil)
	if err != nil {
		return nil, 0, err
	}
	return sol[:p.n], obj, nil
}

// lpSolve points to the function used to solve the LP. It can be overridden in
// tests to simulate solver failures.
var lpSolve = solveSimplex

type lpOutcome struct {
	x   []float64
	obj float64
	err error
}

// runSolver executes the simplex call under the configured wall-clock timeout.
func (e *Engine) runSolver(ctx context.Context, p *problem) ([]float64, float64, error) {
	done := make(chan lpOutcome, 1)
	go func() {
		x, obj, err := lpSolve(p)
		done <- lpOutcome{x: x, obj: obj, err: err}
	}()
	select {
	case out := <-done:
		return out.x, out.obj, out.err
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case <-time.After(e.cfg.SolveTimeout):
		return nil, 0, ErrSolveTimeout
	}
}

// Solve produces one setpoint per forecast hour. The returned rows include the
// untouched lookback block; elevations and violation flags on the forecast
// block come from a replay of the solved generation column. A solver failure
// is not an error: the result carries StatusFallback and the heuristic
// schedule instead.
func (e *Engine) Solve(ctx context.Context, rows model.RowSequence, run *model.RunContext) (*model.SolveResult, error) {
	if len(rows) == 0 {
		return nil, ErrNoForecastRows
	}
	start := time.Now()

	p, err := e.buildProblem(rows, run)
	if err != nil {
		return nil, err
	}

	x, obj, err := e.runSolver(ctx, p)
	status := model.StatusOptimal
	reason := ""
	var gen []float64
	if err != nil {
		if e.log != nil {
			e.log.Warnf("simplex failed, using forward-simulation heuristic: %v", err)
		}
		gen = e.heuristic(rows, p)
		status = model.StatusFallback
		reason = err.Error()
		obj = 0
	} else {
		gen = make([]float64, p.T)
		breach := 0.0
		for t := 0; t < p.T; t++ {
			gen[t] = clamp(e.cfg.MinMW+x[p.idxY(t)], e.cfg.MinMW, e.cfg.MaxMW)
			breach += x[p.idxMin(t)]
		}
		// A materially nonzero min-breach slack means the pool cannot be
		// held above the floor even by the optimizer.
		if breach > 1.0 {
			status = model.StatusInfeasible
			reason = fmt.Sprintf("minimum elevation unattainable, %.1f AF short", breach)
		}
	}

	out := rows.Clone()
	for t := 0; t < p.T; t++ {
		out[p.first+t].SetpointMW = gen[t]
		out[p.first+t].GenerationMW = gen[t]
	}
	solved, err := e.replay.FromIndex(out, p.first)
	if err != nil {
		return nil, fmt.Errorf("post-solve replay: %w", err)
	}
	annotateSetpointChanges(solved, p.first, e.cfg)

	observeSolve(status, time.Since(start))
	if e.log != nil {
		e.log.Infof("solved %d hours in %s (status %s)", p.T, time.Since(start).Round(time.Millisecond), status)
	}
	return &model.SolveResult{Rows: solved, Status: status, Reason: reason, Objective: obj}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
