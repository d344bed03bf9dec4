// Package inputs assembles the lookback+forecast row sequence the scheduler
// and the replay engine consume. Missing forecast coverage never fails a run:
// gaps fall back to persistence and the affected rows are tagged degraded.
package inputs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pcwa-smotley/abayopt/core/bias"
	"github.com/pcwa-smotley/abayopt/core/logger"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/rafting"
)

// ErrNoLookback indicates the observation source returned nothing usable.
var ErrNoLookback = errors.New("no lookback observations available")

// MFRA source labels carried in the run context.
const (
	MFRASourcePersistence = "persistence"
	MFRASourceActual      = "actual"
)

// Config holds the assembly windows.
type Config struct {
	LookbackHours int           `json:"lookback_hours"`
	HorizonHours  int           `json:"horizon_hours"`
	BiasHalfLife  time.Duration `json:"bias_half_life"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.LookbackHours == 0 {
		c.LookbackHours = 24
	}
	if c.HorizonHours == 0 {
		c.HorizonHours = 72
	}
}

// Assembler builds run inputs from its sources. Forecast and award sources
// are optional; a nil source means persistence only.
type Assembler struct {
	cfg     Config
	obs     ObservationSource
	fc      ForecastSource
	awards  AwardSource
	policy  *rafting.Policy
	biasCfg bias.Config
	log     logger.Logger
}

// New creates an Assembler. obs is required.
func New(cfg Config, obs ObservationSource, fc ForecastSource, awards AwardSource, policy *rafting.Policy, biasCfg bias.Config, log logger.Logger) (*Assembler, error) {
	if obs == nil {
		return nil, errors.New("observation source required")
	}
	cfg.SetDefaults()
	biasCfg.SetDefaults()
	return &Assembler{cfg: cfg, obs: obs, fc: fc, awards: awards, policy: policy, biasCfg: biasCfg, log: log}, nil
}

// BuildInputs assembles the combined lookback+forecast sequence anchored at
// now. A non-nil historicalStart switches to replay mode: observed values for
// the window after historicalStart become the forecast block, so a past day
// can be re-solved under the exact conditions it saw.
func (a *Assembler) BuildInputs(ctx context.Context, now time.Time, horizonHours int, historicalStart *time.Time) (*model.RunContext, model.RowSequence, error) {
	if horizonHours <= 0 {
		horizonHours = a.cfg.HorizonHours
	}

	anchor := now.Truncate(time.Hour)
	if historicalStart != nil {
		anchor = historicalStart.Truncate(time.Hour)
	}

	lookback, err := a.obs.Observed(ctx, anchor.Add(-time.Duration(a.cfg.LookbackHours)*time.Hour), anchor)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch lookback: %w", err)
	}
	if len(lookback) == 0 {
		return nil, nil, ErrNoLookback
	}

	biasBase := bias.Compute(lookback, a.biasCfg)

	var forecast model.RowSequence
	mfraSource := MFRASourcePersistence
	if historicalStart != nil {
		forecast, err = a.historicalBlock(ctx, lookback, anchor, horizonHours)
		if err != nil {
			return nil, nil, err
		}
		mfraSource = MFRASourceActual
	} else {
		forecast, mfraSource = a.forecastBlock(ctx, lookback, anchor, horizonHours)
	}

	bias.Stamp(forecast, biasBase, a.cfg.BiasHalfLife)
	a.stampWindows(forecast)

	run := model.NewRunContext()
	run.LookbackWindow = time.Duration(a.cfg.LookbackHours) * time.Hour
	run.HorizonWindow = time.Duration(horizonHours) * time.Hour
	run.BiasCFS = biasBase
	run.BiasHalfLife = a.cfg.BiasHalfLife
	run.MFRASource = mfraSource
	run.Historical = historicalStart != nil
	last := lookback[len(lookback)-1]
	run.InitialGenMW = last.GenerationMW
	if last.ObservedElevationFt != nil {
		run.InitialElevFt = *last.ObservedElevationFt
	} else {
		run.InitialElevFt = last.ElevationFt
	}

	if a.log != nil {
		a.log.Infof("assembled %d lookback + %d forecast rows (bias %.1f cfs, mfra %s)",
			len(lookback), len(forecast), biasBase, mfraSource)
	}
	return run, append(lookback, forecast...), nil
}

// forecastBlock builds the normal-mode forecast: upstream flow forecasts
// where available, persistence holds for everything else.
func (a *Assembler) forecastBlock(ctx context.Context, lookback model.RowSequence, anchor time.Time, hours int) (model.RowSequence, string) {
	last := lookback[len(lookback)-1]

	var points map[time.Time]ForecastPoint
	if a.fc != nil {
		fps, err := a.fc.UpstreamFlows(ctx, anchor.Add(time.Hour), hours)
		if err != nil {
			if a.log != nil {
				a.log.Warnf("upstream forecast unavailable, holding last observations: %v", err)
			}
		} else {
			points = make(map[time.Time]ForecastPoint, len(fps))
			for _, fp := range fps {
				points[fp.Timestamp] = fp
			}
		}
	}

	awards, awardSource := a.fetchAwards(ctx, anchor, hours)
	mfraPersist := trailingPattern(lookback, hours)

	rows := make(model.RowSequence, hours)
	mfraSource := MFRASourcePersistence
	for i := 0; i < hours; i++ {
		he := anchor.Add(time.Duration(i+1) * time.Hour)
		row := model.Row{
			Timestamp:  he,
			Provenance: model.ProvForecast,
			R20:        model.Comp(last.R20.Value()),
			R5L:        model.Comp(last.R5L.Value()),
			R26:        model.Comp(last.R26.Value()),
			FloatFt:    last.FloatFt,
			Mode:       last.Mode,
		}
		if fp, ok := points[he]; ok {
			row.R4 = model.Comp(fp.R4CFS)
			row.R30 = model.Comp(fp.R30CFS)
		} else {
			row.R4 = model.Comp(last.R4.Value())
			row.R30 = model.Comp(last.R30.Value())
			row.Degraded = true
		}
		if mw, ok := awards[he]; ok {
			row.MFRA = model.Comp(mw)
			mfraSource = awardSource
		} else {
			row.MFRA = model.Comp(mfraPersist[i])
			if len(awards) > 0 {
				row.Degraded = true
			}
		}
		rows[i] = row
	}
	return rows, mfraSource
}

// historicalBlock uses observed values as the forecast block; hours the
// observation source cannot cover fall back to persistence and are degraded.
func (a *Assembler) historicalBlock(ctx context.Context, lookback model.RowSequence, anchor time.Time, hours int) (model.RowSequence, error) {
	forward, err := a.obs.Observed(ctx, anchor, anchor.Add(time.Duration(hours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("fetch historical forward block: %w", err)
	}
	byHour := make(map[time.Time]model.Row, len(forward))
	for _, r := range forward {
		byHour[r.Timestamp] = r
	}

	last := lookback[len(lookback)-1]
	mfraPersist := trailingPattern(lookback, hours)

	rows := make(model.RowSequence, hours)
	for i := 0; i < hours; i++ {
		he := anchor.Add(time.Duration(i+1) * time.Hour)
		if obs, ok := byHour[he]; ok {
			row := obs
			row.Provenance = model.ProvForecast
			// Elevation stays derived: the replay engine computes it, the
			// observed trace is kept aside for comparison.
			row.ElevationFt = 0
			if row.FloatFt == 0 {
				row.FloatFt = last.FloatFt
			}
			rows[i] = row
			continue
		}
		rows[i] = model.Row{
			Timestamp:  he,
			Provenance: model.ProvForecast,
			R4:         model.Comp(last.R4.Value()),
			R30:        model.Comp(last.R30.Value()),
			R20:        model.Comp(last.R20.Value()),
			R5L:        model.Comp(last.R5L.Value()),
			R26:        model.Comp(last.R26.Value()),
			MFRA:       model.Comp(mfraPersist[i]),
			FloatFt:    last.FloatFt,
			Mode:       last.Mode,
			Degraded:   true,
		}
	}
	return rows, nil
}

func (a *Assembler) fetchAwards(ctx context.Context, anchor time.Time, hours int) (map[time.Time]float64, string) {
	if a.awards == nil {
		return nil, MFRASourcePersistence
	}
	awards, source, err := a.awards.Awards(ctx, anchor.Add(time.Hour), hours)
	if err != nil || len(awards) == 0 {
		if err != nil && a.log != nil {
			a.log.Warnf("award source unavailable, using persistence: %v", err)
		}
		return nil, MFRASourcePersistence
	}
	return awards, source
}

// trailingPattern repeats the lookback's regulated-plant output as the
// persistence forecast: yesterday's shape is the best no-information guess
// for today.
func trailingPattern(lookback model.RowSequence, hours int) []float64 {
	tail := lookback
	if len(tail) > hours {
		tail = tail[len(tail)-hours:]
	}
	out := make([]float64, hours)
	for i := 0; i < hours; i++ {
		if i < len(tail) {
			out[i] = tail[i].MFRA.Value()
		} else {
			out[i] = tail[len(tail)-1].MFRA.Value()
		}
	}
	return out
}

// stampWindows marks recreational-commitment hours and sets the smoothing
// weight: daytime changes are cheap, overnight changes cost more.
func (a *Assembler) stampWindows(rows model.RowSequence) {
	pt, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		pt = time.UTC
	}
	for i := range rows {
		if a.policy != nil {
			rows[i].SummerWindow = a.policy.Active(rows[i].Timestamp)
		}
		h := rows[i].Timestamp.In(pt).Hour()
		if h >= 8 && h <= 20 {
			rows[i].SmoothWeight = 1.0
		} else {
			rows[i].SmoothWeight = 10.0
		}
	}
}
