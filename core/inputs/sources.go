package inputs

import (
	"context"
	"time"

	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/telemetry"
)

// ForecastPoint carries one hour of upstream flow forecast.
type ForecastPoint struct {
	Timestamp time.Time
	R4CFS     float64
	R30CFS    float64
}

// ForecastSource provides upstream R4/R30 flow forecasts. A source may cover
// fewer hours than asked; the assembler fills the rest by persistence.
type ForecastSource interface {
	UpstreamFlows(ctx context.Context, from time.Time, hours int) ([]ForecastPoint, error)
}

// AwardSource provides day-ahead market awards for the regulated plant, keyed
// by hour-ending timestamp. The second return names the award source.
type AwardSource interface {
	Awards(ctx context.Context, from time.Time, hours int) (map[time.Time]float64, string, error)
}

// ObservationSource provides observed hourly rows, actuals populated. Used
// for the lookback block and, in historical mode, for the forward block.
type ObservationSource interface {
	Observed(ctx context.Context, from, to time.Time) (model.RowSequence, error)
}

// Telemetry gauge names, matching the upstream historian tags.
const (
	GaugeR4        = "R4_Flow"
	GaugeR30       = "R30_Flow"
	GaugeR20       = "R20_Flow"
	GaugeR5L       = "R5L_Flow"
	GaugeR26       = "R26_Flow"
	GaugeMFRA      = "MFP_Total_Gen"
	GaugeOxbow     = "Oxbow_Power"
	GaugeElevation = "Afterbay_Elevation"
	GaugeFloat     = "Afterbay_Elevation_Setpoint"
	GaugeMode      = "CCS_Mode"
)

// TelemetryObservations adapts the live telemetry store to ObservationSource.
type TelemetryObservations struct {
	Store telemetry.Store
}

// Observed builds hour-ending rows from whatever readings the store holds in
// [from, to). Hours with no elevation reading still get a row so gaps stay
// visible to the assembler.
func (t *TelemetryObservations) Observed(_ context.Context, from, to time.Time) (model.RowSequence, error) {
	var rows model.RowSequence
	for ts := from.Truncate(time.Hour); ts.Before(to); ts = ts.Add(time.Hour) {
		he := ts.Add(time.Hour)
		row := model.Row{Timestamp: he, Provenance: model.ProvObserved}

		set := func(c *model.Component, gauge string) {
			if r, ok := latestIn(t.Store, gauge, ts, he); ok {
				c.Forecast = r.Value
				c.SetActual(r.Value)
			}
		}
		set(&row.R4, GaugeR4)
		set(&row.R30, GaugeR30)
		set(&row.R20, GaugeR20)
		set(&row.R5L, GaugeR5L)
		set(&row.R26, GaugeR26)
		set(&row.MFRA, GaugeMFRA)

		if r, ok := latestIn(t.Store, GaugeOxbow, ts, he); ok {
			row.GenerationMW = r.Value
			row.SetpointMW = r.Value
		}
		if r, ok := latestIn(t.Store, GaugeElevation, ts, he); ok {
			v := r.Value
			row.ObservedElevationFt = &v
			row.ElevationFt = v
		}
		if r, ok := latestIn(t.Store, GaugeFloat, ts, he); ok {
			row.FloatFt = r.Value
		}
		if r, ok := latestIn(t.Store, GaugeMode, ts, he); ok {
			if r.Value >= 0.5 {
				row.Mode = model.ModeSpill
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func latestIn(s telemetry.Store, gauge string, from, to time.Time) (telemetry.Reading, bool) {
	series := s.Series(gauge, from, to)
	if len(series) == 0 {
		return telemetry.Reading{}, false
	}
	return series[len(series)-1], true
}
