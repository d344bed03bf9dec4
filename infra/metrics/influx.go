package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/core/events"
	coremetrics "github.com/pcwa-smotley/abayopt/core/metrics"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/infra/logger"
)

// InfluxSink writes schedule events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes a completed solve as one point.
func (s *InfluxSink) RecordSolve(ev events.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_solve").
		AddTag("run_id", ev.RunID.String()).
		AddTag("status", ev.Status.String()).
		AddTag("mfra_source", ev.MFRASource).
		AddField("objective", ev.Objective).
		AddField("bias_cfs", ev.BiasCFS).
		AddField("horizon_hours", ev.Horizon).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRecalc writes a replay triggered by an operator edit.
func (s *InfluxSink) RecordRecalc(ev events.RecalcEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_recalc").
		AddTag("run_id", ev.RunID.String()).
		AddField("edited_index", ev.EditedIndex).
		AddField("rows_changed", ev.RowsChanged).
		AddField("min_elev_ft", ev.MinElevFt).
		AddField("violations", ev.Violations).
		SetTime(ev.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScheduleRows persists each scheduled hour as a point so dashboards
// can chart the planned pool trajectory.
func (s *InfluxSink) RecordScheduleRows(runID uuid.UUID, rows model.RowSequence) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range rows {
		p := write.NewPointWithMeasurement("schedule_row").
			AddTag("run_id", runID.String()).
			AddTag("mode", r.Mode.String()).
			AddTag("provenance", r.Provenance.String()).
			AddTag("degraded", strconv.FormatBool(r.Degraded)).
			AddField("setpoint_mw", r.SetpointMW).
			AddField("generation_mw", r.GenerationMW).
			AddField("elevation_ft", r.ElevationFt).
			AddField("storage_af", r.StorageAF).
			AddField("outflow_cfs", r.OutflowCFS).
			AddField("bias_cfs", r.BiasCFS).
			SetTime(r.Timestamp)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
