// Package app wires configuration, sources, solver, replay and sinks into
// the operations the CLI exposes.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/config"
	"github.com/pcwa-smotley/abayopt/core/events"
	"github.com/pcwa-smotley/abayopt/core/inputs"
	"github.com/pcwa-smotley/abayopt/core/logger"
	coremetrics "github.com/pcwa-smotley/abayopt/core/metrics"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/rafting"
	"github.com/pcwa-smotley/abayopt/core/recalc"
	"github.com/pcwa-smotley/abayopt/core/schedule"
	"github.com/pcwa-smotley/abayopt/core/scheduler"
	"github.com/pcwa-smotley/abayopt/core/telemetry"
	infralogger "github.com/pcwa-smotley/abayopt/infra/logger"
	inframetrics "github.com/pcwa-smotley/abayopt/infra/metrics"
	inframqtt "github.com/pcwa-smotley/abayopt/infra/mqtt"
	"github.com/pcwa-smotley/abayopt/internal/eventbus"
)

// Service owns the wired components for one process.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	policy    *rafting.Policy
	assembler *inputs.Assembler
	solver    *scheduler.Engine
	replay    *recalc.Engine
	store     *schedule.JSONLStore
	sink      coremetrics.Sink
	telemetry *telemetry.MemoryStore
	mqttSub   *inframqtt.Subscriber

	solveBus  *eventbus.Bus[events.SolveEvent]
	recalcBus *eventbus.Bus[events.RecalcEvent]

	// locks serializes solves per run entity.
	locks sync.Map
}

// Option overrides a wired component, mainly for tests.
type Option func(*Service)

// WithObservationSource replaces the telemetry-backed observation source.
func WithObservationSource(obs inputs.ObservationSource) Option {
	return func(s *Service) { s.rebuildAssembler(obs, nil, nil) }
}

// WithSink replaces the metrics sink.
func WithSink(sink coremetrics.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// New builds a Service from configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	cfg.Logging.Apply()
	log := infralogger.New("app")

	policy, err := rafting.New(cfg.Rafting)
	if err != nil {
		return nil, fmt.Errorf("rafting policy: %w", err)
	}

	solver, err := scheduler.New(cfg.Scheduler.Core(cfg.Reservoir, policy.TargetMW()), infralogger.New("scheduler"))
	if err != nil {
		return nil, err
	}

	store, err := schedule.NewJSONLStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		log:       log,
		policy:    policy,
		solver:    solver,
		replay:    recalc.New(cfg.Reservoir.Recalc(), infralogger.New("recalc")),
		store:     store,
		sink:      coremetrics.NopSink{},
		telemetry: telemetry.NewMemoryStore(),
		solveBus:  eventbus.New[events.SolveEvent](),
		recalcBus: eventbus.New[events.RecalcEvent](),
	}
	s.rebuildAssembler(&inputs.TelemetryObservations{Store: s.telemetry}, nil, nil)

	if cfg.Metrics.InfluxURL != "" {
		s.sink = inframetrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
	}
	if cfg.MQTT.Broker != "" {
		sub, err := inframqtt.NewSubscriber(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, nil, s.telemetry)
		if err != nil {
			log.Warnf("gauge telemetry unavailable: %v", err)
		} else {
			s.mqttSub = sub
		}
	}
	if cfg.Metrics.PromAddr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, cfg.Metrics.PromAddr); err != nil {
				log.Errorf("prometheus server: %v", err)
			}
		}()
	}

	inframetrics.StartSolveCollector(ctx, s.solveBus, s.sink)
	inframetrics.StartRecalcCollector(ctx, s.recalcBus, s.sink)

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) rebuildAssembler(obs inputs.ObservationSource, fc inputs.ForecastSource, awards inputs.AwardSource) {
	biasCfg := s.cfg.Bias.Core()
	asm, err := inputs.New(s.cfg.Inputs.Core(biasCfg.HalfLife), obs, fc, awards, s.policy, biasCfg, infralogger.New("inputs"))
	if err != nil {
		// only reachable with a nil source, which the callers never pass
		panic(err)
	}
	s.assembler = asm
}

// Telemetry exposes the live gauge store for feeding observations in-process.
func (s *Service) Telemetry() *telemetry.MemoryStore { return s.telemetry }

// Policy exposes the rafting policy.
func (s *Service) Policy() *rafting.Policy { return s.policy }

// runLock returns the mutex serializing work on one run entity.
func (s *Service) runLock(id uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SolveOnce assembles inputs and runs one solve, persisting and publishing
// the outcome. Fallback status is not an error.
func (s *Service) SolveOnce(ctx context.Context, horizonHours int, historicalStart *time.Time) (*schedule.RunRecord, *model.SolveResult, error) {
	run, rows, err := s.assembler.BuildInputs(ctx, time.Now().UTC(), horizonHours, historicalStart)
	if err != nil {
		return nil, nil, err
	}

	mu := s.runLock(run.ID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	res, err := s.solver.Solve(ctx, rows, run)
	if err != nil {
		return nil, nil, err
	}

	rec := schedule.RunRecord{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Status:     res.Status,
		Reason:     res.Reason,
		Objective:  res.Objective,
		BiasCFS:    run.BiasCFS,
		MFRASource: run.MFRASource,
		Historical: run.Historical,
		Rows:       res.Rows,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("persist run %s: %v", run.ID, err)
	}

	s.solveBus.Publish(events.SolveEvent{
		RunID:      run.ID,
		Status:     res.Status,
		Reason:     res.Reason,
		Objective:  res.Objective,
		Horizon:    horizonHours,
		BiasCFS:    run.BiasCFS,
		MFRASource: run.MFRASource,
		Duration:   time.Since(start),
		Timestamp:  time.Now().UTC(),
	})
	if err := s.sink.RecordScheduleRows(run.ID, res.Rows); err != nil {
		s.log.Warnf("record schedule rows: %v", err)
	}
	return &rec, res, nil
}

// RecalcFrom replays a persisted run's rows from the hour-ending timestamp,
// after gating the edit through the rafting policy. A conflict is returned,
// not applied; callers confirm with the operator and pass force.
func (s *Service) RecalcFrom(ctx context.Context, rec *schedule.RunRecord, ts time.Time, force bool) (model.RowSequence, *rafting.Conflict, error) {
	idx := rec.Rows.IndexAt(ts)
	if idx < 0 {
		return nil, nil, fmt.Errorf("timestamp %s not in run %s", ts, rec.ID)
	}
	if !force {
		end := rec.Rows[len(rec.Rows)-1].Timestamp
		if c := s.policy.CheckConflict(rec.Rows[idx].SetpointMW, ts, end); c != nil {
			return nil, c, nil
		}
	}

	mu := s.runLock(rec.ID)
	mu.Lock()
	defer mu.Unlock()

	out, err := s.replay.FromIndex(rec.Rows, idx)
	if err != nil {
		return nil, nil, err
	}

	minFt := out[idx].ElevationFt
	violations := 0
	for _, r := range out[idx:] {
		if r.ElevationFt < minFt {
			minFt = r.ElevationFt
		}
		if r.ViolatesMin || r.ViolatesFloat || r.ViolatesHead {
			violations++
		}
	}
	s.recalcBus.Publish(events.RecalcEvent{
		RunID:       rec.ID,
		EditedIndex: idx,
		RowsChanged: len(out) - idx,
		MinElevFt:   minFt,
		Violations:  violations,
		Timestamp:   time.Now().UTC(),
	})
	return out, nil, nil
}

// LatestRun returns the most recent persisted run.
func (s *Service) LatestRun(ctx context.Context) (*schedule.RunRecord, error) {
	rec, ok, err := s.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no persisted runs")
	}
	return &rec, nil
}

// Close releases external connections.
func (s *Service) Close() {
	if s.mqttSub != nil {
		s.mqttSub.Close()
	}
	s.sink.Close()
	s.solveBus.Close()
	s.recalcBus.Close()
}
