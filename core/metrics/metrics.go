// Package metrics defines the sink contract for persisting solve and replay
// events. Implementations live under infra/metrics.
package metrics

import (
	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/core/events"
	"github.com/pcwa-smotley/abayopt/core/model"
)

// Sink records schedule events for observability purposes.
type Sink interface {
	RecordSolve(ev events.SolveEvent) error
	RecordRecalc(ev events.RecalcEvent) error
	RecordScheduleRows(runID uuid.UUID, rows model.RowSequence) error
	Close()
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordSolve(events.SolveEvent) error                   { return nil }
func (NopSink) RecordRecalc(events.RecalcEvent) error                 { return nil }
func (NopSink) RecordScheduleRows(uuid.UUID, model.RowSequence) error { return nil }
func (NopSink) Close()                                                {}
