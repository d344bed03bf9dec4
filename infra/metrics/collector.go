package metrics

import (
	"context"

	"github.com/pcwa-smotley/abayopt/core/events"
	coremetrics "github.com/pcwa-smotley/abayopt/core/metrics"
	"github.com/pcwa-smotley/abayopt/internal/eventbus"
)

// StartSolveCollector subscribes to the solve bus and forwards events to the
// sink. It stops when the context is canceled.
func StartSolveCollector(ctx context.Context, bus *eventbus.Bus[events.SolveEvent], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = sink.RecordSolve(ev)
			}
		}
	}()
}

// StartRecalcCollector forwards replay events to the sink.
func StartRecalcCollector(ctx context.Context, bus *eventbus.Bus[events.RecalcEvent], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = sink.RecordRecalc(ev)
			}
		}
	}()
}
