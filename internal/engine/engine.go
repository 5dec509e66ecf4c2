package engine

import (
	"context"

	"homeboard/internal/feed"
	"homeboard/internal/models"
	"homeboard/internal/store"

	"github.com/sirupsen/logrus"
)

// Dispatcher applies engine-emitted firings. Implementations are
// fire-and-forget: failures surface as feedback and logs, never as retries.
type Dispatcher interface {
	DispatchFiring(ctx context.Context, f models.Firing)
}

// Engine drives rule evaluation for one session. All state transitions run on
// a single goroutine reacting to snapshot arrivals, so no two evaluations
// ever overlap and every evaluation sees the most recent local snapshots.
type Engine struct {
	devices    *store.DeviceStore
	rules      *store.RuleStore
	history    *store.HistoryBuffer
	dispatcher Dispatcher
	log        *logrus.Entry
}

func New(devices *store.DeviceStore, rules *store.RuleStore, history *store.HistoryBuffer, d Dispatcher, log *logrus.Logger) *Engine {
	return &Engine{
		devices:    devices,
		rules:      rules,
		history:    history,
		dispatcher: d,
		log:        log.WithField("component", "engine"),
	}
}

// Run consumes the three feed subscriptions until ctx is canceled. Devices
// and rules snapshots trigger re-evaluation; history snapshots only refresh
// the buffer.
func (e *Engine) Run(ctx context.Context, devices, rules, history <-chan feed.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-devices:
			if !ok {
				return
			}
			e.devices.ApplySnapshot(snap)
			e.devices.SeedIfEmpty(ctx)
			e.evaluate(ctx)
		case snap, ok := <-rules:
			if !ok {
				return
			}
			e.rules.ApplySnapshot(snap)
			e.evaluate(ctx)
		case snap, ok := <-history:
			if !ok {
				return
			}
			e.history.ApplySnapshot(snap)
		}
	}
}

func (e *Engine) evaluate(ctx context.Context) {
	firings := Evaluate(e.devices.List(), e.rules.List())
	if len(firings) == 0 {
		return
	}
	e.log.WithField("count", len(firings)).Debug("rules fired")
	for _, f := range firings {
		e.dispatcher.DispatchFiring(ctx, f)
	}
}
