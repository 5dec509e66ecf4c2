package dispatch

import (
	"context"
	"fmt"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
)

// DispatchError wraps a failed write to the persistence feed. Logged and
// surfaced as transient feedback; never retried.
type DispatchError struct {
	DeviceID string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to device %s failed: %v", e.DeviceID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Resolver looks devices up in the session's current snapshot, so commands
// can be validated against the variant they target.
type Resolver interface {
	Get(id string) (models.Device, bool)
}

// EnqueueFunc hands an engine-originated apply to the task queue,
// fire-and-forget.
type EnqueueFunc func(ctx context.Context, owner, deviceID, ruleName string, fields map[string]any) error

// Dispatcher applies mutations back through the persistence feed. User
// actions apply synchronously; rule firings go through the task queue.
// Either way a mutation is exactly one feed write.
type Dispatcher struct {
	owner    string
	feed     feed.Feed
	devices  Resolver
	notifier Notifier
	enqueue  EnqueueFunc
	log      *logrus.Entry
}

func New(owner string, f feed.Feed, devices Resolver, notifier Notifier, enqueue EnqueueFunc, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		owner:    owner,
		feed:     f,
		devices:  devices,
		notifier: notifier,
		enqueue:  enqueue,
		log:      log.WithField("component", "dispatch").WithField("owner", owner),
	}
}

// Apply validates and persists a single mutation. On a feed failure it
// reports a DispatchError through the notifier and does not retry: the next
// feed refresh reflects whatever state actually persisted, and the engine
// re-evaluates on that refresh.
func (d *Dispatcher) Apply(ctx context.Context, m models.Mutation) error {
	dev, ok := d.devices.Get(m.DeviceID)
	if !ok {
		return fmt.Errorf("unknown device %q", m.DeviceID)
	}
	if err := m.Command.ValidFor(dev); err != nil {
		return err
	}
	if err := d.feed.Write(ctx, feed.Devices, m.DeviceID, m.Command.Fields()); err != nil {
		derr := &DispatchError{DeviceID: m.DeviceID, Err: err}
		d.log.WithError(err).WithField("device", m.DeviceID).Error("mutation write failed")
		d.notifier.Notify(ctx, models.Feedback{
			Message: fmt.Sprintf("Could not update %s", dev.Name),
			Type:    models.FeedbackError,
		})
		return derr
	}
	return nil
}

// DispatchFiring carries an engine-emitted firing: one queued feed write plus
// one "rule fired" notification carrying the rule's name.
func (d *Dispatcher) DispatchFiring(ctx context.Context, f models.Firing) {
	dev, ok := d.devices.Get(f.Mutation.DeviceID)
	if !ok {
		return
	}
	if err := f.Mutation.Command.ValidFor(dev); err != nil {
		d.log.WithError(err).WithField("rule", f.RuleID).Warn("rule action invalid for device")
		return
	}
	err := d.enqueue(ctx, d.owner, f.Mutation.DeviceID, f.RuleName, f.Mutation.Command.Fields())
	if err != nil {
		d.log.WithError(err).WithField("rule", f.RuleID).Error("enqueue apply failed")
		d.notifier.Notify(ctx, models.Feedback{
			Message: fmt.Sprintf("Rule %q could not run", f.RuleName),
			Type:    models.FeedbackError,
		})
		return
	}
	d.notifier.Notify(ctx, models.Feedback{
		Message: fmt.Sprintf("Rule %q fired", f.RuleName),
		Type:    models.FeedbackSuccess,
	})
}
