package dispatch

import (
	"context"
	"errors"
	"testing"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	writes []map[string]any
	fail   error
}

func (f *fakeFeed) Subscribe(context.Context, feed.Collection) (<-chan feed.Snapshot, func(), error) {
	return nil, func() {}, nil
}

func (f *fakeFeed) Write(_ context.Context, _ feed.Collection, _ string, fields map[string]any) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes = append(f.writes, fields)
	return nil
}

func (f *fakeFeed) Append(context.Context, feed.Collection, map[string]any) (string, error) {
	return "", errors.New("not used")
}

type mapResolver map[string]models.Device

func (m mapResolver) Get(id string) (models.Device, bool) {
	d, ok := m[id]
	return d, ok
}

type captureNotifier struct {
	feedback []models.Feedback
}

func (c *captureNotifier) Notify(_ context.Context, f models.Feedback) {
	c.feedback = append(c.feedback, f)
}

func ptr[T any](v T) *T { return &v }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testDevices() mapResolver {
	return mapResolver{
		"fan-1": {ID: "fan-1", Name: "Ceiling Fan", Type: models.TypeFan, IsOn: ptr(false)},
		"thermostat-1": {
			ID: "thermostat-1", Name: "Main Thermostat", Type: models.TypeThermostat,
			TargetTemp: ptr(72.0), CurrentTemp: ptr(75.0),
		},
	}
}

func newTestDispatcher(f *fakeFeed, n *captureNotifier, enqueue EnqueueFunc) *Dispatcher {
	if enqueue == nil {
		enqueue = func(context.Context, string, string, string, map[string]any) error { return nil }
	}
	return New("u1", f, testDevices(), n, enqueue, quietLogger())
}

func TestApplyWritesSingleFieldUpdate(t *testing.T) {
	f := &fakeFeed{}
	d := newTestDispatcher(f, &captureNotifier{}, nil)

	err := d.Apply(context.Background(), models.Mutation{
		DeviceID: "fan-1",
		Command:  models.SetOn{On: true},
	})
	require.NoError(t, err)
	require.Len(t, f.writes, 1)
	assert.Equal(t, map[string]any{"isOn": true}, f.writes[0])
}

func TestApplyRejectsUnknownDevice(t *testing.T) {
	f := &fakeFeed{}
	d := newTestDispatcher(f, &captureNotifier{}, nil)

	err := d.Apply(context.Background(), models.Mutation{
		DeviceID: "missing",
		Command:  models.SetOn{On: true},
	})
	assert.Error(t, err)
	assert.Empty(t, f.writes)
}

func TestApplyValidatesCommandAgainstVariant(t *testing.T) {
	f := &fakeFeed{}
	d := newTestDispatcher(f, &captureNotifier{}, nil)

	// A thermostat is not switchable.
	err := d.Apply(context.Background(), models.Mutation{
		DeviceID: "thermostat-1",
		Command:  models.SetOn{On: true},
	})
	assert.Error(t, err)

	// Setpoint out of range.
	err = d.Apply(context.Background(), models.Mutation{
		DeviceID: "thermostat-1",
		Command:  models.SetTargetTemp{Value: 50},
	})
	assert.Error(t, err)
	assert.Empty(t, f.writes)
}

func TestApplyFeedFailureBecomesDispatchError(t *testing.T) {
	f := &fakeFeed{fail: errors.New("backend down")}
	n := &captureNotifier{}
	d := newTestDispatcher(f, n, nil)

	err := d.Apply(context.Background(), models.Mutation{
		DeviceID: "fan-1",
		Command:  models.SetOn{On: true},
	})
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "fan-1", derr.DeviceID)

	require.Len(t, n.feedback, 1)
	assert.Equal(t, models.FeedbackError, n.feedback[0].Type)
}

func TestDispatchFiringEnqueuesAndNotifies(t *testing.T) {
	var enqueued []string
	n := &captureNotifier{}
	d := newTestDispatcher(&fakeFeed{}, n, func(_ context.Context, owner, deviceID, ruleName string, fields map[string]any) error {
		enqueued = append(enqueued, deviceID)
		assert.Equal(t, "u1", owner)
		assert.Equal(t, map[string]any{"isOn": true}, fields)
		return nil
	})

	d.DispatchFiring(context.Background(), models.Firing{
		RuleID:   "r1",
		RuleName: "Cool down",
		Mutation: models.Mutation{DeviceID: "fan-1", Command: models.SetOn{On: true}},
	})

	assert.Equal(t, []string{"fan-1"}, enqueued)
	require.Len(t, n.feedback, 1)
	assert.Equal(t, models.FeedbackSuccess, n.feedback[0].Type)
	assert.Contains(t, n.feedback[0].Message, "Cool down")
}

func TestDispatchFiringEnqueueFailureIsErrorFeedback(t *testing.T) {
	n := &captureNotifier{}
	d := newTestDispatcher(&fakeFeed{}, n, func(context.Context, string, string, string, map[string]any) error {
		return errors.New("queue down")
	})

	d.DispatchFiring(context.Background(), models.Firing{
		RuleID:   "r1",
		RuleName: "Cool down",
		Mutation: models.Mutation{DeviceID: "fan-1", Command: models.SetOn{On: true}},
	})

	require.Len(t, n.feedback, 1)
	assert.Equal(t, models.FeedbackError, n.feedback[0].Type)
}

func TestDispatchFiringSkipsDanglingDevice(t *testing.T) {
	n := &captureNotifier{}
	called := false
	d := newTestDispatcher(&fakeFeed{}, n, func(context.Context, string, string, string, map[string]any) error {
		called = true
		return nil
	})

	d.DispatchFiring(context.Background(), models.Firing{
		RuleID:   "r1",
		RuleName: "Cool down",
		Mutation: models.Mutation{DeviceID: "missing", Command: models.SetOn{On: true}},
	})

	assert.False(t, called)
	assert.Empty(t, n.feedback)
}
