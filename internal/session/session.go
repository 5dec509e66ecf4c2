package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"homeboard/internal/dispatch"
	"homeboard/internal/feed"
	"homeboard/internal/models"
	"homeboard/internal/simulator"
	"homeboard/internal/store"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Session is the per-user context: it owns the three stores, the engine
// loop, the telemetry simulator and the feed subscriptions, and tears them
// all down together. There is no process-wide store state; everything hangs
// off a Session.
type Session struct {
	UserID string

	Feed       feed.Feed
	Devices    *store.DeviceStore
	Rules      *store.RuleStore
	History    *store.HistoryBuffer
	Dispatcher *dispatch.Dispatcher

	mqtt      mqtt.Client
	readTopic string
	sim       *simulator.Simulator
	cancel    context.CancelFunc
	unsubs    []func()
	closeOnce sync.Once
	log       *logrus.Entry
}

// onReading ingests one simulator reading: append to history, then update the
// device's current reading through the dispatcher. Both are fire-and-forget.
func (s *Session) onReading(_ mqtt.Client, msg mqtt.Message) {
	ctx := context.Background()
	deviceID := simulator.ParseDeviceID(msg.Topic())
	if deviceID == "" {
		return
	}
	var r simulator.Reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		s.log.WithError(err).WithField("topic", msg.Topic()).Warn("malformed reading payload")
		return
	}
	s.History.Record(ctx, deviceID, r.Value, r.Timestamp)
	err := s.Dispatcher.Apply(ctx, models.Mutation{
		DeviceID: deviceID,
		Command:  models.SetCurrentTemp{Value: r.Value},
	})
	if err != nil {
		s.log.WithError(err).WithField("device", deviceID).Warn("reading update failed")
	}
}

// Close releases the simulator timer, the MQTT subscription and the three
// feed subscriptions exactly once, so nothing writes against a closed
// session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.sim != nil {
			s.sim.Stop()
		}
		if s.mqtt != nil {
			s.mqtt.Unsubscribe(s.readTopic)
		}
		for _, unsub := range s.unsubs {
			unsub()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.log.Info("session closed")
	})
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s)", s.UserID)
}
