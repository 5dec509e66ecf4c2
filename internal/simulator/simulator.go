package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"homeboard/internal/scheduler"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DeviceID is the one device the simulator produces readings for.
const DeviceID = "thermostat-1"

// defaultReading is used when no previous reading is known.
const defaultReading = 75.0

// drift is the half-width of the uniform step between readings.
const drift = 0.75

// Reading is the MQTT payload for one synthetic telemetry sample.
type Reading struct {
	DeviceID  string  `json:"deviceId"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// Topic is the reading topic for one device in a user's namespace.
func Topic(owner, deviceID string) string {
	return fmt.Sprintf("homeboard/%s/devices/%s/reading", owner, deviceID)
}

// TopicFilter subscribes to all reading topics in a user's namespace.
func TopicFilter(owner string) string {
	return fmt.Sprintf("homeboard/%s/devices/+/reading", owner)
}

// ParseDeviceID extracts the device id from a reading topic.
func ParseDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 && parts[len(parts)-1] == "reading" {
		return parts[len(parts)-2]
	}
	return ""
}

func readingKey(owner, deviceID string) string {
	return fmt.Sprintf("reading:%s:%s", owner, deviceID)
}

// Simulator publishes a synthetic thermostat reading on a fixed cadence:
// last known value plus a uniform step in [-drift, +drift]. It is a data
// source only; the session's ingest path turns readings into history samples
// and device updates.
type Simulator struct {
	mqtt  mqtt.Client
	rdb   *redis.Client
	sched *scheduler.Scheduler
	owner string
	spec  string
	entry cron.EntryID
	log   *logrus.Entry
}

func New(mqttClient mqtt.Client, rdb *redis.Client, sched *scheduler.Scheduler, owner, spec string, log *logrus.Logger) *Simulator {
	return &Simulator{
		mqtt:  mqttClient,
		rdb:   rdb,
		sched: sched,
		owner: owner,
		spec:  spec,
		log:   log.WithField("component", "simulator").WithField("owner", owner),
	}
}

// Start registers the cron job. The default spec fires when wall-clock
// seconds hit zero, i.e. once per minute.
func (s *Simulator) Start() error {
	entry, err := s.sched.AddJob(s.spec, s.tick)
	if err != nil {
		return fmt.Errorf("schedule simulator: %w", err)
	}
	s.entry = entry
	return nil
}

// Stop deregisters the cron job. Must run on session teardown so no reading
// is published against a closed session.
func (s *Simulator) Stop() {
	s.sched.Remove(s.entry)
}

func (s *Simulator) tick() {
	ctx := context.Background()

	last := defaultReading
	if v, err := s.rdb.Get(ctx, readingKey(s.owner, DeviceID)).Float64(); err == nil {
		last = v
	}
	next := NextReading(last, rand.Float64())
	if err := s.rdb.Set(ctx, readingKey(s.owner, DeviceID), next, 0).Err(); err != nil {
		s.log.WithError(err).Warn("caching reading failed")
	}

	payload, err := json.Marshal(Reading{
		DeviceID:  DeviceID,
		Value:     next,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		s.log.WithError(err).Error("encoding reading")
		return
	}

	token := s.mqtt.Publish(Topic(s.owner, DeviceID), 1, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			s.log.WithError(token.Error()).Error("publishing reading failed")
		}
	}()
	s.log.WithField("value", next).Debug("published reading")
}

// NextReading computes the next synthetic value from the last one and a
// uniform sample in [0, 1). Split out so the step stays testable.
func NextReading(last, u float64) float64 {
	return last + (u*2*drift - drift)
}
