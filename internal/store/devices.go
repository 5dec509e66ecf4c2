package store

import (
	"context"
	"encoding/json"
	"sync"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
)

// DeviceStore is the in-memory authoritative device snapshot for one session,
// refreshed from the persistence feed.
type DeviceStore struct {
	feed feed.Feed
	log  *logrus.Entry

	mu      sync.RWMutex
	devices []models.Device
	seeded  bool
}

func NewDeviceStore(f feed.Feed, log *logrus.Logger) *DeviceStore {
	return &DeviceStore{feed: f, log: log.WithField("component", "devices")}
}

// ApplySnapshot replaces the local snapshot with the feed's latest contents.
// Order follows feed arrival order and is not stable across refreshes.
func (s *DeviceStore) ApplySnapshot(snap feed.Snapshot) {
	devices := make([]models.Device, 0, len(snap))
	for _, doc := range snap {
		var d models.Device
		if err := json.Unmarshal(doc.Data, &d); err != nil {
			s.log.WithError(err).WithField("id", doc.ID).Warn("skipping malformed device document")
			continue
		}
		d.ID = doc.ID
		devices = append(devices, d)
	}
	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()
}

// List returns the current devices in snapshot order.
func (s *DeviceStore) List() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Get resolves a device by id.
func (s *DeviceStore) Get(id string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

// SeedIfEmpty writes the fixed default devices through the feed when the
// external snapshot is empty, so a fresh session is never blank. The effect
// is visible only through a later feed update. Seeding happens at most once
// per session.
func (s *DeviceStore) SeedIfEmpty(ctx context.Context) {
	s.mu.Lock()
	if s.seeded || len(s.devices) > 0 {
		s.mu.Unlock()
		return
	}
	s.seeded = true
	s.mu.Unlock()

	for _, d := range DefaultDevices() {
		fields, err := deviceFields(d)
		if err != nil {
			s.log.WithError(err).WithField("id", d.ID).Error("encoding default device")
			continue
		}
		if err := s.feed.Write(ctx, feed.Devices, d.ID, fields); err != nil {
			s.log.WithError(err).WithField("id", d.ID).Error("seeding default device")
		}
	}
	s.log.Info("seeded default devices")
}

// deviceFields flattens a device into feed document fields, dropping the id
// (the id is the document key, not a field).
func deviceFields(d models.Device) (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}

func ptr[T any](v T) *T { return &v }

// DefaultDevices is the fixed seed set for a fresh session.
func DefaultDevices() []models.Device {
	return []models.Device{
		{
			ID: "thermostat-1", Name: "Main Thermostat", Room: "Living Room",
			Type: models.TypeThermostat, TargetTemp: ptr(72.0), CurrentTemp: ptr(75.0),
		},
		{
			ID: "light-1", Name: "Ceiling Light", Room: "Living Room",
			Type: models.TypeLight, IsOn: ptr(false), Brightness: ptr(80),
		},
		{
			ID: "light-2", Name: "Bedside Lamp", Room: "Bedroom",
			Type: models.TypeLight, IsOn: ptr(false), Brightness: ptr(40),
		},
		{
			ID: "light-3", Name: "Kitchen Light", Room: "Kitchen",
			Type: models.TypeLight, IsOn: ptr(true), Brightness: ptr(100),
		},
		{
			ID: "fan-1", Name: "Ceiling Fan", Room: "Bedroom",
			Type: models.TypeFan, IsOn: ptr(false), Speed: ptr(2),
		},
		{
			ID: "humidity-1", Name: "Humidity Sensor", Room: "Basement",
			Type: models.TypeHumidity, Humidity: ptr(45.0),
		},
	}
}
