package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed records writes and appends in memory.
type fakeFeed struct {
	mu      sync.Mutex
	writes  map[string]map[string]any // id -> fields
	appends []map[string]any
	fail    error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{writes: make(map[string]map[string]any)}
}

func (f *fakeFeed) Subscribe(context.Context, feed.Collection) (<-chan feed.Snapshot, func(), error) {
	return nil, func() {}, nil
}

func (f *fakeFeed) Write(_ context.Context, _ feed.Collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.writes[id] = fields
	return nil
}

func (f *fakeFeed) Append(_ context.Context, _ feed.Collection, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.appends = append(f.appends, fields)
	return fmt.Sprintf("doc-%d", len(f.appends)), nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func doc(t *testing.T, id string, v any) feed.Document {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return feed.Document{ID: id, Data: raw}
}

func TestDeviceStoreApplySnapshotKeepsOrder(t *testing.T) {
	s := NewDeviceStore(newFakeFeed(), quietLogger())
	s.ApplySnapshot(feed.Snapshot{
		doc(t, "fan-1", models.Device{Name: "Fan", Type: models.TypeFan}),
		doc(t, "light-1", models.Device{Name: "Light", Type: models.TypeLight}),
	})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "fan-1", list[0].ID)
	assert.Equal(t, "light-1", list[1].ID)

	got, ok := s.Get("light-1")
	require.True(t, ok)
	assert.Equal(t, "Light", got.Name)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestDeviceStoreSkipsMalformedDocuments(t *testing.T) {
	s := NewDeviceStore(newFakeFeed(), quietLogger())
	s.ApplySnapshot(feed.Snapshot{
		{ID: "bad", Data: []byte("{not json")},
		doc(t, "fan-1", models.Device{Type: models.TypeFan}),
	})
	assert.Len(t, s.List(), 1)
}

func TestDeviceStoreSeedIfEmpty(t *testing.T) {
	f := newFakeFeed()
	s := NewDeviceStore(f, quietLogger())
	s.ApplySnapshot(nil)

	s.SeedIfEmpty(context.Background())
	assert.Len(t, f.writes, len(DefaultDevices()))

	// The id is the document key, never a field.
	for id, fields := range f.writes {
		_, hasID := fields["id"]
		assert.False(t, hasID, "device %s carries an id field", id)
	}

	// Seeding happens at most once per session.
	f.writes = map[string]map[string]any{}
	s.SeedIfEmpty(context.Background())
	assert.Empty(t, f.writes)
}

func TestDeviceStoreSeedSkippedWhenPopulated(t *testing.T) {
	f := newFakeFeed()
	s := NewDeviceStore(f, quietLogger())
	s.ApplySnapshot(feed.Snapshot{doc(t, "fan-1", models.Device{Type: models.TypeFan})})

	s.SeedIfEmpty(context.Background())
	assert.Empty(t, f.writes)
}

func TestRuleStoreApplySnapshotInsertionOrder(t *testing.T) {
	s := NewRuleStore(quietLogger())
	s.ApplySnapshot(feed.Snapshot{
		doc(t, "r1", models.Rule{Name: "first"}),
		{ID: "bad", Data: []byte("!")},
		doc(t, "r2", models.Rule{Name: "second"}),
	})

	rules := s.List()
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, "first", rules[0].Name)
	assert.Equal(t, "r2", rules[1].ID)
}

func TestHistoryWindowForReturnsLatestThirtyAscending(t *testing.T) {
	h := NewHistoryBuffer(newFakeFeed(), quietLogger())

	var snap feed.Snapshot
	for i := 0; i < 35; i++ {
		snap = append(snap, doc(t, fmt.Sprintf("h%d", i), models.HistorySample{
			DeviceID:  "thermostat-1",
			Value:     70 + float64(i)/10,
			Timestamp: int64(1000 + i),
		}))
	}
	// Another device's samples must not leak into the window.
	snap = append(snap, doc(t, "other", models.HistorySample{
		DeviceID: "humidity-1", Value: 44, Timestamp: 999,
	}))
	h.ApplySnapshot(snap)

	window := h.WindowFor("thermostat-1")
	require.Len(t, window, WindowSize)
	assert.Equal(t, int64(1005), window[0].Timestamp)
	assert.Equal(t, int64(1034), window[len(window)-1].Timestamp)
	for i := 1; i < len(window); i++ {
		assert.LessOrEqual(t, window[i-1].Timestamp, window[i].Timestamp)
	}
}

func TestHistoryWindowForUnknownDeviceIsEmpty(t *testing.T) {
	h := NewHistoryBuffer(newFakeFeed(), quietLogger())
	assert.Empty(t, h.WindowFor("nothing"))
}

func TestHistoryRecordAppendsThroughFeed(t *testing.T) {
	f := newFakeFeed()
	h := NewHistoryBuffer(f, quietLogger())
	h.Record(context.Background(), "thermostat-1", 74.2, 12345)

	require.Len(t, f.appends, 1)
	assert.Equal(t, "thermostat-1", f.appends[0]["deviceId"])
	assert.Equal(t, 74.2, f.appends[0]["value"])
}

func TestHistoryRecordFailureIsSwallowed(t *testing.T) {
	f := newFakeFeed()
	f.fail = errors.New("backend down")
	h := NewHistoryBuffer(f, quietLogger())
	// Fire-and-forget: no panic, no retry.
	h.Record(context.Background(), "thermostat-1", 74.2, 12345)
	assert.Empty(t, f.appends)
}
