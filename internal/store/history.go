package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
)

// WindowSize is how many recent samples WindowFor returns per device.
// The external log itself is unbounded; windowing is a read-side projection.
const WindowSize = 30

// HistoryBuffer is the bounded, time-ordered view over the append-only
// history log, recomputed from the full external snapshot on every feed
// update.
type HistoryBuffer struct {
	feed feed.Feed
	log  *logrus.Entry

	mu      sync.RWMutex
	samples []models.HistorySample
}

func NewHistoryBuffer(f feed.Feed, log *logrus.Logger) *HistoryBuffer {
	return &HistoryBuffer{feed: f, log: log.WithField("component", "history")}
}

// ApplySnapshot replaces the local sample set with the feed's latest contents.
func (h *HistoryBuffer) ApplySnapshot(snap feed.Snapshot) {
	samples := make([]models.HistorySample, 0, len(snap))
	for _, doc := range snap {
		var s models.HistorySample
		if err := json.Unmarshal(doc.Data, &s); err != nil {
			h.log.WithError(err).WithField("id", doc.ID).Warn("skipping malformed history document")
			continue
		}
		s.ID = doc.ID
		samples = append(samples, s)
	}
	h.mu.Lock()
	h.samples = samples
	h.mu.Unlock()
}

// Record appends one sample through the feed. Fire-and-forget: a failure is
// logged and not retried.
func (h *HistoryBuffer) Record(ctx context.Context, deviceID string, value float64, timestamp int64) {
	_, err := h.feed.Append(ctx, feed.History, map[string]any{
		"deviceId":  deviceID,
		"value":     value,
		"timestamp": timestamp,
	})
	if err != nil {
		h.log.WithError(err).WithField("device", deviceID).Error("history append failed")
	}
}

// WindowFor returns the most recent WindowSize samples for a device,
// ascending by timestamp.
func (h *HistoryBuffer) WindowFor(deviceID string) []models.HistorySample {
	h.mu.RLock()
	var window []models.HistorySample
	for _, s := range h.samples {
		if s.DeviceID == deviceID {
			window = append(window, s)
		}
	}
	h.mu.RUnlock()

	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp < window[j].Timestamp
	})
	if len(window) > WindowSize {
		window = window[len(window)-WindowSize:]
	}
	return window
}
