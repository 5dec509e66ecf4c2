package store

import (
	"encoding/json"
	"sync"

	"homeboard/internal/feed"
	"homeboard/internal/models"

	"github.com/sirupsen/logrus"
)

// RuleStore is the in-memory snapshot of configured automation rules.
// Rules are create-only: the feed appends new documents and never rewrites
// existing ones, so snapshot order is insertion order.
type RuleStore struct {
	log *logrus.Entry

	mu    sync.RWMutex
	rules []models.Rule
}

func NewRuleStore(log *logrus.Logger) *RuleStore {
	return &RuleStore{log: log.WithField("component", "rules")}
}

// ApplySnapshot replaces the local snapshot with the feed's latest contents.
func (s *RuleStore) ApplySnapshot(snap feed.Snapshot) {
	rules := make([]models.Rule, 0, len(snap))
	for _, doc := range snap {
		var r models.Rule
		if err := json.Unmarshal(doc.Data, &r); err != nil {
			s.log.WithError(err).WithField("id", doc.ID).Warn("skipping malformed rule document")
			continue
		}
		r.ID = doc.ID
		rules = append(rules, r)
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
}

// List returns the current rules in insertion order.
func (s *RuleStore) List() []models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}
