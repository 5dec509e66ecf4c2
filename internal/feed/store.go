package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// tables maps collections to their backing tables. Acts as an allowlist so
// collection names never reach SQL unchecked.
var tables = map[Collection]string{
	Devices: "devices",
	Rules:   "rules",
	History: "history",
}

// Store implements Feed on Postgres, with a Redis pub/sub channel per
// (owner, collection) carrying change nudges. Every nudge makes subscribers
// re-read and deliver the full collection.
type Store struct {
	pool  *pgxpool.Pool
	rdb   *redis.Client
	owner string
	log   *logrus.Entry
}

// New creates a feed scoped to one owner's namespace.
func New(pool *pgxpool.Pool, rdb *redis.Client, owner string, log *logrus.Logger) *Store {
	return &Store{
		pool:  pool,
		rdb:   rdb,
		owner: owner,
		log:   log.WithField("component", "feed").WithField("owner", owner),
	}
}

func (s *Store) channel(c Collection) string {
	return fmt.Sprintf("feed:%s:%s", s.owner, c)
}

// Write upserts a single document, merging fields into any existing doc.
func (s *Store) Write(ctx context.Context, c Collection, id string, fields map[string]any) error {
	table, ok := tables[c]
	if !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (owner_id, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (owner_id, id) DO UPDATE SET doc = %s.doc || EXCLUDED.doc`,
		table, table)
	if _, err := s.pool.Exec(ctx, query, s.owner, id, doc); err != nil {
		return fmt.Errorf("write %s/%s: %w", c, id, err)
	}
	s.nudge(ctx, c)
	return nil
}

// Append inserts a new document under a generated id.
func (s *Store) Append(ctx context.Context, c Collection, fields map[string]any) (string, error) {
	table, ok := tables[c]
	if !ok {
		return "", fmt.Errorf("unknown collection %q", c)
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	id := uuid.NewString()
	query := fmt.Sprintf("INSERT INTO %s (owner_id, id, doc) VALUES ($1, $2, $3)", table)
	if _, err := s.pool.Exec(ctx, query, s.owner, id, doc); err != nil {
		return "", fmt.Errorf("append %s: %w", c, err)
	}
	s.nudge(ctx, c)
	return id, nil
}

func (s *Store) nudge(ctx context.Context, c Collection) {
	if err := s.rdb.Publish(ctx, s.channel(c), "1").Err(); err != nil {
		s.log.WithError(err).WithField("collection", c).Warn("change nudge failed")
	}
}

func (s *Store) load(ctx context.Context, c Collection) (Snapshot, error) {
	table := tables[c]
	query := fmt.Sprintf("SELECT id, doc FROM %s WHERE owner_id = $1 ORDER BY pos", table)
	rows, err := s.pool.Query(ctx, query, s.owner)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		snap = append(snap, d)
	}
	return snap, rows.Err()
}

// Subscribe delivers the current collection contents immediately and again
// after every change nudge. The returned cancel func is idempotent and must
// be called on session teardown.
func (s *Store) Subscribe(ctx context.Context, c Collection) (<-chan Snapshot, func(), error) {
	if _, ok := tables[c]; !ok {
		return nil, nil, fmt.Errorf("unknown collection %q", c)
	}

	subCtx, stop := context.WithCancel(ctx)
	pubsub := s.rdb.Subscribe(subCtx, s.channel(c))

	out := make(chan Snapshot, 1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			if err := pubsub.Close(); err != nil {
				s.log.WithError(err).Warn("pubsub close failed")
			}
		})
	}

	go func() {
		defer close(out)
		s.deliver(subCtx, c, out)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				s.deliver(subCtx, c, out)
			}
		}
	}()

	return out, cancel, nil
}

// deliver loads the collection and hands it to the subscriber, replacing any
// undelivered snapshot so rapid updates coalesce to the newest state.
func (s *Store) deliver(ctx context.Context, c Collection, out chan Snapshot) {
	snap, err := s.load(ctx, c)
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithError(err).WithField("collection", c).Error("snapshot load failed")
		}
		return
	}
	select {
	case out <- snap:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- snap:
		default:
		}
	}
}
