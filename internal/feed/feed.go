// Package feed is the persistence feed: a per-user namespace of small
// document collections with push-based subscriptions. Subscribers receive the
// entire current collection contents on every change, never diffs; rapid
// writes may coalesce into a single delivery.
package feed

import (
	"context"
	"encoding/json"
)

// Collection names the three per-user collections.
type Collection string

const (
	Devices Collection = "devices"
	Rules   Collection = "rules"
	History Collection = "history"
)

// Document is one record of a collection.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Snapshot is the full contents of a collection, in arrival order.
type Snapshot []Document

// Feed is the core-facing persistence contract. Write performs a partial
// document upsert keyed by id; Append generates a new id. Both are
// asynchronous from the caller's perspective: effects become visible through
// a later snapshot delivery, not a synchronous read-back.
type Feed interface {
	Subscribe(ctx context.Context, c Collection) (<-chan Snapshot, func(), error)
	Write(ctx context.Context, c Collection, id string, fields map[string]any) error
	Append(ctx context.Context, c Collection, fields map[string]any) (string, error)
}
