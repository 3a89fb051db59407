// Package changefeed carries (entityId, before, after) snapshots from the
// CRUD layer to the reconciliation pipeline. Delivery is at-least-once and
// unordered; consumers must be idempotent. The production transport is a
// Redis Stream with a consumer group; tests use the in-memory feed.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EntityType string

const (
	EntityAction   EntityType = "action"
	EntityHabitLog EntityType = "habit_log"
)

// Event is one change notification. Before is absent on creation, After is
// absent on deletion. EntityID is always present.
type Event struct {
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Handler processes one delivery. A returned error leaves the message
// pending so the transport redelivers it.
type Handler func(ctx context.Context, ev Event) error

// Feed is the publishing side consumed by the CRUD repositories.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
}

// NewEvent marshals the before/after snapshots. Pass a nil pointer for a
// missing side (creation or deletion).
func NewEvent(entityType EntityType, entityID string, before, after any) (Event, error) {
	ev := Event{
		EntityType: entityType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}

	var err error
	if ev.Before, err = snapshot(before); err != nil {
		return Event{}, fmt.Errorf("marshal before snapshot: %w", err)
	}
	if ev.After, err = snapshot(after); err != nil {
		return Event{}, fmt.Errorf("marshal after snapshot: %w", err)
	}

	return ev, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}
