// Package reconciler is the point-bounty reconciliation engine. It reacts to
// change-feed deliveries for actions and habit logs and keeps the point
// ledger correct under at-least-once, unordered, duplicated delivery: every
// decision is re-derived from the latest persisted record, and every ledger
// mutation is a single conditional write keyed by a deterministic event id.
package reconciler

import (
	"context"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
)

const (
	ActionNone     = "none"
	ActionAwarded  = "awarded"
	ActionReversed = "reversed"
	ActionDeleted  = "deleted"

	ReasonNoTransition      = "no_transition"
	ReasonAlreadyReconciled = "already_reconciled"
	ReasonSnapshotCorrected = "pillar_snapshot_corrected"
	ReasonHabitNotFound     = "habit_not_found"
	ReasonEmptyEvent        = "empty_event"
)

// Outcome reports what one reconcile pass did, for the dispatcher's
// structured log line.
type Outcome struct {
	Action       string
	Reason       string
	PointEventID string
}

// Ledger is the narrow write/read surface the reconcilers need. Every
// mutation is conditional so that concurrent duplicate invocations collapse
// to one effective write; the loser observes a no-op, never an error.
type Ledger interface {
	// Get returns nil when no event exists for the id.
	Get(ctx context.Context, id uuid.UUID) (*entity.PointEvent, error)
	// CreateIfAbsent inserts the event unless a row with the same id already
	// exists. Returns whether this call created it.
	CreateIfAbsent(ctx context.Context, ev *entity.PointEvent) (bool, error)
	// Reactivate flips an inactive event back to active with fresh points and
	// pillar snapshot. No-op (false) unless the row exists and is inactive.
	Reactivate(ctx context.Context, id uuid.UUID, points int, pillars entity.PillarSet, grantBonus bool) (bool, error)
	// Deactivate reverses an active event. No-op (false) when already inactive
	// or absent.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	// UpdatePillars corrects the pillar snapshot of an active event without
	// touching points or active.
	UpdatePillars(ctx context.Context, id uuid.UUID, pillars entity.PillarSet) (bool, error)
}

// ActionReader reloads the latest persisted action. Must return (nil, nil)
// when the row no longer exists.
type ActionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Action, error)
}

// HabitLogReader reloads the latest persisted habit log.
type HabitLogReader interface {
	FindLogByID(ctx context.Context, id uuid.UUID) (*entity.HabitLog, error)
}

// HabitReader resolves the parent habit definition at award time.
type HabitReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error)
}

// Notifier pushes ledger changes to live listeners. Optional; never blocks
// reconciliation.
type Notifier interface {
	PublishPointUpdate(ctx context.Context, ev *entity.PointEvent, action string)
}
