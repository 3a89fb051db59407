package reconciler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/allocation"
	"tandera.com/daypillar/internal/entity"
)

// HabitReconciler mirrors the action reconciler but keys the ledger by
// (habitId, occurredDate), since a habit produces one log per date. There is
// no classification step: pillar ownership is read off the habit definition
// at award time, never cached on the log.
type HabitReconciler struct {
	ledger   Ledger
	logs     HabitLogReader
	habits   HabitReader
	alloc    *allocation.Table
	notifier Notifier
}

func NewHabitReconciler(ledger Ledger, logs HabitLogReader, habits HabitReader, alloc *allocation.Table, notifier Notifier) *HabitReconciler {
	if alloc == nil {
		alloc = allocation.Default()
	}
	return &HabitReconciler{ledger: ledger, logs: logs, habits: habits, alloc: alloc, notifier: notifier}
}

func (r *HabitReconciler) Reconcile(ctx context.Context, before, after *entity.HabitLog) (Outcome, error) {
	payload := after
	if payload == nil {
		payload = before
	}
	if payload == nil {
		return Outcome{Action: ActionNone, Reason: ReasonEmptyEvent}, nil
	}

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(payload.HabitID, payload.OccurredDate))

	if after == nil {
		return r.reverse(ctx, eventID, ActionDeleted)
	}

	current, err := r.logs.FindLogByID(ctx, after.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reload habit log %s: %w", after.ID, err)
	}
	if current == nil {
		return r.reverse(ctx, eventID, ActionDeleted)
	}

	existing, err := r.ledger.Get(ctx, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read ledger %s: %w", eventID, err)
	}

	if current.Status == entity.HabitLogStatusCompleted {
		if existing != nil && existing.Active {
			return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
		}
		return r.award(ctx, eventID, current, existing)
	}

	// pending and skipped reconcile identically: no award may survive.
	// Leaving skipped for pending therefore lands on a clean slate.
	if existing != nil && existing.Active {
		return r.reverse(ctx, eventID, ActionReversed)
	}

	return Outcome{Action: ActionNone, Reason: ReasonNoTransition}, nil
}

func (r *HabitReconciler) award(ctx context.Context, eventID uuid.UUID, current *entity.HabitLog, existing *entity.PointEvent) (Outcome, error) {
	habit, err := r.habits.FindByID(ctx, current.HabitID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load habit %s: %w", current.HabitID, err)
	}
	if habit == nil {
		// Orphan log; nothing to award against. Retrying will not help.
		return Outcome{Action: ActionNone, Reason: ReasonHabitNotFound}, nil
	}

	points := r.alloc.HabitPoints(habit.Points)

	if existing == nil {
		ev := &entity.PointEvent{
			ID:         eventID,
			UserID:     current.UserID,
			SourceType: entity.SourceTypeHabit,
			SourceID:   entity.HabitSourceID(current.HabitID, current.OccurredDate),
			PillarIDs:  habit.PillarIDs,
			Points:     points,
			Active:     true,
		}

		created, err := r.ledger.CreateIfAbsent(ctx, ev)
		if err != nil {
			return Outcome{}, fmt.Errorf("create point event %s: %w", eventID, err)
		}
		if created {
			r.notify(ctx, ev, ActionAwarded)
			return Outcome{Action: ActionAwarded, PointEventID: eventID.String()}, nil
		}

		existing, err = r.ledger.Get(ctx, eventID)
		if err != nil {
			return Outcome{}, fmt.Errorf("re-read ledger %s after conflict: %w", eventID, err)
		}
		if existing == nil {
			return Outcome{}, fmt.Errorf("ledger row %s missing after insert conflict", eventID)
		}
	}

	if existing.Active {
		return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
	}

	reactivated, err := r.ledger.Reactivate(ctx, eventID, points, habit.PillarIDs, false)
	if err != nil {
		return Outcome{}, fmt.Errorf("reactivate point event %s: %w", eventID, err)
	}
	if !reactivated {
		return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
	}

	awarded := &entity.PointEvent{
		ID:         eventID,
		UserID:     current.UserID,
		SourceType: entity.SourceTypeHabit,
		SourceID:   entity.HabitSourceID(current.HabitID, current.OccurredDate),
		PillarIDs:  habit.PillarIDs,
		Points:     points,
		Active:     true,
	}
	r.notify(ctx, awarded, ActionAwarded)
	return Outcome{Action: ActionAwarded, PointEventID: eventID.String()}, nil
}

func (r *HabitReconciler) reverse(ctx context.Context, eventID uuid.UUID, outcome string) (Outcome, error) {
	deactivated, err := r.ledger.Deactivate(ctx, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("deactivate point event %s: %w", eventID, err)
	}
	if !deactivated {
		return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
	}

	if ev, err := r.ledger.Get(ctx, eventID); err == nil && ev != nil {
		r.notify(ctx, ev, ActionReversed)
	}
	return Outcome{Action: outcome, PointEventID: eventID.String()}, nil
}

func (r *HabitReconciler) notify(ctx context.Context, ev *entity.PointEvent, action string) {
	if r.notifier != nil {
		r.notifier.PublishPointUpdate(ctx, ev, action)
	}
}
