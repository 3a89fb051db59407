package reconciler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/allocation"
	"tandera.com/daypillar/internal/entity"
)

// ActionReconciler decides whether an action write was a point-awarding or
// point-reversing transition and applies it to the ledger exactly once.
type ActionReconciler struct {
	ledger   Ledger
	actions  ActionReader
	alloc    *allocation.Table
	notifier Notifier
}

func NewActionReconciler(ledger Ledger, actions ActionReader, alloc *allocation.Table, notifier Notifier) *ActionReconciler {
	if alloc == nil {
		alloc = allocation.Default()
	}
	return &ActionReconciler{ledger: ledger, actions: actions, alloc: alloc, notifier: notifier}
}

// Reconcile handles one delivery. The delivered payload only identifies the
// record; the decision is re-derived from the latest persisted row so stale
// or reordered deliveries converge on the correct ledger state.
func (r *ActionReconciler) Reconcile(ctx context.Context, before, after *entity.Action) (Outcome, error) {
	var actionID uuid.UUID
	switch {
	case after != nil:
		actionID = after.ID
	case before != nil:
		actionID = before.ID
	default:
		return Outcome{Action: ActionNone, Reason: ReasonEmptyEvent}, nil
	}

	eventID := entity.PointEventID(entity.SourceTypeAction, actionID.String())

	if after == nil {
		// Deletion: a completed action must not leave an orphan award behind.
		return r.reverse(ctx, eventID, ActionDeleted)
	}

	current, err := r.actions.FindByID(ctx, actionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reload action %s: %w", actionID, err)
	}
	if current == nil {
		// Row already gone; this delivery raced the delete.
		return r.reverse(ctx, eventID, ActionDeleted)
	}

	existing, err := r.ledger.Get(ctx, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read ledger %s: %w", eventID, err)
	}

	if current.Status == entity.ActionStatusCompleted {
		if existing != nil && existing.Active {
			// Classifier re-entry: correct the pillar snapshot in place,
			// never touching points or active.
			if !existing.PillarIDs.Equal(current.PillarIDs) {
				if _, err := r.ledger.UpdatePillars(ctx, eventID, current.PillarIDs); err != nil {
					return Outcome{}, fmt.Errorf("correct pillar snapshot %s: %w", eventID, err)
				}
				return Outcome{Action: ActionNone, Reason: ReasonSnapshotCorrected, PointEventID: eventID.String()}, nil
			}
			return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
		}
		return r.award(ctx, eventID, current, existing)
	}

	if existing != nil && existing.Active {
		return r.reverse(ctx, eventID, ActionReversed)
	}

	return Outcome{Action: ActionNone, Reason: ReasonNoTransition}, nil
}

func (r *ActionReconciler) award(ctx context.Context, eventID uuid.UUID, current *entity.Action, existing *entity.PointEvent) (Outcome, error) {
	bounty := r.alloc.ActionBounty(current.Tier, current.BountyPoints)

	if existing == nil {
		ev := &entity.PointEvent{
			ID:           eventID,
			UserID:       current.UserID,
			SourceType:   entity.SourceTypeAction,
			SourceID:     current.ID.String(),
			PillarIDs:    current.PillarIDs,
			Points:       bounty + current.BonusPoints,
			BonusGranted: current.BonusPoints > 0,
			Active:       true,
		}

		created, err := r.ledger.CreateIfAbsent(ctx, ev)
		if err != nil {
			return Outcome{}, fmt.Errorf("create point event %s: %w", eventID, err)
		}
		if created {
			r.notify(ctx, ev, ActionAwarded)
			return Outcome{Action: ActionAwarded, PointEventID: eventID.String()}, nil
		}

		// Lost a race with a duplicate delivery. Retry once against the row
		// that won; if it already reached the desired state this is a no-op.
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

	// Re-completion after a reversal. The bonus applies once per source
	// lifetime: only the first completion cycle grants it.
	points := bounty
	grantBonus := false
	if current.BonusPoints > 0 && !existing.BonusGranted {
		points += current.BonusPoints
		grantBonus = true
	}

	reactivated, err := r.ledger.Reactivate(ctx, eventID, points, current.PillarIDs, grantBonus)
	if err != nil {
		return Outcome{}, fmt.Errorf("reactivate point event %s: %w", eventID, err)
	}
	if !reactivated {
		return Outcome{Action: ActionNone, Reason: ReasonAlreadyReconciled, PointEventID: eventID.String()}, nil
	}

	awarded := &entity.PointEvent{
		ID:         eventID,
		UserID:     current.UserID,
		SourceType: entity.SourceTypeAction,
		SourceID:   current.ID.String(),
		PillarIDs:  current.PillarIDs,
		Points:     points,
		Active:     true,
	}
	r.notify(ctx, awarded, ActionAwarded)
	return Outcome{Action: ActionAwarded, PointEventID: eventID.String()}, nil
}

func (r *ActionReconciler) reverse(ctx context.Context, eventID uuid.UUID, outcome string) (Outcome, error) {
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

func (r *ActionReconciler) notify(ctx context.Context, ev *entity.PointEvent, action string) {
	if r.notifier != nil {
		r.notifier.PublishPointUpdate(ctx, ev, action)
	}
}
