package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"tandera.com/daypillar/internal/changefeed"
	"tandera.com/daypillar/internal/classifier"
	"tandera.com/daypillar/internal/entity"
)

// ClassifierRunner is the classification stage as the dispatcher sees it.
type ClassifierRunner interface {
	Classify(ctx context.Context, action *entity.Action) (*classifier.Summary, error)
}

// Dispatcher is the change-feed entry point: one call per delivery. It
// sequences the classification stage (conditional, failures swallowed) and
// the reconciliation stage (errors propagate so the feed redelivers).
type Dispatcher struct {
	actions    *ActionReconciler
	habits     *HabitReconciler
	classifier ClassifierRunner
}

func NewDispatcher(actions *ActionReconciler, habits *HabitReconciler, classifier ClassifierRunner) *Dispatcher {
	return &Dispatcher{actions: actions, habits: habits, classifier: classifier}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev changefeed.Event) error {
	switch ev.EntityType {
	case changefeed.EntityAction:
		return d.dispatchAction(ctx, ev)
	case changefeed.EntityHabitLog:
		return d.dispatchHabitLog(ctx, ev)
	default:
		// Unknown entity types can never succeed on retry; ack them away.
		log.Printf("dispatch: ignoring unknown entity type %q (id=%s)", ev.EntityType, ev.EntityID)
		return nil
	}
}

func (d *Dispatcher) dispatchAction(ctx context.Context, ev changefeed.Event) error {
	before, err := decodeAction(ev.Before)
	if err != nil {
		return fmt.Errorf("decode action before-state: %w", err)
	}
	after, err := decodeAction(ev.After)
	if err != nil {
		return fmt.Errorf("decode action after-state: %w", err)
	}

	if d.classifier != nil && after != nil && NeedsClassification(before, after) {
		summary, err := d.classifier.Classify(ctx, after)
		if err != nil {
			// Classification failures never block the action's own award;
			// the record was marked failed and stays completable.
			log.Printf("dispatch: entity=action id=%s action=classified status=failed err=%v", ev.EntityID, err)
		} else {
			log.Printf("dispatch: entity=action id=%s action=classified method=%s matched=%d trimmed=%d",
				ev.EntityID, summary.Method, len(summary.MatchedPillarIDs), len(summary.TrimmedPillarIDs))
		}
	}

	out, err := d.actions.Reconcile(ctx, before, after)
	if err != nil {
		return err
	}

	logOutcome("action", ev.EntityID, out)
	return nil
}

func (d *Dispatcher) dispatchHabitLog(ctx context.Context, ev changefeed.Event) error {
	before, err := decodeHabitLog(ev.Before)
	if err != nil {
		return fmt.Errorf("decode habit log before-state: %w", err)
	}
	after, err := decodeHabitLog(ev.After)
	if err != nil {
		return fmt.Errorf("decode habit log after-state: %w", err)
	}

	out, err := d.habits.Reconcile(ctx, before, after)
	if err != nil {
		return err
	}

	logOutcome("habit_log", ev.EntityID, out)
	return nil
}

// NeedsClassification gates the classifier call: newly created (still
// unclassified) actions, and content edits while the pillar assignment is
// empty or was previously trimmed away. Status-only toggles never
// re-classify.
func NeedsClassification(before, after *entity.Action) bool {
	if after.ClassificationStatus == entity.ClassificationUnclassified {
		return true
	}
	if before == nil {
		return false
	}
	contentChanged := before.Title != after.Title || before.Description != after.Description
	return contentChanged && len(after.PillarIDs) == 0
}

func logOutcome(entityType, entityID string, out Outcome) {
	if out.Reason != "" {
		log.Printf("dispatch: entity=%s id=%s action=%s reason=%s point_event=%s",
			entityType, entityID, out.Action, out.Reason, out.PointEventID)
		return
	}
	log.Printf("dispatch: entity=%s id=%s action=%s point_event=%s",
		entityType, entityID, out.Action, out.PointEventID)
}

func decodeAction(raw json.RawMessage) (*entity.Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a entity.Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeHabitLog(raw json.RawMessage) (*entity.HabitLog, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var l entity.HabitLog
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
