package reconciler

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tandera.com/daypillar/internal/allocation"
	"tandera.com/daypillar/internal/entity"
	actionRepo "tandera.com/daypillar/internal/modules/action/repository"
	habitRepo "tandera.com/daypillar/internal/modules/habit/repository"
	ledgerRepo "tandera.com/daypillar/internal/modules/ledger/repository"
)

type fixture struct {
	db      *gorm.DB
	ledger  ledgerRepo.PointEventRepository
	actions actionRepo.ActionRepository
	habits  habitRepo.HabitRepository
	userID  uuid.UUID
}

func setupFixture(t *testing.T, name string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&entity.Action{}, &entity.Habit{}, &entity.HabitLog{}, &entity.PointEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return &fixture{
		db:      db,
		ledger:  ledgerRepo.NewPointEventRepository(db),
		actions: actionRepo.NewActionRepository(db),
		habits:  habitRepo.NewHabitRepository(db),
		userID:  uuid.New(),
	}
}

func (f *fixture) createAction(t *testing.T, action *entity.Action) *entity.Action {
	t.Helper()
	action.UserID = f.userID
	if err := f.actions.Create(context.Background(), action); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}
	return action
}

func (f *fixture) mustEvent(t *testing.T, id uuid.UUID) *entity.PointEvent {
	t.Helper()
	ev, err := f.ledger.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected point event %s to exist", id)
	}
	return ev
}

func TestActionReconcileAwardsOnCompletion(t *testing.T) {
	f := setupFixture(t, "action-award")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "File taxes",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 20,
		BonusPoints:  10,
		PillarIDs:    entity.PillarSet{"finances"},
	})

	out, err := r.Reconcile(ctx, nil, action)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionAwarded {
		t.Fatalf("expected awarded, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Points != 30 {
		t.Errorf("expected 30 points (bounty 20 + bonus 10), got %d", ev.Points)
	}
	if !ev.BonusGranted {
		t.Error("expected bonus_granted to be set")
	}
	if !ev.Active {
		t.Error("expected event to be active")
	}
	if !ev.PillarIDs.Equal(entity.PillarSet{"finances"}) {
		t.Errorf("unexpected pillar snapshot: %v", ev.PillarIDs)
	}
}

func TestActionReconcileDuplicateDeliveryIsNoOp(t *testing.T) {
	f := setupFixture(t, "action-dup")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "Morning run",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 15,
	})

	for i := 0; i < 3; i++ {
		if _, err := r.Reconcile(ctx, nil, action); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	out, err := r.Reconcile(ctx, nil, action)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionNone || out.Reason != ReasonAlreadyReconciled {
		t.Fatalf("expected already_reconciled no-op, got %s (%s)", out.Action, out.Reason)
	}

	var count int64
	f.db.Model(&entity.PointEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one ledger row, got %d", count)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Points != 15 {
		t.Errorf("points changed across redeliveries: %d", ev.Points)
	}
}

func TestActionReconcileReversalNetsToZero(t *testing.T) {
	f := setupFixture(t, "action-reverse")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "Read chapter",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 10,
	})
	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	before := *action
	action.Status = entity.ActionStatusPending
	if err := f.actions.Update(ctx, action); err != nil {
		t.Fatalf("failed to uncomplete: %v", err)
	}

	out, err := r.Reconcile(ctx, &before, action)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionReversed {
		t.Fatalf("expected reversed, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Active {
		t.Error("expected event to be inactive after reversal")
	}
}

func TestActionReconcileBonusGrantedOncePerLifetime(t *testing.T) {
	f := setupFixture(t, "action-bonus-once")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "Deep clean garage",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 20,
		BonusPoints:  10,
	})
	eventID := entity.PointEventID(entity.SourceTypeAction, action.ID.String())

	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("first award failed: %v", err)
	}
	if ev := f.mustEvent(t, eventID); ev.Points != 30 {
		t.Fatalf("first award: expected 30 points, got %d", ev.Points)
	}

	// Uncomplete, then complete again. The bonus must not be re-granted.
	action.Status = entity.ActionStatusPending
	if err := f.actions.Update(ctx, action); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("reversal failed: %v", err)
	}

	action.Status = entity.ActionStatusCompleted
	if err := f.actions.Update(ctx, action); err != nil {
		t.Fatal(err)
	}
	out, err := r.Reconcile(ctx, nil, action)
	if err != nil {
		t.Fatalf("re-award failed: %v", err)
	}
	if out.Action != ActionAwarded {
		t.Fatalf("expected awarded, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, eventID)
	if ev.Points != 20 {
		t.Errorf("re-completion must award bounty only: expected 20, got %d", ev.Points)
	}
	if !ev.BonusGranted {
		t.Error("bonus_granted flag must survive the reversal cycle")
	}
	if !ev.Active {
		t.Error("expected event active after re-award")
	}
}

func TestActionReconcileCorrectsPillarSnapshot(t *testing.T) {
	f := setupFixture(t, "action-snapshot")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	// Completed before classification finished: awarded with no pillars.
	action := f.createAction(t, &entity.Action{
		Title:        "Gym session",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 10,
	})
	eventID := entity.PointEventID(entity.SourceTypeAction, action.ID.String())

	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	// Classifier write-back re-enters the feed with the pillar assignment.
	before := *action
	if err := f.actions.UpdateClassification(ctx, action.ID, entity.PillarSet{"health"}, entity.ClassificationClassified); err != nil {
		t.Fatal(err)
	}
	action.PillarIDs = entity.PillarSet{"health"}
	action.ClassificationStatus = entity.ClassificationClassified

	out, err := r.Reconcile(ctx, &before, action)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Reason != ReasonSnapshotCorrected {
		t.Fatalf("expected pillar_snapshot_corrected, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, eventID)
	if !ev.PillarIDs.Equal(entity.PillarSet{"health"}) {
		t.Errorf("snapshot not corrected: %v", ev.PillarIDs)
	}
	if ev.Points != 10 {
		t.Errorf("correction must not touch points: got %d", ev.Points)
	}

	var count int64
	f.db.Model(&entity.PointEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("correction must not create a second award, got %d rows", count)
	}
}

func TestActionReconcileDeletionReversesOrphanAward(t *testing.T) {
	f := setupFixture(t, "action-delete")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "Old task",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 10,
	})
	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	snapshot := *action
	if err := f.actions.Delete(ctx, action.ID); err != nil {
		t.Fatal(err)
	}

	out, err := r.Reconcile(ctx, &snapshot, nil)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionDeleted {
		t.Fatalf("expected deleted, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Active {
		t.Error("expected orphan award to be deactivated")
	}
}

func TestActionReconcileStaleDeliveryConvergesOnCurrentState(t *testing.T) {
	f := setupFixture(t, "action-stale")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	// The row says completed; a stale delivery carrying the old pending
	// snapshot must still produce an award because decisions are re-derived.
	action := f.createAction(t, &entity.Action{
		Title:        "Ship report",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 10,
	})

	stale := *action
	stale.Status = entity.ActionStatusPending

	out, err := r.Reconcile(ctx, nil, &stale)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionAwarded {
		t.Fatalf("expected awarded from re-derived state, got %s (%s)", out.Action, out.Reason)
	}
}

func TestActionReconcilePendingActionIsNoTransition(t *testing.T) {
	f := setupFixture(t, "action-pending")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:  "Someday task",
		Status: entity.ActionStatusPending,
	})

	out, err := r.Reconcile(ctx, nil, action)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionNone || out.Reason != ReasonNoTransition {
		t.Fatalf("expected no_transition, got %s (%s)", out.Action, out.Reason)
	}

	var count int64
	f.db.Model(&entity.PointEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("pending action must not touch the ledger, got %d rows", count)
	}
}

func TestActionReconcileConcurrentDeliveriesCollapse(t *testing.T) {
	f := setupFixture(t, "action-concurrent")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:        "Submit application",
		Status:       entity.ActionStatusCompleted,
		BountyPoints: 20,
		BonusPoints:  10,
	})

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = r.Reconcile(ctx, nil, action)
		}(i)
	}
	wg.Wait()

	awarded := 0
	for i := range outcomes {
		if errs[i] != nil {
			t.Fatalf("delivery %d failed: %v", i+1, errs[i])
		}
		switch {
		case outcomes[i].Action == ActionAwarded:
			awarded++
		case outcomes[i].Reason == ReasonAlreadyReconciled:
		default:
			t.Errorf("delivery %d: unexpected outcome %s (%s)", i+1, outcomes[i].Action, outcomes[i].Reason)
		}
	}
	if awarded != 1 {
		t.Errorf("expected exactly one awarding delivery, got %d", awarded)
	}

	var active int64
	f.db.Model(&entity.PointEvent{}).Where("active = ?", true).Count(&active)
	if active != 1 {
		t.Errorf("expected exactly one active point event, got %d", active)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Points != 30 {
		t.Errorf("expected 30 points (bounty 20 + bonus 10), got %d", ev.Points)
	}
}

func TestActionReconcileTierFallbackWhenNoExplicitBounty(t *testing.T) {
	f := setupFixture(t, "action-tier")
	r := NewActionReconciler(f.ledger, f.actions, allocation.Default(), nil)
	ctx := context.Background()

	action := f.createAction(t, &entity.Action{
		Title:  "Quick errand",
		Status: entity.ActionStatusCompleted,
		Tier:   allocation.TierQuick,
	})

	if _, err := r.Reconcile(ctx, nil, action); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	ev := f.mustEvent(t, entity.PointEventID(entity.SourceTypeAction, action.ID.String()))
	if ev.Points != 5 {
		t.Errorf("expected quick tier allocation of 5, got %d", ev.Points)
	}
}
