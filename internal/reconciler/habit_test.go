package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"tandera.com/daypillar/internal/allocation"
	"tandera.com/daypillar/internal/entity"
)

func (f *fixture) createHabitWithLog(t *testing.T, habit *entity.Habit, status entity.HabitLogStatus) (*entity.Habit, *entity.HabitLog) {
	t.Helper()
	ctx := context.Background()

	habit.UserID = f.userID
	habit.Active = true
	if err := f.habits.Create(ctx, habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	habitLog := &entity.HabitLog{
		HabitID:      habit.ID,
		UserID:       f.userID,
		OccurredDate: entity.DateOnly(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)),
		Status:       status,
	}
	if _, err := f.habits.CreateLogIfAbsent(ctx, habitLog); err != nil {
		t.Fatalf("failed to create habit log: %v", err)
	}
	return habit, habitLog
}

func TestHabitReconcileAwardsCompletedLog(t *testing.T) {
	f := setupFixture(t, "habit-award")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{
		Name:      "Meditate",
		Points:    8,
		PillarIDs: entity.PillarSet{"health"},
	}, entity.HabitLogStatusCompleted)

	out, err := r.Reconcile(ctx, nil, habitLog)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionAwarded {
		t.Fatalf("expected awarded, got %s (%s)", out.Action, out.Reason)
	}

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))
	ev := f.mustEvent(t, eventID)
	if ev.Points != 8 {
		t.Errorf("expected habit definition points 8, got %d", ev.Points)
	}
	if !ev.PillarIDs.Equal(entity.PillarSet{"health"}) {
		t.Errorf("expected pillar snapshot from habit definition, got %v", ev.PillarIDs)
	}
	if ev.BonusGranted {
		t.Error("habit awards never grant a bonus")
	}
}

func TestHabitReconcileDefaultPointsWhenUnset(t *testing.T) {
	f := setupFixture(t, "habit-default-points")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Stretch"}, entity.HabitLogStatusCompleted)

	if _, err := r.Reconcile(ctx, nil, habitLog); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))
	if ev := f.mustEvent(t, eventID); ev.Points != 10 {
		t.Errorf("expected allocation default 10, got %d", ev.Points)
	}
}

func TestHabitReconcileSkippedNeverAwards(t *testing.T) {
	f := setupFixture(t, "habit-skip")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	_, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Journal", Points: 5}, entity.HabitLogStatusSkipped)

	out, err := r.Reconcile(ctx, nil, habitLog)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionNone || out.Reason != ReasonNoTransition {
		t.Fatalf("expected no_transition for skipped log, got %s (%s)", out.Action, out.Reason)
	}

	var count int64
	f.db.Model(&entity.PointEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("skipped log must not touch the ledger, got %d rows", count)
	}
}

func TestHabitReconcileSkipAfterCompletionReverses(t *testing.T) {
	f := setupFixture(t, "habit-skip-reverse")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Run", Points: 5}, entity.HabitLogStatusCompleted)
	if _, err := r.Reconcile(ctx, nil, habitLog); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	before := *habitLog
	if err := f.habits.UpdateLogStatus(ctx, habitLog.ID, entity.HabitLogStatusSkipped); err != nil {
		t.Fatal(err)
	}
	habitLog.Status = entity.HabitLogStatusSkipped

	out, err := r.Reconcile(ctx, &before, habitLog)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionReversed {
		t.Fatalf("expected reversed, got %s (%s)", out.Action, out.Reason)
	}

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))
	if ev := f.mustEvent(t, eventID); ev.Active {
		t.Error("expected award reversed after skip")
	}

	// Un-skipping back to pending lands on a clean slate: nothing to reverse.
	before = *habitLog
	if err := f.habits.UpdateLogStatus(ctx, habitLog.ID, entity.HabitLogStatusPending); err != nil {
		t.Fatal(err)
	}
	habitLog.Status = entity.HabitLogStatusPending

	out, err = r.Reconcile(ctx, &before, habitLog)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionNone || out.Reason != ReasonNoTransition {
		t.Fatalf("expected no_transition after unskip, got %s (%s)", out.Action, out.Reason)
	}
}

func TestHabitReconcileRecompletionReactivates(t *testing.T) {
	f := setupFixture(t, "habit-recomplete")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Walk", Points: 5}, entity.HabitLogStatusCompleted)
	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))

	if _, err := r.Reconcile(ctx, nil, habitLog); err != nil {
		t.Fatal(err)
	}

	if err := f.habits.UpdateLogStatus(ctx, habitLog.ID, entity.HabitLogStatusPending); err != nil {
		t.Fatal(err)
	}
	habitLog.Status = entity.HabitLogStatusPending
	if _, err := r.Reconcile(ctx, nil, habitLog); err != nil {
		t.Fatal(err)
	}

	if err := f.habits.UpdateLogStatus(ctx, habitLog.ID, entity.HabitLogStatusCompleted); err != nil {
		t.Fatal(err)
	}
	habitLog.Status = entity.HabitLogStatusCompleted
	out, err := r.Reconcile(ctx, nil, habitLog)
	if err != nil {
		t.Fatal(err)
	}
	if out.Action != ActionAwarded {
		t.Fatalf("expected re-award, got %s (%s)", out.Action, out.Reason)
	}

	ev := f.mustEvent(t, eventID)
	if !ev.Active || ev.Points != 5 {
		t.Errorf("expected active award of 5, got active=%v points=%d", ev.Active, ev.Points)
	}

	var count int64
	f.db.Model(&entity.PointEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("the whole cycle must reuse one ledger row, got %d", count)
	}
}

func TestHabitReconcileMissingHabitIsTerminalNoOp(t *testing.T) {
	f := setupFixture(t, "habit-missing")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Doomed", Points: 5}, entity.HabitLogStatusCompleted)
	if err := f.habits.Delete(ctx, habit.ID); err != nil {
		t.Fatal(err)
	}

	out, err := r.Reconcile(ctx, nil, habitLog)
	if err != nil {
		t.Fatalf("orphan log must not error (it would redeliver forever): %v", err)
	}
	if out.Reason != ReasonHabitNotFound {
		t.Fatalf("expected habit_not_found, got %s (%s)", out.Action, out.Reason)
	}
}

func TestHabitReconcileDeletedLogReverses(t *testing.T) {
	f := setupFixture(t, "habit-log-delete")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{Name: "Water plants", Points: 5}, entity.HabitLogStatusCompleted)
	if _, err := r.Reconcile(ctx, nil, habitLog); err != nil {
		t.Fatal(err)
	}

	snapshot := *habitLog
	if err := f.habits.DeleteLog(ctx, habitLog.ID); err != nil {
		t.Fatal(err)
	}

	out, err := r.Reconcile(ctx, &snapshot, nil)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if out.Action != ActionDeleted {
		t.Fatalf("expected deleted, got %s (%s)", out.Action, out.Reason)
	}

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))
	if ev := f.mustEvent(t, eventID); ev.Active {
		t.Error("expected award reversed after log deletion")
	}
}

func TestHabitReconcileConcurrentDeliveriesCollapse(t *testing.T) {
	f := setupFixture(t, "habit-concurrent")
	r := NewHabitReconciler(f.ledger, f.habits, f.habits, allocation.Default(), nil)
	ctx := context.Background()

	habit, habitLog := f.createHabitWithLog(t, &entity.Habit{
		Name:      "Journal",
		Points:    8,
		PillarIDs: entity.PillarSet{"health"},
	}, entity.HabitLogStatusCompleted)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = r.Reconcile(ctx, nil, habitLog)
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

	eventID := entity.PointEventID(entity.SourceTypeHabit, entity.HabitSourceID(habit.ID, habitLog.OccurredDate))
	if ev := f.mustEvent(t, eventID); ev.Points != 8 {
		t.Errorf("expected 8 points from the habit definition, got %d", ev.Points)
	}
}
