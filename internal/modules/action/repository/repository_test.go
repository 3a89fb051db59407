package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tandera.com/daypillar/internal/entity"
)

func setupRepo(t *testing.T, name string) ActionRepository {
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

	if err := db.AutoMigrate(&entity.Action{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewActionRepository(db)
}

func TestUpdateDoesNotClobberClassifierColumns(t *testing.T) {
	repo := setupRepo(t, "action-repo-scoped-update")
	ctx := context.Background()

	action := &entity.Action{
		UserID:               uuid.New(),
		Title:                "Plan the week",
		Status:               entity.ActionStatusPending,
		TargetDate:           time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		ClassificationStatus: entity.ClassificationUnclassified,
	}
	if err := repo.Create(ctx, action); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}

	// The caller holds a snapshot from before the classifier wrote back.
	stale := *action

	if err := repo.UpdateClassification(ctx, action.ID, entity.PillarSet{"p-health"}, entity.ClassificationClassified); err != nil {
		t.Fatalf("classification write-back failed: %v", err)
	}

	stale.Title = "Plan the whole week"
	if err := repo.Update(ctx, &stale); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := repo.FindByID(ctx, action.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Plan the whole week" {
		t.Errorf("expected title update to land, got %q", got.Title)
	}
	if !got.PillarIDs.Equal(entity.PillarSet{"p-health"}) {
		t.Errorf("update must not clobber the pillar assignment, got %v", got.PillarIDs)
	}
	if got.ClassificationStatus != entity.ClassificationClassified {
		t.Errorf("update must not clobber the classification status, got %s", got.ClassificationStatus)
	}
}

func TestUpdatePersistsStatusTransition(t *testing.T) {
	repo := setupRepo(t, "action-repo-status")
	ctx := context.Background()

	action := &entity.Action{
		UserID:     uuid.New(),
		Title:      "Ship report",
		Status:     entity.ActionStatusPending,
		TargetDate: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(ctx, action); err != nil {
		t.Fatalf("failed to create action: %v", err)
	}

	now := time.Now().UTC()
	action.Status = entity.ActionStatusCompleted
	action.CompletedAt = &now
	if err := repo.Update(ctx, action); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := repo.FindByID(ctx, action.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.ActionStatusCompleted || got.CompletedAt == nil {
		t.Errorf("expected completed with timestamp, got %s (%v)", got.Status, got.CompletedAt)
	}

	action.Status = entity.ActionStatusPending
	action.CompletedAt = nil
	if err := repo.Update(ctx, action); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err = repo.FindByID(ctx, action.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.ActionStatusPending || got.CompletedAt != nil {
		t.Errorf("expected completed_at cleared, got %s (%v)", got.Status, got.CompletedAt)
	}
}
