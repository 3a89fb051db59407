package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tandera.com/daypillar/internal/entity"
	"tandera.com/daypillar/internal/modules/ledger/dto"
	"tandera.com/daypillar/internal/modules/ledger/repository"
)

func setupLedger(t *testing.T, name string) (LedgerService, repository.PointEventRepository, uuid.UUID) {
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

	if err := db.AutoMigrate(&entity.PointEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := repository.NewPointEventRepository(db)
	return NewLedgerService(repo, nil), repo, uuid.New()
}

func seedEvent(t *testing.T, repo repository.PointEventRepository, userID uuid.UUID, source string, points int, pillars entity.PillarSet, active bool) {
	t.Helper()
	ev := &entity.PointEvent{
		ID:         entity.PointEventID(entity.SourceTypeAction, source),
		UserID:     userID,
		SourceType: entity.SourceTypeAction,
		SourceID:   source,
		PillarIDs:  pillars,
		Points:     points,
		Active:     active,
	}
	created, err := repo.CreateIfAbsent(context.Background(), ev)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	if !created {
		t.Fatalf("event %s already existed", source)
	}
	if !active {
		if _, err := repo.Deactivate(context.Background(), ev.ID); err != nil {
			t.Fatalf("failed to deactivate: %v", err)
		}
	}
}

func TestRollupSumsActiveEventsByPillarAndDay(t *testing.T) {
	svc, repo, userID := setupLedger(t, "ledger-rollup")

	seedEvent(t, repo, userID, "a1", 10, entity.PillarSet{"health"}, true)
	seedEvent(t, repo, userID, "a2", 20, entity.PillarSet{"health", "learning"}, true)
	seedEvent(t, repo, userID, "a3", 99, entity.PillarSet{"health"}, false)

	today := time.Now().UTC().Format("2006-01-02")
	rollup, err := svc.Rollup(context.Background(), userID, dto.RollupFilter{From: today, To: today})
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}

	if rollup.TotalPoints != 30 {
		t.Errorf("reversed events must not count: expected 30, got %d", rollup.TotalPoints)
	}

	byPillar := map[string]int{}
	for _, pt := range rollup.ByPillar {
		byPillar[pt.PillarID] = pt.Points
	}
	if byPillar["health"] != 30 {
		t.Errorf("expected health=30, got %d", byPillar["health"])
	}
	if byPillar["learning"] != 20 {
		t.Errorf("expected learning=20, got %d", byPillar["learning"])
	}

	if len(rollup.ByDay) != 1 || rollup.ByDay[0].Date != today || rollup.ByDay[0].Points != 30 {
		t.Errorf("unexpected day grouping: %+v", rollup.ByDay)
	}
}

func TestRollupIgnoresOtherUsers(t *testing.T) {
	svc, repo, userID := setupLedger(t, "ledger-other-users")

	seedEvent(t, repo, userID, "mine", 10, entity.PillarSet{"health"}, true)
	seedEvent(t, repo, uuid.New(), "theirs", 50, entity.PillarSet{"health"}, true)

	today := time.Now().UTC().Format("2006-01-02")
	rollup, err := svc.Rollup(context.Background(), userID, dto.RollupFilter{From: today, To: today})
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if rollup.TotalPoints != 10 {
		t.Errorf("expected only own events, got %d", rollup.TotalPoints)
	}
}

func TestListEventsPaginatesAndFilters(t *testing.T) {
	svc, repo, userID := setupLedger(t, "ledger-list")

	seedEvent(t, repo, userID, "e1", 10, nil, true)
	seedEvent(t, repo, userID, "e2", 20, nil, false)
	seedEvent(t, repo, userID, "e3", 30, nil, true)

	page, err := svc.ListEvents(context.Background(), userID, dto.ListEventsFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Meta.TotalItems != 3 {
		t.Errorf("expected 3 total, got %d", page.Meta.TotalItems)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected 2 per page, got %d", len(page.Data))
	}
	if page.Meta.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", page.Meta.TotalPages)
	}

	active, err := svc.ListEvents(context.Background(), userID, dto.ListEventsFilter{Page: 1, Limit: 10, ActiveOnly: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active.Data) != 2 {
		t.Errorf("expected 2 active events, got %d", len(active.Data))
	}
	for _, ev := range active.Data {
		if !ev.Active {
			t.Errorf("active_only returned inactive event %s", ev.ID)
		}
	}
}

func TestConditionalWritesCollapseDuplicates(t *testing.T) {
	_, repo, userID := setupLedger(t, "ledger-conditional")
	ctx := context.Background()

	ev := &entity.PointEvent{
		ID:         entity.PointEventID(entity.SourceTypeAction, "dup"),
		UserID:     userID,
		SourceType: entity.SourceTypeAction,
		SourceID:   "dup",
		Points:     10,
		Active:     true,
	}

	created, err := repo.CreateIfAbsent(ctx, ev)
	if err != nil || !created {
		t.Fatalf("first insert must win: created=%v err=%v", created, err)
	}

	dup := *ev
	created, err = repo.CreateIfAbsent(ctx, &dup)
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if created {
		t.Fatal("duplicate insert must be a silent no-op")
	}

	// Deactivate twice: only the first is effective.
	ok, err := repo.Deactivate(ctx, ev.ID)
	if err != nil || !ok {
		t.Fatalf("first deactivate must apply: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Deactivate(ctx, ev.ID)
	if err != nil {
		t.Fatalf("second deactivate must not error: %v", err)
	}
	if ok {
		t.Fatal("second deactivate must be a no-op")
	}

	// Reactivate only applies to inactive rows.
	ok, err = repo.Reactivate(ctx, ev.ID, 15, entity.PillarSet{"health"}, true)
	if err != nil || !ok {
		t.Fatalf("reactivate on inactive row must apply: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Reactivate(ctx, ev.ID, 99, nil, false)
	if err != nil {
		t.Fatalf("second reactivate must not error: %v", err)
	}
	if ok {
		t.Fatal("reactivate on active row must be a no-op")
	}

	got, err := repo.Get(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Points != 15 || !got.BonusGranted || !got.Active {
		t.Errorf("unexpected final state: points=%d bonus=%v active=%v", got.Points, got.BonusGranted, got.Active)
	}
}
