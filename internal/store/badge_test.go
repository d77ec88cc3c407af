package store

import (
	"testing"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func TestBadgeCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	_, _, task := seedFamily(t, db)
	bs := NewBadgeStore(db)

	week, err := bs.Create(model.Badge{Name: "Week of reading", TaskID: task.ID, DaysRequired: 7, Level: model.BadgeLevelBronze, PointsReward: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if week.IsCompletionBadge() {
		t.Error("streak badge reported as a count badge")
	}
	hundred, err := bs.Create(model.Badge{Name: "Bookworm", TaskID: task.ID, CompletionsRequired: 100, Level: model.BadgeLevelGold, PointsReward: 50})
	if err != nil {
		t.Fatalf("create count badge: %v", err)
	}
	if !hundred.IsCompletionBadge() {
		t.Error("count badge not reported as one")
	}

	n, err := bs.CountByTask(task.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	badges, _ := bs.ListByTask(task.ID)
	if len(badges) != 2 {
		t.Errorf("list by task = %d, want 2", len(badges))
	}

	if err := bs.Delete(week.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := bs.GetByID(week.ID); got != nil {
		t.Error("badge still present after delete")
	}
}

func TestBadgeGrantOnce(t *testing.T) {
	db := setupTestDB(t)
	_, c, task := seedFamily(t, db)
	bs := NewBadgeStore(db)
	b, _ := bs.Create(model.Badge{Name: "First step", TaskID: task.ID, DaysRequired: 1, Level: model.BadgeLevelBronze, PointsReward: 10})
	at := mustTime(t, "2026-03-01T10:00:00Z")

	ok, err := bs.Grant(c.ID, b.ID, at)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !ok {
		t.Error("first grant reported false")
	}
	ok, err = bs.Grant(c.ID, b.ID, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if ok {
		t.Error("second grant should report false")
	}

	ids, _ := bs.EarnedIDs(c.ID)
	if !ids[b.ID] || len(ids) != 1 {
		t.Errorf("earned ids = %v", ids)
	}
	earned, err := bs.ListEarned(c.ID)
	if err != nil {
		t.Fatalf("list earned: %v", err)
	}
	if len(earned) != 1 || earned[0].Name != "First step" || !earned[0].EarnedAt.Equal(at) {
		t.Errorf("earned = %+v", earned)
	}
}
