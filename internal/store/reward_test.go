package store

import (
	"testing"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func TestRewardCRUD(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)

	r, err := rs.Create("Movie night", "Pick the film", 20, model.RewardLevelMedium, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Cost != 20 || !r.IsActive {
		t.Errorf("reward = %+v", r)
	}

	updated, err := rs.Update(r.ID, "Movie night", "Pick the film and snacks", 25, model.RewardLevelMedium, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Cost != 25 || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	list, _ := rs.List()
	if len(list) != 1 {
		t.Errorf("list = %d, want 1", len(list))
	}

	if err := rs.Delete(r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := rs.GetByID(r.ID); got != nil {
		t.Error("reward still present after delete")
	}
}

func TestRewardRecords(t *testing.T) {
	db := setupTestDB(t)
	_, c, _ := seedFamily(t, db)
	rs := NewRewardStore(db)
	reward, _ := rs.Create("Ice cream", "", 3, model.RewardLevelSmall, true)

	rec, err := rs.CreateRecord(c.ID, reward.ID, 3, mustTime(t, "2026-03-01T10:00:00Z"))
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if rec.IsFulfilled || rec.PointsSpent != 3 {
		t.Errorf("record = %+v", rec)
	}
	rs.CreateRecord(c.ID, reward.ID, 3, mustTime(t, "2026-03-02T10:00:00Z"))

	records, err := rs.ListRecordsByChild(c.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}

	if err := rs.Fulfill(rec.ID); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	got, _ := rs.GetRecord(rec.ID)
	if !got.IsFulfilled {
		t.Error("record not fulfilled")
	}
}
