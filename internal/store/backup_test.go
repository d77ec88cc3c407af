package store

import (
	"testing"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func TestBackupStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	bs := NewBackupStore(db)

	b, err := bs.Create("backups/one.db.enc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BackupStatusRunning || b.CompletedAt != nil {
		t.Errorf("new backup = %+v, want running", b)
	}

	if err := bs.MarkCompleted(b.ID, 4096); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusCompleted || got.SizeBytes != 4096 || got.CompletedAt == nil {
		t.Errorf("completed backup = %+v", got)
	}

	failed, _ := bs.Create("backups/two.db.enc")
	if err := bs.MarkFailed(failed.ID, "upload: connection reset"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _ = bs.GetByID(failed.ID)
	if got.Status != model.BackupStatusFailed || got.ErrorMessage != "upload: connection reset" {
		t.Errorf("failed backup = %+v", got)
	}

	list, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != failed.ID {
		t.Errorf("list = %+v, want newest first", list)
	}

	if missing, _ := bs.GetByID(9999); missing != nil {
		t.Error("expected nil for unknown backup")
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	bs := NewBackupStore(db)

	old, _ := bs.Create("backups/old.db.enc")
	bs.Create("backups/new.db.enc")
	if _, err := db.Exec(`UPDATE backups SET started_at = ? WHERE id = ?`, time.Now().UTC().AddDate(0, 0, -40), old.ID); err != nil {
		t.Fatalf("age backup: %v", err)
	}

	keys, err := bs.DeleteOlderThan(time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Errorf("keys = %v, want the old backup", keys)
	}
	if list, _ := bs.List(10); len(list) != 1 {
		t.Errorf("remaining = %d, want 1", len(list))
	}
}
