package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a parent with one child and one five-point task in the
// seeded Study category.
func seedFamily(t *testing.T, db *sql.DB) (*model.Parent, *model.Child, *model.Task) {
	t.Helper()
	p, err := NewParentStore(db).Create("mom", "hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	c, err := NewChildStore(db).Create(p.ID, "Ann", 8, "ann", "hash")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	task, err := NewTaskStore(db).Create("Read a book", "", 5, 1, true)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return p, c, task
}

func TestLedgerCommit(t *testing.T) {
	db := setupTestDB(t)
	_, c, _ := seedFamily(t, db)
	ledger := NewLedger(db)

	err := ledger.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Children.AddPoints(c.ID, 7)
		return err
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}

	got, _ := ledger.View().Children.GetByID(c.ID)
	if got.Points != 7 {
		t.Errorf("points = %d, want 7", got.Points)
	}
}

func TestLedgerRollback(t *testing.T) {
	db := setupTestDB(t)
	_, c, task := seedFamily(t, db)
	ledger := NewLedger(db)
	boom := errors.New("boom")

	err := ledger.InTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.Children.AddPoints(c.ID, 7); err != nil {
			return err
		}
		if _, err := tx.Records.Create(c.ID, task.ID, mustTime(t, "2026-03-01T10:00:00Z")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := ledger.View().Children.GetByID(c.ID)
	if got.Points != 0 {
		t.Errorf("points = %d, want 0 after rollback", got.Points)
	}
	records, _ := ledger.View().Records.ListByChild(c.ID, 10)
	if len(records) != 0 {
		t.Errorf("records = %d, want 0 after rollback", len(records))
	}
}
