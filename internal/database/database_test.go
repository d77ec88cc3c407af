package database

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenMigrates(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM task_categories`).Scan(&n); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if n != 3 {
		t.Errorf("categories = %d, want 3", n)
	}

	var fk int
	db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	if fk != 1 {
		t.Error("foreign keys not enabled")
	}
}

func TestOpenFileTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growthquest.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	// Re-running migrations against an up-to-date file is a no-op.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	db.Close()
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO task_categories (name) VALUES ('Study')`)
	if !IsUniqueViolation(err) {
		t.Errorf("err = %v, want unique violation", err)
	}
	if IsBusy(err) {
		t.Error("unique violation reported as busy")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain error reported as unique violation")
	}
}
