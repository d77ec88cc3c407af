package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so every store can run either
// standalone or inside a Ledger transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Tx bundles the stores that take part in a point-moving transaction. Every store
// in a Tx shares the same *sql.Tx.
type Tx struct {
	Children *ChildStore
	Tasks    *TaskStore
	Records  *RecordStore
	Streaks  *StreakStore
	Badges   *BadgeStore
	Rewards  *RewardStore
}

func newTx(q querier) *Tx {
	return &Tx{
		Children: &ChildStore{db: q},
		Tasks:    &TaskStore{db: q},
		Records:  &RecordStore{db: q},
		Streaks:  &StreakStore{db: q},
		Badges:   &BadgeStore{db: q},
		Rewards:  &RewardStore{db: q},
	}
}

// Ledger runs units of work against the database atomically.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// InTx runs fn inside a single transaction. The transaction commits only when fn
// returns nil; any error, including a panic, rolls back every write made through tx.
func (l *Ledger) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(newTx(sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// View returns stores bound directly to the database, for read-only queries that
// need no transaction.
func (l *Ledger) View() *Tx {
	return newTx(l.db)
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
