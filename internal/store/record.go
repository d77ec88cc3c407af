package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type RecordStore struct {
	db querier
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func scanRecord(scanner interface{ Scan(...any) error }) (*model.TaskRecord, error) {
	var r model.TaskRecord
	var confirmed int

	err := scanner.Scan(&r.ID, &r.ChildID, &r.TaskID, &r.CompletedAt, &confirmed, &r.ActualPoints, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.IsConfirmed = confirmed != 0
	return &r, nil
}

const recordCols = `id, child_id, task_id, completed_at, is_confirmed, actual_points, created_at`

// Create logs a pending record.
func (s *RecordStore) Create(childID, taskID int64, completedAt time.Time) (*model.TaskRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_records (child_id, task_id, completed_at) VALUES (?, ?, ?)`,
		childID, taskID, completedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RecordStore) GetByID(id int64) (*model.TaskRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordCols+` FROM task_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// ListByChild returns the child's records, newest first.
func (s *RecordStore) ListByChild(childID int64, limit int) ([]model.TaskRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordCols+` FROM task_records WHERE child_id = ? ORDER BY completed_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []model.TaskRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// MarkConfirmed flips a pending record to confirmed and stores the credited
// points. It reports false when the record was already confirmed.
func (s *RecordStore) MarkConfirmed(id int64, points int) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE task_records SET is_confirmed = 1, actual_points = ? WHERE id = ? AND is_confirmed = 0`,
		points, id,
	)
	if err != nil {
		return false, fmt.Errorf("confirm record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkPending reverts a confirmed record so it no longer counts toward points,
// streaks, or completion totals.
func (s *RecordStore) MarkPending(id int64) error {
	_, err := s.db.Exec(
		`UPDATE task_records SET is_confirmed = 0, actual_points = 0 WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("unconfirm record: %w", err)
	}
	return nil
}

func (s *RecordStore) UpdateTaskAndTime(id, taskID int64, completedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE task_records SET task_id = ?, completed_at = ? WHERE id = ?`,
		taskID, completedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (s *RecordStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// CountConfirmed counts every confirmed record for the pair over all history.
func (s *RecordStore) CountConfirmed(childID, taskID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_records WHERE child_id = ? AND task_id = ? AND is_confirmed = 1`,
		childID, taskID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed records: %w", err)
	}
	return n, nil
}

// ConfirmedCountsByTask returns confirmed record totals for a child keyed by task.
func (s *RecordStore) ConfirmedCountsByTask(childID int64) (map[int64]int, error) {
	rows, err := s.db.Query(
		`SELECT task_id, COUNT(*) FROM task_records WHERE child_id = ? AND is_confirmed = 1 GROUP BY task_id`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("count confirmed by task: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var taskID int64
		var n int
		if err := rows.Scan(&taskID, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[taskID] = n
	}
	return counts, rows.Err()
}

// Pair identifies one (child, task) combination.
type Pair struct {
	ChildID int64
	TaskID  int64
}

// ConfirmedPairs lists every (child, task) pair with at least one confirmed record.
func (s *RecordStore) ConfirmedPairs() ([]Pair, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT child_id, task_id FROM task_records WHERE is_confirmed = 1 ORDER BY child_id, task_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.ChildID, &p.TaskID); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
