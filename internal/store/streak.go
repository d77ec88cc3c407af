package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type StreakStore struct {
	db querier
}

func NewStreakStore(db *sql.DB) *StreakStore {
	return &StreakStore{db: db}
}

func scanStreak(scanner interface{ Scan(...any) error }) (*model.TaskStreak, error) {
	var st model.TaskStreak
	var lastDate string

	err := scanner.Scan(&st.ID, &st.ChildID, &st.TaskID, &st.CurrentStreak, &st.LongestStreak, &lastDate)
	if err != nil {
		return nil, err
	}

	st.LastCompletedDate, err = parseDate(lastDate)
	if err != nil {
		return nil, fmt.Errorf("parse last completed date %q: %w", lastDate, err)
	}
	return &st, nil
}

const streakCols = `id, child_id, task_id, current_streak, longest_streak, last_completed_date`

func (s *StreakStore) Get(childID, taskID int64) (*model.TaskStreak, error) {
	row := s.db.QueryRow(
		`SELECT `+streakCols+` FROM task_streaks WHERE child_id = ? AND task_id = ?`,
		childID, taskID,
	)
	st, err := scanStreak(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return st, nil
}

// ListByChild returns every streak row for the child, longest current streak first.
func (s *StreakStore) ListByChild(childID int64) ([]model.TaskStreak, error) {
	rows, err := s.db.Query(
		`SELECT `+streakCols+` FROM task_streaks WHERE child_id = ? ORDER BY current_streak DESC, task_id ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	defer rows.Close()

	var streaks []model.TaskStreak
	for rows.Next() {
		st, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		streaks = append(streaks, *st)
	}
	return streaks, rows.Err()
}

// Save inserts or replaces the streak row for st's (child, task) pair and fills
// in st.ID.
func (s *StreakStore) Save(st *model.TaskStreak) error {
	err := s.db.QueryRow(
		`INSERT INTO task_streaks (child_id, task_id, current_streak, longest_streak, last_completed_date)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(child_id, task_id) DO UPDATE SET
		   current_streak = excluded.current_streak,
		   longest_streak = excluded.longest_streak,
		   last_completed_date = excluded.last_completed_date
		 RETURNING id`,
		st.ChildID, st.TaskID, st.CurrentStreak, st.LongestStreak, formatDate(st.LastCompletedDate),
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (s *StreakStore) Delete(childID, taskID int64) error {
	_, err := s.db.Exec(`DELETE FROM task_streaks WHERE child_id = ? AND task_id = ?`, childID, taskID)
	if err != nil {
		return fmt.Errorf("delete streak: %w", err)
	}
	return nil
}

// CompletionTimes returns the completed_at of every confirmed record for the
// pair in chronological order.
func (s *StreakStore) CompletionTimes(childID, taskID int64) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT completed_at FROM task_records
		 WHERE child_id = ? AND task_id = ? AND is_confirmed = 1
		 ORDER BY completed_at ASC, id ASC`,
		childID, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completion times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan completion time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// DeleteOrphans removes streak rows whose pair has no confirmed record left.
func (s *StreakStore) DeleteOrphans() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM task_streaks WHERE NOT EXISTS (
		   SELECT 1 FROM task_records r
		   WHERE r.child_id = task_streaks.child_id AND r.task_id = task_streaks.task_id AND r.is_confirmed = 1
		 )`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphan streaks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// AtRiskStreak is a live streak that ends unless the task is done today.
type AtRiskStreak struct {
	ChildID       int64
	TaskID        int64
	TaskName      string
	CurrentStreak int
}

// ListLastCompletedOn returns streaks on active tasks whose last completion was
// on day.
func (s *StreakStore) ListLastCompletedOn(day time.Time) ([]AtRiskStreak, error) {
	rows, err := s.db.Query(
		`SELECT st.child_id, st.task_id, t.name, st.current_streak
		 FROM task_streaks st JOIN tasks t ON t.id = st.task_id
		 WHERE st.last_completed_date = ? AND st.current_streak > 0 AND t.is_active = 1
		 ORDER BY st.child_id, st.task_id`,
		formatDate(day),
	)
	if err != nil {
		return nil, fmt.Errorf("list at-risk streaks: %w", err)
	}
	defer rows.Close()

	var out []AtRiskStreak
	for rows.Next() {
		var a AtRiskStreak
		if err := rows.Scan(&a.ChildID, &a.TaskID, &a.TaskName, &a.CurrentStreak); err != nil {
			return nil, fmt.Errorf("scan at-risk streak: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
