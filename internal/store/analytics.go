package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AnalyticsStore serves the read-only queries behind the habit reports. Rows
// come back raw; bucketing by calendar day happens in the caller so it can use
// the configured time zone.
type AnalyticsStore struct {
	db querier
}

func NewAnalyticsStore(db *sql.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// Completion is one confirmed record with its task's category.
type Completion struct {
	TaskID       int64
	CategoryID   int64
	CategoryName string
	CompletedAt  time.Time
	Points       int
}

// PointsEvent is a dated point movement. Amount is positive for credits.
type PointsEvent struct {
	At     time.Time
	Amount int
}

// ConfirmedBetween returns confirmed records with completed_at in [from, to).
func (s *AnalyticsStore) ConfirmedBetween(childID int64, from, to time.Time) ([]Completion, error) {
	rows, err := s.db.Query(
		`SELECT r.task_id, t.category_id, c.name, r.completed_at, r.actual_points
		FROM task_records r
		JOIN tasks t ON t.id = r.task_id
		JOIN task_categories c ON c.id = t.category_id
		WHERE r.child_id = ? AND r.is_confirmed = 1 AND r.completed_at >= ? AND r.completed_at < ?
		ORDER BY r.completed_at ASC`,
		childID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed between: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.TaskID, &c.CategoryID, &c.CategoryName, &c.CompletedAt, &c.Points); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BonusesBetween returns badge bonuses granted in [from, to).
func (s *AnalyticsStore) BonusesBetween(childID int64, from, to time.Time) ([]PointsEvent, error) {
	return s.events(
		`SELECT cb.earned_at, b.points_reward FROM child_badges cb
		JOIN badges b ON b.id = cb.badge_id
		WHERE cb.child_id = ? AND cb.earned_at >= ? AND cb.earned_at < ?
		ORDER BY cb.earned_at ASC`,
		childID, from, to,
	)
}

// SpentBetween returns reward redemptions in [from, to).
func (s *AnalyticsStore) SpentBetween(childID int64, from, to time.Time) ([]PointsEvent, error) {
	return s.events(
		`SELECT redeemed_at, points_spent FROM reward_records
		WHERE child_id = ? AND redeemed_at >= ? AND redeemed_at < ?
		ORDER BY redeemed_at ASC`,
		childID, from, to,
	)
}

func (s *AnalyticsStore) events(query string, childID int64, from, to time.Time) ([]PointsEvent, error) {
	rows, err := s.db.Query(query, childID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list point events: %w", err)
	}
	defer rows.Close()

	var out []PointsEvent
	for rows.Next() {
		var e PointsEvent
		if err := rows.Scan(&e.At, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan point event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BadgeTotals returns how many badges exist and how many the child holds,
// keyed by level.
func (s *AnalyticsStore) BadgeTotals(childID int64) (available, earned map[string]int, err error) {
	rows, err := s.db.Query(
		`SELECT b.level, COUNT(*), COUNT(cb.id) FROM badges b
		LEFT JOIN child_badges cb ON cb.badge_id = b.id AND cb.child_id = ?
		GROUP BY b.level`,
		childID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("badge totals: %w", err)
	}
	defer rows.Close()

	available = make(map[string]int)
	earned = make(map[string]int)
	for rows.Next() {
		var level string
		var total, got int
		if err := rows.Scan(&level, &total, &got); err != nil {
			return nil, nil, fmt.Errorf("scan badge totals: %w", err)
		}
		available[level] = total
		earned[level] = got
	}
	return available, earned, rows.Err()
}
