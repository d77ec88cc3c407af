package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type BadgeStore struct {
	db querier
}

func NewBadgeStore(db *sql.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

func scanBadge(scanner interface{ Scan(...any) error }) (*model.Badge, error) {
	var b model.Badge
	err := scanner.Scan(
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.TaskID,
		&b.DaysRequired, &b.CompletionsRequired, &b.Level, &b.PointsReward, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const badgeCols = `id, name, description, icon, task_id, days_required, completions_required, level, points_reward, created_at`

func (s *BadgeStore) Create(b model.Badge) (*model.Badge, error) {
	result, err := s.db.Exec(
		`INSERT INTO badges (name, description, icon, task_id, days_required, completions_required, level, points_reward)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Description, b.Icon, b.TaskID, b.DaysRequired, b.CompletionsRequired, b.Level, b.PointsReward,
	)
	if err != nil {
		return nil, fmt.Errorf("insert badge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BadgeStore) GetByID(id int64) (*model.Badge, error) {
	row := s.db.QueryRow(`SELECT `+badgeCols+` FROM badges WHERE id = ?`, id)
	b, err := scanBadge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return b, nil
}

// ListByTask returns the task's badges ordered by threshold, then ID.
func (s *BadgeStore) ListByTask(taskID int64) ([]model.Badge, error) {
	return s.list(
		`SELECT `+badgeCols+` FROM badges WHERE task_id = ?
		 ORDER BY days_required ASC, completions_required ASC, id ASC`,
		taskID,
	)
}

func (s *BadgeStore) List() ([]model.Badge, error) {
	return s.list(`SELECT ` + badgeCols + ` FROM badges ORDER BY task_id ASC, days_required ASC, id ASC`)
}

func (s *BadgeStore) list(query string, args ...any) ([]model.Badge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []model.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, *b)
	}
	return badges, rows.Err()
}

func (s *BadgeStore) CountByTask(taskID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM badges WHERE task_id = ?`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count badges: %w", err)
	}
	return n, nil
}

func (s *BadgeStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM badges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	return nil
}

// Grant records that the child earned the badge. It reports false when the child
// already holds it.
func (s *BadgeStore) Grant(childID, badgeID int64, earnedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO child_badges (child_id, badge_id, earned_at) VALUES (?, ?, ?)
		 ON CONFLICT(child_id, badge_id) DO NOTHING`,
		childID, badgeID, earnedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("grant badge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// EarnedIDs returns the set of badge IDs the child holds.
func (s *BadgeStore) EarnedIDs(childID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT badge_id FROM child_badges WHERE child_id = ?`, childID)
	if err != nil {
		return nil, fmt.Errorf("list earned badge ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan badge id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ListEarned returns the child's badges, most recently earned first.
func (s *BadgeStore) ListEarned(childID int64) ([]model.EarnedBadge, error) {
	rows, err := s.db.Query(
		`SELECT b.id, b.name, b.description, b.icon, b.task_id, b.days_required, b.completions_required,
		        b.level, b.points_reward, b.created_at, cb.earned_at
		 FROM child_badges cb JOIN badges b ON b.id = cb.badge_id
		 WHERE cb.child_id = ?
		 ORDER BY cb.earned_at DESC, b.id ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list earned badges: %w", err)
	}
	defer rows.Close()

	var earned []model.EarnedBadge
	for rows.Next() {
		var e model.EarnedBadge
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.Icon, &e.TaskID, &e.DaysRequired, &e.CompletionsRequired,
			&e.Level, &e.PointsReward, &e.CreatedAt, &e.EarnedAt,
		); err != nil {
			return nil, fmt.Errorf("scan earned badge: %w", err)
		}
		earned = append(earned, e)
	}
	return earned, rows.Err()
}
