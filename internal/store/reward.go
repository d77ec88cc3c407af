package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type RewardStore struct {
	db querier
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.Name, &r.Description, &r.Cost, &r.Level, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.IsActive = active != 0
	return &r, nil
}

const rewardCols = `id, name, description, cost, level, is_active, created_at`

func (s *RewardStore) Create(name, description string, cost int, level string, active bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (name, description, cost, level, is_active) VALUES (?, ?, ?, ?, ?)`,
		name, description, cost, level, boolToInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, active first, then by cost.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY is_active DESC, cost ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, name, description string, cost int, level string, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, description = ?, cost = ?, level = ?, is_active = ? WHERE id = ?`,
		name, description, cost, level, boolToInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

func scanRewardRecord(scanner interface{ Scan(...any) error }) (*model.RewardRecord, error) {
	var rr model.RewardRecord
	var fulfilled int

	err := scanner.Scan(&rr.ID, &rr.ChildID, &rr.RewardID, &rr.PointsSpent, &rr.RedeemedAt, &fulfilled)
	if err != nil {
		return nil, err
	}

	rr.IsFulfilled = fulfilled != 0
	return &rr, nil
}

const rewardRecordCols = `id, child_id, reward_id, points_spent, redeemed_at, is_fulfilled`

func (s *RewardStore) CreateRecord(childID, rewardID int64, pointsSpent int, redeemedAt time.Time) (*model.RewardRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO reward_records (child_id, reward_id, points_spent, redeemed_at) VALUES (?, ?, ?, ?)`,
		childID, rewardID, pointsSpent, redeemedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRecord(id)
}

func (s *RewardStore) GetRecord(id int64) (*model.RewardRecord, error) {
	row := s.db.QueryRow(`SELECT `+rewardRecordCols+` FROM reward_records WHERE id = ?`, id)
	rr, err := scanRewardRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward record: %w", err)
	}
	return rr, nil
}

// ListRecordsByChild returns the child's redemptions, newest first.
func (s *RewardStore) ListRecordsByChild(childID int64) ([]model.RewardRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardRecordCols+` FROM reward_records WHERE child_id = ? ORDER BY redeemed_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reward records: %w", err)
	}
	defer rows.Close()

	var records []model.RewardRecord
	for rows.Next() {
		rr, err := scanRewardRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward record: %w", err)
		}
		records = append(records, *rr)
	}
	return records, rows.Err()
}

func (s *RewardStore) Fulfill(id int64) error {
	_, err := s.db.Exec(`UPDATE reward_records SET is_fulfilled = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("fulfill reward record: %w", err)
	}
	return nil
}
