package store

import (
	"database/sql"
	"fmt"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type ParentStore struct {
	db querier
}

func NewParentStore(db *sql.DB) *ParentStore {
	return &ParentStore{db: db}
}

func scanParent(scanner interface{ Scan(...any) error }) (*model.Parent, error) {
	var p model.Parent
	err := scanner.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const parentCols = `id, username, password_hash, created_at`

func (s *ParentStore) Create(username, passwordHash string) (*model.Parent, error) {
	result, err := s.db.Exec(
		`INSERT INTO parents (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert parent: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ParentStore) GetByID(id int64) (*model.Parent, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parents WHERE id = ?`, id)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	return p, nil
}

func (s *ParentStore) GetByUsername(username string) (*model.Parent, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parents WHERE username = ?`, username)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent by username: %w", err)
	}
	return p, nil
}

type ChildStore struct {
	db querier
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(&c.ID, &c.ParentID, &c.Name, &c.Age, &c.Username, &c.PasswordHash, &c.Points, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const childCols = `id, parent_id, name, age, username, password_hash, points, created_at`

func (s *ChildStore) Create(parentID int64, name string, age int, username, passwordHash string) (*model.Child, error) {
	result, err := s.db.Exec(
		`INSERT INTO children (parent_id, name, age, username, password_hash) VALUES (?, ?, ?, ?, ?)`,
		parentID, name, age, username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) GetByUsername(username string) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE username = ?`, username)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child by username: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByParent(parentID int64) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE parent_id = ? ORDER BY name ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// AddPoints applies delta (negative for a debit) to the child's balance and
// returns the new balance. The schema rejects a balance below zero.
func (s *ChildStore) AddPoints(childID int64, delta int) (int, error) {
	var points int
	err := s.db.QueryRow(
		`UPDATE children SET points = points + ? WHERE id = ? RETURNING points`,
		delta, childID,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("add points: child %d not found", childID)
	}
	if err != nil {
		return 0, fmt.Errorf("add points: %w", err)
	}
	return points, nil
}

func (s *ChildStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}
