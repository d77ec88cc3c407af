package store

import (
	"database/sql"
	"fmt"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type TaskStore struct {
	db querier
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Category methods ---

func (s *TaskStore) ListCategories() ([]model.TaskCategory, error) {
	rows, err := s.db.Query(`SELECT id, name, description FROM task_categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.TaskCategory
	for rows.Next() {
		var c model.TaskCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *TaskStore) GetCategoryByID(id int64) (*model.TaskCategory, error) {
	var c model.TaskCategory
	err := s.db.QueryRow(`SELECT id, name, description FROM task_categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (s *TaskStore) CreateCategory(name, description string) (*model.TaskCategory, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_categories (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCategoryByID(id)
}

// --- Task methods ---

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var active int

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Points,
		&t.CategoryID, &t.CategoryName, &active, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IsActive = active != 0
	return &t, nil
}

const taskSelect = `SELECT t.id, t.name, t.description, t.points, t.category_id, c.name, t.is_active, t.created_at
	FROM tasks t JOIN task_categories c ON c.id = t.category_id`

func (s *TaskStore) Create(name, description string, points int, categoryID int64, active bool) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (name, description, points, category_id, is_active) VALUES (?, ?, ?, ?, ?)`,
		name, description, points, categoryID, boolToInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(taskSelect+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns all tasks, active first, then by name.
func (s *TaskStore) List() ([]model.Task, error) {
	return s.list(taskSelect + ` ORDER BY t.is_active DESC, t.name ASC`)
}

func (s *TaskStore) ListActive() ([]model.Task, error) {
	return s.list(taskSelect + ` WHERE t.is_active = 1 ORDER BY t.name ASC`)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, name, description string, points int, categoryID int64, active bool) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, description = ?, points = ?, category_id = ?, is_active = ? WHERE id = ?`,
		name, description, points, categoryID, boolToInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}
