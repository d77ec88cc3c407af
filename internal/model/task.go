package model

import "time"

type TaskCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Task struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Points       int       `json:"points"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskRecord is one occurrence of a child doing a task. It starts pending and is
// confirmed by a parent exactly once; ActualPoints holds what the confirmation
// credited so a later reversal debits the same amount.
type TaskRecord struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	TaskID       int64     `json:"task_id"`
	CompletedAt  time.Time `json:"completed_at"`
	IsConfirmed  bool      `json:"is_confirmed"`
	ActualPoints int       `json:"actual_points"`
	CreatedAt    time.Time `json:"created_at"`
}
