package model

import "time"

// TaskStreak tracks consecutive calendar days of confirmed completions for one
// (child, task) pair. LastCompletedDate is a calendar date at UTC midnight.
type TaskStreak struct {
	ID                int64     `json:"id"`
	ChildID           int64     `json:"child_id"`
	TaskID            int64     `json:"task_id"`
	CurrentStreak     int       `json:"current_streak"`
	LongestStreak     int       `json:"longest_streak"`
	LastCompletedDate time.Time `json:"last_completed_date"`
}
