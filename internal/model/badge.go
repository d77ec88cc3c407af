package model

import "time"

const (
	BadgeLevelBronze   = "bronze"
	BadgeLevelSilver   = "silver"
	BadgeLevelGold     = "gold"
	BadgeLevelGraduate = "graduate"
)

// Badge is a milestone tied to one task. A nonzero CompletionsRequired makes it a
// count badge; otherwise DaysRequired is a streak length.
type Badge struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Icon                string    `json:"icon"`
	TaskID              int64     `json:"task_id"`
	DaysRequired        int       `json:"days_required"`
	CompletionsRequired int       `json:"completions_required"`
	Level               string    `json:"level"`
	PointsReward        int       `json:"points_reward"`
	CreatedAt           time.Time `json:"created_at"`
}

// IsCompletionBadge reports whether the badge counts completions instead of streak days.
func (b Badge) IsCompletionBadge() bool {
	return b.CompletionsRequired > 0
}

type ChildBadge struct {
	ID       int64     `json:"id"`
	ChildID  int64     `json:"child_id"`
	BadgeID  int64     `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// EarnedBadge is a grant joined with its badge definition.
type EarnedBadge struct {
	Badge
	EarnedAt time.Time `json:"earned_at"`
}
