// Package badge decides which milestone badges a child has earned and grants them.
package badge

import (
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// Store reads badge definitions and writes grants.
type Store interface {
	ListByTask(taskID int64) ([]model.Badge, error)
	EarnedIDs(childID int64) (map[int64]bool, error)
	Grant(childID, badgeID int64, earnedAt time.Time) (bool, error)
}

// Counter counts a pair's confirmed records over all history.
type Counter interface {
	CountConfirmed(childID, taskID int64) (int, error)
}

// Crediter adds points to a child's balance.
type Crediter interface {
	AddPoints(childID int64, delta int) (int, error)
}

// Grant reports one newly earned badge.
type Grant struct {
	BadgeID int64  `json:"badge_id"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Icon    string `json:"icon"`
	Bonus   int    `json:"bonus"`
}

// Evaluator grants badges whose thresholds are met. It holds no state of its own;
// build one per transaction over that transaction's stores.
type Evaluator struct {
	badges   Store
	records  Counter
	children Crediter
}

func NewEvaluator(badges Store, records Counter, children Crediter) *Evaluator {
	return &Evaluator{badges: badges, records: records, children: children}
}

// Evaluate checks every badge attached to the task against currentStreak and the
// pair's confirmed completion count. Each met badge the child does not yet hold
// is granted at now and its reward is credited. A badge already held is never
// granted or paid again.
func (e *Evaluator) Evaluate(childID, taskID int64, currentStreak int, now time.Time) ([]Grant, error) {
	badges, err := e.badges.ListByTask(taskID)
	if err != nil {
		return nil, err
	}
	if len(badges) == 0 {
		return nil, nil
	}

	earned, err := e.badges.EarnedIDs(childID)
	if err != nil {
		return nil, err
	}

	completions := -1
	var grants []Grant
	for _, b := range badges {
		if earned[b.ID] {
			continue
		}

		if b.IsCompletionBadge() {
			if completions < 0 {
				completions, err = e.records.CountConfirmed(childID, taskID)
				if err != nil {
					return nil, err
				}
			}
			if completions < b.CompletionsRequired {
				continue
			}
		} else if currentStreak < b.DaysRequired {
			continue
		}

		inserted, err := e.badges.Grant(childID, b.ID, now)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		if b.PointsReward > 0 {
			if _, err := e.children.AddPoints(childID, b.PointsReward); err != nil {
				return nil, fmt.Errorf("credit badge %d reward: %w", b.ID, err)
			}
		}
		grants = append(grants, Grant{
			BadgeID: b.ID,
			Name:    b.Name,
			Level:   b.Level,
			Icon:    b.Icon,
			Bonus:   b.PointsReward,
		})
	}
	return grants, nil
}
