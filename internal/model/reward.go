package model

import "time"

const (
	RewardLevelSmall    = "small"
	RewardLevelMedium   = "medium"
	RewardLevelLarge    = "large"
	RewardLevelGrand    = "grand"
	RewardLevelUltimate = "ultimate"
	RewardLevelWishlist = "wishlist"
)

// ValidRewardLevel reports whether level is one of the known reward tiers.
func ValidRewardLevel(level string) bool {
	switch level {
	case RewardLevelSmall, RewardLevelMedium, RewardLevelLarge,
		RewardLevelGrand, RewardLevelUltimate, RewardLevelWishlist:
		return true
	}
	return false
}

type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	Level       string    `json:"level"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardRecord struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	RewardID    int64     `json:"reward_id"`
	PointsSpent int       `json:"points_spent"`
	RedeemedAt  time.Time `json:"redeemed_at"`
	IsFulfilled bool      `json:"is_fulfilled"`
}
