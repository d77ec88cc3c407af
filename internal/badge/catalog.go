package badge

import (
	"fmt"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

const (
	DefaultDays   = 30
	DefaultReward = 10
)

// DefaultBadge is the single streak badge given to a task that has none, so every
// task has something to work toward.
func DefaultBadge(task model.Task) model.Badge {
	return model.Badge{
		Name:         fmt.Sprintf("%s Streak Champion", task.Name),
		Description:  fmt.Sprintf("Complete %s %d days in a row", task.Name, DefaultDays),
		Icon:         "🏆",
		TaskID:       task.ID,
		DaysRequired: DefaultDays,
		Level:        model.BadgeLevelBronze,
		PointsReward: DefaultReward,
	}
}

type tier struct {
	level  string
	title  string
	days   int
	reward int
	icon   string
}

var tiers = []tier{
	{model.BadgeLevelBronze, "Bronze", 30, 10, "🥉"},
	{model.BadgeLevelSilver, "Silver", 90, 20, "🥈"},
	{model.BadgeLevelGold, "Gold", 180, 30, "🥇"},
	{model.BadgeLevelGraduate, "Graduate", 365, 50, "🏆"},
}

// Catalog returns the multilevel streak badges for a task, lowest tier first.
func Catalog(task model.Task) []model.Badge {
	badges := make([]model.Badge, 0, len(tiers))
	for _, t := range tiers {
		badges = append(badges, model.Badge{
			Name:         fmt.Sprintf("%s %s Badge", task.Name, t.title),
			Description:  fmt.Sprintf("Complete %s %d days in a row to earn %d bonus points", task.Name, t.days, t.reward),
			Icon:         t.icon,
			TaskID:       task.ID,
			DaysRequired: t.days,
			Level:        t.level,
			PointsReward: t.reward,
		})
	}
	return badges
}

// MissingLevels filters catalog down to the badges whose level is not already
// present in existing.
func MissingLevels(catalog, existing []model.Badge) []model.Badge {
	have := make(map[string]bool, len(existing))
	for _, b := range existing {
		have[b.Level] = true
	}
	var missing []model.Badge
	for _, b := range catalog {
		if !have[b.Level] {
			missing = append(missing, b)
		}
	}
	return missing
}
