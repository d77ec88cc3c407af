package badge

import (
	"sort"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// Progress is how far a child is toward one unearned badge.
type Progress struct {
	Badge           model.Badge `json:"badge"`
	Current         int         `json:"current"`
	Required        int         `json:"required"`
	ProgressPercent int         `json:"progress_percent"`
}

// Closest ranks the unearned badges by progress, nearest first. streaks maps a
// task ID to the child's current streak and completions maps it to the confirmed
// record count. Ties go to the lower badge ID. A limit of zero or less returns
// every candidate.
func Closest(badges []model.Badge, earned map[int64]bool, streaks, completions map[int64]int, limit int) []Progress {
	type ranked struct {
		Progress
		ratio float64
	}

	var candidates []ranked
	for _, b := range badges {
		if earned[b.ID] {
			continue
		}
		p := Progress{Badge: b}
		if b.IsCompletionBadge() {
			p.Current = completions[b.TaskID]
			p.Required = b.CompletionsRequired
		} else {
			p.Current = streaks[b.TaskID]
			p.Required = b.DaysRequired
		}

		ratio := 1.0
		if p.Required > 0 {
			ratio = float64(p.Current) / float64(p.Required)
		}
		p.ProgressPercent = min(100, int(ratio*100))
		candidates = append(candidates, ranked{Progress: p, ratio: ratio})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio > candidates[j].ratio
		}
		return candidates[i].Badge.ID < candidates[j].Badge.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Progress, len(candidates))
	for i, c := range candidates {
		out[i] = c.Progress
	}
	return out
}
