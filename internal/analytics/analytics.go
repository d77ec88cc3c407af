// Package analytics builds read-only habit reports for a child. Nothing here
// writes to the ledger.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
)

const (
	DefaultDays = 7
	MaxDays     = 365
	dayLayout   = "2006-01-02"
)

// Source is the raw history the reports aggregate.
type Source interface {
	ConfirmedBetween(childID int64, from, to time.Time) ([]store.Completion, error)
	BonusesBetween(childID int64, from, to time.Time) ([]store.PointsEvent, error)
	SpentBetween(childID int64, from, to time.Time) ([]store.PointsEvent, error)
	BadgeTotals(childID int64) (available, earned map[string]int, err error)
}

type StreakSource interface {
	ListByChild(childID int64) ([]model.TaskStreak, error)
}

type TaskSource interface {
	ListActive() ([]model.Task, error)
	ListCategories() ([]model.TaskCategory, error)
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type PointsDay struct {
	Date   string `json:"date"`
	Earned int    `json:"earned"`
	Spent  int    `json:"spent"`
	Net    int    `json:"net"`
}

type StreakStats struct {
	TrackedTasks   int     `json:"tracked_tasks"`
	ActiveStreaks  int     `json:"active_streaks"`
	BestCurrent    int     `json:"best_current"`
	LongestEver    int     `json:"longest_ever"`
	AverageCurrent float64 `json:"average_current"`
}

type LevelCount struct {
	Level     string `json:"level"`
	Earned    int    `json:"earned"`
	Available int    `json:"available"`
}

type BadgeStats struct {
	Earned    int          `json:"earned"`
	Available int          `json:"available"`
	Percent   float64      `json:"percent"`
	ByLevel   []LevelCount `json:"by_level"`
}

// CompletionRate compares distinct (task, day) completions of active tasks
// with every active task done every day of the window.
type CompletionRate struct {
	Days        int     `json:"days"`
	ActiveTasks int     `json:"active_tasks"`
	Possible    int     `json:"possible"`
	Completed   int     `json:"completed"`
	Rate        float64 `json:"rate"`
}

type CategoryCount struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
}

type Dashboard struct {
	ChildID     int64           `json:"child_id"`
	Days        int             `json:"days"`
	Completions []DayCount      `json:"completions"`
	Points      []PointsDay     `json:"points"`
	Streaks     StreakStats     `json:"streaks"`
	Badges      BadgeStats      `json:"badges"`
	Rate        CompletionRate  `json:"completion_rate"`
	Categories  []CategoryCount `json:"categories"`
}

type Reporter struct {
	src     Source
	streaks StreakSource
	tasks   TaskSource
	loc     *time.Location
	now     func() time.Time
}

func NewReporter(src Source, streaks StreakSource, tasks TaskSource, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{src: src, streaks: streaks, tasks: tasks, loc: loc, now: time.Now}
}

// ClampDays maps a requested window onto [1, MaxDays]; zero or less means DefaultDays.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	}
	return days
}

// window returns the local-midnight bounds of the last `days` calendar days,
// today included, and the date label of each day.
func (r *Reporter) window(days int) (from, to time.Time, labels []string) {
	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	from = today.AddDate(0, 0, -(days - 1))
	to = today.AddDate(0, 0, 1)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		labels = append(labels, d.Format(dayLayout))
	}
	return from, to, labels
}

func (r *Reporter) label(t time.Time) string {
	return t.In(r.loc).Format(dayLayout)
}

// CompletionsByDay counts confirmed records per calendar day, zero-filled.
func (r *Reporter) CompletionsByDay(childID int64, days int) ([]DayCount, error) {
	from, to, labels := r.window(ClampDays(days))
	completions, err := r.src.ConfirmedBetween(childID, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, c := range completions {
		counts[r.label(c.CompletedAt)]++
	}

	out := make([]DayCount, len(labels))
	for i, l := range labels {
		out[i] = DayCount{Date: l, Count: counts[l]}
	}
	return out, nil
}

// PointsTrend reports points earned (confirmations plus badge bonuses) and
// spent on rewards per day.
func (r *Reporter) PointsTrend(childID int64, days int) ([]PointsDay, error) {
	from, to, labels := r.window(ClampDays(days))

	completions, err := r.src.ConfirmedBetween(childID, from, to)
	if err != nil {
		return nil, err
	}
	bonuses, err := r.src.BonusesBetween(childID, from, to)
	if err != nil {
		return nil, err
	}
	spent, err := r.src.SpentBetween(childID, from, to)
	if err != nil {
		return nil, err
	}

	earnedBy := make(map[string]int)
	spentBy := make(map[string]int)
	for _, c := range completions {
		earnedBy[r.label(c.CompletedAt)] += c.Points
	}
	for _, b := range bonuses {
		earnedBy[r.label(b.At)] += b.Amount
	}
	for _, s := range spent {
		spentBy[r.label(s.At)] += s.Amount
	}

	out := make([]PointsDay, len(labels))
	for i, l := range labels {
		out[i] = PointsDay{Date: l, Earned: earnedBy[l], Spent: spentBy[l], Net: earnedBy[l] - spentBy[l]}
	}
	return out, nil
}

func (r *Reporter) StreakStats(childID int64) (StreakStats, error) {
	streaks, err := r.streaks.ListByChild(childID)
	if err != nil {
		return StreakStats{}, err
	}

	today := streak.DateOf(r.now(), r.loc)
	stats := StreakStats{TrackedTasks: len(streaks)}
	total := 0
	for i := range streaks {
		st := streak.StatusOf(&streaks[i], today)
		if st.IsActive {
			stats.ActiveStreaks++
			total += st.CurrentStreak
			stats.BestCurrent = max(stats.BestCurrent, st.CurrentStreak)
		}
		stats.LongestEver = max(stats.LongestEver, st.LongestStreak)
	}
	if stats.ActiveStreaks > 0 {
		stats.AverageCurrent = round1(float64(total) / float64(stats.ActiveStreaks))
	}
	return stats, nil
}

var levelOrder = map[string]int{
	model.BadgeLevelBronze:   0,
	model.BadgeLevelSilver:   1,
	model.BadgeLevelGold:     2,
	model.BadgeLevelGraduate: 3,
}

func (r *Reporter) BadgeStats(childID int64) (BadgeStats, error) {
	available, earned, err := r.src.BadgeTotals(childID)
	if err != nil {
		return BadgeStats{}, err
	}

	var stats BadgeStats
	for level, n := range available {
		stats.ByLevel = append(stats.ByLevel, LevelCount{Level: level, Earned: earned[level], Available: n})
		stats.Available += n
		stats.Earned += earned[level]
	}
	sort.Slice(stats.ByLevel, func(i, j int) bool {
		a, b := stats.ByLevel[i].Level, stats.ByLevel[j].Level
		ra, okA := levelOrder[a]
		rb, okB := levelOrder[b]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		}
		return a < b
	})
	if stats.Available > 0 {
		stats.Percent = round1(100 * float64(stats.Earned) / float64(stats.Available))
	}
	return stats, nil
}

func (r *Reporter) CompletionRate(childID int64, days int) (CompletionRate, error) {
	days = ClampDays(days)
	from, to, _ := r.window(days)

	active, err := r.tasks.ListActive()
	if err != nil {
		return CompletionRate{}, err
	}
	completions, err := r.src.ConfirmedBetween(childID, from, to)
	if err != nil {
		return CompletionRate{}, err
	}

	isActive := make(map[int64]bool, len(active))
	for _, t := range active {
		isActive[t.ID] = true
	}
	type taskDay struct {
		taskID int64
		day    string
	}
	done := make(map[taskDay]bool)
	for _, c := range completions {
		if isActive[c.TaskID] {
			done[taskDay{c.TaskID, r.label(c.CompletedAt)}] = true
		}
	}

	rate := CompletionRate{
		Days:        days,
		ActiveTasks: len(active),
		Possible:    len(active) * days,
		Completed:   len(done),
	}
	if rate.Possible > 0 {
		rate.Rate = round1(100 * float64(rate.Completed) / float64(rate.Possible))
	}
	return rate, nil
}

// CategoryDistribution counts confirmed records per category over the window.
// Every category appears, busiest first.
func (r *Reporter) CategoryDistribution(childID int64, days int) ([]CategoryCount, error) {
	from, to, _ := r.window(ClampDays(days))

	categories, err := r.tasks.ListCategories()
	if err != nil {
		return nil, err
	}
	completions, err := r.src.ConfirmedBetween(childID, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	for _, c := range completions {
		counts[c.CategoryID]++
	}

	out := make([]CategoryCount, len(categories))
	for i, c := range categories {
		out[i] = CategoryCount{CategoryID: c.ID, Name: c.Name, Count: counts[c.ID]}
		if len(completions) > 0 {
			out[i].Percent = round1(100 * float64(out[i].Count) / float64(len(completions)))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

// Dashboard computes every report for the child concurrently.
func (r *Reporter) Dashboard(ctx context.Context, childID int64, days int) (*Dashboard, error) {
	days = ClampDays(days)
	d := &Dashboard{ChildID: childID, Days: days}

	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}

	run(func() (err error) {
		d.Completions, err = r.CompletionsByDay(childID, days)
		return err
	})
	run(func() (err error) {
		d.Points, err = r.PointsTrend(childID, days)
		return err
	})
	run(func() (err error) {
		d.Streaks, err = r.StreakStats(childID)
		return err
	})
	run(func() (err error) {
		d.Badges, err = r.BadgeStats(childID)
		return err
	})
	run(func() (err error) {
		d.Rate, err = r.CompletionRate(childID, days)
		return err
	})
	run(func() (err error) {
		d.Categories, err = r.CategoryDistribution(childID, days)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
