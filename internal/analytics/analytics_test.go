package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

type fakeSource struct {
	completions []store.Completion
	bonuses     []store.PointsEvent
	spent       []store.PointsEvent
	available   map[string]int
	earned      map[string]int
	err         error
}

func inRange[T any](items []T, at func(T) time.Time, from, to time.Time) []T {
	var out []T
	for _, it := range items {
		if t := at(it); !t.Before(from) && t.Before(to) {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeSource) ConfirmedBetween(_ int64, from, to time.Time) ([]store.Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return inRange(f.completions, func(c store.Completion) time.Time { return c.CompletedAt }, from, to), nil
}

func (f *fakeSource) BonusesBetween(_ int64, from, to time.Time) ([]store.PointsEvent, error) {
	return inRange(f.bonuses, func(e store.PointsEvent) time.Time { return e.At }, from, to), nil
}

func (f *fakeSource) SpentBetween(_ int64, from, to time.Time) ([]store.PointsEvent, error) {
	return inRange(f.spent, func(e store.PointsEvent) time.Time { return e.At }, from, to), nil
}

func (f *fakeSource) BadgeTotals(int64) (map[string]int, map[string]int, error) {
	return f.available, f.earned, nil
}

type fakeStreaks []model.TaskStreak

func (f fakeStreaks) ListByChild(int64) ([]model.TaskStreak, error) { return f, nil }

type fakeTasks struct {
	active     []model.Task
	categories []model.TaskCategory
}

func (f fakeTasks) ListActive() ([]model.Task, error)             { return f.active, nil }
func (f fakeTasks) ListCategories() ([]model.TaskCategory, error) { return f.categories, nil }

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func day(d, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func setupReporter(src *fakeSource, streaks fakeStreaks) *Reporter {
	tasks := fakeTasks{
		active: []model.Task{{ID: 1, CategoryID: 1}, {ID: 2, CategoryID: 2}},
		categories: []model.TaskCategory{
			{ID: 1, Name: "Study"}, {ID: 2, Name: "Habits"}, {ID: 3, Name: "Character"},
		},
	}
	r := NewReporter(src, streaks, tasks, time.UTC)
	r.now = func() time.Time { return now }
	return r
}

func sampleSource() *fakeSource {
	return &fakeSource{
		completions: []store.Completion{
			{TaskID: 1, CategoryID: 1, CompletedAt: day(18, 9), Points: 5},
			{TaskID: 1, CategoryID: 1, CompletedAt: day(19, 9), Points: 5},
			{TaskID: 1, CategoryID: 1, CompletedAt: day(19, 17), Points: 5},
			{TaskID: 2, CategoryID: 2, CompletedAt: day(20, 8), Points: 3},
			// Outside a 3-day window.
			{TaskID: 2, CategoryID: 2, CompletedAt: day(10, 8), Points: 3},
		},
		bonuses: []store.PointsEvent{{At: day(19, 17), Amount: 10}},
		spent:   []store.PointsEvent{{At: day(20, 10), Amount: 8}},
	}
}

func TestCompletionsByDay(t *testing.T) {
	r := setupReporter(sampleSource(), nil)

	got, err := r.CompletionsByDay(1, 3)
	if err != nil {
		t.Fatalf("completions: %v", err)
	}
	want := []DayCount{{"2026-03-18", 1}, {"2026-03-19", 2}, {"2026-03-20", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %d days, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCompletionsByDayUsesLocation(t *testing.T) {
	// 2026-03-20 03:00 UTC is still the 19th at UTC-7.
	src := &fakeSource{completions: []store.Completion{{TaskID: 1, CompletedAt: day(20, 3)}}}
	loc := time.FixedZone("MST", -7*3600)
	r := NewReporter(src, nil, fakeTasks{}, loc)
	r.now = func() time.Time { return now }

	got, err := r.CompletionsByDay(1, 2)
	if err != nil {
		t.Fatalf("completions: %v", err)
	}
	if got[0].Date != "2026-03-19" || got[0].Count != 1 {
		t.Errorf("got %+v, want the completion on 2026-03-19", got)
	}
}

func TestPointsTrend(t *testing.T) {
	r := setupReporter(sampleSource(), nil)

	got, err := r.PointsTrend(1, 3)
	if err != nil {
		t.Fatalf("points trend: %v", err)
	}
	want := []PointsDay{
		{Date: "2026-03-18", Earned: 5, Net: 5},
		{Date: "2026-03-19", Earned: 20, Net: 20},
		{Date: "2026-03-20", Earned: 3, Spent: 8, Net: -5},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStreakStats(t *testing.T) {
	streaks := fakeStreaks{
		{TaskID: 1, CurrentStreak: 4, LongestStreak: 6, LastCompletedDate: day(20, 0)},
		{TaskID: 2, CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: day(19, 0)},
		{TaskID: 3, CurrentStreak: 9, LongestStreak: 9, LastCompletedDate: day(10, 0)},
	}
	r := setupReporter(&fakeSource{}, streaks)

	got, err := r.StreakStats(1)
	if err != nil {
		t.Fatalf("streak stats: %v", err)
	}
	want := StreakStats{TrackedTasks: 3, ActiveStreaks: 2, BestCurrent: 4, LongestEver: 9, AverageCurrent: 3}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestBadgeStats(t *testing.T) {
	src := &fakeSource{
		available: map[string]int{"gold": 1, "bronze": 2, "custom": 1},
		earned:    map[string]int{"bronze": 2, "gold": 0, "custom": 1},
	}
	r := setupReporter(src, nil)

	got, err := r.BadgeStats(1)
	if err != nil {
		t.Fatalf("badge stats: %v", err)
	}
	if got.Earned != 3 || got.Available != 4 || got.Percent != 75 {
		t.Errorf("totals = %+v", got)
	}
	order := []string{"bronze", "gold", "custom"}
	for i, level := range order {
		if got.ByLevel[i].Level != level {
			t.Errorf("level %d = %q, want %q", i, got.ByLevel[i].Level, level)
		}
	}
}

func TestCompletionRate(t *testing.T) {
	r := setupReporter(sampleSource(), nil)

	got, err := r.CompletionRate(1, 3)
	if err != nil {
		t.Fatalf("completion rate: %v", err)
	}
	// Task 1 on the 18th and 19th (twice on the 19th counts once), task 2 on the 20th.
	want := CompletionRate{Days: 3, ActiveTasks: 2, Possible: 6, Completed: 3, Rate: 50}
	if got != want {
		t.Errorf("rate = %+v, want %+v", got, want)
	}
}

func TestCategoryDistribution(t *testing.T) {
	r := setupReporter(sampleSource(), nil)

	got, err := r.CategoryDistribution(1, 3)
	if err != nil {
		t.Fatalf("category distribution: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d categories, want 3", len(got))
	}
	if got[0].Name != "Study" || got[0].Count != 3 || got[0].Percent != 75 {
		t.Errorf("first = %+v", got[0])
	}
	if got[2].Name != "Character" || got[2].Count != 0 {
		t.Errorf("last = %+v", got[2])
	}
}

func TestDashboard(t *testing.T) {
	streaks := fakeStreaks{{TaskID: 1, CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: day(19, 0)}}
	r := setupReporter(sampleSource(), streaks)

	d, err := r.Dashboard(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Days != DefaultDays || len(d.Completions) != DefaultDays || len(d.Points) != DefaultDays {
		t.Errorf("days = %d, completions = %d, points = %d", d.Days, len(d.Completions), len(d.Points))
	}
	if d.Streaks.ActiveStreaks != 1 {
		t.Errorf("active streaks = %d, want 1", d.Streaks.ActiveStreaks)
	}
	if d.Rate.Possible != 2*DefaultDays {
		t.Errorf("possible = %d", d.Rate.Possible)
	}
}

func TestDashboardError(t *testing.T) {
	boom := errors.New("boom")
	r := setupReporter(&fakeSource{err: boom}, nil)

	if _, err := r.Dashboard(context.Background(), 1, 7); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestClampDays(t *testing.T) {
	tests := map[int]int{0: DefaultDays, -3: DefaultDays, 30: 30, 1000: MaxDays}
	for in, want := range tests {
		if got := ClampDays(in); got != want {
			t.Errorf("ClampDays(%d) = %d, want %d", in, got, want)
		}
	}
}
