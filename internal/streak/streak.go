// Package streak maintains per (child, task) consecutive-day completion streaks.
package streak

import (
	"fmt"
	"sort"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// Change describes what a single completion did to a streak.
type Change string

const (
	ChangeCreated  Change = "created"
	ChangeSameDay  Change = "same_day"
	ChangeExtended Change = "extended"
	ChangeReset    Change = "reset"
	ChangeReplayed Change = "replayed"
)

// DateOf returns the calendar date of t as seen in loc, expressed as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from a to b. Both must be values
// returned by DateOf.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Apply advances st by one completion on day. A completion earlier than the
// last recorded date is not handled here and reports ChangeReset; callers that
// can see the full history should Replay instead.
func Apply(st *model.TaskStreak, day time.Time) Change {
	var change Change
	switch gap := daysBetween(st.LastCompletedDate, day); {
	case gap == 0:
		return ChangeSameDay
	case gap == 1:
		st.CurrentStreak++
		change = ChangeExtended
	default:
		st.CurrentStreak = 1
		change = ChangeReset
	}

	st.LastCompletedDate = day
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	return change
}

// Replay recomputes a streak from scratch over the given completion dates. Dates
// may be unsorted and may repeat. It returns false when days is empty.
func Replay(days []time.Time) (current, longest int, last time.Time, ok bool) {
	if len(days) == 0 {
		return 0, 0, time.Time{}, false
	}

	sorted := make([]time.Time, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	st := model.TaskStreak{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: sorted[0]}
	for _, d := range sorted[1:] {
		Apply(&st, d)
	}
	return st.CurrentStreak, st.LongestStreak, st.LastCompletedDate, true
}

// Status is the display view of a streak.
type Status struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	IsActive          bool       `json:"is_active"`
	StatusText        string     `json:"status_text"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// StatusOf derives the display status of st as of today. A nil streak means the
// pair has never been confirmed. today must come from DateOf.
func StatusOf(st *model.TaskStreak, today time.Time) Status {
	if st == nil {
		return Status{StatusText: "No streak yet"}
	}

	last := st.LastCompletedDate
	s := Status{
		CurrentStreak:     st.CurrentStreak,
		LongestStreak:     st.LongestStreak,
		LastCompletedDate: &last,
	}

	switch daysBetween(last, today) {
	case 0:
		s.IsActive = true
		s.StatusText = fmt.Sprintf("%d-day streak, done today", st.CurrentStreak)
	case 1:
		s.IsActive = true
		s.StatusText = fmt.Sprintf("%d-day streak, complete today to keep it going", st.CurrentStreak)
	default:
		s.StatusText = fmt.Sprintf("Streak ended, best was %d days", st.LongestStreak)
	}
	return s
}

// Message is the short progress line shown after a confirmation.
func Message(change Change, current int) string {
	switch change {
	case ChangeCreated:
		return "Streak started: day 1"
	case ChangeSameDay:
		return fmt.Sprintf("Already counted today, streak is %d days", current)
	case ChangeExtended:
		return fmt.Sprintf("Streak extended to %d days", current)
	case ChangeReset:
		return "Streak restarted: day 1"
	default:
		return fmt.Sprintf("Streak recalculated: %d days", current)
	}
}
