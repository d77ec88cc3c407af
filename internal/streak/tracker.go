package streak

import (
	"fmt"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// Store is the slice of the ledger the tracker reads and writes.
type Store interface {
	Get(childID, taskID int64) (*model.TaskStreak, error)
	Save(st *model.TaskStreak) error
	Delete(childID, taskID int64) error
	CompletionTimes(childID, taskID int64) ([]time.Time, error)
}

// Tracker updates streak rows. Calendar dates are taken in its location.
type Tracker struct {
	loc *time.Location
}

func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{loc: loc}
}

func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Today returns the current calendar date in the tracker's location.
func (t *Tracker) Today(now time.Time) time.Time {
	return DateOf(now, t.loc)
}

// Outcome is the result of recording one completion.
type Outcome struct {
	Streak *model.TaskStreak
	Change Change
}

// RecordCompletion folds a confirmed completion at completedAt into the pair's
// streak. The completion must already be confirmed in s: a completion dated
// before the last recorded day triggers a replay of the confirmed history.
func (t *Tracker) RecordCompletion(s Store, childID, taskID int64, completedAt time.Time) (Outcome, error) {
	day := DateOf(completedAt, t.loc)

	st, err := s.Get(childID, taskID)
	if err != nil {
		return Outcome{}, err
	}

	if st == nil {
		st = &model.TaskStreak{
			ChildID:           childID,
			TaskID:            taskID,
			CurrentStreak:     1,
			LongestStreak:     1,
			LastCompletedDate: day,
		}
		if err := s.Save(st); err != nil {
			return Outcome{}, err
		}
		return Outcome{Streak: st, Change: ChangeCreated}, nil
	}

	if day.Before(st.LastCompletedDate) {
		replayed, err := t.Rebuild(s, childID, taskID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Streak: replayed, Change: ChangeReplayed}, nil
	}

	change := Apply(st, day)
	if change == ChangeSameDay {
		return Outcome{Streak: st, Change: change}, nil
	}
	if err := s.Save(st); err != nil {
		return Outcome{}, err
	}
	return Outcome{Streak: st, Change: change}, nil
}

// Rebuild recomputes the pair's streak from its confirmed records. When no
// confirmed record remains the streak row is removed and nil is returned.
func (t *Tracker) Rebuild(s Store, childID, taskID int64) (*model.TaskStreak, error) {
	times, err := s.CompletionTimes(childID, taskID)
	if err != nil {
		return nil, err
	}

	days := make([]time.Time, len(times))
	for i, ts := range times {
		days[i] = DateOf(ts, t.loc)
	}

	current, longest, last, ok := Replay(days)
	if !ok {
		if err := s.Delete(childID, taskID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	st, err := s.Get(childID, taskID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &model.TaskStreak{ChildID: childID, TaskID: taskID}
	}
	st.CurrentStreak = current
	st.LongestStreak = longest
	st.LastCompletedDate = last
	if err := s.Save(st); err != nil {
		return nil, fmt.Errorf("rebuild streak: %w", err)
	}
	return st, nil
}
