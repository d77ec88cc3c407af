package tracker

import (
	"context"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/badge"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
)

// TaskStreakView is a streak status labeled with its task.
type TaskStreakView struct {
	TaskID   int64  `json:"task_id"`
	TaskName string `json:"task_name"`
	streak.Status
}

func (s *Service) GetStreakStatus(ctx context.Context, childID, taskID int64, actor auth.Actor) (streak.Status, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return streak.Status{}, err
	}
	task, err := view.Tasks.GetByID(taskID)
	if err != nil {
		return streak.Status{}, err
	}
	if task == nil {
		return streak.Status{}, apperr.NotFoundf("task %d not found", taskID)
	}

	st, err := view.Streaks.Get(childID, taskID)
	if err != nil {
		return streak.Status{}, err
	}
	return streak.StatusOf(st, s.streaks.Today(s.now())), nil
}

// ListStreaks returns the status of every streak the child has started.
func (s *Service) ListStreaks(ctx context.Context, childID int64, actor auth.Actor) ([]TaskStreakView, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return nil, err
	}
	streaks, err := view.Streaks.ListByChild(childID)
	if err != nil {
		return nil, err
	}
	tasks, err := view.Tasks.List()
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}

	today := s.streaks.Today(s.now())
	out := make([]TaskStreakView, 0, len(streaks))
	for i := range streaks {
		out = append(out, TaskStreakView{
			TaskID:   streaks[i].TaskID,
			TaskName: names[streaks[i].TaskID],
			Status:   streak.StatusOf(&streaks[i], today),
		})
	}
	return out, nil
}

// GetClosestBadges ranks the badges the child has not earned by progress.
func (s *Service) GetClosestBadges(ctx context.Context, childID int64, limit int, actor auth.Actor) ([]badge.Progress, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return nil, err
	}

	badges, err := view.Badges.List()
	if err != nil {
		return nil, err
	}
	earned, err := view.Badges.EarnedIDs(childID)
	if err != nil {
		return nil, err
	}
	streaks, err := view.Streaks.ListByChild(childID)
	if err != nil {
		return nil, err
	}
	// An ended streak counts as zero toward streak badges.
	today := s.streaks.Today(s.now())
	current := make(map[int64]int, len(streaks))
	for i := range streaks {
		if streak.StatusOf(&streaks[i], today).IsActive {
			current[streaks[i].TaskID] = streaks[i].CurrentStreak
		}
	}
	counts, err := view.Records.ConfirmedCountsByTask(childID)
	if err != nil {
		return nil, err
	}

	return badge.Closest(badges, earned, current, counts, limit), nil
}

func (s *Service) ListEarnedBadges(ctx context.Context, childID int64, actor auth.Actor) ([]model.EarnedBadge, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return nil, err
	}
	return view.Badges.ListEarned(childID)
}

func (s *Service) ListRecords(ctx context.Context, childID int64, limit int, actor auth.Actor) ([]model.TaskRecord, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return view.Records.ListByChild(childID, limit)
}

// GetChild returns the child if actor may see it.
func (s *Service) GetChild(ctx context.Context, childID int64, actor auth.Actor) (*model.Child, error) {
	return loadVisibleChild(s.ledger.View(), childID, actor)
}
