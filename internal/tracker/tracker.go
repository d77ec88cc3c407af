// Package tracker runs the point-moving workflows: confirming, editing, and
// deleting task records, logging completions, and redeeming rewards. Each
// workflow is a single ledger transaction.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/badge"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
)

type Service struct {
	ledger  *store.Ledger
	streaks *streak.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

func New(ledger *store.Ledger, streaks *streak.Tracker, logger *slog.Logger) *Service {
	return &Service{
		ledger:  ledger,
		streaks: streaks,
		logger:  logger,
		now:     time.Now,
	}
}

// Result is what a confirmation reports back to the caller.
type Result struct {
	RecordID         int64         `json:"record_id"`
	ChildID          int64         `json:"child_id"`
	TaskID           int64         `json:"task_id"`
	AlreadyConfirmed bool          `json:"already_confirmed"`
	NewPoints        int           `json:"new_points"`
	PointsAwarded    int           `json:"points_awarded"`
	Streak           streak.Status `json:"streak"`
	StreakMessage    string        `json:"streak_message"`
	BadgesEarned     []badge.Grant `json:"badges_earned"`
}

// DeleteResult is the child's balance after a record is removed.
type DeleteResult struct {
	ChildID   int64 `json:"child_id"`
	NewPoints int   `json:"new_points"`
}

// ConfirmCompletion confirms a pending record, credits the task's points,
// advances the streak, and grants any badges now earned. Confirming a record
// that is already confirmed changes nothing and reports AlreadyConfirmed.
func (s *Service) ConfirmCompletion(ctx context.Context, recordID int64, actor auth.Actor) (*Result, error) {
	var res *Result
	err := s.inTx(ctx, "confirm completion", func(tx *store.Tx) error {
		rec, child, err := loadManagedRecord(tx, recordID, actor)
		if err != nil {
			return err
		}

		if rec.IsConfirmed {
			st, err := tx.Streaks.Get(rec.ChildID, rec.TaskID)
			if err != nil {
				return err
			}
			res = &Result{
				RecordID:         rec.ID,
				ChildID:          rec.ChildID,
				TaskID:           rec.TaskID,
				AlreadyConfirmed: true,
				NewPoints:        child.Points,
				Streak:           streak.StatusOf(st, s.streaks.Today(s.now())),
				StreakMessage:    "Already confirmed",
			}
			return nil
		}

		task, err := tx.Tasks.GetByID(rec.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFoundf("task %d not found", rec.TaskID)
		}

		res, err = s.confirm(tx, rec, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyConfirmed {
		s.logger.Info("record confirmed",
			"record_id", res.RecordID, "child_id", res.ChildID, "task_id", res.TaskID,
			"points_awarded", res.PointsAwarded, "streak", res.Streak.CurrentStreak, "badges", len(res.BadgesEarned))
	}
	return res, nil
}

// confirm runs the confirmation steps for a pending record against task. The
// record's TaskID and CompletedAt must already match what is stored.
func (s *Service) confirm(tx *store.Tx, rec *model.TaskRecord, task *model.Task) (*Result, error) {
	now := s.now()

	ok, err := tx.Records.MarkConfirmed(rec.ID, task.Points)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.Conflict, "record was confirmed concurrently")
	}

	points, err := tx.Children.AddPoints(rec.ChildID, task.Points)
	if err != nil {
		return nil, err
	}

	out, err := s.streaks.RecordCompletion(tx.Streaks, rec.ChildID, task.ID, rec.CompletedAt)
	if err != nil {
		return nil, err
	}

	if out.Change == streak.ChangeCreated {
		if err := ensureDefaultBadge(tx, task); err != nil {
			return nil, err
		}
	}

	grants, err := badge.NewEvaluator(tx.Badges, tx.Records, tx.Children).
		Evaluate(rec.ChildID, task.ID, out.Streak.CurrentStreak, now)
	if err != nil {
		return nil, err
	}

	awarded := task.Points
	for _, g := range grants {
		awarded += g.Bonus
		points += g.Bonus
		s.logger.Info("badge earned", "child_id", rec.ChildID, "badge_id", g.BadgeID, "badge", g.Name, "bonus", g.Bonus)
	}

	return &Result{
		RecordID:      rec.ID,
		ChildID:       rec.ChildID,
		TaskID:        task.ID,
		NewPoints:     points,
		PointsAwarded: awarded,
		Streak:        streak.StatusOf(out.Streak, s.streaks.Today(now)),
		StreakMessage: streak.Message(out.Change, out.Streak.CurrentStreak),
		BadgesEarned:  grants,
	}, nil
}

func ensureDefaultBadge(tx *store.Tx, task *model.Task) error {
	n, err := tx.Badges.CountByTask(task.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = tx.Badges.Create(badge.DefaultBadge(*task))
	return err
}

// EditConfirmedRecord moves a record to a different task or completion time. A
// confirmed record has its old credit reversed and its old streak replayed, then
// is confirmed again against the new task. A pending record is simply updated.
func (s *Service) EditConfirmedRecord(ctx context.Context, recordID, newTaskID int64, newCompletedAt time.Time, actor auth.Actor) (*Result, error) {
	if err := s.validateCompletedAt(newCompletedAt); err != nil {
		return nil, err
	}

	var res *Result
	err := s.inTx(ctx, "edit record", func(tx *store.Tx) error {
		rec, child, err := loadManagedRecord(tx, recordID, actor)
		if err != nil {
			return err
		}

		newTask, err := tx.Tasks.GetByID(newTaskID)
		if err != nil {
			return err
		}
		if newTask == nil {
			return apperr.NotFoundf("task %d not found", newTaskID)
		}

		oldTaskID := rec.TaskID
		if err := tx.Records.UpdateTaskAndTime(rec.ID, newTaskID, newCompletedAt); err != nil {
			return err
		}
		rec.TaskID = newTaskID
		rec.CompletedAt = newCompletedAt.UTC()

		if !rec.IsConfirmed {
			st, err := tx.Streaks.Get(rec.ChildID, newTaskID)
			if err != nil {
				return err
			}
			res = &Result{
				RecordID:      rec.ID,
				ChildID:       rec.ChildID,
				TaskID:        newTaskID,
				NewPoints:     child.Points,
				Streak:        streak.StatusOf(st, s.streaks.Today(s.now())),
				StreakMessage: "Record updated",
			}
			return nil
		}

		// Only the net change has to fit the balance. The new credit lands
		// before the old one is taken back so the balance never dips below zero.
		oldPoints := rec.ActualPoints
		if child.Points+newTask.Points-oldPoints < 0 {
			return apperr.Validationf("child has %d points, cannot move a %d-point record to a %d-point task",
				child.Points, oldPoints, newTask.Points)
		}
		if err := tx.Records.MarkPending(rec.ID); err != nil {
			return err
		}
		if _, err := s.streaks.Rebuild(tx.Streaks, rec.ChildID, oldTaskID); err != nil {
			return err
		}

		res, err = s.confirm(tx, rec, newTask)
		if err != nil {
			return err
		}
		if oldPoints == 0 {
			return nil
		}
		res.NewPoints, err = tx.Children.AddPoints(child.ID, -oldPoints)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("record edited", "record_id", recordID, "task_id", newTaskID, "new_points", res.NewPoints)
	return res, nil
}

// DeleteRecord removes a record. A confirmed record has its credited points
// debited and its streak replayed without it.
func (s *Service) DeleteRecord(ctx context.Context, recordID int64, actor auth.Actor) (*DeleteResult, error) {
	var res *DeleteResult
	err := s.inTx(ctx, "delete record", func(tx *store.Tx) error {
		rec, child, err := loadManagedRecord(tx, recordID, actor)
		if err != nil {
			return err
		}

		if rec.IsConfirmed {
			if err := debit(tx, child, rec.ActualPoints); err != nil {
				return err
			}
		}
		if err := tx.Records.Delete(rec.ID); err != nil {
			return err
		}
		if rec.IsConfirmed {
			if _, err := s.streaks.Rebuild(tx.Streaks, rec.ChildID, rec.TaskID); err != nil {
				return err
			}
		}

		res = &DeleteResult{ChildID: child.ID, NewPoints: child.Points}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("record deleted", "record_id", recordID, "child_id", res.ChildID, "new_points", res.NewPoints)
	return res, nil
}

// LogCompletion records a pending completion. A zero completedAt means now.
func (s *Service) LogCompletion(ctx context.Context, childID, taskID int64, completedAt time.Time, actor auth.Actor) (*model.TaskRecord, error) {
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	if err := s.validateCompletedAt(completedAt); err != nil {
		return nil, err
	}

	var rec *model.TaskRecord
	err := s.inTx(ctx, "log completion", func(tx *store.Tx) error {
		if _, err := loadVisibleChild(tx, childID, actor); err != nil {
			return err
		}
		task, err := tx.Tasks.GetByID(taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFoundf("task %d not found", taskID)
		}
		if !task.IsActive {
			return apperr.Validationf("task %q is not active", task.Name)
		}

		rec, err = tx.Records.Create(childID, taskID, completedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) validateCompletedAt(t time.Time) error {
	if t.IsZero() {
		return apperr.Validationf("completed_at is required")
	}
	today := s.streaks.Today(s.now())
	if streak.DateOf(t, s.streaks.Location()).After(today) {
		return apperr.Validationf("completed_at cannot be in the future")
	}
	return nil
}

// loadManagedRecord fetches a record and its child and checks that actor may
// change the child's records.
func loadManagedRecord(tx *store.Tx, recordID int64, actor auth.Actor) (*model.TaskRecord, *model.Child, error) {
	rec, err := tx.Records.GetByID(recordID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, apperr.NotFoundf("record %d not found", recordID)
	}
	child, err := tx.Children.GetByID(rec.ChildID)
	if err != nil {
		return nil, nil, err
	}
	if child == nil {
		return nil, nil, apperr.NotFoundf("child %d not found", rec.ChildID)
	}
	if !actor.CanManage(*child) {
		return nil, nil, apperr.Forbiddenf("not allowed to manage records of child %d", child.ID)
	}
	return rec, child, nil
}

func loadVisibleChild(tx *store.Tx, childID int64, actor auth.Actor) (*model.Child, error) {
	child, err := tx.Children.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, apperr.NotFoundf("child %d not found", childID)
	}
	if !actor.CanView(*child) {
		return nil, apperr.Forbiddenf("not allowed to access child %d", childID)
	}
	return child, nil
}

// debit removes amount from the child's balance. Points the child has already
// spent cannot be taken back, so a debit below zero is rejected.
func debit(tx *store.Tx, child *model.Child, amount int) error {
	if amount == 0 {
		return nil
	}
	if child.Points < amount {
		return apperr.Validationf("child has %d points, cannot reverse %d", child.Points, amount)
	}
	points, err := tx.Children.AddPoints(child.ID, -amount)
	if err != nil {
		return err
	}
	child.Points = points
	return nil
}

// inTx runs fn in a ledger transaction and classifies its error. A busy or
// locked database becomes a Conflict the caller may retry.
func (s *Service) inTx(ctx context.Context, op string, fn func(tx *store.Tx) error) error {
	err := s.ledger.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if database.IsBusy(err) {
		return apperr.Wrap(apperr.Conflict, "the ledger is busy, try again", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
