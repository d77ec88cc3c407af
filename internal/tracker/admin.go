package tracker

import (
	"context"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/badge"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

// RebuildAllStreaks replays the streak of every (child, task) pair with a
// confirmed record and drops streak rows left without one. Each pair is rebuilt
// in its own transaction. It returns the number of pairs rebuilt.
func (s *Service) RebuildAllStreaks(ctx context.Context) (int, error) {
	pairs, err := s.ledger.View().Records.ConfirmedPairs()
	if err != nil {
		return 0, err
	}

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		err := s.inTx(ctx, "rebuild streak", func(tx *store.Tx) error {
			_, err := s.streaks.Rebuild(tx.Streaks, p.ChildID, p.TaskID)
			return err
		})
		if err != nil {
			return i, err
		}
	}

	removed, err := s.ledger.View().Streaks.DeleteOrphans()
	if err != nil {
		return len(pairs), err
	}
	s.logger.Info("streaks rebuilt", "pairs", len(pairs), "orphans_removed", removed)
	return len(pairs), nil
}

// SeedCatalog adds the multilevel streak badges to a task, skipping any level the
// task already has. It returns the badges created.
func (s *Service) SeedCatalog(ctx context.Context, taskID int64, actor auth.Actor) ([]model.Badge, error) {
	if !actor.IsParent() {
		return nil, apperr.Forbiddenf("only parents can manage badges")
	}
	return s.seedCatalog(ctx, taskID)
}

// SeedAllCatalogs seeds the multilevel badges for every task.
func (s *Service) SeedAllCatalogs(ctx context.Context) (int, error) {
	tasks, err := s.ledger.View().Tasks.List()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range tasks {
		created, err := s.seedCatalog(ctx, t.ID)
		if err != nil {
			return total, err
		}
		total += len(created)
	}
	return total, nil
}

func (s *Service) seedCatalog(ctx context.Context, taskID int64) ([]model.Badge, error) {
	var created []model.Badge
	err := s.inTx(ctx, "seed badge catalog", func(tx *store.Tx) error {
		task, err := tx.Tasks.GetByID(taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFoundf("task %d not found", taskID)
		}
		existing, err := tx.Badges.ListByTask(taskID)
		if err != nil {
			return err
		}
		for _, b := range badge.MissingLevels(badge.Catalog(*task), existing) {
			nb, err := tx.Badges.Create(b)
			if err != nil {
				return err
			}
			created = append(created, *nb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
