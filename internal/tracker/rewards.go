package tracker

import (
	"context"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

type RedeemResult struct {
	Record    *model.RewardRecord `json:"record"`
	NewPoints int                 `json:"new_points"`
}

// Redeem spends the child's points on a reward. The child itself or its parent
// may redeem.
func (s *Service) Redeem(ctx context.Context, childID, rewardID int64, actor auth.Actor) (*RedeemResult, error) {
	var res *RedeemResult
	err := s.inTx(ctx, "redeem reward", func(tx *store.Tx) error {
		child, err := loadVisibleChild(tx, childID, actor)
		if err != nil {
			return err
		}
		reward, err := tx.Rewards.GetByID(rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return apperr.NotFoundf("reward %d not found", rewardID)
		}
		if !reward.IsActive {
			return apperr.Validationf("reward %q is not available", reward.Name)
		}
		if child.Points < reward.Cost {
			return apperr.Validationf("insufficient points: have %d, need %d", child.Points, reward.Cost)
		}

		rec, err := tx.Rewards.CreateRecord(childID, rewardID, reward.Cost, s.now())
		if err != nil {
			return err
		}
		points, err := tx.Children.AddPoints(childID, -reward.Cost)
		if err != nil {
			return err
		}
		res = &RedeemResult{Record: rec, NewPoints: points}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reward redeemed", "child_id", childID, "reward_id", rewardID, "new_points", res.NewPoints)
	return res, nil
}

// Fulfill marks a redemption as handed over. Only the child's parent may.
// Fulfilling twice is harmless.
func (s *Service) Fulfill(ctx context.Context, rewardRecordID int64, actor auth.Actor) (*model.RewardRecord, error) {
	var rec *model.RewardRecord
	err := s.inTx(ctx, "fulfill reward", func(tx *store.Tx) error {
		var err error
		rec, err = tx.Rewards.GetRecord(rewardRecordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFoundf("redemption %d not found", rewardRecordID)
		}
		child, err := tx.Children.GetByID(rec.ChildID)
		if err != nil {
			return err
		}
		if child == nil {
			return apperr.NotFoundf("child %d not found", rec.ChildID)
		}
		if !actor.CanManage(*child) {
			return apperr.Forbiddenf("not allowed to fulfill rewards of child %d", child.ID)
		}
		if rec.IsFulfilled {
			return nil
		}
		if err := tx.Rewards.Fulfill(rec.ID); err != nil {
			return err
		}
		rec.IsFulfilled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ListRedemptions(ctx context.Context, childID int64, actor auth.Actor) ([]model.RewardRecord, error) {
	view := s.ledger.View()
	if _, err := loadVisibleChild(view, childID, actor); err != nil {
		return nil, err
	}
	return view.Rewards.ListRecordsByChild(childID)
}
