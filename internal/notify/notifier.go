package notify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ShiShiBits1/GrowthQuest/internal/badge"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// Subscriptions is the slice of the push store the notifier needs.
type Subscriptions interface {
	ListByActor(role model.ActorRole, actorID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier turns tracker events into push notifications. A nil *Notifier is
// valid and sends nothing.
type Notifier struct {
	sender Sender
	subs   Subscriptions
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs Subscriptions, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, subs: subs, logger: logger}
}

// RecordLogged tells the parent a completion is waiting for confirmation.
func (n *Notifier) RecordLogged(parentID int64, childName, taskName string) {
	n.send(model.RoleParent, parentID, Payload{
		Title: "Task waiting for confirmation",
		Body:  fmt.Sprintf("%s finished %s", childName, taskName),
		URL:   "/records?status=pending",
		Tag:   "record-pending",
	})
}

// Confirmed tells the child its completion was confirmed and announces any
// badges it earned.
func (n *Notifier) Confirmed(childID int64, pointsAwarded int, streakMessage string, grants []badge.Grant) {
	n.send(model.RoleChild, childID, Payload{
		Title: fmt.Sprintf("+%d points", pointsAwarded),
		Body:  streakMessage,
		URL:   "/",
		Tag:   "record-confirmed",
	})
	for _, g := range grants {
		n.send(model.RoleChild, childID, Payload{
			Title: fmt.Sprintf("%s New badge!", g.Icon),
			Body:  fmt.Sprintf("You earned %s and %d bonus points", g.Name, g.Bonus),
			URL:   "/badges",
			Tag:   fmt.Sprintf("badge-%d", g.BadgeID),
		})
	}
}

// StreakReminder nudges a child whose streak ends unless the task is done today.
func (n *Notifier) StreakReminder(childID int64, taskName string, current int) {
	n.send(model.RoleChild, childID, Payload{
		Title: "Keep your streak going",
		Body:  fmt.Sprintf("Do %s today to reach %d days in a row", taskName, current+1),
		URL:   "/",
		Tag:   "streak-reminder",
	})
}

func (n *Notifier) send(role model.ActorRole, actorID int64, payload Payload) {
	if n == nil || n.sender == nil {
		return
	}
	subs, err := n.subs.ListByActor(role, actorID)
	if err != nil {
		n.logger.Error("list push subscriptions", "role", role, "actor_id", actorID, "error", err)
		return
	}
	for i := range subs {
		err := n.sender.Send(&subs[i], payload)
		if errors.Is(err, ErrExpired) {
			if err := n.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "error", err)
			}
			continue
		}
		if err != nil {
			n.logger.Warn("send push", "role", role, "actor_id", actorID, "error", err)
		}
	}
}
