package store

import (
	"testing"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func TestPushSubscriptionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	p, c, _ := seedFamily(t, db)
	ps := NewPushStore(db)

	sub, err := ps.CreateSubscription(model.RoleParent, p.ID, "https://push.example.com/a", "key", "auth")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Role != model.RoleParent || sub.ActorID != p.ID {
		t.Errorf("subscription = %+v", sub)
	}
	ps.CreateSubscription(model.RoleChild, c.ID, "https://push.example.com/b", "key", "auth")

	subs, err := ps.ListByActor(model.RoleParent, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("parent subscriptions = %d, want 1", len(subs))
	}

	// Deleting on behalf of someone else is a no-op.
	if err := ps.DeleteSubscription(sub.ID, model.RoleChild, c.ID); err != nil {
		t.Fatalf("delete other: %v", err)
	}
	if subs, _ := ps.ListByActor(model.RoleParent, p.ID); len(subs) != 1 {
		t.Error("subscription removed by another actor")
	}
	if err := ps.DeleteSubscription(sub.ID, model.RoleParent, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if subs, _ := ps.ListByActor(model.RoleParent, p.ID); len(subs) != 0 {
		t.Error("subscription still present after delete")
	}
}

func TestPushSubscriptionUpsertAndExpire(t *testing.T) {
	db := setupTestDB(t)
	p, c, _ := seedFamily(t, db)
	ps := NewPushStore(db)
	endpoint := "https://push.example.com/shared-device"

	ps.CreateSubscription(model.RoleParent, p.ID, endpoint, "k1", "a1")
	// The same browser signing in as the child takes the endpoint over.
	if _, err := ps.CreateSubscription(model.RoleChild, c.ID, endpoint, "k2", "a2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if subs, _ := ps.ListByActor(model.RoleParent, p.ID); len(subs) != 0 {
		t.Errorf("parent still holds the endpoint: %+v", subs)
	}
	subs, _ := ps.ListByActor(model.RoleChild, c.ID)
	if len(subs) != 1 || subs[0].P256dhKey != "k2" {
		t.Fatalf("child subscriptions = %+v", subs)
	}

	if err := ps.DeleteByEndpoint(endpoint); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	if subs, _ := ps.ListByActor(model.RoleChild, c.ID); len(subs) != 0 {
		t.Error("expired endpoint still present")
	}
}
