package auth

import (
	"context"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

type contextKey struct{}

// Actor is the signed-in account. FamilyID is the owning parent's ID for both
// roles, so a parent's FamilyID equals its own ID.
type Actor struct {
	ID        int64
	Role      model.ActorRole
	FamilyID  int64
	SessionID int64
}

func ParentActor(parentID int64) Actor {
	return Actor{ID: parentID, Role: model.RoleParent, FamilyID: parentID}
}

func ChildActor(child model.Child) Actor {
	return Actor{ID: child.ID, Role: model.RoleChild, FamilyID: child.ParentID}
}

func (a Actor) IsParent() bool {
	return a.Role == model.RoleParent
}

// CanView reports whether the actor may read the child's data: the child
// itself or its parent.
func (a Actor) CanView(child model.Child) bool {
	switch a.Role {
	case model.RoleParent:
		return child.ParentID == a.ID
	case model.RoleChild:
		return child.ID == a.ID
	}
	return false
}

// CanManage reports whether the actor may confirm, edit, or delete the child's
// records. Only the owning parent can.
func (a Actor) CanManage(child model.Child) bool {
	return a.Role == model.RoleParent && child.ParentID == a.ID
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}

func IsParent(ctx context.Context) bool {
	a, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return a.IsParent()
}
