package store

import (
	"testing"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

func TestSessionCreate(t *testing.T) {
	db := setupTestDB(t)
	p, _, _ := seedFamily(t, db)
	ss := NewSessionStore(db)

	sess, err := ss.Create(model.RoleParent, p.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.Role != model.RoleParent || sess.ActorID != p.ID {
		t.Errorf("session = %+v", sess)
	}
	if time.Until(sess.ExpiresAt) < SessionDuration-time.Minute {
		t.Errorf("expires at %v, want about %v from now", sess.ExpiresAt, SessionDuration)
	}
}

func TestSessionGetByToken(t *testing.T) {
	db := setupTestDB(t)
	_, c, _ := seedFamily(t, db)
	ss := NewSessionStore(db)

	created, _ := ss.Create(model.RoleChild, c.ID)
	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID || sess.Role != model.RoleChild {
		t.Errorf("session = %+v", sess)
	}

	missing, err := ss.GetByToken("nonexistent")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	db := setupTestDB(t)
	p, _, _ := seedFamily(t, db)
	ss := NewSessionStore(db)

	sess, _ := ss.Create(model.RoleParent, p.ID)
	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("session still valid after delete")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	p, _, _ := seedFamily(t, db)
	ss := NewSessionStore(db)

	expired, _ := ss.Create(model.RoleParent, p.ID)
	live, _ := ss.Create(model.RoleParent, p.ID)
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Hour), expired.ID); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	if got, _ := ss.GetByToken(expired.Token); got != nil {
		t.Error("expired session returned")
	}
	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if got, _ := ss.GetByToken(live.Token); got == nil {
		t.Error("live session was deleted")
	}
}
