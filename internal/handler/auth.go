package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/middleware"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

type AuthHandler struct {
	parentStore   *store.ParentStore
	childStore    *store.ChildStore
	sessionStore  *store.SessionStore
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(ps *store.ParentStore, cs *store.ChildStore, ss *store.SessionStore, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		parentStore:   ps,
		childStore:    cs,
		sessionStore:  ss,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type credentials struct {
	Role     model.ActorRole `json:"role"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

type sessionResponse struct {
	Role     model.ActorRole `json:"role"`
	ID       int64           `json:"id"`
	FamilyID int64           `json:"family_id"`
	Username string          `json:"username"`
	Name     string          `json:"name,omitempty"`
	Points   *int            `json:"points,omitempty"`
}

// Register creates a parent account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "username is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, h.logger, "register", err)
		return
	}

	parent, err := h.parentStore.Create(req.Username, hash)
	if err != nil {
		if database.IsUniqueViolation(err) {
			writeMessage(w, http.StatusConflict, "username is taken")
			return
		}
		writeError(w, h.logger, "register", err)
		return
	}

	if !h.startSession(w, model.RoleParent, parent.ID) {
		return
	}
	h.logger.Info("parent registered", "parent_id", parent.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Role: model.RoleParent, ID: parent.ID, FamilyID: parent.ID, Username: parent.Username,
	})
}

// Login signs in a parent or a child. The role is part of the request so the
// two account tables never shadow each other.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.Role.Valid() {
		writeMessage(w, http.StatusBadRequest, "role must be parent or child")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	var (
		hash string
		resp sessionResponse
	)
	switch req.Role {
	case model.RoleParent:
		p, err := h.parentStore.GetByUsername(req.Username)
		if err != nil {
			writeError(w, h.logger, "log in", err)
			return
		}
		if p != nil {
			hash = p.PasswordHash
			resp = sessionResponse{Role: model.RoleParent, ID: p.ID, FamilyID: p.ID, Username: p.Username}
		}
	case model.RoleChild:
		c, err := h.childStore.GetByUsername(req.Username)
		if err != nil {
			writeError(w, h.logger, "log in", err)
			return
		}
		if c != nil {
			hash = c.PasswordHash
			resp = sessionResponse{
				Role: model.RoleChild, ID: c.ID, FamilyID: c.ParentID,
				Username: c.Username, Name: c.Name, Points: &c.Points,
			}
		}
	}

	ok := false
	if hash != "" {
		var err error
		ok, err = auth.CheckPassword(hash, req.Password)
		if err != nil {
			writeError(w, h.logger, "log in", err)
			return
		}
	}
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if !h.startSession(w, req.Role, resp.ID) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, role model.ActorRole, actorID int64) bool {
	sess, err := h.sessionStore.Create(role, actorID)
	if err != nil {
		writeError(w, h.logger, "create session", err)
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := h.sessionStore.Delete(actor.SessionID); err != nil {
		writeError(w, h.logger, "log out", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me describes the signed-in account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	resp := sessionResponse{Role: actor.Role, ID: actor.ID, FamilyID: actor.FamilyID}

	if actor.IsParent() {
		p, err := h.parentStore.GetByID(actor.ID)
		if err != nil {
			writeError(w, h.logger, "load account", err)
			return
		}
		if p == nil {
			writeMessage(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		resp.Username = p.Username
	} else {
		c, err := h.childStore.GetByID(actor.ID)
		if err != nil {
			writeError(w, h.logger, "load account", err)
			return
		}
		if c == nil {
			writeMessage(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		resp.Username, resp.Name, resp.Points = c.Username, c.Name, &c.Points
	}
	writeJSON(w, http.StatusOK, resp)
}
