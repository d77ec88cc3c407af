package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
	"github.com/ShiShiBits1/GrowthQuest/internal/websocket"
)

const maxChildAge = 18

type ChildHandler struct {
	childStore *store.ChildStore
	service    *tracker.Service
	broadcast  broadcaster
	logger     *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, svc *tracker.Service, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{childStore: cs, service: svc, broadcast: broadcaster{hub}, logger: logger}
}

type childRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// List returns the parent's children, or just the child itself.
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.IsParent() {
		c, err := h.service.GetChild(r.Context(), actor.ID, actor)
		if err != nil {
			writeError(w, h.logger, "list children", err)
			return
		}
		writeJSON(w, http.StatusOK, []model.Child{*c})
		return
	}

	children, err := h.childStore.ListByParent(actor.ID)
	if err != nil {
		writeError(w, h.logger, "list children", err)
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if req.Name == "" || req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "name and username are required")
		return
	}
	if req.Age < 0 || req.Age > maxChildAge {
		writeMessage(w, http.StatusBadRequest, "age must be between 0 and 18")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, h.logger, "create child", err)
		return
	}

	child, err := h.childStore.Create(actor.ID, req.Name, req.Age, req.Username, hash)
	if err != nil {
		if database.IsUniqueViolation(err) {
			writeMessage(w, http.StatusConflict, "username is taken")
			return
		}
		writeError(w, h.logger, "create child", err)
		return
	}

	h.logger.Info("child created", "child_id", child.ID, "parent_id", actor.ID)
	h.broadcast.send(actor.FamilyID, websocket.NewMessage("child", "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	child, err := h.service.GetChild(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "get child", err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// Delete removes a child with all of its records, streaks, and badges.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, err := h.service.GetChild(r.Context(), id, actor); err != nil {
		writeError(w, h.logger, "delete child", err)
		return
	}
	if err := h.childStore.Delete(id); err != nil {
		writeError(w, h.logger, "delete child", err)
		return
	}

	h.logger.Info("child deleted", "child_id", id, "parent_id", actor.ID)
	h.broadcast.send(actor.FamilyID, websocket.NewMessage("child", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
