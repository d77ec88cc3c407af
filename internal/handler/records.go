package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/badge"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/notify"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
	"github.com/ShiShiBits1/GrowthQuest/internal/websocket"
)

const defaultClosestLimit = 3

// RecordHandler exposes the tracker workflows: logging and confirming task
// records, streak and badge status, and reward redemption.
type RecordHandler struct {
	service   *tracker.Service
	taskStore *store.TaskStore
	notifier  *notify.Notifier
	broadcast broadcaster
	logger    *slog.Logger
}

func NewRecordHandler(svc *tracker.Service, ts *store.TaskStore, n *notify.Notifier, hub *websocket.Hub, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{service: svc, taskStore: ts, notifier: n, broadcast: broadcaster{hub}, logger: logger}
}

type logRequest struct {
	TaskID      int64      `json:"task_id"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Log records a pending completion for the child in the path and tells the
// parent it is waiting.
func (h *RecordHandler) Log(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req logRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	rec, err := withRetry(r.Context(), func(ctx context.Context) (*model.TaskRecord, error) {
		return h.service.LogCompletion(ctx, childID, req.TaskID, completedAt, actor)
	})
	if err != nil {
		writeError(w, h.logger, "log completion", err)
		return
	}

	h.broadcast.send(actor.FamilyID, websocket.NewMessage("record", "logged", rec.ID, map[string]any{
		"child_id": rec.ChildID, "task_id": rec.TaskID,
	}))
	if !actor.IsParent() {
		h.notifyLogged(r.Context(), actor, rec)
	}
	writeJSON(w, http.StatusCreated, rec)
}

// notifyLogged pushes the pending record to the parent. Lookup failures only
// cost the notification.
func (h *RecordHandler) notifyLogged(ctx context.Context, actor auth.Actor, rec *model.TaskRecord) {
	if h.notifier == nil {
		return
	}
	child, err := h.service.GetChild(ctx, rec.ChildID, actor)
	if err != nil {
		h.logger.Warn("load child for notification", "child_id", rec.ChildID, "error", err)
		return
	}
	task, err := h.taskStore.GetByID(rec.TaskID)
	if err != nil || task == nil {
		h.logger.Warn("load task for notification", "task_id", rec.TaskID, "error", err)
		return
	}
	go h.notifier.RecordLogged(actor.FamilyID, child.Name, task.Name)
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	records, err := h.service.ListRecords(r.Context(), childID, queryInt(r, "limit", 0), actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "list records", err)
		return
	}
	if records == nil {
		records = []model.TaskRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Confirm credits a pending record. Confirming twice answers 200 with
// already_confirmed set.
func (h *RecordHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := withRetry(r.Context(), func(ctx context.Context) (*tracker.Result, error) {
		return h.service.ConfirmCompletion(ctx, id, actor)
	})
	if err != nil {
		writeError(w, h.logger, "confirm completion", err)
		return
	}

	if !res.AlreadyConfirmed {
		h.announce(actor.FamilyID, "confirmed", res)
		go h.notifier.Confirmed(res.ChildID, res.PointsAwarded, res.StreakMessage, res.BadgesEarned)
	}
	writeJSON(w, http.StatusOK, res)
}

type editRequest struct {
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Edit moves a record to another task or completion time, reversing and
// reapplying its credit when it was confirmed.
func (h *RecordHandler) Edit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := withRetry(r.Context(), func(ctx context.Context) (*tracker.Result, error) {
		return h.service.EditConfirmedRecord(ctx, id, req.TaskID, req.CompletedAt, actor)
	})
	if err != nil {
		writeError(w, h.logger, "edit record", err)
		return
	}
	h.announce(actor.FamilyID, "updated", res)
	writeJSON(w, http.StatusOK, res)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := withRetry(r.Context(), func(ctx context.Context) (*tracker.DeleteResult, error) {
		return h.service.DeleteRecord(ctx, id, actor)
	})
	if err != nil {
		writeError(w, h.logger, "delete record", err)
		return
	}
	h.broadcast.send(actor.FamilyID, websocket.NewMessage("record", "deleted", id, map[string]any{
		"child_id": res.ChildID, "new_points": res.NewPoints,
	}))
	writeJSON(w, http.StatusOK, res)
}

// announce pushes a record change and any badges it granted to the family's
// open dashboards.
func (h *RecordHandler) announce(familyID int64, action string, res *tracker.Result) {
	h.broadcast.send(familyID, websocket.NewMessage("record", action, res.RecordID, map[string]any{
		"child_id":   res.ChildID,
		"task_id":    res.TaskID,
		"new_points": res.NewPoints,
		"streak":     res.Streak.CurrentStreak,
	}))
	for _, g := range res.BadgesEarned {
		h.broadcast.send(familyID, websocket.NewMessage("badge", "earned", g.BadgeID, map[string]any{
			"child_id": res.ChildID, "name": g.Name, "level": g.Level,
		}))
	}
}

func (h *RecordHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	views, err := h.service.ListStreaks(r.Context(), childID, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "list streaks", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *RecordHandler) StreakStatus(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	taskID, err := parsePathID(r, "taskID")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid task id")
		return
	}
	st, err := h.service.GetStreakStatus(r.Context(), childID, taskID, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "get streak", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TaskID int64 `json:"task_id"`
		streak.Status
	}{taskID, st})
}

func (h *RecordHandler) EarnedBadges(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	earned, err := h.service.ListEarnedBadges(r.Context(), childID, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "list badges", err)
		return
	}
	if earned == nil {
		earned = []model.EarnedBadge{}
	}
	writeJSON(w, http.StatusOK, earned)
}

// ClosestBadges ranks unearned badges by progress. ?limit defaults to 3.
func (h *RecordHandler) ClosestBadges(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	limit := queryInt(r, "limit", defaultClosestLimit)
	if limit <= 0 {
		limit = defaultClosestLimit
	}
	progress, err := h.service.GetClosestBadges(r.Context(), childID, limit, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "closest badges", err)
		return
	}
	if progress == nil {
		progress = []badge.Progress{}
	}
	writeJSON(w, http.StatusOK, progress)
}

type redeemRequest struct {
	RewardID int64 `json:"reward_id"`
}

func (h *RecordHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := withRetry(r.Context(), func(ctx context.Context) (*tracker.RedeemResult, error) {
		return h.service.Redeem(ctx, childID, req.RewardID, actor)
	})
	if err != nil {
		writeError(w, h.logger, "redeem reward", err)
		return
	}
	h.broadcast.send(actor.FamilyID, websocket.NewMessage("redemption", "created", res.Record.ID, map[string]any{
		"child_id": childID, "new_points": res.NewPoints,
	}))
	writeJSON(w, http.StatusCreated, res)
}

func (h *RecordHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	recs, err := h.service.ListRedemptions(r.Context(), childID, actorFrom(r))
	if err != nil {
		writeError(w, h.logger, "list redemptions", err)
		return
	}
	if recs == nil {
		recs = []model.RewardRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RecordHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := withRetry(r.Context(), func(ctx context.Context) (*model.RewardRecord, error) {
		return h.service.Fulfill(ctx, id, actor)
	})
	if err != nil {
		writeError(w, h.logger, "fulfill reward", err)
		return
	}
	h.broadcast.send(actor.FamilyID, websocket.NewMessage("redemption", "fulfilled", rec.ID, nil))
	writeJSON(w, http.StatusOK, rec)
}
