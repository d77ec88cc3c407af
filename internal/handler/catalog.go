package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
	"github.com/ShiShiBits1/GrowthQuest/internal/websocket"
)

// CatalogHandler serves the shared catalog: task categories, tasks, the badges
// attached to each task, and rewards. Anyone signed in can read it; only
// parents change it.
type CatalogHandler struct {
	taskStore   *store.TaskStore
	badgeStore  *store.BadgeStore
	rewardStore *store.RewardStore
	service     *tracker.Service
	broadcast   broadcaster
	logger      *slog.Logger
}

func NewCatalogHandler(ts *store.TaskStore, bs *store.BadgeStore, rs *store.RewardStore, svc *tracker.Service, hub *websocket.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		taskStore:   ts,
		badgeStore:  bs,
		rewardStore: rs,
		service:     svc,
		broadcast:   broadcaster{hub},
		logger:      logger,
	}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.taskStore.ListCategories()
	if err != nil {
		writeError(w, h.logger, "list categories", err)
		return
	}
	if cats == nil {
		cats = []model.TaskCategory{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	cat, err := h.taskStore.CreateCategory(req.Name, req.Description)
	if err != nil {
		if database.IsUniqueViolation(err) {
			writeMessage(w, http.StatusConflict, "category already exists")
			return
		}
		writeError(w, h.logger, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

type taskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	CategoryID  int64  `json:"category_id"`
	IsActive    *bool  `json:"is_active"`
}

// validateTask trims the request and checks the fields a task needs. The category
// must exist.
func (h *CatalogHandler) validateTask(req *taskRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required", nil
	}
	if req.Points < 0 {
		return "points must be >= 0", nil
	}
	cat, err := h.taskStore.GetCategoryByID(req.CategoryID)
	if err != nil {
		return "", err
	}
	if cat == nil {
		return "category not found", nil
	}
	return "", nil
}

// ListTasks returns every task, or only active ones with ?active=true.
func (h *CatalogHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []model.Task
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		tasks, err = h.taskStore.ListActive()
	} else {
		tasks, err = h.taskStore.List()
	}
	if err != nil {
		writeError(w, h.logger, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *CatalogHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, "get task", err)
		return
	}
	if task == nil {
		writeMessage(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *CatalogHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	msg, err := h.validateTask(&req)
	if err != nil {
		writeError(w, h.logger, "create task", err)
		return
	}
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	active := req.IsActive == nil || *req.IsActive

	task, err := h.taskStore.Create(req.Name, req.Description, req.Points, req.CategoryID, active)
	if err != nil {
		writeError(w, h.logger, "create task", err)
		return
	}
	h.broadcast.send(actorFrom(r).FamilyID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask replaces a task's fields. Points already credited for confirmed
// records are not touched.
func (h *CatalogHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, "update task", err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	msg, err := h.validateTask(&req)
	if err != nil {
		writeError(w, h.logger, "update task", err)
		return
	}
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	task, err := h.taskStore.Update(id, req.Name, req.Description, req.Points, req.CategoryID, active)
	if err != nil {
		writeError(w, h.logger, "update task", err)
		return
	}
	h.broadcast.send(actorFrom(r).FamilyID, websocket.NewMessage("task", "updated", task.ID, nil))
	writeJSON(w, http.StatusOK, task)
}

type badgeRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Icon                string `json:"icon"`
	DaysRequired        int    `json:"days_required"`
	CompletionsRequired int    `json:"completions_required"`
	Level               string `json:"level"`
	PointsReward        *int   `json:"points_reward"`
}

func validBadgeLevel(level string) bool {
	switch level {
	case model.BadgeLevelBronze, model.BadgeLevelSilver, model.BadgeLevelGold, model.BadgeLevelGraduate:
		return true
	}
	return false
}

// loadTask resolves the {id} path value to a task, writing the error response
// itself when it cannot.
func (h *CatalogHandler) loadTask(w http.ResponseWriter, r *http.Request, op string) *model.Task {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, op, err)
		return nil
	}
	if task == nil {
		writeMessage(w, http.StatusNotFound, "task not found")
		return nil
	}
	return task
}

func (h *CatalogHandler) ListTaskBadges(w http.ResponseWriter, r *http.Request) {
	task := h.loadTask(w, r, "list badges")
	if task == nil {
		return
	}
	badges, err := h.badgeStore.ListByTask(task.ID)
	if err != nil {
		writeError(w, h.logger, "list badges", err)
		return
	}
	if badges == nil {
		badges = []model.Badge{}
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *CatalogHandler) CreateBadge(w http.ResponseWriter, r *http.Request) {
	task := h.loadTask(w, r, "create badge")
	if task == nil {
		return
	}

	var req badgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.DaysRequired < 0 || req.CompletionsRequired < 0 || (req.DaysRequired == 0 && req.CompletionsRequired == 0) {
		writeMessage(w, http.StatusBadRequest, "days_required or completions_required must be positive")
		return
	}
	if req.Level == "" {
		req.Level = model.BadgeLevelBronze
	}
	if !validBadgeLevel(req.Level) {
		writeMessage(w, http.StatusBadRequest, "level must be bronze, silver, gold, or graduate")
		return
	}
	bonus := 10
	if req.PointsReward != nil {
		bonus = *req.PointsReward
	}
	if bonus < 0 {
		writeMessage(w, http.StatusBadRequest, "points_reward must be >= 0")
		return
	}

	b, err := h.badgeStore.Create(model.Badge{
		Name:                req.Name,
		Description:         req.Description,
		Icon:                req.Icon,
		TaskID:              task.ID,
		DaysRequired:        req.DaysRequired,
		CompletionsRequired: req.CompletionsRequired,
		Level:               req.Level,
		PointsReward:        bonus,
	})
	if err != nil {
		writeError(w, h.logger, "create badge", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// DeleteBadge removes a badge definition. Children who earned it lose the
// grant row with it; their points are kept.
func (h *CatalogHandler) DeleteBadge(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "badgeID")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := h.badgeStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, "delete badge", err)
		return
	}
	if b == nil {
		writeMessage(w, http.StatusNotFound, "badge not found")
		return
	}
	if err := h.badgeStore.Delete(id); err != nil {
		writeError(w, h.logger, "delete badge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SeedBadges adds the bronze to graduate streak badges to a task.
func (h *CatalogHandler) SeedBadges(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	created, err := withRetry(r.Context(), func(ctx context.Context) ([]model.Badge, error) {
		return h.service.SeedCatalog(ctx, id, actorFrom(r))
	})
	if err != nil {
		writeError(w, h.logger, "seed badges", err)
		return
	}
	if created == nil {
		created = []model.Badge{}
	}
	writeJSON(w, http.StatusCreated, created)
}

type rewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Level       string `json:"level"`
	IsActive    *bool  `json:"is_active"`
}

func (req *rewardRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Cost < 0 {
		return "cost must be >= 0"
	}
	if req.Level == "" {
		req.Level = model.RewardLevelSmall
	}
	if !model.ValidRewardLevel(req.Level) {
		return "unknown reward level"
	}
	return ""
}

// ListRewards returns all rewards to parents and only active ones to children.
func (h *CatalogHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewardStore.List()
	if err != nil {
		writeError(w, h.logger, "list rewards", err)
		return
	}
	out := make([]model.Reward, 0, len(rewards))
	parent := actorFrom(r).IsParent()
	for _, rw := range rewards {
		if parent || rw.IsActive {
			out = append(out, rw)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	active := req.IsActive == nil || *req.IsActive

	reward, err := h.rewardStore.Create(req.Name, req.Description, req.Cost, req.Level, active)
	if err != nil {
		writeError(w, h.logger, "create reward", err)
		return
	}
	h.broadcast.send(actorFrom(r).FamilyID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *CatalogHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.rewardStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, "update reward", err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "reward not found")
		return
	}

	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	reward, err := h.rewardStore.Update(id, req.Name, req.Description, req.Cost, req.Level, active)
	if err != nil {
		writeError(w, h.logger, "update reward", err)
		return
	}
	h.broadcast.send(actorFrom(r).FamilyID, websocket.NewMessage("reward", "updated", reward.ID, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *CatalogHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.rewardStore.Delete(id); err != nil {
		writeError(w, h.logger, "delete reward", err)
		return
	}
	h.broadcast.send(actorFrom(r).FamilyID, websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
