package handler

import (
	"log/slog"
	"net/http"

	"github.com/ShiShiBits1/GrowthQuest/internal/analytics"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
)

type AnalyticsHandler struct {
	reporter *analytics.Reporter
	service  *tracker.Service
	logger   *slog.Logger
}

func NewAnalyticsHandler(rep *analytics.Reporter, svc *tracker.Service, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{reporter: rep, service: svc, logger: logger}
}

// Dashboard handles GET /api/children/{id}/analytics?days=N
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, err := h.service.GetChild(r.Context(), childID, actorFrom(r)); err != nil {
		writeError(w, h.logger, "load analytics", err)
		return
	}

	d, err := h.reporter.Dashboard(r.Context(), childID, queryInt(r, "days", analytics.DefaultDays))
	if err != nil {
		writeError(w, h.logger, "load analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
