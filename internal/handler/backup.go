package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ShiShiBits1/GrowthQuest/internal/backup"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
)

// BackupHandler lets a parent run, list, and download encrypted snapshots.
// Restoring is left to the admin CLI since it needs file system access.
type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups?limit=N
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.manager.List(queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, "list backups", err)
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// RunNow handles POST /api/backups. It waits for the upload to finish.
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context())
	if err != nil {
		writeError(w, h.logger, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Download handles GET /api/backups/{id}/download. The body is the sealed
// snapshot; it is decrypted only on restore.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "download backup", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"growthquest-backup-%d.db.enc\"", id))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "backup_id", id, "error", err)
	}
}
