package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/websocket"
)

const (
	conflictRetries = 3
	conflictBackoff = 25 * time.Millisecond
)

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathID(r, "id")
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// queryInt reads an integer query parameter, returning def when it is absent
// or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps an apperr kind to its HTTP status. Anything unclassified is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, apperr.NotFound):
		writeMessage(w, http.StatusNotFound, apperr.Message(err))
	case errors.Is(err, apperr.Forbidden):
		writeMessage(w, http.StatusForbidden, apperr.Message(err))
	case errors.Is(err, apperr.Validation):
		writeMessage(w, http.StatusBadRequest, apperr.Message(err))
	case errors.Is(err, apperr.Conflict):
		writeMessage(w, http.StatusConflict, apperr.Message(err))
	default:
		logger.Error(op, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func actorFrom(r *http.Request) auth.Actor {
	a, _ := auth.FromContext(r.Context())
	return a
}

// withRetry runs fn again when it fails with a Conflict, which the ledger
// reports when SQLite is busy.
func withRetry[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	b := retry.WithMaxRetries(conflictRetries, retry.NewExponential(conflictBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := fn(ctx)
		if errors.Is(err, apperr.Conflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// broadcaster sends live updates to a family. A nil hub sends nothing.
type broadcaster struct {
	hub *websocket.Hub
}

func (b broadcaster) send(familyID int64, msg websocket.Message) {
	if b.hub != nil && familyID != 0 {
		b.hub.Broadcast(familyID, msg)
	}
}
