package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"harvest-engine/internal/config"
	"harvest-engine/internal/events"
	"harvest-engine/internal/pipeline"
	"harvest-engine/internal/store"
)

type RunsHandler struct {
	DB            *sql.DB
	CfgVal        *atomic.Value // config.Config
	CollectStatus *atomic.Value // httpapi.CollectStatus
	Hub           *events.Hub
	Manager       *pipeline.Manager
	RunCollect    func(ctx context.Context, cfg config.Config) (added int, err error)
}

func (h RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.CollectStatus.Load().(CollectStatus)
	writeJSON(w, map[string]any{
		"collect": st,
		"runs":    h.Manager.Status(),
	})
}

func (h RunsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := store.ListRuns(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if rows == nil {
		rows = []store.RunRow{}
	}
	writeJSON(w, rows)
}

// Trigger starts a full collection sweep in the background. A sweep
// already in flight is not restarted.
func (h RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	st := h.CollectStatus.Load().(CollectStatus)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	h.CollectStatus.Store(CollectStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		cfg := h.CfgVal.Load().(config.Config)
		added, err := h.RunCollect(context.Background(), cfg)

		now := time.Now().Format(time.RFC3339)
		next := h.CollectStatus.Load().(CollectStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastAdded = added
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.CollectStatus.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}

// Cancel stops one active run: POST /runs/cancel/{id}.
func (h RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/cancel/"), "/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_id", "expected /runs/cancel/{id}")
		return
	}
	if !h.Manager.Cancel(id) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no active run "+id)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}
