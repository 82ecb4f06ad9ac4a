package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"harvest-engine/internal/events"
	"harvest-engine/internal/pool"
)

type AccountsHandler struct {
	Pool *pool.Pool
	Hub  *events.Hub
}

func (h AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"accounts": h.Pool.Snapshot(),
		"stats":    h.Pool.Stats(),
	})
}

// Action dispatches /accounts/{id}/{action}.
func (h AccountsHandler) Action(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		WriteError(w, r, http.StatusNotFound, "not_found", "expected /accounts/{id}/{action}")
		return
	}
	id, action := parts[0], parts[1]

	var err error
	switch action {
	case "disable":
		err = h.Pool.Disable(id)
	case "enable":
		err = h.Pool.Enable(id)
	case "reset-errors":
		err = h.Pool.ResetErrors(id)
	case "priority":
		var req struct {
			Priority int `json:"priority"`
		}
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", derr.Error())
			return
		}
		err = h.Pool.SetPriority(id, req.Priority)
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown action "+action)
		return
	}

	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, pool.ErrUnknownID) {
			status = http.StatusNotFound
		}
		WriteError(w, r, status, "account_action_failed", err.Error())
		return
	}

	h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypePoolChanged, 1, h.Pool.Stats()))
	writeJSON(w, map[string]any{"ok": true})
}
