package httpapi

import (
	"encoding/json"
	"net/http"

	"harvest-engine/internal/secrets"
)

type SecretsHandler struct{}

type setBrowserTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetBrowserToken(w http.ResponseWriter, r *http.Request) {
	var req setBrowserTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := secrets.SetBrowserToken(req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteBrowserToken(w http.ResponseWriter, r *http.Request) {
	if err := secrets.DeleteBrowserToken(); err != nil {
		http.Error(w, "failed to delete token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
