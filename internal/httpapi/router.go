package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Worker accounts
	ah := AccountsHandler{Pool: d.Pool, Hub: d.Hub}
	mux.HandleFunc("/accounts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.List,
	}))
	mux.HandleFunc("/accounts/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Action, // /accounts/{id}/{disable|enable|reset-errors|priority}
	}))

	// Collected posts
	ph := PostsHandler{DB: d.DB, Dedup: d.Dedup}
	mux.HandleFunc("/posts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))
	mux.HandleFunc("/posts/dedup", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.DedupStats,
	}))

	// Collection runs
	rh := RunsHandler{
		DB:            d.DB,
		CfgVal:        d.CfgVal,
		CollectStatus: d.CollectStatus,
		Hub:           d.Hub,
		Manager:       d.Manager,
		RunCollect:    d.RunCollect,
	}
	mux.HandleFunc("/runs/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Status,
	}))
	mux.HandleFunc("/runs/history", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.History,
	}))
	mux.HandleFunc("/runs/trigger", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Trigger,
	}))
	mux.HandleFunc("/runs/cancel/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Cancel,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets
	sh := SecretsHandler{}
	mux.HandleFunc("/api/secrets/browser", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetBrowserToken,
		http.MethodDelete: sh.DeleteBrowserToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
