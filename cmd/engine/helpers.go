package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"harvest-engine/internal/config"
	"harvest-engine/internal/domain"
	"harvest-engine/internal/httpapi"
	"harvest-engine/internal/store"
)

// dbSink writes accepted posts to sqlite.
type dbSink struct {
	db *sql.DB
}

func (s *dbSink) Accept(p domain.Post, tags []string, runID string) (bool, error) {
	return store.InsertPostIfNew(s.db, p, tags, runID)
}

// scheduledCollect runs one sweep unless a manually triggered one is
// still in flight, keeping the same status record the API reads.
func scheduledCollect(ctx context.Context, cfgVal *atomic.Value, statusVal *atomic.Value,
	run func(ctx context.Context, cfg config.Config) (int, error)) error {

	st := statusVal.Load().(httpapi.CollectStatus)
	if st.Running {
		return nil
	}

	statusVal.Store(httpapi.CollectStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	cfg := cfgVal.Load().(config.Config)
	added, err := run(ctx, cfg)

	now := time.Now().Format(time.RFC3339)
	next := statusVal.Load().(httpapi.CollectStatus)
	next.Running = false
	next.LastRunAt = now
	next.LastAdded = added
	if err != nil {
		next.LastError = err.Error()
	} else {
		next.LastError = ""
		next.LastOkAt = now
	}
	statusVal.Store(next)

	if added > 0 {
		log.Printf("[collect] sweep added %d posts", added)
	}
	return err
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownHandler(token *string, srv *http.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Local-only guard (covers typical desktop usage)
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Respond immediately, then shutdown asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
