package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"harvest-engine/internal/dedup"
	"harvest-engine/internal/store"
)

type PostsHandler struct {
	DB    *sql.DB
	Dedup *dedup.Deduplicator
}

func (h PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	posts, err := store.ListPosts(r.Context(), h.DB, store.ListPostsOpts{
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Window: q.Get("window"),
		Source: q.Get("source"),
		Limit:  limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if posts == nil {
		posts = []store.PostRow{}
	}
	writeJSON(w, posts)
}

func (h PostsHandler) DedupStats(w http.ResponseWriter, r *http.Request) {
	st := h.Dedup.Stats()
	writeJSON(w, map[string]any{
		"stats": st,
		"rate":  st.Rate(),
	})
}
