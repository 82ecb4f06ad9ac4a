package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"harvest-engine/internal/domain"
)

// InsertPostIfNew stores an accepted post, relying on the unique link
// index to swallow repeats that slipped past in-memory dedup (a restart
// clears dedup state, the database does not).
func InsertPostIfNew(db *sql.DB, p domain.Post, tags []string, runID string) (added bool, err error) {
	hashtagsB, _ := json.Marshal(orEmpty(p.Hashtags))
	tagsB, _ := json.Marshal(orEmpty(tags))

	postedAt := ""
	if !p.PostedAt.IsZero() {
		postedAt = p.PostedAt.UTC().Format(time.RFC3339)
	}

	_, err = db.Exec(`
INSERT OR IGNORE INTO posts (link, author, verified, text, posted_at, likes,
  reposts, replies, views, media_count, hashtags, score, tags, source, run_id, added_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		p.Link, p.Author, boolInt(p.Verified), p.Text, postedAt,
		p.Likes, p.Reposts, p.Replies, p.Views, p.MediaCount(),
		string(hashtagsB), p.ValueScore, string(tagsB), p.Source, runID,
		// sqlite datetime format so added_at compares against datetime('now')
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return false, fmt.Errorf("insert post: %w", err)
	}

	var changes int
	if e := db.QueryRow(`SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
