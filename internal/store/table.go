package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type PostRow struct {
	ID         int64    `json:"id"`
	Link       string   `json:"link"`
	Author     string   `json:"author"`
	Verified   bool     `json:"verified"`
	Text       string   `json:"text"`
	PostedAt   string   `json:"postedAt"`
	Likes      int      `json:"likes"`
	Reposts    int      `json:"reposts"`
	Replies    int      `json:"replies"`
	Views      int      `json:"views"`
	MediaCount int      `json:"mediaCount"`
	Hashtags   []string `json:"hashtags"`
	Score      float64  `json:"score"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source"`
	RunID      string   `json:"runId"`
	AddedAt    string   `json:"addedAt"`
}

type ListPostsOpts struct {
	Sort   string // score | posted | author | engagement
	Order  string // asc | desc
	Window string // 24h | 7d | all
	Source string
	Limit  int
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS posts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  link TEXT NOT NULL,
  author TEXT NOT NULL,
  verified INTEGER NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  posted_at TEXT NOT NULL DEFAULT '',
  likes INTEGER NOT NULL DEFAULT 0,
  reposts INTEGER NOT NULL DEFAULT 0,
  replies INTEGER NOT NULL DEFAULT 0,
  views INTEGER NOT NULL DEFAULT 0,
  media_count INTEGER NOT NULL DEFAULT 0,
  hashtags TEXT NOT NULL DEFAULT '[]',
  score REAL NOT NULL DEFAULT 0,
  tags TEXT NOT NULL DEFAULT '[]',
  source TEXT NOT NULL DEFAULT '',
  run_id TEXT NOT NULL DEFAULT '',
  added_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  target TEXT NOT NULL,
  account_id TEXT NOT NULL,
  state TEXT NOT NULL,
  collected INTEGER NOT NULL DEFAULT 0,
  duplicates INTEGER NOT NULL DEFAULT 0,
  invalid INTEGER NOT NULL DEFAULT 0,
  batches INTEGER NOT NULL DEFAULT 0,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_link
ON posts(link)
WHERE link != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_posts_posted_at
ON posts(posted_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_posts_source
ON posts(source);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func ListPosts(ctx context.Context, db *sql.DB, opts ListPostsOpts) ([]PostRow, error) {
	if opts.Sort == "" {
		opts.Sort = "score"
	}
	if opts.Window == "" {
		opts.Window = "7d"
	}
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 500
	}

	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"score":      "score",
		"posted":     "posted_at",
		"author":     "author",
		"engagement": "likes + reposts + replies",
	}[opts.Sort]
	if sortCol == "" {
		sortCol = "score"
	}
	switch opts.Order {
	case "asc", "desc":
	default:
		if opts.Sort == "author" {
			opts.Order = "asc"
		} else {
			opts.Order = "desc"
		}
	}

	where := ""
	args := []any{}
	switch opts.Window {
	case "24h":
		where = "WHERE added_at >= datetime('now','-24 hours')"
	case "all":
	default:
		where = "WHERE added_at >= datetime('now','-7 days')"
	}
	if opts.Source != "" {
		if where == "" {
			where = "WHERE source = ?"
		} else {
			where += " AND source = ?"
		}
		args = append(args, opts.Source)
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT id, link, author, verified, text, posted_at, likes, reposts, replies,
       views, media_count, hashtags, score, tags, source, run_id, added_at
FROM posts
%s
ORDER BY %s %s
LIMIT ?;
`, where, sortCol, opts.Order)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		var r PostRow
		var verified int
		var hashtagsJSON, tagsJSON string
		if err := rows.Scan(
			&r.ID, &r.Link, &r.Author, &verified, &r.Text, &r.PostedAt,
			&r.Likes, &r.Reposts, &r.Replies, &r.Views, &r.MediaCount,
			&hashtagsJSON, &r.Score, &tagsJSON, &r.Source, &r.RunID, &r.AddedAt,
		); err != nil {
			return nil, err
		}
		r.Verified = verified != 0
		_ = json.Unmarshal([]byte(hashtagsJSON), &r.Hashtags)
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func CleanupOldPosts(db *sql.DB, olderThan time.Duration) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM posts
WHERE added_at < datetime('now', ?);
`, fmt.Sprintf("-%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("cleanup old posts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
