package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type RunRow struct {
	ID         string `json:"id"`
	Target     string `json:"target"`
	AccountID  string `json:"accountId"`
	State      string `json:"state"`
	Collected  int    `json:"collected"`
	Duplicates int    `json:"duplicates"`
	Invalid    int    `json:"invalid"`
	Batches    int    `json:"batches"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
	Error      string `json:"error"`
}

func InsertRun(db *sql.DB, r RunRow) error {
	_, err := db.Exec(`
INSERT INTO runs (id, target, account_id, state, collected, duplicates, invalid, batches, started_at, finished_at, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		r.ID, r.Target, r.AccountID, r.State, r.Collected, r.Duplicates,
		r.Invalid, r.Batches, r.StartedAt, r.FinishedAt, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func FinishRun(db *sql.DB, r RunRow) error {
	_, err := db.Exec(`
UPDATE runs
SET account_id = ?, state = ?, collected = ?, duplicates = ?, invalid = ?,
    batches = ?, finished_at = ?, error = ?
WHERE id = ?;`,
		r.AccountID, r.State, r.Collected, r.Duplicates, r.Invalid,
		r.Batches, r.FinishedAt, r.Error, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]RunRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, target, account_id, state, collected, duplicates, invalid, batches, started_at, finished_at, error
FROM runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(
			&r.ID, &r.Target, &r.AccountID, &r.State, &r.Collected,
			&r.Duplicates, &r.Invalid, &r.Batches, &r.StartedAt,
			&r.FinishedAt, &r.Error,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func NowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
