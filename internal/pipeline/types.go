package pipeline

import (
	"context"

	"harvest-engine/internal/domain"
	"harvest-engine/internal/extract"
	"harvest-engine/internal/pool"
	"harvest-engine/internal/strategy"
)

type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateFetching  State = "fetching"
	StateProcess   State = "processing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

type TargetKind string

const (
	TargetProfile TargetKind = "profile"
	TargetKeyword TargetKind = "keyword"
)

type Target struct {
	Kind  TargetKind `json:"kind"`
	Value string     `json:"value"`
}

func (t Target) String() string { return string(t.Kind) + ":" + t.Value }

// Fetcher is the browser-automation collaborator. FetchBatch returns raw
// candidate fragments for one scroll batch, or a *TransientFetchError /
// *StructuralFetchError.
type Fetcher interface {
	FetchBatch(ctx context.Context, account pool.View, target Target, query string, params strategy.Params) ([]extract.RawCandidate, error)
}

// Sink receives accepted posts. Added reports whether the post was new
// to durable storage.
type Sink interface {
	Accept(post domain.Post, tags []string, runID string) (added bool, err error)
}

// Result summarizes one finished run.
type Result struct {
	RunID      string  `json:"run_id"`
	Target     string  `json:"target"`
	AccountID  string  `json:"account_id"`
	State      State   `json:"state"`
	Collected  int     `json:"collected"`
	Duplicates int     `json:"duplicates"`
	Invalid    int     `json:"invalid"`
	Rejected   int     `json:"rejected"` // scored below threshold
	Batches    int     `json:"batches"`
	Attempts   int     `json:"attempts"`
	RatePerMin float64 `json:"rate_per_min"`
	Err        string  `json:"error,omitempty"`
}
