package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"harvest-engine/internal/dedup"
	"harvest-engine/internal/events"
	"harvest-engine/internal/extract"
	"harvest-engine/internal/pool"
	"harvest-engine/internal/rank"
	"harvest-engine/internal/strategy"
)

type Options struct {
	TargetPerRun  int     // posts to aim for before stopping
	PassThreshold float64 // minimum value score to accept
	MaxAttempts   int     // hard ceiling on fetch iterations
	FetchRetries  int     // transient-error retries per batch
	RetryBackoff  time.Duration
	AcquireWait   time.Duration // 0 means single non-blocking acquire
}

// Runner drives one collection run: acquire an account, loop
// fetch/process batches under strategy control, release the account no
// matter how the run ends.
type Runner struct {
	Pool      *pool.Pool
	Dedup     *dedup.Deduplicator
	Scorer    rank.Scorer
	Optimizer strategy.Optimizer
	Fetcher   Fetcher
	Sink      Sink
	Hub       *events.Hub
	Limiter   *rate.Limiter
	Opts      Options
}

func (r *Runner) Run(ctx context.Context, runID string, t Target) (Result, error) {
	res := Result{RunID: runID, Target: t.String(), State: StateAcquiring}
	r.publish(events.TypeRunStarted, res)
	log.Printf("[pipeline] run %s: acquiring account for %s", runID, t)

	acct, err := r.acquire(ctx)
	if err != nil {
		res.State = StateFailed
		res.Err = err.Error()
		r.publish(events.TypeRunFinished, res)
		return res, err
	}
	res.AccountID = acct.ID
	log.Printf("[pipeline] run %s: using account %s", runID, acct.ID)

	variants := r.queryVariants(t)
	start := time.Now()
	successfulBatches := 0

	finish := func(state State, success bool, runErr error) (Result, error) {
		res.State = state
		if runErr != nil {
			res.Err = runErr.Error()
		}
		if mins := time.Since(start).Minutes(); mins > 0 {
			res.RatePerMin = float64(res.Collected) / mins
		}
		if err := r.Pool.Release(acct.ID, success); err != nil {
			log.Printf("[pipeline] run %s: release %s: %v", runID, acct.ID, err)
		}
		r.publish(events.TypeRunFinished, res)
		r.publish(events.TypePoolChanged, r.Pool.Stats())
		log.Printf("[pipeline] run %s: %s collected=%d dup=%d invalid=%d attempts=%d",
			runID, state, res.Collected, res.Duplicates, res.Invalid, res.Attempts)
		return res, runErr
	}

	for {
		// Cancellation is only honored between batches.
		select {
		case <-ctx.Done():
			return finish(StateCancelled, successfulBatches > 0, nil)
		default:
		}

		params := r.Optimizer.NextStrategy(res.Collected, r.Opts.TargetPerRun, res.Attempts)
		if !params.Continue ||
			res.Attempts >= r.Opts.MaxAttempts ||
			(r.Opts.TargetPerRun > 0 && res.Collected >= r.Opts.TargetPerRun) {
			return finish(StateCompleted, true, nil)
		}

		res.State = StateFetching
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return finish(StateCancelled, successfulBatches > 0, nil)
			}
		}

		query := variants[res.Batches%len(variants)]
		batch, err := r.fetchWithRetry(ctx, acct, t, query, params)
		res.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				return finish(StateCancelled, successfulBatches > 0, nil)
			}
			return finish(StateFailed, false, err)
		}
		res.Batches++

		res.State = StateProcess
		r.processBatch(batch, runID, &res)
		successfulBatches++
	}
}

func (r *Runner) acquire(ctx context.Context) (pool.View, error) {
	if r.Opts.AcquireWait <= 0 {
		if v, ok := r.Pool.Acquire(); ok {
			return v, nil
		}
		return pool.View{}, ErrResourceExhausted
	}
	v, err := r.Pool.WaitForAvailable(ctx, r.Opts.AcquireWait)
	if err != nil {
		if ctx.Err() != nil {
			return pool.View{}, ctx.Err()
		}
		return pool.View{}, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}
	return v, nil
}

func (r *Runner) queryVariants(t Target) []string {
	if t.Kind == TargetKeyword {
		if vs := r.Optimizer.ExpandQuery(t.Value); len(vs) > 0 {
			return vs
		}
	}
	return []string{t.Value}
}

func (r *Runner) fetchWithRetry(ctx context.Context, acct pool.View, t Target, query string, params strategy.Params) ([]extract.RawCandidate, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Opts.FetchRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * r.Opts.RetryBackoff
			log.Printf("[pipeline] fetch retry %d for %s in %s: %v", attempt, t, backoff, lastErr)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		batch, err := r.Fetcher.FetchBatch(ctx, acct, t, query, params)
		if err == nil {
			return batch, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch retries exhausted: %w", lastErr)
}

func (r *Runner) processBatch(batch []extract.RawCandidate, runID string, res *Result) {
	for _, raw := range batch {
		p, err := extract.Post(raw)
		if err != nil {
			res.Invalid++
			continue
		}

		if verdict := r.Dedup.Evaluate(p); verdict.Duplicate {
			res.Duplicates++
			continue
		}

		score, tags := r.Scorer.Score(p)
		p.ValueScore = score
		if score < r.Opts.PassThreshold {
			res.Rejected++
			continue
		}

		added, err := r.Sink.Accept(p, tags, runID)
		if err != nil {
			log.Printf("[pipeline] run %s: sink: %v", runID, err)
			continue
		}
		if added {
			res.Collected++
			r.publish(events.TypePostAccepted, map[string]any{
				"run_id": runID,
				"link":   p.Link,
				"author": p.Author,
				"score":  p.ValueScore,
			})
		} else {
			// already in storage from an earlier run
			res.Duplicates++
		}
	}
}

func (r *Runner) publish(typ string, data any) {
	if r.Hub == nil {
		return
	}
	r.Hub.Publish(events.MakeEvent("", typ, 1, data))
}
