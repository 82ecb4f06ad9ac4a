package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"harvest-engine/internal/store"
)

// runTimeout bounds a single run end to end.
const runTimeout = 15 * time.Minute

// Manager executes collection runs for many targets concurrently, each
// run on its own worker account, and tracks live status.
type Manager struct {
	Runner        *Runner
	DB            *sql.DB
	MaxConcurrent int

	mu      sync.Mutex
	seq     int
	active  map[string]*activeRun
	history []Result
}

type activeRun struct {
	result Result
	cancel context.CancelFunc
}

func NewManager(runner *Runner, db *sql.DB, maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Manager{
		Runner:        runner,
		DB:            db,
		MaxConcurrent: maxConcurrent,
		active:        make(map[string]*activeRun),
	}
}

// CollectOnce runs the full target list, at most MaxConcurrent runs in
// flight. One failed target does not stop the others.
func (m *Manager) CollectOnce(ctx context.Context, targets []Target) (collected int, err error) {
	if len(targets) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	g.SetLimit(m.MaxConcurrent)

	var mu sync.Mutex
	total := 0

	for _, t := range targets {
		t := t
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			res, err := m.RunOne(rctx, cancel, t)
			if err != nil {
				log.Printf("[manager] target %s: %v", t, err)
				return nil
			}
			mu.Lock()
			total += res.Collected
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return total, nil
}

// RunOne executes a single run and records it in the runs table and the
// in-memory history.
func (m *Manager) RunOne(ctx context.Context, cancel context.CancelFunc, t Target) (Result, error) {
	runID := m.nextRunID()

	m.mu.Lock()
	m.active[runID] = &activeRun{
		result: Result{RunID: runID, Target: t.String(), State: StateAcquiring},
		cancel: cancel,
	}
	m.mu.Unlock()

	if m.DB != nil {
		if err := store.InsertRun(m.DB, store.RunRow{
			ID:        runID,
			Target:    t.String(),
			State:     string(StateAcquiring),
			StartedAt: store.NowStamp(),
		}); err != nil {
			log.Printf("[manager] record run %s: %v", runID, err)
		}
	}

	res, err := m.Runner.Run(ctx, runID, t)

	m.mu.Lock()
	delete(m.active, runID)
	m.history = append(m.history, res)
	if len(m.history) > 50 {
		m.history = m.history[len(m.history)-50:]
	}
	m.mu.Unlock()

	if m.DB != nil {
		if ferr := store.FinishRun(m.DB, store.RunRow{
			ID:         runID,
			AccountID:  res.AccountID,
			State:      string(res.State),
			Collected:  res.Collected,
			Duplicates: res.Duplicates,
			Invalid:    res.Invalid,
			Batches:    res.Batches,
			FinishedAt: store.NowStamp(),
			Error:      res.Err,
		}); ferr != nil {
			log.Printf("[manager] finish run %s: %v", runID, ferr)
		}
	}

	return res, err
}

// Cancel stops one active run; the run winds down at its next batch
// boundary.
func (m *Manager) Cancel(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.active[runID]; ok {
		r.cancel()
		return true
	}
	return false
}

func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.active {
		r.cancel()
		n++
	}
	return n
}

type ManagerStatus struct {
	ActiveRuns []Result `json:"active_runs"`
	Recent     []Result `json:"recent"`
}

func (m *Manager) Status() ManagerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var st ManagerStatus
	for id := range m.active {
		st.ActiveRuns = append(st.ActiveRuns, m.active[id].result)
	}
	// newest first
	for i := len(m.history) - 1; i >= 0; i-- {
		st.Recent = append(st.Recent, m.history[i])
		if len(st.Recent) >= 10 {
			break
		}
	}
	return st
}

func (m *Manager) nextRunID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("run-%s-%04d", time.Now().UTC().Format("20060102T150405"), m.seq)
}
