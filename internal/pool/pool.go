package pool

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"harvest-engine/internal/config"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusInUse       Status = "in_use"
	StatusCoolingDown Status = "cooling_down"
	StatusBlocked     Status = "blocked"
	StatusDisabled    Status = "disabled"
)

var (
	ErrNoneAvailable = errors.New("no worker account available")
	ErrUnknownID     = errors.New("unknown account id")
)

// waitPollInterval caps how long WaitForAvailable sleeps between probes.
const waitPollInterval = 2 * time.Second

type account struct {
	id       string
	name     string
	priority int
	quota    int

	status        Status
	cooldownUntil time.Time
	consecErrors  int
	dailyUsage    int
	totalUsage    int
	lastUsedAt    time.Time
	resetDate     string
}

// View is an immutable copy of one account's state, safe to hand out.
type View struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Priority      int       `json:"priority"`
	DailyQuota    int       `json:"daily_quota"`
	Status        Status    `json:"status"`
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
	ConsecErrors  int       `json:"consecutive_errors"`
	DailyUsage    int       `json:"daily_usage"`
	TotalUsage    int       `json:"total_usage"`
	LastUsedAt    time.Time `json:"last_used_at,omitzero"`
}

type Stats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	InUse       int `json:"in_use"`
	CoolingDown int `json:"cooling_down"`
	Blocked     int `json:"blocked"`
	Disabled    int `json:"disabled"`
	TotalUsage  int `json:"total_usage"`
}

type Options struct {
	Strategy         string // priority | round_robin | random
	StandardCooldown time.Duration
	ErrorMultiplier  float64
	BlockCooldown    time.Duration
	MaxErrorCount    int
	DefaultQuota     int
	Location         *time.Location
}

func OptionsFromConfig(cfg config.Config) Options {
	loc, err := time.LoadLocation(cfg.Pool.ResetTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Options{
		Strategy:         cfg.Pool.Strategy,
		StandardCooldown: time.Duration(cfg.Pool.StandardCooldownMinutes) * time.Minute,
		ErrorMultiplier:  cfg.Pool.ErrorCooldownMultiplier,
		BlockCooldown:    time.Duration(cfg.Pool.BlockCooldownHours) * time.Hour,
		MaxErrorCount:    cfg.Pool.MaxErrorCount,
		DefaultQuota:     cfg.Pool.DefaultDailyQuota,
		Location:         loc,
	}
}

// Pool hands browser worker accounts to collection runs, one run per
// account at a time. A single mutex serializes every scan-and-mutate so
// two callers can never hold the same account.
type Pool struct {
	mu   sync.Mutex
	opts Options
	accs []*account
	rng  *rand.Rand

	now func() time.Time // swapped in tests
}

func New(opts Options, entries []config.AccountEntry) *Pool {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxErrorCount <= 0 {
		opts.MaxErrorCount = 3
	}
	if opts.ErrorMultiplier < 1 {
		opts.ErrorMultiplier = 1
	}
	p := &Pool{
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
	for _, e := range entries {
		quota := e.DailyQuota
		if quota == 0 {
			quota = opts.DefaultQuota
		}
		p.accs = append(p.accs, &account{
			id:        e.ID,
			name:      e.Name,
			priority:  e.Priority,
			quota:     quota,
			status:    StatusAvailable,
			resetDate: dateKey(p.now().In(opts.Location)),
		})
	}
	return p
}

// Acquire returns an available account or reports none. It never blocks.
func (p *Pool) Acquire() (View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.refreshLocked(now)

	var candidates []*account
	for _, a := range p.accs {
		if a.status != StatusAvailable {
			continue
		}
		if a.quota > 0 && a.dailyUsage >= a.quota {
			// Quota exhausted; rest until the next calendar day.
			a.status = StatusCoolingDown
			a.cooldownUntil = nextMidnight(now.In(p.opts.Location))
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return View{}, false
	}

	chosen := p.selectLocked(candidates)
	chosen.status = StatusInUse
	chosen.dailyUsage++
	chosen.totalUsage++
	chosen.lastUsedAt = now
	return chosen.view(), true
}

func (p *Pool) selectLocked(candidates []*account) *account {
	switch p.opts.Strategy {
	case "random":
		return candidates[p.rng.Intn(len(candidates))]
	case "priority":
		best := candidates[0]
		for _, a := range candidates[1:] {
			if a.priority < best.priority ||
				(a.priority == best.priority && a.lastUsedAt.Before(best.lastUsedAt)) {
				best = a
			}
		}
		return best
	default: // round_robin: least recently used
		best := candidates[0]
		for _, a := range candidates[1:] {
			if a.lastUsedAt.Before(best.lastUsedAt) {
				best = a
			}
		}
		return best
	}
}

// Release returns an account after a run. Success earns the standard
// cooldown and clears the error streak. Failure lengthens the cooldown
// and, past the error budget, blocks the account for hours.
func (p *Pool) Release(id string, success bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.findLocked(id)
	if a == nil {
		return fmt.Errorf("release %q: %w", id, ErrUnknownID)
	}
	if a.status != StatusInUse {
		return fmt.Errorf("release %q: status is %s, not in_use", id, a.status)
	}

	now := p.now()
	if success {
		a.consecErrors = 0
		a.status = StatusCoolingDown
		a.cooldownUntil = now.Add(p.opts.StandardCooldown)
		return nil
	}

	a.consecErrors++
	if a.consecErrors >= p.opts.MaxErrorCount {
		a.status = StatusBlocked
		a.cooldownUntil = now.Add(p.opts.BlockCooldown)
		return nil
	}
	cooldown := time.Duration(float64(p.opts.StandardCooldown) * p.opts.ErrorMultiplier)
	a.status = StatusCoolingDown
	a.cooldownUntil = now.Add(cooldown)
	return nil
}

// WaitForAvailable retries Acquire until an account frees up, the wait
// budget runs out, or ctx is cancelled. Sleeps are sized to the nearest
// cooldown expiry so a freed account is picked up promptly.
func (p *Pool) WaitForAvailable(ctx context.Context, maxWait time.Duration) (View, error) {
	deadline := p.now().Add(maxWait)
	for {
		if v, ok := p.Acquire(); ok {
			return v, nil
		}

		now := p.now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return View{}, ErrNoneAvailable
		}

		sleep := waitPollInterval
		if next, ok := p.nextExpiry(now); ok && next < sleep {
			sleep = next
		}
		if sleep > remaining {
			sleep = remaining
		}
		if sleep < 50*time.Millisecond {
			sleep = 50 * time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return View{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Pool) nextExpiry(now time.Time) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best time.Duration
	found := false
	for _, a := range p.accs {
		if a.status != StatusCoolingDown && a.status != StatusBlocked {
			continue
		}
		d := a.cooldownUntil.Sub(now)
		if d < 0 {
			d = 0
		}
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}

func (p *Pool) Disable(id string) error {
	return p.mutate(id, func(a *account) {
		a.status = StatusDisabled
		a.cooldownUntil = time.Time{}
	})
}

func (p *Pool) Enable(id string) error {
	return p.mutate(id, func(a *account) {
		a.status = StatusAvailable
		a.consecErrors = 0
		a.cooldownUntil = time.Time{}
	})
}

func (p *Pool) ResetErrors(id string) error {
	return p.mutate(id, func(a *account) {
		a.consecErrors = 0
		if a.status == StatusBlocked {
			a.status = StatusAvailable
			a.cooldownUntil = time.Time{}
		}
	})
}

func (p *Pool) SetPriority(id string, priority int) error {
	return p.mutate(id, func(a *account) {
		a.priority = priority
	})
}

func (p *Pool) mutate(id string, fn func(*account)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.findLocked(id)
	if a == nil {
		return fmt.Errorf("account %q: %w", id, ErrUnknownID)
	}
	fn(a)
	return nil
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshLocked(p.now())
	var s Stats
	s.Total = len(p.accs)
	for _, a := range p.accs {
		s.TotalUsage += a.totalUsage
		switch a.status {
		case StatusAvailable:
			s.Available++
		case StatusInUse:
			s.InUse++
		case StatusCoolingDown:
			s.CoolingDown++
		case StatusBlocked:
			s.Blocked++
		case StatusDisabled:
			s.Disabled++
		}
	}
	return s
}

func (p *Pool) Snapshot() []View {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshLocked(p.now())
	out := make([]View, 0, len(p.accs))
	for _, a := range p.accs {
		out = append(out, a.view())
	}
	return out
}

// refreshLocked wakes accounts whose cooldown expired and resets daily
// usage when the calendar day changed in the configured zone.
func (p *Pool) refreshLocked(now time.Time) {
	today := dateKey(now.In(p.opts.Location))
	for _, a := range p.accs {
		if a.resetDate != today {
			a.dailyUsage = 0
			a.resetDate = today
		}
		if (a.status == StatusCoolingDown || a.status == StatusBlocked) &&
			!now.Before(a.cooldownUntil) {
			a.status = StatusAvailable
			a.cooldownUntil = time.Time{}
		}
	}
}

func (p *Pool) findLocked(id string) *account {
	for _, a := range p.accs {
		if a.id == id {
			return a
		}
	}
	return nil
}

func (a *account) view() View {
	return View{
		ID:            a.id,
		Name:          a.name,
		Priority:      a.priority,
		DailyQuota:    a.quota,
		Status:        a.status,
		CooldownUntil: a.cooldownUntil,
		ConsecErrors:  a.consecErrors,
		DailyUsage:    a.dailyUsage,
		TotalUsage:    a.totalUsage,
		LastUsedAt:    a.lastUsedAt,
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
