package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"harvest-engine/internal/config"
)

func testOptions() Options {
	return Options{
		Strategy:         "round_robin",
		StandardCooldown: 30 * time.Minute,
		ErrorMultiplier:  1.5,
		BlockCooldown:    2 * time.Hour,
		MaxErrorCount:    3,
		DefaultQuota:     50,
		Location:         time.UTC,
	}
}

func testAccounts(n int) []config.AccountEntry {
	entries := make([]config.AccountEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, config.AccountEntry{
			ID:       string(rune('a' + i)),
			Name:     "acct " + string(rune('a'+i)),
			Priority: i + 1,
		})
	}
	return entries
}

func TestAcquire_DistinctUntilExhausted(t *testing.T) {
	p := New(testOptions(), testAccounts(3))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		v, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d failed", i)
		}
		if seen[v.ID] {
			t.Fatalf("account %s handed out twice", v.ID)
		}
		seen[v.ID] = true
	}

	if _, ok := p.Acquire(); ok {
		t.Error("fourth acquire should return empty, all accounts in use")
	}
}

func TestAcquire_DailyQuota(t *testing.T) {
	opts := testOptions()
	opts.StandardCooldown = 0 // release makes the account immediately eligible
	p := New(opts, []config.AccountEntry{{ID: "a", DailyQuota: 1}})

	v, ok := p.Acquire()
	if !ok {
		t.Fatal("first acquire failed")
	}
	if err := p.Release(v.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, ok := p.Acquire(); ok {
		t.Error("second acquire should fail, daily quota spent")
	}

	snap := p.Snapshot()
	if snap[0].Status != StatusCoolingDown {
		t.Errorf("quota-spent account status = %s, want cooling_down", snap[0].Status)
	}
}

func TestAcquire_QuotaResetsNextDay(t *testing.T) {
	opts := testOptions()
	opts.StandardCooldown = 0
	p := New(opts, []config.AccountEntry{{ID: "a", DailyQuota: 1}})

	now := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	v, _ := p.Acquire()
	_ = p.Release(v.ID, true)
	if _, ok := p.Acquire(); ok {
		t.Fatal("quota should be spent")
	}

	now = now.Add(2 * time.Hour) // past midnight
	if _, ok := p.Acquire(); !ok {
		t.Error("acquire should succeed after the daily reset")
	}
}

func TestRelease_SuccessCooldownAndErrorReset(t *testing.T) {
	p := New(testOptions(), testAccounts(1))

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	v, _ := p.Acquire()
	_ = p.Release(v.ID, false) // one failure first

	now = now.Add(time.Hour) // past the error cooldown
	v2, ok := p.Acquire()
	if !ok {
		t.Fatal("acquire after cooldown should succeed")
	}
	if err := p.Release(v2.ID, true); err != nil {
		t.Fatal(err)
	}

	snap := p.Snapshot()
	if snap[0].ConsecErrors != 0 {
		t.Errorf("consecutive errors = %d, want 0 after success", snap[0].ConsecErrors)
	}
	if snap[0].Status != StatusCoolingDown {
		t.Errorf("status = %s, want cooling_down", snap[0].Status)
	}
}

func TestRelease_BlockedAfterMaxErrors(t *testing.T) {
	opts := testOptions()
	opts.MaxErrorCount = 2
	p := New(opts, testAccounts(1))

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		v, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d failed", i)
		}
		_ = p.Release(v.ID, false)
		now = now.Add(opts.StandardCooldown * 2) // wait out the error cooldown
	}

	snap := p.Snapshot()
	if snap[0].Status != StatusBlocked {
		t.Fatalf("status = %s, want blocked after %d errors", snap[0].Status, opts.MaxErrorCount)
	}

	if _, ok := p.Acquire(); ok {
		t.Error("blocked account must not be handed out")
	}

	now = now.Add(opts.BlockCooldown)
	if _, ok := p.Acquire(); !ok {
		t.Error("account should be available again after the block cooldown")
	}
}

func TestAcquire_PriorityStrategy(t *testing.T) {
	opts := testOptions()
	opts.Strategy = "priority"
	p := New(opts, []config.AccountEntry{
		{ID: "low", Priority: 5},
		{ID: "high", Priority: 1},
	})

	v, ok := p.Acquire()
	if !ok {
		t.Fatal("acquire failed")
	}
	if v.ID != "high" {
		t.Errorf("acquired %s, want high (lowest priority value wins)", v.ID)
	}
}

func TestAcquire_RoundRobinIsLRU(t *testing.T) {
	opts := testOptions()
	opts.StandardCooldown = 0
	p := New(opts, testAccounts(2))

	first, _ := p.Acquire()
	_ = p.Release(first.ID, true)

	second, _ := p.Acquire()
	if second.ID == first.ID {
		t.Errorf("round robin reused %s, want the other account", first.ID)
	}
}

func TestAdminOps(t *testing.T) {
	p := New(testOptions(), testAccounts(1))

	if err := p.Disable("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Acquire(); ok {
		t.Error("disabled account must not be handed out")
	}

	if err := p.Enable("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Acquire(); !ok {
		t.Error("enabled account should be available")
	}

	if err := p.SetPriority("a", 9); err != nil {
		t.Fatal(err)
	}
	if snap := p.Snapshot(); snap[0].Priority != 9 {
		t.Errorf("priority = %d, want 9", snap[0].Priority)
	}

	if err := p.Disable("nope"); err == nil {
		t.Error("unknown id should error")
	}
}

func TestWaitForAvailable_Timeout(t *testing.T) {
	p := New(testOptions(), testAccounts(1))
	if _, ok := p.Acquire(); !ok {
		t.Fatal("setup acquire failed")
	}

	start := time.Now()
	_, err := p.WaitForAvailable(context.Background(), 150*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("wait ran far past its budget")
	}
}

func TestWaitForAvailable_PicksUpRelease(t *testing.T) {
	opts := testOptions()
	opts.StandardCooldown = 50 * time.Millisecond
	p := New(opts, testAccounts(1))

	v, _ := p.Acquire()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = p.Release(v.ID, true)
	}()

	got, err := p.WaitForAvailable(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("got %s, want %s", got.ID, v.ID)
	}
}

func TestConcurrentAcquireRelease_NoDoubleAssignment(t *testing.T) {
	opts := testOptions()
	opts.StandardCooldown = 0
	p := New(opts, testAccounts(3))

	var mu sync.Mutex
	holders := map[string]int{}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v, ok := p.Acquire()
				if !ok {
					continue
				}
				mu.Lock()
				holders[v.ID]++
				if holders[v.ID] > 1 {
					t.Errorf("account %s held by %d goroutines", v.ID, holders[v.ID])
				}
				mu.Unlock()

				mu.Lock()
				holders[v.ID]--
				mu.Unlock()
				_ = p.Release(v.ID, true)
			}
		}()
	}
	wg.Wait()
}

func TestStats(t *testing.T) {
	p := New(testOptions(), testAccounts(3))
	v, _ := p.Acquire()
	_ = p.Disable("c")

	st := p.Stats()
	if st.Total != 3 || st.InUse != 1 || st.Disabled != 1 || st.Available != 1 {
		t.Errorf("stats = %+v, want total 3, in_use 1, disabled 1, available 1", st)
	}
	if st.TotalUsage != 1 {
		t.Errorf("total usage = %d, want 1", st.TotalUsage)
	}
	_ = v
}
