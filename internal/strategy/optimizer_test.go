package strategy

import (
	"strings"
	"testing"
)

func testOptimizer() Optimizer {
	return New(5,
		map[string][]string{"ai": {"artificial intelligence", "machine learning", "deep learning"}},
		[]string{"research", "startup", "ethics"},
	)
}

func TestExpandQuery_VariantsAndOrder(t *testing.T) {
	o := testOptimizer()

	got := o.ExpandQuery("AI")
	if len(got) == 0 || got[0] != "AI" {
		t.Fatalf("variants = %v, want original keyword first", got)
	}
	if len(got) > 5 {
		t.Errorf("got %d variants, want at most 5", len(got))
	}

	seen := map[string]bool{}
	for _, v := range got {
		key := strings.ToLower(v)
		if seen[key] {
			t.Errorf("duplicate variant %q", v)
		}
		seen[key] = true
	}

	// at most two synonyms made it in
	if !seen["artificial intelligence"] || !seen["machine learning"] {
		t.Errorf("variants = %v, want first two synonyms", got)
	}
	if seen["deep learning"] {
		t.Errorf("variants = %v, third synonym should be cut", got)
	}
}

func TestExpandQuery_MaxVariantsTruncation(t *testing.T) {
	o := testOptimizer()
	o.MaxVariants = 2

	got := o.ExpandQuery("AI")
	if len(got) != 2 {
		t.Errorf("got %d variants, want 2", len(got))
	}
}

func TestExpandQuery_NoConfig(t *testing.T) {
	o := New(5, nil, nil)

	got := o.ExpandQuery("databases")
	if len(got) == 0 || got[0] != "databases" {
		t.Fatalf("variants = %v, want keyword first", got)
	}
	// quoted and hashtag format variants still apply
	if len(got) < 2 {
		t.Errorf("variants = %v, want format variants too", got)
	}
}

func TestExpandQuery_Empty(t *testing.T) {
	o := testOptimizer()
	if got := o.ExpandQuery("   "); got != nil {
		t.Errorf("variants = %v, want nil for blank keyword", got)
	}
}

func TestNextStrategy_Base(t *testing.T) {
	o := testOptimizer()

	p := o.NextStrategy(10, 50, 5) // efficiency 2.0, progress 0.2
	if p.ScrollDistance != 800 || p.WaitSeconds != 2.0 || p.Aggressive || !p.Continue {
		t.Errorf("got %+v, want base strategy", p)
	}
	if p.MaxAttempts != 50 {
		t.Errorf("max attempts = %d, want 50", p.MaxAttempts)
	}
}

func TestNextStrategy_LowEfficiencyAggressive(t *testing.T) {
	o := testOptimizer()

	p := o.NextStrategy(3, 50, 10) // efficiency 0.3
	if p.ScrollDistance != 1200 || p.WaitSeconds != 3.0 || !p.Aggressive {
		t.Errorf("got %+v, want aggressive strategy", p)
	}
}

func TestNextStrategy_HighEfficiencyReduced(t *testing.T) {
	o := testOptimizer()

	p := o.NextStrategy(40, 100, 10) // efficiency 4.0
	if p.ScrollDistance != 600 || p.WaitSeconds != 1.5 || p.Aggressive {
		t.Errorf("got %+v, want reduced strategy", p)
	}
}

func TestNextStrategy_StopsNearTarget(t *testing.T) {
	o := testOptimizer()

	for _, attempts := range []int{0, 1, 10, 100} {
		p := o.NextStrategy(95, 100, attempts)
		if p.Continue {
			t.Errorf("attempts=%d: continue = true, want false at progress 0.95", attempts)
		}
	}
}

func TestNextStrategy_StalledForcesAggressive(t *testing.T) {
	o := testOptimizer()

	// high efficiency but barely any progress deep into the run
	p := o.NextStrategy(70, 1000, 21) // efficiency 3.3, progress 0.07
	if p.ScrollDistance != 600 {
		t.Errorf("got %+v, want reduced scroll for high efficiency", p)
	}
	if !p.Aggressive {
		t.Errorf("got %+v, want aggressive forced for stalled run", p)
	}
}

func TestNextStrategy_ZeroDenominators(t *testing.T) {
	o := testOptimizer()

	p := o.NextStrategy(0, 0, 0)
	if !p.Continue {
		t.Error("zero target should not stop the run")
	}
}
