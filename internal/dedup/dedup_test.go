package dedup

import (
	"fmt"
	"testing"
	"time"

	"harvest-engine/internal/domain"
)

func testPost(link, author, text string) domain.Post {
	return domain.Post{
		Link:     link,
		Author:   author,
		Text:     text,
		PostedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_LinkMatch(t *testing.T) {
	d := New(DefaultConfig())

	a := testPost("https://x.com/a/status/1", "a", "first version of the announcement text")
	b := testPost("https://x.com/a/status/1", "b", "completely different body this time around")

	if res := d.Evaluate(a); res.Duplicate {
		t.Fatalf("first post marked duplicate at stage %q", res.Stage)
	}
	res := d.Evaluate(b)
	if !res.Duplicate || res.Stage != StageLink {
		t.Errorf("got %+v, want duplicate at link stage", res)
	}
}

func TestEvaluate_HashMatch(t *testing.T) {
	d := New(DefaultConfig())

	a := testPost("https://x.com/a/status/1", "a", "The Quick Brown Fox jumps over the lazy dog!")
	b := testPost("https://x.com/b/status/2", "b", "the  quick brown fox JUMPS over the lazy dog")
	b.PostedAt = a.PostedAt.Add(time.Hour)

	d.Evaluate(a)
	res := d.Evaluate(b)
	if !res.Duplicate || res.Stage != StageHash {
		t.Errorf("got %+v, want duplicate at hash stage", res)
	}
}

func TestEvaluate_ShortBodySkipsHash(t *testing.T) {
	d := New(DefaultConfig())

	// "+1" from two authors at different times must both survive.
	a := testPost("https://x.com/a/status/1", "a", "+1")
	b := testPost("https://x.com/b/status/2", "b", "+1")
	b.PostedAt = a.PostedAt.Add(time.Hour)

	if res := d.Evaluate(a); res.Duplicate {
		t.Fatalf("first short post marked duplicate at stage %q", res.Stage)
	}
	if res := d.Evaluate(b); res.Duplicate {
		t.Errorf("second short post marked duplicate at stage %q", res.Stage)
	}
}

func TestEvaluate_AuthorTimeWindow(t *testing.T) {
	d := New(DefaultConfig())

	a := testPost("https://x.com/a/status/1", "alice", "+1")
	b := testPost("https://x.com/a/status/2", "alice", "ok")
	b.PostedAt = a.PostedAt.Add(time.Second)

	d.Evaluate(a)
	res := d.Evaluate(b)
	if !res.Duplicate || res.Stage != StageAuthorTime {
		t.Errorf("got %+v, want duplicate at author_time stage", res)
	}
}

func TestEvaluate_FuzzyMatch(t *testing.T) {
	d := New(DefaultConfig())

	a := testPost("https://x.com/a/status/1", "a", "breaking news about the big merger announced today in the city")
	b := testPost("https://x.com/b/status/2", "b", "breaking news about the big merger announced today in the cityy")
	b.PostedAt = a.PostedAt.Add(time.Hour)

	d.Evaluate(a)
	res := d.Evaluate(b)
	if !res.Duplicate || res.Stage != StageFuzzy {
		t.Errorf("got %+v, want duplicate at fuzzy stage", res)
	}
}

func TestEvaluate_FuzzyEngagementUpgrade(t *testing.T) {
	d := New(DefaultConfig())

	low := testPost("https://x.com/a/status/1", "a", "breaking news about the big merger announced today in the city")
	low.Likes = 2

	high := testPost("https://x.com/b/status/2", "b", "breaking news about the big merger announced today in the cityy")
	high.PostedAt = low.PostedAt.Add(time.Hour)
	high.Likes = 500

	d.Evaluate(low)
	res := d.Evaluate(high)
	if !res.Duplicate {
		t.Fatal("high-engagement variant should still report duplicate")
	}
	if len(d.fuzzy) != 1 {
		t.Fatalf("fuzzy cache has %d entries, want 1", len(d.fuzzy))
	}
	if d.fuzzy[0].engagement != 500 {
		t.Errorf("cached engagement = %d, want 500 (upgrade)", d.fuzzy[0].engagement)
	}
}

func TestEvaluate_FuzzyCacheEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FuzzyCacheSize = 3
	d := New(cfg)

	texts := []string{
		"completely unrelated subject matter about gardening in spring",
		"quarterly earnings report shows strong growth in the cloud unit",
		"local team wins the championship after dramatic overtime finish",
		"new open source release ships with a rewritten storage backend",
	}
	for i, txt := range texts {
		p := testPost(fmt.Sprintf("https://x.com/u/status/%d", i), fmt.Sprintf("u%d", i), txt)
		p.PostedAt = p.PostedAt.Add(time.Duration(i) * time.Hour)
		d.Evaluate(p)
	}

	if len(d.fuzzy) != 3 {
		t.Fatalf("fuzzy cache has %d entries, want 3", len(d.fuzzy))
	}
	// oldest evicted
	if d.fuzzy[0].text == normalizeBody(texts[0]) {
		t.Error("oldest entry should have been evicted")
	}
}

func TestStats_Invariants(t *testing.T) {
	d := New(DefaultConfig())

	for i := 0; i < 20; i++ {
		p := testPost(fmt.Sprintf("https://x.com/u/status/%d", i%7), fmt.Sprintf("u%d", i),
			fmt.Sprintf("post body number %d with enough words to hash cleanly", i))
		p.PostedAt = p.PostedAt.Add(time.Duration(i) * time.Minute)
		d.Evaluate(p)
	}

	st := d.Stats()
	if st.Evaluated != 20 {
		t.Errorf("evaluated = %d, want 20", st.Evaluated)
	}
	if st.Duplicates() != st.Evaluated-st.Kept {
		t.Errorf("duplicates = %d, want evaluated-kept = %d", st.Duplicates(), st.Evaluated-st.Kept)
	}
	if r := st.Rate(); r < 0 || r > 1 {
		t.Errorf("rate = %v, out of [0,1]", r)
	}
}

func TestEvaluate_TenNearIdenticalPosts(t *testing.T) {
	d := New(DefaultConfig())

	for i := 0; i < 10; i++ {
		p := testPost("https://x.com/a/status/42", "a",
			"same   announcement\t text with varying  whitespace")
		if res := d.Evaluate(p); res.Duplicate != (i > 0) {
			t.Errorf("post %d: duplicate = %v", i, res.Duplicate)
		}
	}

	st := d.Stats()
	if st.Kept != 1 {
		t.Errorf("kept = %d, want 1", st.Kept)
	}
	if st.Rate() != 0.9 {
		t.Errorf("rate = %v, want 0.9", st.Rate())
	}
}
