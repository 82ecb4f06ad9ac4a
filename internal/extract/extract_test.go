package extract

import (
	"errors"
	"testing"
	"time"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"42", 42},
		{"4,821", 4821},
		{"1.2K", 1200},
		{"1.2k", 1200},
		{"3M", 3_000_000},
		{"2.5m", 2_500_000},
		{"1B", 1_000_000_000},
		{"garbage", 0},
		{"-5", 0},
	}
	for _, c := range cases {
		if got := ParseCount(c.in); got != c.want {
			t.Errorf("ParseCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCanonicalLink(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/jodoe/status/1234567890", "https://x.com/jodoe/status/1234567890"},
		{"https://x.com/jodoe/status/1234567890?s=20&t=abc", "https://x.com/jodoe/status/1234567890"},
		{"https://x.com/jodoe/status/1234567890/photo/1", "https://x.com/jodoe/status/1234567890"},
		{"/jodoe/likes", ""},
		{"/jodoe/status/notanumber", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := CanonicalLink(c.in); got != c.want {
			t.Errorf("CanonicalLink(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPostID(t *testing.T) {
	if got := PostID("https://x.com/jodoe/status/987/photo/1"); got != "987" {
		t.Errorf("PostID = %q, want 987", got)
	}
	if got := PostID("https://x.com/jodoe"); got != "" {
		t.Errorf("PostID = %q, want empty", got)
	}
}

func TestDerivedKey_Stable(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := DerivedKey("jodoe", "hello", ts)
	b := DerivedKey("jodoe", "hello", ts)
	if a != b {
		t.Errorf("derived keys differ: %q vs %q", a, b)
	}
	if c := DerivedKey("jodoe", "other", ts); c == a {
		t.Error("different text should derive a different key")
	}
}

const sampleFragment = `
<article>
  <div data-testid="socialContext"></div>
  <div data-testid="User-Name">Jo Doe @jodoe · 2h</div>
  <svg data-testid="icon-verified"></svg>
  <time datetime="2026-08-01T12:34:56.000Z"></time>
  <div data-testid="tweetText">Benchmarks for the new storage engine: 40% faster #golang https://example.com/post cc @someone</div>
  <a href="/jodoe/status/1234567890?s=20"></a>
  <div data-testid="reply" aria-label="12 Replies"></div>
  <div data-testid="retweet" aria-label="34 Reposts"></div>
  <div data-testid="like" aria-label="1.2K Likes"></div>
  <a href="/jodoe/status/1234567890/analytics">45K</a>
  <div data-testid="tweetPhoto"><img/></div>
  <div data-testid="tweetPhoto"><img/></div>
</article>`

func TestPost_ParsesFragment(t *testing.T) {
	p, err := Post(RawCandidate{HTML: sampleFragment, Source: "keyword:golang"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if p.Link != "https://x.com/jodoe/status/1234567890" {
		t.Errorf("link = %q", p.Link)
	}
	if p.Author != "jodoe" {
		t.Errorf("author = %q, want jodoe", p.Author)
	}
	if p.DisplayName != "Jo Doe" {
		t.Errorf("display name = %q, want Jo Doe", p.DisplayName)
	}
	if !p.Verified {
		t.Error("verified = false, want true")
	}
	if p.Replies != 12 || p.Reposts != 34 || p.Likes != 1200 {
		t.Errorf("counts = %d/%d/%d, want 12/34/1200", p.Replies, p.Reposts, p.Likes)
	}
	if p.Views != 45000 {
		t.Errorf("views = %d, want 45000", p.Views)
	}
	if p.MediaCount() != 2 {
		t.Errorf("media count = %d, want 2", p.MediaCount())
	}
	if want := time.Date(2026, 8, 1, 12, 34, 56, 0, time.UTC); !p.PostedAt.Equal(want) {
		t.Errorf("posted at = %v, want %v", p.PostedAt, want)
	}
	if len(p.Hashtags) != 1 || p.Hashtags[0] != "#golang" {
		t.Errorf("hashtags = %v", p.Hashtags)
	}
	if len(p.Mentions) != 1 || p.Mentions[0] != "@someone" {
		t.Errorf("mentions = %v", p.Mentions)
	}
	if len(p.Links) != 1 {
		t.Errorf("links = %v", p.Links)
	}
	if p.Source != "keyword:golang" {
		t.Errorf("source = %q", p.Source)
	}
}

func TestPost_MissingAuthorIsInvalid(t *testing.T) {
	_, err := Post(RawCandidate{HTML: `<article><div data-testid="tweetText">hello there</div></article>`})
	if !errors.Is(err, ErrInvalidCandidate) {
		t.Errorf("err = %v, want ErrInvalidCandidate", err)
	}
}

func TestPost_DerivedKeyFallback(t *testing.T) {
	frag := `<article>
  <div data-testid="User-Name">Jo Doe @jodoe · 2h</div>
  <div data-testid="tweetText">a post whose permalink anchor did not render</div>
</article>`

	p, err := Post(RawCandidate{HTML: frag})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if p.Link == "" {
		t.Error("link should fall back to a derived key")
	}
}
