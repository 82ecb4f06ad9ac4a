package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"harvest-engine/internal/domain"
)

// Stage names a dedup stage for statistics and logging.
type Stage string

const (
	StageNone       Stage = ""
	StageLink       Stage = "link"
	StageHash       Stage = "hash"
	StageAuthorTime Stage = "author_time"
	StageFuzzy      Stage = "fuzzy"
)

// hashPrefixRunes bounds how much body text feeds the content hash.
const hashPrefixRunes = 256

// recentAuthorCap bounds the (author, time-bucket) recency set.
const recentAuthorCap = 4096

type Config struct {
	SimilarityThreshold float64
	FuzzyCacheSize      int
	MinHashLength       int // bodies at or under this skip the hash stage
	AuthorWindow        time.Duration
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		FuzzyCacheSize:      1000,
		MinHashLength:       20,
		AuthorWindow:        5 * time.Second,
	}
}

type Result struct {
	Duplicate bool
	Stage     Stage // which stage matched; StageNone when kept
}

type Stats struct {
	Evaluated     int `json:"evaluated"`
	Kept          int `json:"kept"`
	DupLink       int `json:"dup_link"`
	DupHash       int `json:"dup_hash"`
	DupAuthorTime int `json:"dup_author_time"`
	DupFuzzy      int `json:"dup_fuzzy"`
}

func (s Stats) Duplicates() int {
	return s.DupLink + s.DupHash + s.DupAuthorTime + s.DupFuzzy
}

func (s Stats) Rate() float64 {
	if s.Evaluated == 0 {
		return 0
	}
	return float64(s.Duplicates()) / float64(s.Evaluated)
}

type fuzzyEntry struct {
	hash       string
	text       string
	engagement int
}

// Deduplicator is a stateful multi-stage duplicate filter. Stages run in
// order and short-circuit on the first match: canonical link, content
// hash, author+time bucket, fuzzy similarity against a bounded recency
// cache. A mutex guards all state so one instance may be shared across
// concurrent runs.
type Deduplicator struct {
	mu  sync.Mutex
	cfg Config

	seenLinks  map[string]struct{}
	seenHashes map[string]struct{}

	authorSeen  map[string]struct{}
	authorOrder []string

	fuzzy []fuzzyEntry // oldest first

	stats Stats
}

func New(cfg Config) *Deduplicator {
	if cfg.FuzzyCacheSize <= 0 {
		cfg.FuzzyCacheSize = DefaultConfig().FuzzyCacheSize
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if cfg.AuthorWindow <= 0 {
		cfg.AuthorWindow = DefaultConfig().AuthorWindow
	}
	return &Deduplicator{
		cfg:        cfg,
		seenLinks:  make(map[string]struct{}),
		seenHashes: make(map[string]struct{}),
		authorSeen: make(map[string]struct{}),
	}
}

// Evaluate reports whether the post is a duplicate of something already
// seen. Kept posts are recorded in every applicable stage's state before
// returning.
func (d *Deduplicator) Evaluate(p domain.Post) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Evaluated++

	// Stage 1: canonical link.
	if p.Link != "" {
		if _, ok := d.seenLinks[p.Link]; ok {
			d.stats.DupLink++
			return Result{Duplicate: true, Stage: StageLink}
		}
		d.seenLinks[p.Link] = struct{}{}
	}

	norm := normalizeBody(p.Text)
	shortBody := len([]rune(norm)) <= d.cfg.MinHashLength

	// Stage 2: content hash over a bounded prefix. Short bodies skip this
	// stage; generic short text ("thanks!", "+1") would collide constantly.
	// They rely on the link and author+time stages instead.
	if !shortBody {
		h := contentHash(norm)
		if _, ok := d.seenHashes[h]; ok {
			d.stats.DupHash++
			return Result{Duplicate: true, Stage: StageHash}
		}
		d.seenHashes[h] = struct{}{}
	}

	// Stage 3: same author within a short window. Catches the same item
	// rendered twice a moment apart.
	if p.Author != "" && !p.PostedAt.IsZero() {
		key := authorBucketKey(p.Author, p.PostedAt, d.cfg.AuthorWindow)
		if _, ok := d.authorSeen[key]; ok {
			d.stats.DupAuthorTime++
			return Result{Duplicate: true, Stage: StageAuthorTime}
		}
		d.rememberAuthorKey(key)
	}

	// Stage 4: fuzzy similarity against the recency cache. A hit keeps
	// the higher-engagement variant as the cached example but still
	// reports the incoming post as a duplicate. Short bodies stay out of
	// the cache entirely.
	if !shortBody {
		for i := range d.fuzzy {
			if Similarity(norm, d.fuzzy[i].text) >= d.cfg.SimilarityThreshold {
				if p.Engagement() > d.fuzzy[i].engagement {
					d.fuzzy[i] = fuzzyEntry{
						hash:       contentHash(norm),
						text:       norm,
						engagement: p.Engagement(),
					}
				}
				d.stats.DupFuzzy++
				return Result{Duplicate: true, Stage: StageFuzzy}
			}
		}

		d.fuzzy = append(d.fuzzy, fuzzyEntry{
			hash:       contentHash(norm),
			text:       norm,
			engagement: p.Engagement(),
		})
		if len(d.fuzzy) > d.cfg.FuzzyCacheSize {
			d.fuzzy = d.fuzzy[len(d.fuzzy)-d.cfg.FuzzyCacheSize:]
		}
	}

	d.stats.Kept++
	return Result{Duplicate: false}
}

func (d *Deduplicator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Deduplicator) rememberAuthorKey(key string) {
	d.authorSeen[key] = struct{}{}
	d.authorOrder = append(d.authorOrder, key)
	for len(d.authorOrder) > recentAuthorCap {
		delete(d.authorSeen, d.authorOrder[0])
		d.authorOrder = d.authorOrder[1:]
	}
}

// normalizeBody lowercases, strips punctuation, and collapses whitespace
// so formatting-only variants hash and compare identically.
func normalizeBody(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case isWordRune(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		r > 127 // keep non-ASCII text intact
}

func contentHash(norm string) string {
	runes := []rune(norm)
	if len(runes) > hashPrefixRunes {
		norm = string(runes[:hashPrefixRunes])
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func authorBucketKey(author string, ts time.Time, window time.Duration) string {
	bucket := ts.Unix() / int64(window.Seconds())
	return strings.ToLower(author) + "|" + strconv.FormatInt(bucket, 10)
}
