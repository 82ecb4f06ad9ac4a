package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"harvest-engine/internal/domain"
)

// RawCandidate is one rendered post as the browser collaborator hands it
// over: the article's HTML fragment plus the target that produced it.
type RawCandidate struct {
	HTML   string `json:"html"`
	Source string `json:"source"`
}

var ErrInvalidCandidate = errors.New("candidate missing required fields")

// minBodyRunes is the shortest body accepted as a real post.
const minBodyRunes = 2

// Post parses a candidate fragment into a domain.Post. Candidates with
// no readable author or body fail with ErrInvalidCandidate; the pipeline
// counts those instead of propagating them.
func Post(raw RawCandidate) (domain.Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return domain.Post{}, err
	}

	var p domain.Post
	p.Source = raw.Source

	p.Text = strings.TrimSpace(doc.Find(`[data-testid="tweetText"]`).First().Text())

	// Permalink and author both come from the first /status/ anchor.
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if link := CanonicalLink(href); link != "" {
			p.Link = link
			return false
		}
		return true
	})
	if p.Link != "" {
		trimmed := strings.TrimPrefix(p.Link, "https://x.com/")
		if i := strings.IndexByte(trimmed, '/'); i > 0 {
			p.Author = trimmed[:i]
		}
	}
	if p.Author == "" {
		// User-Name block: "Display Name @handle · 2h"
		nameBlock := doc.Find(`[data-testid="User-Name"]`).First().Text()
		if i := strings.IndexByte(nameBlock, '@'); i >= 0 {
			rest := nameBlock[i+1:]
			end := strings.IndexAny(rest, " ·\n\t")
			if end < 0 {
				end = len(rest)
			}
			p.Author = strings.TrimSpace(rest[:end])
		}
	}

	nameBlock := doc.Find(`[data-testid="User-Name"]`).First().Text()
	if i := strings.IndexByte(nameBlock, '@'); i > 0 {
		p.DisplayName = strings.TrimSpace(nameBlock[:i])
	}

	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if ts, err := time.Parse(time.RFC3339, dt); err == nil {
			p.PostedAt = ts
		}
	}

	p.Verified = doc.Find(`[data-testid="icon-verified"]`).Length() > 0

	p.Replies = counterValue(doc, "reply")
	p.Reposts = counterValue(doc, "retweet")
	p.Likes = counterValue(doc, "like")
	if viewText := doc.Find(`a[href$="/analytics"]`).First().Text(); viewText != "" {
		p.Views = ParseCount(viewText)
	}

	p.Media = mediaSummary(doc)

	social := strings.ToLower(doc.Find(`[data-testid="socialContext"]`).First().Text())
	p.IsRepost = strings.Contains(social, "repost")
	p.IsReply = doc.Find(`[data-testid="reply-context"]`).Length() > 0

	for _, w := range strings.Fields(p.Text) {
		w = strings.Trim(w, ".,!?;:()\"'")
		switch {
		case strings.HasPrefix(w, "#") && len(w) > 1:
			p.Hashtags = append(p.Hashtags, w)
		case strings.HasPrefix(w, "@") && len(w) > 1:
			p.Mentions = append(p.Mentions, w)
		case strings.HasPrefix(w, "http://"), strings.HasPrefix(w, "https://"):
			p.Links = append(p.Links, w)
		}
	}

	if p.Author == "" || len([]rune(p.Text)) < minBodyRunes {
		return domain.Post{}, ErrInvalidCandidate
	}
	if p.Link == "" {
		p.Link = DerivedKey(p.Author, p.Text, p.PostedAt)
	}
	return p, nil
}

func counterValue(doc *goquery.Document, kind string) int {
	sel := doc.Find(`[data-testid="` + kind + `"]`).First()
	if sel.Length() == 0 {
		return 0
	}
	if label, ok := sel.Attr("aria-label"); ok {
		if n := leadingCount(label); n > 0 {
			return n
		}
	}
	return ParseCount(strings.TrimSpace(sel.Text()))
}

// leadingCount reads the number that starts an aria-label like
// "482 Likes. Liked".
func leadingCount(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	return ParseCount(fields[0])
}

func mediaSummary(doc *goquery.Document) []domain.Media {
	var out []domain.Media
	if n := doc.Find(`[data-testid="tweetPhoto"]`).Length(); n > 0 {
		out = append(out, domain.Media{Type: domain.MediaImage, Count: n})
	}
	if n := doc.Find(`[data-testid="videoPlayer"]`).Length(); n > 0 {
		out = append(out, domain.Media{Type: domain.MediaVideo, Count: n})
	}
	if n := doc.Find(`[data-testid="gifPlayer"]`).Length(); n > 0 {
		out = append(out, domain.Media{Type: domain.MediaGIF, Count: n})
	}
	return out
}
