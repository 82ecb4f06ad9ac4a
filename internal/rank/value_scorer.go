// engine/internal/rank/value_scorer.go
package rank

import (
	"math"
	"strings"
	"unicode"

	"harvest-engine/internal/config"
	"harvest-engine/internal/domain"
)

// subScoreCap bounds each sub-score; the final score shares the bound.
const subScoreCap = 10.0

// ValueScorer rates a post 0-10 from three weighted sub-scores: content
// quality, engagement, media richness. It never drops posts; threshold
// filtering belongs to the caller.
type ValueScorer struct {
	Weights  config.Weights
	Keywords []string
}

func NewValueScorer(cfg config.Config) ValueScorer {
	return ValueScorer{
		Weights:  cfg.Scoring.Weights,
		Keywords: cfg.Scoring.Keywords,
	}
}

func (s ValueScorer) Score(p domain.Post) (float64, []string) {
	var tags []string

	content, contentTags := s.contentScore(p)
	tags = append(tags, contentTags...)

	engagement := engagementScore(p)
	if engagement >= 6 {
		tags = append(tags, "high-engagement")
	}

	media := mediaScore(p)
	if media > 0 {
		tags = append(tags, "has-media")
	}

	score := content*s.Weights.Content +
		engagement*s.Weights.Engagement +
		media*s.Weights.Media

	// Small fixed bonuses, applied before the cap.
	if p.Verified {
		score += 0.5
		tags = append(tags, "verified")
	}

	if score > subScoreCap {
		score = subScoreCap
	}
	return score, tags
}

// contentScore combines body length (saturating), information density,
// configured keyword relevance, and a coarse language-quality check.
func (s ValueScorer) contentScore(p domain.Post) (float64, []string) {
	var tags []string
	body := strings.TrimSpace(p.Text)
	runes := []rune(body)

	// Length: saturates at 280 runes, worth up to 3 points.
	length := 3.0 * math.Min(1.0, float64(len(runes))/280.0)

	// Information density: info tokens per word, worth up to 3 points.
	words := strings.Fields(body)
	info := 0
	for _, w := range words {
		if isInfoToken(w) {
			info++
		}
	}
	info += len(p.Hashtags) + len(p.Mentions) + len(p.Links)
	density := 0.0
	if len(words) > 0 {
		density = math.Min(3.0, float64(info)/float64(len(words))*6.0)
	}

	// Keyword relevance: up to 2 points, 1 per configured keyword hit.
	lower := strings.ToLower(body)
	relevance := 0.0
	for _, kw := range s.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			relevance++
			if relevance == 1 {
				tags = append(tags, "keyword")
			}
			if relevance >= 2 {
				break
			}
		}
	}

	// Language quality: start at 2, deduct for shouting and letter spam.
	quality := 2.0
	if upper, letters := caseCounts(runes); letters > 10 && float64(upper)/float64(letters) > 0.5 {
		quality -= 1.0
	}
	if hasLongRun(runes, 4) {
		quality -= 1.0
	}

	score := length + density + relevance + quality
	if score > subScoreCap {
		score = subScoreCap
	}
	if score < 0 {
		score = 0
	}
	return score, tags
}

// engagementScore compresses raw interaction counts through log10 so a
// viral outlier does not dominate the whole run's scores.
func engagementScore(p domain.Post) float64 {
	raw := 0.5*float64(p.Likes) + 2.0*float64(p.Replies) + 1.5*float64(p.Reposts)
	return math.Min(subScoreCap, math.Log10(raw+1)*2)
}

func mediaScore(p domain.Post) float64 {
	if !p.HasMedia() {
		return 0
	}
	richness := 0.0
	for _, m := range p.Media {
		if m.Count == 0 {
			continue
		}
		switch m.Type {
		case domain.MediaVideo:
			richness = math.Max(richness, 6)
		case domain.MediaGIF:
			richness = math.Max(richness, 5)
		default:
			richness = math.Max(richness, 4)
		}
	}
	// Extra items past the first add a point each.
	richness += float64(p.MediaCount() - 1)
	return math.Min(subScoreCap, richness)
}

func isInfoToken(w string) bool {
	w = strings.Trim(w, ".,!?;:()\"'")
	if w == "" {
		return false
	}
	if strings.HasPrefix(w, "#") || strings.HasPrefix(w, "@") {
		return true
	}
	if strings.HasPrefix(w, "http://") || strings.HasPrefix(w, "https://") {
		return true
	}
	hasDigit := false
	for _, r := range w {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	return hasDigit || len([]rune(w)) >= 8
}

func caseCounts(runes []rune) (upper, letters int) {
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return
}

// hasLongRun reports a run of more than n identical characters
// ("soooooo") anywhere in the text.
func hasLongRun(runes []rune, n int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] && !unicode.IsSpace(runes[i]) {
			run++
			if run > n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
