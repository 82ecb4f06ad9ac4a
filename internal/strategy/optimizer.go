package strategy

import (
	"strings"
)

// Params drives one fetch batch in the browser collaborator.
type Params struct {
	ScrollDistance int     `json:"scroll_distance"`
	WaitSeconds    float64 `json:"wait_seconds"`
	MaxAttempts    int     `json:"max_attempts"`
	Aggressive     bool    `json:"aggressive"`
	Continue       bool    `json:"continue"`
}

func baseParams() Params {
	return Params{
		ScrollDistance: 800,
		WaitSeconds:    2.0,
		MaxAttempts:    50,
		Aggressive:     false,
		Continue:       true,
	}
}

// Optimizer tunes scroll behavior from run feedback and expands keywords
// into query variants.
type Optimizer struct {
	MaxVariants  int
	Synonyms     map[string][]string
	RelatedTerms []string
}

func New(maxVariants int, synonyms map[string][]string, related []string) Optimizer {
	if maxVariants <= 0 {
		maxVariants = 5
	}
	return Optimizer{
		MaxVariants:  maxVariants,
		Synonyms:     synonyms,
		RelatedTerms: related,
	}
}

// ExpandQuery returns the keyword plus up to two synonyms, two
// related-term combinations, and two format variants, first-seen order,
// truncated to MaxVariants.
func (o Optimizer) ExpandQuery(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}

	var variants []string
	variants = append(variants, keyword)

	syns := o.Synonyms[strings.ToLower(keyword)]
	for i, s := range syns {
		if i >= 2 {
			break
		}
		variants = append(variants, s)
	}

	for i, rt := range o.RelatedTerms {
		if i >= 2 {
			break
		}
		variants = append(variants, keyword+" "+rt)
	}

	variants = append(variants, `"`+keyword+`"`)
	if !strings.HasPrefix(keyword, "#") && !strings.Contains(keyword, " ") {
		variants = append(variants, "#"+keyword)
	}

	seen := map[string]bool{}
	out := make([]string, 0, o.MaxVariants)
	for _, v := range variants {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) >= o.MaxVariants {
			break
		}
	}
	return out
}

// NextStrategy picks fetch parameters from run progress. Low efficiency
// gets longer scrolls and waits; high efficiency gets shorter ones. Near
// the target the run stops; a stalled run is forced aggressive.
func (o Optimizer) NextStrategy(collected, target, attempts int) Params {
	p := baseParams()

	progress := 0.0
	if target > 0 {
		progress = float64(collected) / float64(target)
	}
	efficiency := 0.0
	if attempts > 0 {
		efficiency = float64(collected) / float64(attempts)
	}

	if efficiency < 1.0 {
		p.ScrollDistance = 1200
		p.WaitSeconds = 3.0
		p.Aggressive = true
	} else if efficiency > 3.0 {
		p.ScrollDistance = 600
		p.WaitSeconds = 1.5
	}

	if progress > 0.9 {
		p.Continue = false
	}
	if progress < 0.1 && attempts > 20 {
		p.Aggressive = true
	}

	return p
}
