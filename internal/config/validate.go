package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything a
// careful operator should see before the config is stored.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Targets.Profiles = trimList(out.Targets.Profiles)
	out.Targets.Keywords = trimList(out.Targets.Keywords)
	out.Scoring.Keywords = trimList(out.Scoring.Keywords)
	out.Strategy.RelatedTerms = trimList(out.Strategy.RelatedTerms)

	// ---- Validation rules ----

	if len(out.Accounts) == 0 {
		res.addErr("accounts: at least one worker account is required")
	}
	seenIDs := map[string]bool{}
	for i, a := range out.Accounts {
		if strings.TrimSpace(a.ID) == "" {
			res.addErr("accounts[%d].id is required", i)
		}
		if seenIDs[a.ID] {
			res.addErr("accounts[%d].id %q appears more than once", i, a.ID)
		}
		seenIDs[a.ID] = true
		if a.DailyQuota < 0 {
			res.addErr("accounts[%d].daily_quota must be >= 0", i)
		}
	}

	switch out.Pool.Strategy {
	case "priority", "round_robin", "random":
	default:
		res.addErr("pool.strategy must be priority, round_robin, or random (got %q)", out.Pool.Strategy)
	}
	if out.Pool.MaxErrorCount <= 0 {
		res.addErr("pool.max_error_count must be > 0")
	}
	if out.Pool.ErrorCooldownMultiplier < 1.0 {
		res.addWarn("pool.error_cooldown_multiplier below 1.0 makes failures cool down faster than successes")
	}
	if _, err := time.LoadLocation(out.Pool.ResetTimezone); err != nil {
		res.addErr("pool.reset_timezone: %v", err)
	}

	if out.Dedup.SimilarityThreshold <= 0 || out.Dedup.SimilarityThreshold > 1 {
		res.addErr("dedup.similarity_threshold must be in (0, 1]")
	}
	if out.Dedup.FuzzyCacheSize < 10 {
		res.addWarn("dedup.fuzzy_cache_size is very small (%d); fuzzy matching will miss most repeats", out.Dedup.FuzzyCacheSize)
	}

	w := out.Scoring.Weights
	if w.Content < 0 || w.Engagement < 0 || w.Media < 0 {
		res.addErr("scoring.weights must be non-negative")
	}
	if sum := w.Content + w.Engagement + w.Media; math.Abs(sum-1.0) > 0.01 {
		res.addWarn("scoring.weights sum to %.2f, not 1.0; scores will not span the documented 0-10 range", sum)
	}
	if out.Scoring.PassThreshold < 0 || out.Scoring.PassThreshold > 10 {
		res.addErr("scoring.pass_threshold must be in [0, 10]")
	}

	if out.Pipeline.TargetRatePerMinute <= 0 {
		res.addErr("pipeline.target_rate_per_minute must be > 0")
	}
	if out.Polling.CollectSeconds > 0 && out.Polling.CollectSeconds < 60 {
		res.addWarn("polling.collect_seconds is very low (%d) and may exhaust account quotas quickly", out.Polling.CollectSeconds)
	}

	if len(out.Targets.Profiles) == 0 && len(out.Targets.Keywords) == 0 {
		res.addWarn("no targets configured; scheduled runs will do nothing")
	}

	return out, res
}
