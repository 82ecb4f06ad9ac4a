// engine/internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type AccountEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Priority   int    `yaml:"priority"`
	DailyQuota int    `yaml:"daily_quota"`
	Notes      string `yaml:"notes"`
}

type Weights struct {
	Content    float64 `yaml:"content"`
	Engagement float64 `yaml:"engagement"`
	Media      float64 `yaml:"media"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Targets struct {
		Profiles          []string `yaml:"profiles"`
		Keywords          []string `yaml:"keywords"`
		MaxPostsPerTarget int      `yaml:"max_posts_per_target"`
	} `yaml:"targets"`

	Accounts []AccountEntry `yaml:"accounts"`

	Pool struct {
		Strategy                string  `yaml:"strategy"` // priority | round_robin | random
		StandardCooldownMinutes int     `yaml:"standard_cooldown_minutes"`
		ErrorCooldownMultiplier float64 `yaml:"error_cooldown_multiplier"`
		BlockCooldownHours      int     `yaml:"block_cooldown_hours"`
		MaxErrorCount           int     `yaml:"max_error_count"`
		DefaultDailyQuota       int     `yaml:"default_daily_quota"`
		ResetTimezone           string  `yaml:"reset_timezone"`
	} `yaml:"pool"`

	Dedup struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		FuzzyCacheSize      int     `yaml:"fuzzy_cache_size"`
		MinHashLength       int     `yaml:"min_hash_length"`
		AuthorWindowSeconds int     `yaml:"author_window_seconds"`
	} `yaml:"dedup"`

	Scoring struct {
		Weights       Weights  `yaml:"weights"`
		PassThreshold float64  `yaml:"pass_threshold"`
		Keywords      []string `yaml:"keywords"`
	} `yaml:"scoring"`

	Strategy struct {
		MaxVariants  int                 `yaml:"max_variants"`
		Synonyms     map[string][]string `yaml:"synonyms"`
		RelatedTerms []string            `yaml:"related_terms"`
	} `yaml:"strategy"`

	Pipeline struct {
		TargetRatePerMinute float64 `yaml:"target_rate_per_minute"`
		BatchSize           int     `yaml:"batch_size"`
		MaxAttempts         int     `yaml:"max_attempts"`
		FetchRetries        int     `yaml:"fetch_retries"`
		RetryBackoffSeconds int     `yaml:"retry_backoff_seconds"`
		AcquireWaitSeconds  int     `yaml:"acquire_wait_seconds"`
		MaxConcurrentRuns   int     `yaml:"max_concurrent_runs"`
	} `yaml:"pipeline"`

	Polling struct {
		CollectSeconds int `yaml:"collect_seconds"`
		CleanupHours   int `yaml:"cleanup_hours"`
	} `yaml:"polling"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38472
	}
	if cfg.Targets.MaxPostsPerTarget == 0 {
		cfg.Targets.MaxPostsPerTarget = 50
	}

	if cfg.Pool.Strategy == "" {
		cfg.Pool.Strategy = "round_robin"
	}
	if cfg.Pool.StandardCooldownMinutes == 0 {
		cfg.Pool.StandardCooldownMinutes = 30
	}
	if cfg.Pool.ErrorCooldownMultiplier == 0 {
		cfg.Pool.ErrorCooldownMultiplier = 1.5
	}
	if cfg.Pool.BlockCooldownHours == 0 {
		cfg.Pool.BlockCooldownHours = 2
	}
	if cfg.Pool.MaxErrorCount == 0 {
		cfg.Pool.MaxErrorCount = 3
	}
	if cfg.Pool.DefaultDailyQuota == 0 {
		cfg.Pool.DefaultDailyQuota = 50
	}
	if cfg.Pool.ResetTimezone == "" {
		cfg.Pool.ResetTimezone = "UTC"
	}

	if cfg.Dedup.SimilarityThreshold == 0 {
		cfg.Dedup.SimilarityThreshold = 0.85
	}
	if cfg.Dedup.FuzzyCacheSize == 0 {
		cfg.Dedup.FuzzyCacheSize = 1000
	}
	if cfg.Dedup.MinHashLength == 0 {
		cfg.Dedup.MinHashLength = 20
	}
	if cfg.Dedup.AuthorWindowSeconds == 0 {
		cfg.Dedup.AuthorWindowSeconds = 5
	}

	if cfg.Scoring.Weights == (Weights{}) {
		cfg.Scoring.Weights = Weights{Content: 0.4, Engagement: 0.4, Media: 0.2}
	}
	if cfg.Scoring.PassThreshold == 0 {
		cfg.Scoring.PassThreshold = 5.0
	}

	if cfg.Strategy.MaxVariants == 0 {
		cfg.Strategy.MaxVariants = 5
	}

	if cfg.Pipeline.TargetRatePerMinute == 0 {
		cfg.Pipeline.TargetRatePerMinute = 25
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 20
	}
	if cfg.Pipeline.MaxAttempts == 0 {
		cfg.Pipeline.MaxAttempts = 50
	}
	if cfg.Pipeline.FetchRetries == 0 {
		cfg.Pipeline.FetchRetries = 3
	}
	if cfg.Pipeline.RetryBackoffSeconds == 0 {
		cfg.Pipeline.RetryBackoffSeconds = 2
	}
	if cfg.Pipeline.AcquireWaitSeconds == 0 {
		cfg.Pipeline.AcquireWaitSeconds = 120
	}
	if cfg.Pipeline.MaxConcurrentRuns == 0 {
		cfg.Pipeline.MaxConcurrentRuns = 2
	}

	if cfg.Polling.CollectSeconds == 0 {
		cfg.Polling.CollectSeconds = 900
	}
	if cfg.Polling.CleanupHours == 0 {
		cfg.Polling.CleanupHours = 24
	}
}
