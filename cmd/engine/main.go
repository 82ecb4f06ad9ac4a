package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"harvest-engine/internal/browser"
	"harvest-engine/internal/config"
	"harvest-engine/internal/dedup"
	"harvest-engine/internal/events"
	"harvest-engine/internal/httpapi"
	"harvest-engine/internal/pipeline"
	"harvest-engine/internal/pool"
	"harvest-engine/internal/rank"
	"harvest-engine/internal/scheduler"
	"harvest-engine/internal/secrets"
	"harvest-engine/internal/store"
	"harvest-engine/internal/strategy"
)

func main() {
	// Engine data dir: use env if provided (the admin shell can pass one),
	// else local folder.
	dataDir := os.Getenv("HARVEST_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; two instances would fight over the pool
	// and the sqlite file.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "harvest.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	accountPool := pool.New(pool.OptionsFromConfig(cfg), cfg.Accounts)
	deduper := dedup.New(dedup.Config{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		FuzzyCacheSize:      cfg.Dedup.FuzzyCacheSize,
		MinHashLength:       cfg.Dedup.MinHashLength,
		AuthorWindow:        time.Duration(cfg.Dedup.AuthorWindowSeconds) * time.Second,
	})

	browserBase := os.Getenv("HARVEST_BROWSER_API")
	if browserBase == "" {
		browserBase = "http://127.0.0.1:50325"
	}
	browserToken, err := secrets.GetBrowserToken()
	if err != nil {
		log.Printf("[engine] %v; browser calls will be unauthenticated", err)
	}
	fetcher := browser.New(browserBase, browserToken, cfg.Pipeline.BatchSize)

	sink := &dbSink{db: db.Pool}

	manager := pipeline.NewManager(nil, db.Pool, cfg.Pipeline.MaxConcurrentRuns)

	runCollect := func(ctx context.Context, cfg config.Config) (int, error) {
		// Rebuild the runner per sweep so config edits apply without a
		// restart. Pool and dedup state live for the whole process.
		manager.Runner = newRunner(cfg, accountPool, deduper, fetcher, sink, hub)
		manager.MaxConcurrent = cfg.Pipeline.MaxConcurrentRuns
		return manager.CollectOnce(ctx, buildTargets(cfg))
	}

	var collectStatus atomic.Value // stores httpapi.CollectStatus
	collectStatus.Store(httpapi.CollectStatus{})

	deps := httpapi.Deps{
		DB:            db.Pool,
		Hub:           hub,
		Pool:          accountPool,
		Manager:       manager,
		Dedup:         deduper,
		CfgVal:        &cfgVal,
		CollectStatus: &collectStatus,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		RunCollect:    runCollect,
	}
	mux := httpapi.NewMux(deps)

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go scheduler.Every(bgCtx,
		time.Duration(cfg.Polling.CollectSeconds)*time.Second,
		"collect",
		func(ctx context.Context) error {
			return scheduledCollect(ctx, &cfgVal, &collectStatus, runCollect)
		})

	go scheduler.Every(bgCtx,
		time.Duration(cfg.Polling.CleanupHours)*time.Hour,
		"cleanup",
		func(ctx context.Context) error {
			n, err := store.CleanupOldPosts(db.Pool, 90*24*time.Hour)
			if n > 0 {
				log.Printf("[cleanup] removed %d old posts", n)
			}
			return err
		})

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.AccessLog, httpapi.Recover, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	log.Printf("[engine] listening on http://%s (db=%s)", addr, dbPath)
	log.Printf("[engine] shutdown token: %s", shutdownToken)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func newRunner(cfg config.Config, p *pool.Pool, d *dedup.Deduplicator, f pipeline.Fetcher, s pipeline.Sink, hub *events.Hub) *pipeline.Runner {
	scorer := rank.NewValueScorer(cfg)
	opt := strategy.New(cfg.Strategy.MaxVariants, cfg.Strategy.Synonyms, cfg.Strategy.RelatedTerms)
	limiter := rate.NewLimiter(rate.Limit(cfg.Pipeline.TargetRatePerMinute/60.0), 1)

	return &pipeline.Runner{
		Pool:      p,
		Dedup:     d,
		Scorer:    scorer,
		Optimizer: opt,
		Fetcher:   f,
		Sink:      s,
		Hub:       hub,
		Limiter:   limiter,
		Opts: pipeline.Options{
			TargetPerRun:  cfg.Targets.MaxPostsPerTarget,
			PassThreshold: cfg.Scoring.PassThreshold,
			MaxAttempts:   cfg.Pipeline.MaxAttempts,
			FetchRetries:  cfg.Pipeline.FetchRetries,
			RetryBackoff:  time.Duration(cfg.Pipeline.RetryBackoffSeconds) * time.Second,
			AcquireWait:   time.Duration(cfg.Pipeline.AcquireWaitSeconds) * time.Second,
		},
	}
}

func buildTargets(cfg config.Config) []pipeline.Target {
	var targets []pipeline.Target
	for _, p := range cfg.Targets.Profiles {
		targets = append(targets, pipeline.Target{Kind: pipeline.TargetProfile, Value: p})
	}
	for _, k := range cfg.Targets.Keywords {
		targets = append(targets, pipeline.Target{Kind: pipeline.TargetKeyword, Value: k})
	}
	return targets
}
