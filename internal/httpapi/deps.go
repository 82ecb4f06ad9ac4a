package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"harvest-engine/internal/config"
	"harvest-engine/internal/dedup"
	"harvest-engine/internal/events"
	"harvest-engine/internal/pipeline"
	"harvest-engine/internal/pool"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	Pool    *pool.Pool
	Manager *pipeline.Manager
	Dedup   *dedup.Deduplicator

	// Atomic stores
	CfgVal        *atomic.Value // stores config.Config
	CollectStatus *atomic.Value // stores httpapi.CollectStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Collection entrypoint (inject for testability)
	RunCollect func(ctx context.Context, cfg config.Config) (added int, err error)
}
