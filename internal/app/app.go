package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/db"
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/http"
	httpH "github.com/Kailou1991/ahis-001-sub001/internal/http/handlers"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/orchestrator"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/parsers"
	"github.com/Kailou1991/ahis-001-sub001/internal/observability"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/kobo"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/redisx"
)

type App struct {
	Log          *logger.Logger
	DB           *gorm.DB
	Cfg          Config
	Repos        repos.Set
	Registry     *parsers.Registry
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *orchestrator.Scheduler
	Router       *gin.Engine

	dbService    *db.Service
	redis        *goredis.Client
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// LoadDotEnv loads .env from the working directory when present.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// New wires every component from the environment. serviceName tags logs and
// traces.
func New(ctx context.Context, serviceName string) (*App, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(serviceName, log)
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbService
	a.DB = dbService.DB()
	if err := db.AutoMigrateAll(a.DB); err != nil {
		a.Close()
		return nil, err
	}

	log.Info("Wiring repos...")
	a.Repos = repos.NewSet(a.DB, log)
	a.Registry = parsers.Default()

	deps := orchestrator.Deps{
		DB:          a.DB,
		Repos:       a.Repos,
		Fetcher:     kobo.NewClient(cfg.Kobo, log),
		Registry:    a.Registry,
		Concurrency: cfg.SyncConcurrency,
	}
	if cfg.Redis.Enabled() {
		rdb, err := redisx.Connect(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = rdb
		deps.Locker = redisx.NewRedisLocker(rdb, cfg.Redis.LockTTL, log)
		deps.Events = redisx.NewPublisher(rdb, cfg.Redis.Channel, log)
		log.Info("redis lock and run events enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	orch, err := orchestrator.New(deps, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Orchestrator = orch
	a.Scheduler = orchestrator.NewScheduler(orch, cfg.SyncInterval, log)
	a.Router = wireRouter(a, serviceName)
	return a, nil
}

func wireRouter(a *App, serviceName string) *gin.Engine {
	a.Log.Info("Wiring handlers...")
	return http.NewRouter(http.RouterConfig{
		Log:           a.Log,
		ServiceName:   serviceName,
		CORSOrigins:   a.Cfg.CORSOrigins,
		HealthHandler: httpH.NewHealthHandler(a.DB),
		SyncHandler:   httpH.NewSyncHandler(a.Scheduler, a.Repos.SyncRuns, a.Repos.Quarantine),
		SourceHandler: httpH.NewSourceHandler(a.Repos.FormSources),
	})
}

// SeedSources loads path, or SYNC_SOURCES_FILE when path is empty. Without
// either it does nothing.
func (a *App) SeedSources(ctx context.Context, path string) error {
	if path == "" {
		path = a.Cfg.SourcesFile
	}
	if path == "" {
		return nil
	}
	_, err := SeedSources(dbctx.Context{Ctx: ctx}, path, a.Registry, a.Repos.FormSources, a.Log)
	return err
}

// Start launches the interval scheduler, if configured.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Scheduler.Start(ctx)
}

// Run serves the trigger API until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return (&http.Server{Engine: a.Router}).Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
