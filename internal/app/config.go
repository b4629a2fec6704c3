package app

import (
	"time"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/db"
	"github.com/Kailou1991/ahis-001-sub001/internal/observability"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/envutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/kobo"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/redisx"
)

type Config struct {
	DB    db.Config
	Kobo  kobo.Config
	Redis redisx.Config
	Otel  observability.OtelConfig

	SyncConcurrency int
	SyncInterval    time.Duration
	SourcesFile     string

	HTTPAddr    string
	CORSOrigins string
}

func LoadConfig(serviceName string, log *logger.Logger) Config {
	return Config{
		DB:              db.ConfigFromEnv(log),
		Kobo:            kobo.ConfigFromEnv(log),
		Redis:           redisx.ConfigFromEnv(log),
		Otel:            observability.OtelConfigFromEnv(serviceName, log),
		SyncConcurrency: envutil.Int("SYNC_CONCURRENCY", 1, log),
		SyncInterval:    envutil.Duration("SYNC_INTERVAL", 0, log),
		SourcesFile:     envutil.String("SYNC_SOURCES_FILE", "", log),
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080", log),
		CORSOrigins:     envutil.String("CORS_ALLOWED_ORIGINS", "", log),
	}
}
