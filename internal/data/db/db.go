package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/envutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// ConfigFromEnv reads DB_DRIVER, DATABASE_URL, POSTGRES_* and SQLITE_PATH.
func ConfigFromEnv(logg *logger.Logger) Config {
	cfg := Config{
		Driver:     strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres, logg)),
		DSN:        envutil.String("DATABASE_URL", "", logg),
		SQLitePath: envutil.String("SQLITE_PATH", "ahis.db", logg),
	}
	if cfg.Driver == DriverPostgres && cfg.DSN == "" {
		cfg.DSN = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			envutil.String("POSTGRES_USER", "postgres", logg),
			envutil.String("POSTGRES_PASSWORD", "", logg),
			envutil.String("POSTGRES_HOST", "localhost", logg),
			envutil.String("POSTGRES_PORT", "5432", logg),
			envutil.String("POSTGRES_NAME", "ahis", logg),
		)
	}
	return cfg
}

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

func NewService(cfg Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case DriverPostgres:
		conn, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case DriverSQLite:
		conn, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// One writer keeps sqlite from returning SQLITE_BUSY under parallel sources.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	serviceLog.Info("database connected")
	return &Service{db: conn, driver: cfg.Driver, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
