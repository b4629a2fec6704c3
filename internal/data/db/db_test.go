package db

import (
	"path/filepath"
	"strings"
	"testing"

	types "github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

func TestConfigFromEnvBuildsPostgresDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "vet")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_NAME", "ahis_test")

	cfg := ConfigFromEnv(logger.Nop())
	if cfg.Driver != DriverPostgres {
		t.Fatalf("driver: got %q", cfg.Driver)
	}
	if cfg.DSN != "postgres://vet:pw@db:6543/ahis_test?sslmode=disable" {
		t.Fatalf("dsn: got %q", cfg.DSN)
	}
}

func TestSQLiteServiceMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ahis.db")
	svc, err := NewService(Config{Driver: DriverSQLite, SQLitePath: path}, logger.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, m := range types.Models() {
		if !svc.DB().Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewService(Config{Driver: "oracle"}, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "oracle") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}
