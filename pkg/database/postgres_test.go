package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func integrationDB(t *testing.T) *PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultPostgresConfig()
	if host := os.Getenv("TEST_POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	if user := os.Getenv("TEST_POSTGRES_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("TEST_POSTGRES_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if dbname := os.Getenv("TEST_POSTGRES_DATABASE"); dbname != "" {
		cfg.Database = dbname
	}

	db, err := NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	if cfg.Host != "localhost" || cfg.Port != 5432 {
		t.Errorf("unexpected address %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.MaxConns != 25 || cfg.MinConns != 5 {
		t.Errorf("unexpected pool sizing max=%d min=%d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN mismatch:\nExpected: %s\nGot: %s", expected, dsn)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.DatabaseConfig{
		Host:         "db",
		Port:         6543,
		DBName:       "noctra_test",
		MaxOpenConns: 40,
		MaxIdleConns: 50,
		MaxRetries:   1,
	})

	if cfg.Host != "db" || cfg.Port != 6543 || cfg.Database != "noctra_test" {
		t.Errorf("address not mapped: %+v", cfg)
	}
	if cfg.MaxConns != 40 {
		t.Errorf("MaxConns = %d, want 40", cfg.MaxConns)
	}
	if cfg.MinConns != 5 {
		t.Errorf("MinConns = %d, want default 5 when idle exceeds max", cfg.MinConns)
	}
	if cfg.RetryInterval != time.Second {
		t.Errorf("RetryInterval = %v, want default", cfg.RetryInterval)
	}
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	cfg := &PostgresConfig{
		Host:           "invalid-host-that-does-not-exist",
		Port:           9999,
		User:           "invalid",
		Password:       "invalid",
		Database:       "invalid",
		SSLMode:        "disable",
		MaxRetries:     0,
		RetryInterval:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := NewPostgres(ctx, cfg); err == nil {
		t.Error("Expected error for invalid config, got nil")
	}
}

func TestPgErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "tags_name_key"})
	serial := &pgconn.PgError{Code: CodeSerializationFailure}

	if !IsUniqueViolation(unique) {
		t.Error("expected unique violation")
	}
	if ConstraintName(unique) != "tags_name_key" {
		t.Errorf("ConstraintName = %q", ConstraintName(unique))
	}
	if !IsRetryable(serial) || IsRetryable(unique) {
		t.Error("retryable classification wrong")
	}
	if PgCode(errors.New("plain")) != "" {
		t.Error("plain errors carry no SQLSTATE")
	}
}

func TestExtractUp(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a (id INT);", "CREATE TABLE a (id INT);"},
		{"up only", "-- +migrate Up\nCREATE TABLE a (id INT);", "\nCREATE TABLE a (id INT);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a;\n-- +migrate Down\nDROP TABLE a;", "\nCREATE TABLE a;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUp(tt.content); got != tt.want {
				t.Errorf("ExtractUp() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Integration tests - run only when database is available

func TestPostgresDB_HealthCheck_Integration(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	if !db.IsConnected(ctx) {
		t.Error("Expected IsConnected to return true")
	}
	if db.Stats() == nil {
		t.Error("Expected Stats() to return non-nil")
	}
	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestPostgresDB_InTx_Integration(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE IF NOT EXISTS tx_rollback_check (value INT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _ = db.Exec(context.Background(), "DROP TABLE IF EXISTS tx_rollback_check") })

	boom := errors.New("boom")
	err := InTx(ctx, db.Pool(), Serializable, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO tx_rollback_check (value) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM tx_rollback_check").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rolled back insert is visible, count=%d", n)
	}
}

func TestPostgresDB_Migrate_Integration(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/0001_sample.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE migrate_sample (id INT);\n-- +migrate Down\nDROP TABLE migrate_sample;")},
	}
	t.Cleanup(func() {
		_ = db.Exec(context.Background(), "DROP TABLE IF EXISTS migrate_sample")
		_ = db.Exec(context.Background(), "DELETE FROM schema_migrations WHERE name = '0001_sample.sql'")
	})

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx, fsys, "m"); err != nil {
			t.Fatalf("Migrate run %d: %v", i, err)
		}
	}
}

func TestPostgresDB_Close(t *testing.T) {
	db := integrationDB(t)

	db.Close()
	db.Close()

	if err := db.Ping(context.Background()); err == nil {
		t.Error("Expected Ping to fail after Close")
	}
}
