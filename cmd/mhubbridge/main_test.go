package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/mhub-bridge/internal/entry"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/database"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	t.Setenv("MHUB_DEVICE_HOST", "")
	t.Setenv("MHUB_DATABASE_PATH", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("MHUB_CONFIG", "/nonexistent/path/config.yaml")
	t.Setenv("MHUB_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("MHUB_CONFIG", writeConfig(t, `
database:
  path: ""
mqtt:
  enabled: false
logging:
  level: error
  format: text
`))
	t.Setenv("MHUB_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_UnreachableHost verifies no entry is stored when the first
// connectivity check fails.
func TestRun_UnreachableHost(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mhub.db")
	t.Setenv("MHUB_CONFIG", writeConfig(t, `
device:
  host: "127.0.0.1:1"
  setup_timeout: 2
database:
  path: "`+dbPath+`"
mqtt:
  enabled: false
logging:
  level: error
  format: text
`))
	t.Setenv("MHUB_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if !errors.Is(err, entry.ErrCannotConnect) {
		t.Fatalf("run() error = %v, want ErrCannotConnect", err)
	}

	db, err := database.Open(ctx, database.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()
	entries, err := entry.NewSQLiteRepository(db.DB).List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("stored entries = %d, want 0", len(entries))
	}
}

// TestRun_NoHostNoEntry verifies run refuses to start with nothing to poll.
func TestRun_NoHostNoEntry(t *testing.T) {
	t.Setenv("MHUB_CONFIG", writeConfig(t, `
database:
  path: "`+filepath.Join(t.TempDir(), "mhub.db")+`"
mqtt:
  enabled: false
logging:
  level: error
  format: text
`))
	t.Setenv("MHUB_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); !errors.Is(err, entry.ErrNotFound) {
		t.Fatalf("run() error = %v, want ErrNotFound", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("MHUB_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("MHUB_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("MHUB_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		if err := loadDotEnv(); err != nil {
			t.Errorf("loadDotEnv() error = %v", err)
		}
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "MHUB_TEST_FROM_FILE=file\nMHUB_TEST_PRESET=file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("MHUB_ENV_FILE", path)
		t.Setenv("MHUB_TEST_PRESET", "env")
		t.Setenv("MHUB_TEST_FROM_FILE", "")
		os.Unsetenv("MHUB_TEST_FROM_FILE")

		if err := loadDotEnv(); err != nil {
			t.Fatalf("loadDotEnv() error = %v", err)
		}
		if got := os.Getenv("MHUB_TEST_FROM_FILE"); got != "file" {
			t.Errorf("MHUB_TEST_FROM_FILE = %q, want file", got)
		}
		if got := os.Getenv("MHUB_TEST_PRESET"); got != "env" {
			t.Errorf("MHUB_TEST_PRESET = %q, want env", got)
		}
	})
}

// TestHealthCheck_OptionalClients verifies disabled clients are skipped.
func TestHealthCheck_OptionalClients(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()

	if err := healthCheck(ctx, db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}
