package app

import (
	"context"
	"strings"
	"testing"

	"github.com/querystudio/querystudio/internal/config"
)

func TestBuildFailsWithoutModelCredentials(t *testing.T) {
	cfg, err := config.Load("querystudio", func(key string) (string, bool) {
		values := map[string]string{
			"DB_HOST":          "localhost",
			"DB_PORT":          "5432",
			"DB_USER_NAME":     "studio",
			"DB_USER_PASSWORD": "secret",
			"DB_DATABASE":      "warehouse",
		}
		value, ok := values[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	_, err = Build(context.Background(), cfg, nil)
	if err == nil {
		t.Fatalf("expected missing credentials to fail")
	}
	if !strings.Contains(err.Error(), "initialize chat model") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	if got := dialectFor(config.DriverDuckDB); got != "duckdb" {
		t.Fatalf("duckdb dialect = %q", got)
	}
	if got := dialectFor(config.DriverPostgres); got != "postgresql" {
		t.Fatalf("postgres dialect = %q", got)
	}
}

func TestCloseNilApp(t *testing.T) {
	var a *App
	if err := a.Close(); err != nil {
		t.Fatalf("close nil app: %v", err)
	}
}
