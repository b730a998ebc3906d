package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/msomdec/sewing-vault/internal/config"
)

// clearEnv unsets the variables Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"VAULT_ADDR", "VAULT_BACKEND", "VAULT_DB_PATH", "VAULT_TOKEN_SECRET", "VAULT_PRUNE_GARMENTS", "VAULT_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func noEnvFile(t *testing.T) string {
	return "--env=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load([]string{noEnvFile(t)}, "test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("expected default addr, got %s", cfg.Addr)
	}
	if cfg.Backend != config.BackendSQLite || cfg.DBPath != "sewing-vault.db" {
		t.Fatalf("expected sqlite at sewing-vault.db, got %s at %s", cfg.Backend, cfg.DBPath)
	}
	if !cfg.PruneGarments {
		t.Fatal("expected garment pruning on by default")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if len(cfg.TokenSecret) != 64 {
		t.Fatalf("expected a generated 32-byte secret, got %d chars", len(cfg.TokenSecret))
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAULT_ADDR", "127.0.0.1:9000")
	t.Setenv("VAULT_BACKEND", "sqlite")

	cfg, err := config.Load([]string{noEnvFile(t), "--addr=127.0.0.1:9100", "--backend=badger", "--no-prune", "--log-level=debug"}, "test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9100" {
		t.Fatalf("expected flag addr, got %s", cfg.Addr)
	}
	if cfg.Backend != config.BackendBadger || cfg.DBPath != "sewing-vault.badger" {
		t.Fatalf("expected badger default path, got %s at %s", cfg.Backend, cfg.DBPath)
	}
	if cfg.PruneGarments {
		t.Fatal("expected --no-prune to disable pruning")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAULT_ADDR", "127.0.0.1:7000")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "VAULT_ADDR=127.0.0.1:1111\nVAULT_DB_PATH=/tmp/vault.db\nVAULT_PRUNE_GARMENTS=false\nVAULT_TOKEN_SECRET=0123456789abcdef0123456789abcdef\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("VAULT_DB_PATH")
		os.Unsetenv("VAULT_PRUNE_GARMENTS")
		os.Unsetenv("VAULT_TOKEN_SECRET")
	})

	cfg, err := config.Load([]string{"--env=" + envFile}, "test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Fatalf("expected the environment to win over the file, got %s", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/vault.db" {
		t.Fatalf("expected db path from file, got %s", cfg.DBPath)
	}
	if cfg.PruneGarments {
		t.Fatal("expected pruning disabled by file")
	}
	if cfg.TokenSecret != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("unexpected secret %q", cfg.TokenSecret)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"backend", []string{"--backend=postgres"}, nil},
		{"log level", []string{"--log-level=loud"}, nil},
		{"prune", nil, map[string]string{"VAULT_PRUNE_GARMENTS": "maybe"}},
		{"short secret", nil, map[string]string{"VAULT_TOKEN_SECRET": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(append([]string{noEnvFile(t)}, tt.args...), "test"); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoad_Help(t *testing.T) {
	_, err := config.Load([]string{"--help"}, "test")

	var usageErr *config.UsageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected a UsageError, got %v", err)
	}
	if usageErr.Err != nil || usageErr.Usage == "" {
		t.Fatalf("expected help text without error, got %+v", usageErr)
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := config.Load([]string{"--bogus"}, "test")

	var usageErr *config.UsageError
	if !errors.As(err, &usageErr) || usageErr.Err == nil {
		t.Fatalf("expected a UsageError with cause, got %v", err)
	}
}
