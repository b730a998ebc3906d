// Package config assembles the runtime configuration from the command line,
// the environment and an optional .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

const usage = `Sewing Vault, a local catalog of sewing patterns.

Flags override the environment; the environment overrides the defaults.
Variables from the .env file are added to the environment but never
replace ones already set.

Usage:
    sewing-vault [--addr=<addr>] [--backend=<backend>] [--db=<path>]
        [--env=<file>] [--no-prune] [--log-level=<level>]
    sewing-vault -h | --help
    sewing-vault --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --addr=<addr>          Listen address (VAULT_ADDR, default 127.0.0.1:8080).
    --backend=<backend>    Pattern store, sqlite or badger (VAULT_BACKEND, default sqlite).
    --db=<path>            Database file or directory (VAULT_DB_PATH).
    --env=<file>           Environment file to load [default: .env].
    --no-prune             Keep garment types no pattern uses (VAULT_PRUNE_GARMENTS=false).
    --log-level=<level>    debug, info, warn or error (VAULT_LOG_LEVEL, default info).`

// Config is the runtime configuration.
type Config struct {
	Addr          string
	Backend       string
	DBPath        string
	TokenSecret   string
	PruneGarments bool
	LogLevel      slog.Level
}

// UsageError carries the text to show when the command line asks for help
// or is malformed. Err is nil for --help and --version.
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "usage requested"
}

func (e *UsageError) Unwrap() error { return e.Err }

// Load parses args (without the program name) and resolves every setting.
func Load(args []string, version string) (*Config, error) {
	var shown string
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) { shown = usage },
	}
	opts, err := parser.ParseArgs(usage, args, version)
	if err != nil {
		return nil, &UsageError{Usage: shown, Err: err}
	}
	if shown != "" {
		return nil, &UsageError{Usage: shown}
	}

	if envFile := optString(opts, "--env"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Addr:    optOrEnv(opts, "--addr", "VAULT_ADDR", "127.0.0.1:8080"),
		Backend: optOrEnv(opts, "--backend", "VAULT_BACKEND", BackendSQLite),
	}

	switch cfg.Backend {
	case BackendSQLite:
		cfg.DBPath = optOrEnv(opts, "--db", "VAULT_DB_PATH", "sewing-vault.db")
	case BackendBadger:
		cfg.DBPath = optOrEnv(opts, "--db", "VAULT_DB_PATH", "sewing-vault.badger")
	default:
		return nil, fmt.Errorf("unknown backend %q: want %s or %s", cfg.Backend, BackendSQLite, BackendBadger)
	}

	cfg.PruneGarments, err = strconv.ParseBool(envOrDefault("VAULT_PRUNE_GARMENTS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid VAULT_PRUNE_GARMENTS: %w", err)
	}
	if noPrune, _ := opts.Bool("--no-prune"); noPrune {
		cfg.PruneGarments = false
	}

	level := optOrEnv(opts, "--log-level", "VAULT_LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg.TokenSecret = os.Getenv("VAULT_TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		// Tokens from an earlier run stop validating; a reload issues new ones.
		cfg.TokenSecret, err = randomSecret()
		if err != nil {
			return nil, err
		}
	} else if len(cfg.TokenSecret) < 32 {
		return nil, errors.New("VAULT_TOKEN_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	return cfg, nil
}

func optString(opts docopt.Opts, name string) string {
	if v, ok := opts[name].(string); ok {
		return v
	}
	return ""
}

func optOrEnv(opts docopt.Opts, flag, env, defaultVal string) string {
	if v := optString(opts, flag); v != "" {
		return v
	}
	return envOrDefault(env, defaultVal)
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
