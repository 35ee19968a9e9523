// Package config loads corvid's TOML configuration file: where the
// compiled grammar and query-log database live, the server's listen
// address and bearer-token secrets, and the default search options a
// driver falls back to when a caller doesn't override them.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// SearchDefaults holds the subset of query.Options a deployment wants to
// fix ahead of time rather than take per-request.
type SearchDefaults struct {
	K          int `toml:"k"`
	DeadlineMs int `toml:"deadline_ms"`
}

// ServerConfig holds the HTTP server's listen address, the JWT signing
// key for bearer tokens, and the bcrypt hash of the single static API
// key a caller must present at POST /token to be issued one of those
// bearer tokens. There is no per-user account store: the one
// configured key is either presented (once, to mint a token) or every
// subsequent /parse call is rejected.
type ServerConfig struct {
	ListenAddress string `toml:"listen_address"`
	JWTSigningKey string `toml:"jwt_signing_key"`
	APIKeyHash    string `toml:"api_key_hash"`
}

// QueryLogConfig holds the on-disk location of the SQLite query log.
type QueryLogConfig struct {
	DatabaseDir string `toml:"database_dir"`
}

// Config is the top-level shape of a corvid TOML configuration file.
type Config struct {
	GrammarPath string         `toml:"grammar_path"`
	Search      SearchDefaults `toml:"search"`
	Server      ServerConfig   `toml:"server"`
	QueryLog    QueryLogConfig `toml:"query_log"`
}

// Load reads and parses the TOML configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Search.K <= 0 {
		cfg.Search.K = 7
	}
	return cfg, nil
}

// HashAPIKey returns the bcrypt hash of key, suitable for storing as
// ServerConfig.APIKeyHash.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("config: hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether key matches the configured hash.
func (s ServerConfig) VerifyAPIKey(key string) bool {
	if s.APIKeyHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(s.APIKeyHash), []byte(key))
	return err == nil
}
