// Package config loads application configuration from defaults, the user
// TOML config file, environment variables and CLI flags, in that
// priority order.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the adapter-level settings. The domain layer itself takes
// no configuration beyond the database path.
type Config struct {
	// DBPath is the SQLite database file. Empty means the XDG default.
	DBPath string `toml:"db_path"`

	// PageSize is the task listing window used by the UI.
	PageSize int `toml:"page_size"`

	// LogDir receives the JSONL session logs. Empty disables logging.
	LogDir string `toml:"log_dir"`
}

func defaults() *Config {
	return &Config{
		PageSize: 50,
		LogDir:   defaultLogDir(),
	}
}

func defaultLogDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "tasktree")
}

// userConfigFile returns the config file path, or "" when none exists.
func userConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "tasktree", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Load resolves the configuration. args are the CLI arguments after the
// program name.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := defaults()

	if path := userConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be positive, got %d", cfg.PageSize)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKTREE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TASKTREE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("TASKTREE_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database file path")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "task listing page size")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "session log directory (empty to disable)")
	return fs.Parse(args)
}
