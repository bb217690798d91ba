// Package config loads mailtui's own settings and reads the himalaya
// configuration for account and sender discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the mailtui configuration.
type Config struct {
	Himalaya HimalayaSettings `toml:"himalaya"`
	Debug    DebugConfig      `toml:"debug"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
	Path    string `toml:"-"`
}

// HimalayaSettings controls how the mail program is driven.
type HimalayaSettings struct {
	Binary   string `toml:"binary"`    // program to run (default: himalaya on PATH)
	Account  string `toml:"account"`   // --account value; empty uses the program default
	Folder   string `toml:"folder"`    // folder opened at startup
	PageSize int    `toml:"page_size"` // envelopes per page
	MarkSeen bool   `toml:"mark_seen"` // mark messages read when opened
	Sender   string `toml:"sender"`    // From override, e.g. "Name <me@example.com>"
}

// DebugConfig holds debug logging configuration.
type DebugConfig struct {
	Enabled bool   `toml:"enabled"`
	LogPath string `toml:"log_path"`
}

// Defaults applied before the config file is read.
const (
	DefaultBinary   = "himalaya"
	DefaultFolder   = "INBOX"
	DefaultPageSize = 20
)

// DefaultHome returns the default mailtui config directory.
// Respects MAILTUI_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILTUI_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailtui"
	}
	return filepath.Join(home, ".config", "mailtui")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location and a missing file yields
// the defaults. An explicit path must exist.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := &Config{
		HomeDir: homeDir,
		Path:    path,
		Himalaya: HimalayaSettings{
			Binary:   DefaultBinary,
			Folder:   DefaultFolder,
			PageSize: DefaultPageSize,
			MarkSeen: true,
		},
		Debug: DebugConfig{
			LogPath: filepath.Join(homeDir, "logs", "mailtui.debug.log"),
		},
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Himalaya.Binary = expandPath(cfg.Himalaya.Binary)
	cfg.Debug.LogPath = expandPath(cfg.Debug.LogPath)
	if cfg.Himalaya.PageSize < 1 {
		return nil, fmt.Errorf("decode config: page_size must be at least 1, got %d", cfg.Himalaya.PageSize)
	}

	return cfg, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
