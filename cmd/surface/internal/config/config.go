package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file read from the working
// directory.
const FileName = "surface.yaml"

// Config represents the optional surface.yaml configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Page   PageConfig   `yaml:"page"`
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	Addr   string `yaml:"addr,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	// Key is the hex-encoded token key. Overridden by SURFACE_KEY.
	Key string `yaml:"key,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// PageConfig contains settings for the demo page.
type PageConfig struct {
	Title string `yaml:"title,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Addr      string
	Prefix    string
	Key       []byte
	LogLevel  slog.Level
	LogFormat string
	Title     string
	// EphemeralKey is set when no key was configured and Key is random.
	EphemeralKey bool
}

// LoadOptional reads surface.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads surface.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	addr := strings.TrimSpace(cfg.Server.Addr)
	if addr == "" {
		addr = ":8080"
	}

	prefix := strings.TrimSpace(cfg.Server.Prefix)
	if prefix == "" {
		prefix = "/_s/"
	}

	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch format {
	case "":
		format = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("log.format must be text or json (got %q)", cfg.Log.Format)
	}

	title := strings.TrimSpace(cfg.Page.Title)
	if title == "" {
		title = "Surfaces"
	}

	hexKey := strings.TrimSpace(cfg.Server.Key)
	if env := strings.TrimSpace(os.Getenv("SURFACE_KEY")); env != "" {
		hexKey = env
	}
	var key []byte
	if hexKey != "" {
		key, err = hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("server.key must be hex encoded: %w", err)
		}
	}

	return &Resolved{
		Addr:         addr,
		Prefix:       prefix,
		Key:          key,
		LogLevel:     level,
		LogFormat:    format,
		Title:        title,
		EphemeralKey: key == nil,
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
