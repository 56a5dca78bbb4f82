package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/deepgram/catgpt/pkg/logger"
)

// File is the optional YAML configuration file. Every key can be overridden
// by its environment variable.
type File struct {
	APIURL         string `yaml:"api_url" json:"api_url"`
	StreamFraming  string `yaml:"stream_framing" json:"stream_framing"`
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
	RedisURL       string `yaml:"redis_url" json:"redis_url"`
	RedisPassword  string `yaml:"redis_password" json:"redis_password"`
	WatchAddr      string `yaml:"watch_addr" json:"watch_addr"`
}

var (
	fileMu sync.RWMutex
	loaded File
)

// DefaultConfigPath returns $HOME/.catgpt.yaml, or "" when there is no home.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".catgpt.yaml")
}

// Load reads a .env file from the working directory (if any) and then the
// YAML file at path. A missing file is not an error unless the path was
// given explicitly.
func Load(path string, explicit bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(logger.CONFIG, "Failed to load .env file: %v", err)
	}

	if path == "" {
		return nil
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logger.Debug(logger.CONFIG, "No config file at %s", path)
			return nil
		}
		return err
	}

	SetFile(*cfg)
	logger.Info(logger.CONFIG, "Loaded configuration from %s", path)
	return nil
}

// LoadFromFile parses a YAML config file.
func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// SaveToFile writes cfg as YAML.
func SaveToFile(cfg *File, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SetFile replaces the loaded file values and returns a function to restore them.
// This is primarily used for testing
func SetFile(cfg File) func() {
	fileMu.Lock()
	previous := loaded
	loaded = cfg
	fileMu.Unlock()

	return func() {
		fileMu.Lock()
		loaded = previous
		fileMu.Unlock()
	}
}

func file() File {
	fileMu.RLock()
	defer fileMu.RUnlock()
	return loaded
}
