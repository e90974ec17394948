// Package config loads engine configuration from defaults, an
// optional YAML file, and CREWMESH_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds everything the CLI needs to construct an engine.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig locates the local state directory holding the queue
// files, the clock file, and the session cache.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// RemoteConfig points at the ingestion service.
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReplayConfig tunes the replay transport.
type ReplayConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. configPath may be empty; defaults and
// environment variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("storage.dir", defaultStateDir())
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", "5s")
	v.SetDefault("replay.batch_size", 100)
	v.SetDefault("replay.max_retries", 3)
	v.SetDefault("replay.initial_backoff", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CREWMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crewmesh"
	}
	return filepath.Join(home, ".crewmesh")
}

// EnsureNodeID returns the stable node identity for this state
// directory, minting and persisting one on first use. Every envelope
// this process produces carries it as origin_node.
func EnsureNodeID(stateDir string) (string, error) {
	path := filepath.Join(stateDir, "node_id")

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read node id: %w", err)
	}

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("persist node id: %w", err)
	}
	return id, nil
}
