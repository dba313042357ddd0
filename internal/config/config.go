// Package config loads server settings from YAML, falling back to
// defaults for anything the file leaves out.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the card server process.
type Server struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// PackDir holds the official/ and custom/ card pack directories.
	PackDir string `yaml:"pack_dir"`
	// PublicDir holds the static web client; empty disables it.
	PublicDir string `yaml:"public_dir"`

	LogLevel string `yaml:"log_level"`

	// Session tuning.
	SendQueueSize   int           `yaml:"send_queue_size"`  // per-client outbound queue (default: 256)
	EventQueueSize  int           `yaml:"event_queue_size"` // router inbox (default: 1024)
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // per-frame write deadline (default: 5s)
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // idle disconnect (default: 120s)
	PingInterval    time.Duration `yaml:"ping_interval"`    // keepalive period (default: 50s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // http drain window (default: 5s)
}

func DefaultServer() Server {
	return Server{
		BindAddress:     "0.0.0.0",
		Port:            8080,
		PackDir:         "packs",
		PublicDir:       "public",
		LogLevel:        "info",
		SendQueueSize:   256,
		EventQueueSize:  1024,
		WriteTimeout:    5 * time.Second,
		ReadTimeout:     120 * time.Second,
		PingInterval:    50 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadServer reads the config file at path, merging it over the
// defaults. A missing file is not an error.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
