package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/wordforge/pkg/markov"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
	// APIKeyHash is the hex encoded SHA-256 of the key required in the
	// wordforge-auth header. The API is open when it is empty.
	APIKeyHash     string `json:"api_key_hash"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// MarkovConfig holds the defaults applied to table operations.
type MarkovConfig struct {
	DefaultSplit     string `json:"default_split"`
	MaxSteps         int    `json:"max_steps"`
	MaxGenerateCount int    `json:"max_generate_count"`
	FavourSpace      bool   `json:"favour_space"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Markov *MarkovConfig `json:"markov_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:        ":7280",
		LogLevel:       "info",
		DataDir:        "./data",
		DatabasePath:   "./data/wordforge.db",
		APIKeyHash:     "",
		MaxUploadBytes: 32 << 20,
	}
}

// DefaultMarkovConfig creates a table configuration with default values.
func DefaultMarkovConfig() *MarkovConfig {
	return &MarkovConfig{
		DefaultSplit:     markov.SplitSingleLetter,
		MaxSteps:         markov.DefaultMaxSteps,
		MaxGenerateCount: 100,
		FavourSpace:      true,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	// Initialize with default configurations
	config := &Config{
		Server: DefaultServerConfig(),
		Markov: DefaultMarkovConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the JSON from the file into the config struct.
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Sections missing from the file keep their defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Markov == nil {
		config.Markov = DefaultMarkovConfig()
	}

	if _, err = markov.ParseSplitter(config.Markov.DefaultSplit); err != nil {
		return nil, fmt.Errorf("invalid default_split: %w", err)
	}

	return config, nil
}

// parseLogLevel maps a config log level to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
