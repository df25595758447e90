// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config builds the process-wide configuration for the factory
// copilot services.
//
// # Description
//
// All environment lookups happen exactly once, inside FromEnv(). The rest of
// the codebase receives an explicit *Config (or one of its sections) through
// constructors; no component reads the environment on its own. This keeps
// retry constants, endpoints, and limits visible in one place and makes every
// component testable with a literal Config value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage mode selectors for Config.Storage.Mode.
const (
	StorageModeLocal = "local"
	StorageModeGCS   = "gcs"
)

// Config is the root configuration object, assembled once at process start.
type Config struct {
	Factory FactoryConfig
	Chat    ChatConfig
	LLM     LLMConfig
	Storage StorageConfig
	Server  ServerConfig
}

// FactoryConfig describes the plant this deployment serves.
type FactoryConfig struct {
	// Name appears in the system preamble shown to the model.
	Name string

	// DataKey is the logical blob name of the production snapshot.
	DataKey string

	// MemoryKey is the logical blob name of the investigation/action log.
	MemoryKey string
}

// ChatConfig bounds a single conversation turn.
type ChatConfig struct {
	// MaxToolIterations caps the AwaitingModel/ExecutingTools loop.
	MaxToolIterations int

	// MaxMessageChars is the per-message content limit.
	MaxMessageChars int

	// MaxHistoryMessages is the maximum history length accepted per turn.
	MaxHistoryMessages int

	// MaxHistoryChars is the cumulative content limit across the history.
	MaxHistoryChars int

	// DebugErrors returns raw error text to callers instead of a generic
	// message. Never enable outside local development.
	DebugErrors bool
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
}

// StorageConfig configures the blob store and its resilience wrapping.
type StorageConfig struct {
	// Mode selects the backend: "local" or "gcs".
	Mode string

	// LocalDir is the directory for the local backend.
	LocalDir string

	// Bucket and CredentialsFile apply to the GCS backend.
	Bucket          string
	CredentialsFile string

	// ConnectTimeout bounds client/connection setup.
	ConnectTimeout time.Duration

	// OperationTimeout bounds each individual get/put attempt.
	OperationTimeout time.Duration

	// Retry policy for transient failures.
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Port         string
	OTLPEndpoint string
}

// FromEnv assembles a Config from the environment, applying defaults.
//
// # Description
//
// Reads every FACTORY_* variable once and validates the combination. This is
// the only function in the repository that touches os.Getenv for core
// settings.
//
// # Outputs
//
//   - *Config: The assembled configuration.
//   - error: Non-nil if a value is malformed or a required value is missing
//     for the selected mode.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Factory: FactoryConfig{
			Name:      envOr("FACTORY_NAME", "Demo Factory"),
			DataKey:   envOr("FACTORY_DATA_KEY", "production-data"),
			MemoryKey: envOr("FACTORY_MEMORY_KEY", "factory-memory"),
		},
		Chat: ChatConfig{
			MaxToolIterations:  8,
			MaxMessageChars:    2000,
			MaxHistoryMessages: 50,
			MaxHistoryChars:    50000,
			DebugErrors:        os.Getenv("FACTORY_DEBUG_ERRORS") == "true",
		},
		LLM: LLMConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			Model:      envOr("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			Mode:             envOr("STORAGE_MODE", StorageModeLocal),
			LocalDir:         envOr("FACTORY_DATA_DIR", "./data"),
			Bucket:           os.Getenv("FACTORY_GCS_BUCKET"),
			CredentialsFile:  os.Getenv("FACTORY_GCS_CREDENTIALS"),
			ConnectTimeout:   30 * time.Second,
			OperationTimeout: 60 * time.Second,
			MaxAttempts:      3,
			InitialBackoff:   2 * time.Second,
			Multiplier:       2,
			MaxDelay:         30 * time.Second,
		},
		Server: ServerConfig{
			Port:         envOr("FACTORY_PORT", "12300"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}

	if v := os.Getenv("FACTORY_MAX_TOOL_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid FACTORY_MAX_TOOL_ITERATIONS %q", v)
		}
		cfg.Chat.MaxToolIterations = n
	}
	if v := os.Getenv("FACTORY_STORAGE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid FACTORY_STORAGE_MAX_ATTEMPTS %q", v)
		}
		cfg.Storage.MaxAttempts = n
	}
	if v := os.Getenv("FACTORY_STORAGE_INITIAL_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid FACTORY_STORAGE_INITIAL_BACKOFF %q", v)
		}
		cfg.Storage.InitialBackoff = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Mode {
	case StorageModeLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("FACTORY_DATA_DIR must be set for local storage mode")
		}
	case StorageModeGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("FACTORY_GCS_BUCKET must be set for gcs storage mode")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q (expected %q or %q)",
			c.Storage.Mode, StorageModeLocal, StorageModeGCS)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
