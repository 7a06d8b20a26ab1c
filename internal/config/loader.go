package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, STORE_PATH, DRIVE_FOLDER_ID, ...)
//  2. YAML config file (if configPath is non-empty and the file exists)
//  3. Hardcoded defaults
//
// A .env file in the working directory is loaded into the process
// environment first, if present.
//
// Environment variables map to config keys by splitting on the first
// underscore: SERVER_PORT -> server.port, STORE_CHUNK_SIZE ->
// store.chunk_size, DRIVE_CREDENTIALS_JSON_B64 ->
// drive.credentials_json_b64.
func Load(configPath string) (*Config, error) {
	// Best-effort .env load; absence is not an error.
	_ = godotenv.Load()

	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envToKey maps an environment variable name to a config key.
// Split on the first underscore only (section.field_name pattern):
//
//	SERVER_PORT              -> server.port
//	STORE_CHUNK_SIZE         -> store.chunk_size
//	DRIVE_CREDENTIALS_JSON_B64 -> drive.credentials_json_b64
func envToKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
