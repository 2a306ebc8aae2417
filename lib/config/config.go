// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/envelope"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the biovault configuration.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment" env:"BIOVAULT_ENVIRONMENT"`

	// Vault addresses the stored entries and configures sealing.
	Vault VaultConfig `yaml:"vault"`

	// Store selects and locates the secure store.
	Store StoreConfig `yaml:"store"`

	// Biometric selects the platform biometric backend.
	Biometric BiometricConfig `yaml:"biometric"`

	// Log configures the CLI logger.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Store     *StoreConfig     `yaml:"store,omitempty"`
	Biometric *BiometricConfig `yaml:"biometric,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// VaultConfig addresses the credential and key entries.
type VaultConfig struct {
	// Namespace groups every entry.
	// Default: com.bblearning.app.biometric
	Namespace string `yaml:"namespace" env:"BIOVAULT_VAULT_NAMESPACE"`

	// Account addresses the credential entry.
	// Default: biometric_credential
	Account string `yaml:"account" env:"BIOVAULT_VAULT_ACCOUNT"`

	// KeyAccount addresses the encryption key entry.
	// Default: encryption_key
	KeyAccount string `yaml:"key_account" env:"BIOVAULT_VAULT_KEY_ACCOUNT"`

	// Cipher seals new credentials: chacha20-poly1305 or aes-256-gcm.
	Cipher string `yaml:"cipher" env:"BIOVAULT_VAULT_CIPHER"`

	// Prompt is the reason shown in the biometric challenge.
	Prompt string `yaml:"prompt" env:"BIOVAULT_VAULT_PROMPT"`
}

// StoreConfig selects the secure store.
type StoreConfig struct {
	// Backend is memory, sqlite, or keyring. The memory store does not
	// survive the process and exists for tests and demos. The keyring
	// store keeps entries in the platform secret service and ignores
	// Path and IdentityPath.
	Backend string `yaml:"backend" env:"BIOVAULT_STORE_BACKEND"`

	// Path is the SQLite database file.
	Path string `yaml:"path" env:"BIOVAULT_STORE_PATH"`

	// IdentityPath is the device identity file.
	// Default: Path + ".identity"
	IdentityPath string `yaml:"identity_path" env:"BIOVAULT_STORE_IDENTITY_PATH"`

	// LockPath is the lock file held while creating or destroying
	// the encryption key.
	// Default: Path + ".lock". The keyring backend takes the lock only
	// when LockPath is set.
	LockPath string `yaml:"lock_path" env:"BIOVAULT_STORE_LOCK_PATH"`
}

// IdentityFile returns IdentityPath, or its default next to Path.
func (s StoreConfig) IdentityFile() string {
	if s.IdentityPath != "" {
		return s.IdentityPath
	}
	return s.Path + ".identity"
}

// LockFile returns LockPath, or its default next to Path.
func (s StoreConfig) LockFile() string {
	if s.LockPath != "" {
		return s.LockPath
	}
	return s.Path + ".lock"
}

// BiometricConfig selects the biometric backend.
type BiometricConfig struct {
	// Backend is simulator or fprintd.
	Backend string `yaml:"backend" env:"BIOVAULT_BIOMETRIC_BACKEND"`

	// User is whose enrolled fingers fprintd checks.
	// Default: $USER
	User string `yaml:"user" env:"BIOVAULT_BIOMETRIC_USER"`

	// Simulator configures the simulated device.
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig describes the simulated device.
type SimulatorConfig struct {
	// Modality is none, fingerprint, or face.
	Modality string `yaml:"modality" env:"BIOVAULT_SIMULATOR_MODALITY"`

	Enrolled bool `yaml:"enrolled" env:"BIOVAULT_SIMULATOR_ENROLLED"`

	// EnrollmentID identifies the enrolled set. Changing it
	// invalidates stored credentials.
	EnrollmentID string `yaml:"enrollment_id" env:"BIOVAULT_SIMULATOR_ENROLLMENT_ID"`

	// Outcome of every challenge, e.g. ok or user_cancel.
	Outcome string `yaml:"outcome" env:"BIOVAULT_SIMULATOR_OUTCOME"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" env:"BIOVAULT_LOG_LEVEL"`

	// Format is auto, text, or json. auto picks text on a terminal
	// and json otherwise.
	Format string `yaml:"format" env:"BIOVAULT_LOG_FORMAT"`
}

// SlogLevel returns Level as a slog.Level. Validate rejects levels it
// cannot parse.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var (
	storeBackends     = []string{"memory", "sqlite", "keyring"}
	biometricBackends = []string{"simulator", "fprintd"}
	logFormats        = []string{"auto", "text", "json"}
)

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "biovault")

	return &Config{
		Environment: Development,
		Vault: VaultConfig{
			Namespace:  "com.bblearning.app.biometric",
			Account:    "biometric_credential",
			KeyAccount: "encryption_key",
			Cipher:     envelope.Default.String(),
			Prompt:     "Verify your identity to sign in",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dataDir, "vault.db"),
		},
		Biometric: BiometricConfig{
			Backend: "simulator",
			User:    os.Getenv("USER"),
			Simulator: SimulatorConfig{
				Modality:     "fingerprint",
				Enrolled:     true,
				EnrollmentID: "default",
				Outcome:      "ok",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by BIOVAULT_CONFIG.
//
// There are no fallbacks: if BIOVAULT_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BIOVAULT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BIOVAULT_CONFIG environment variable not set; " +
			"set it to the path of your biovault.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// Order: defaults, the file, the environment section matching
// Environment, then BIOVAULT_* environment variables. ${HOME} and
// ${VAR:-default} are expanded in path fields last.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: machine-readable logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Store != nil {
		if overrides.Store.Backend != "" {
			c.Store.Backend = overrides.Store.Backend
		}
		if overrides.Store.Path != "" {
			c.Store.Path = overrides.Store.Path
		}
		if overrides.Store.IdentityPath != "" {
			c.Store.IdentityPath = overrides.Store.IdentityPath
		}
		if overrides.Store.LockPath != "" {
			c.Store.LockPath = overrides.Store.LockPath
		}
	}

	if overrides.Biometric != nil {
		if overrides.Biometric.Backend != "" {
			c.Biometric.Backend = overrides.Biometric.Backend
		}
		if overrides.Biometric.User != "" {
			c.Biometric.User = overrides.Biometric.User
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Store.IdentityPath = expandVars(c.Store.IdentityPath, vars)
	c.Store.LockPath = expandVars(c.Store.LockPath, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Vault.Namespace == "" {
		errs = append(errs, fmt.Errorf("vault.namespace is required"))
	}
	if c.Vault.Account == "" || c.Vault.KeyAccount == "" {
		errs = append(errs, fmt.Errorf("vault.account and vault.key_account are required"))
	}
	if c.Vault.Account == c.Vault.KeyAccount {
		errs = append(errs, fmt.Errorf("vault.account and vault.key_account must differ"))
	}
	if _, err := envelope.ParseCipher(c.Vault.Cipher); err != nil {
		errs = append(errs, fmt.Errorf("vault.cipher: %w", err))
	}

	if !slices.Contains(storeBackends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend must be one of: %v", storeBackends))
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required for the sqlite backend"))
	}

	if !slices.Contains(biometricBackends, c.Biometric.Backend) {
		errs = append(errs, fmt.Errorf("biometric.backend must be one of: %v", biometricBackends))
	}
	if c.Biometric.Backend == "fprintd" && c.Biometric.User == "" {
		errs = append(errs, fmt.Errorf("biometric.user is required for the fprintd backend"))
	}
	if c.Biometric.Backend == "simulator" {
		if _, err := biometric.ParseModality(c.Biometric.Simulator.Modality); err != nil {
			errs = append(errs, fmt.Errorf("biometric.simulator.modality: %w", err))
		}
		if _, err := biometric.ParseCode(c.Biometric.Simulator.Outcome); err != nil {
			errs = append(errs, fmt.Errorf("biometric.simulator.outcome: %w", err))
		}
	}

	if c.Environment == Production {
		if c.Store.Backend == "memory" {
			errs = append(errs, fmt.Errorf("store.backend memory is not allowed in production"))
		}
		if c.Biometric.Backend == "simulator" {
			errs = append(errs, fmt.Errorf("biometric.backend simulator is not allowed in production"))
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
