// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
	"github.com/bureau-foundation/biovault/lib/authgate"
	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/config"
	"github.com/bureau-foundation/biovault/lib/envelope"
	"github.com/bureau-foundation/biovault/lib/keymanager"
	"github.com/bureau-foundation/biovault/lib/securestore"
	"github.com/bureau-foundation/biovault/lib/vault"
)

// configParams is embedded by every command that opens the vault.
type configParams struct {
	ConfigPath string `flag:"config" desc:"path to biovault.yaml (default: $BIOVAULT_CONFIG)"`
}

func (p configParams) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// authenticator is what the configured biometric backend provides.
type authenticator interface {
	biometric.Authenticator
	biometric.EnrollmentSource
}

// session is an opened vault and everything it was built from.
type session struct {
	config  *config.Config
	logger  *slog.Logger
	vault   *vault.Vault
	closers []func() error
}

func (s *session) Close() error {
	var errs []error
	for index := len(s.closers) - 1; index >= 0; index-- {
		errs = append(errs, s.closers[index]())
	}
	return errors.Join(errs...)
}

// openSession loads configuration and wires the biometric backend,
// secure store, key manager, and vault.
func (env *Env) openSession(params configParams, command string) (*session, error) {
	cfg, err := params.load()
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(env.Stderr, cfg.Log.SlogLevel(), cfg.Log.Format).With("command", command)

	auth, err := newAuthenticator(cfg.Biometric)
	if err != nil {
		return nil, err
	}
	gate := authgate.New(authgate.Config{Authenticator: auth, Logger: logger})
	options := securestore.Options{
		Gate:                        gate,
		Enrollment:                  auth,
		InvalidateOnBiometricChange: true,
		Clock:                       env.Clock,
		Logger:                      logger,
	}

	s := &session{config: cfg, logger: logger}
	var (
		store    securestore.Store
		lockPath string
	)
	switch cfg.Store.Backend {
	case "memory":
		logger.Warn("memory store selected; nothing is kept after this command exits")
		store, err = securestore.NewMemory(options)
		if err != nil {
			return nil, err
		}
	case "sqlite":
		sqliteStore, err := securestore.OpenSQLite(securestore.SQLiteConfig{
			Path:         cfg.Store.Path,
			IdentityPath: cfg.Store.IdentityFile(),
			Options:      options,
		})
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		s.closers = append(s.closers, sqliteStore.Close)
		store = sqliteStore
		lockPath = cfg.Store.LockFile()
	case "keyring":
		store, err = securestore.NewKeyring(options)
		if err != nil {
			return nil, err
		}
		lockPath = cfg.Store.LockPath
	}

	keys, err := keymanager.New(keymanager.Config{
		Store:     store,
		Namespace: cfg.Vault.Namespace,
		Account:   cfg.Vault.KeyAccount,
		LockPath:  lockPath,
		Clock:     env.Clock,
		Logger:    logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, keys.Close)

	cipher, err := envelope.ParseCipher(cfg.Vault.Cipher)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.vault, err = vault.New(vault.Config{
		Store:         store,
		Authenticator: auth,
		Keys:          keys,
		Cipher:        cipher,
		Namespace:     cfg.Vault.Namespace,
		Account:       cfg.Vault.Account,
		Prompt:        cfg.Vault.Prompt,
		Clock:         env.Clock,
		Logger:        logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newAuthenticator(cfg config.BiometricConfig) (authenticator, error) {
	switch cfg.Backend {
	case "fprintd":
		return &biometric.Fprintd{User: cfg.User}, nil
	case "simulator":
		modality, err := biometric.ParseModality(cfg.Simulator.Modality)
		if err != nil {
			return nil, err
		}
		outcome, err := biometric.ParseCode(cfg.Simulator.Outcome)
		if err != nil {
			return nil, err
		}
		return biometric.NewSimulator(biometric.SimulatorConfig{
			Modality:     modality,
			Enrolled:     cfg.Simulator.Enrolled,
			EnrollmentID: cfg.Simulator.EnrollmentID,
			Outcome:      outcome,
		}), nil
	}
	return nil, fmt.Errorf("unknown biometric backend %q", cfg.Backend)
}
