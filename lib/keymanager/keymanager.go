// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keymanager owns the vault's symmetric encryption key: it
// creates the key on first use, persists it in the secure store, caches
// it in protected memory, and destroys it when the vault is cleared.
//
// The key is stored as an unbound, device-local entry: reading it never
// prompts. Whether credentials can be read is decided by the
// biometric-bound credential entry, not by the key.
//
// Creation is check-then-create and must happen exactly once, even when
// the first Save and the first Retrieve race. A mutex covers callers in
// this process; an optional lock file (gofrs/flock) covers other
// processes sharing the same store.
package keymanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/bureau-foundation/biovault/lib/clock"
	"github.com/bureau-foundation/biovault/lib/codec"
	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/securestore"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// KeySize is the key length in bytes.
const KeySize = 32

// lockRetryDelay is how often a contended lock file is retried.
const lockRetryDelay = 10 * time.Millisecond

// Provider supplies the vault key.
type Provider interface {
	// GetOrCreateKey returns the key, creating and persisting it if it
	// does not exist. The returned buffer is a copy owned by the
	// caller, who must Close it.
	GetOrCreateKey(ctx context.Context) (*secret.Buffer, error)

	// DestroyKey deletes the stored key and zeroes any cached copy. The
	// next GetOrCreateKey creates a new key.
	DestroyKey(ctx context.Context) error
}

// KeyRecord is the stored form of the key.
type KeyRecord struct {
	ID        string `cbor:"1,keyasint"`
	CreatedAt int64  `cbor:"2,keyasint"`
	Material  []byte `cbor:"3,keyasint"`
}

// Config holds a Manager's dependencies.
type Config struct {
	// Store persists the key. Required.
	Store securestore.Store

	// Namespace and Account address the key entry. Required.
	Namespace string
	Account   string

	// LockPath, if set, is a lock file held across check-then-create
	// and destroy.
	LockPath string

	// Clock stamps KeyRecord.CreatedAt. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager implements Provider. It is safe for concurrent use.
type Manager struct {
	store     securestore.Store
	namespace string
	account   string
	fileLock  *flock.Flock
	clock     clock.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	cached   *secret.Buffer
	cachedID string
}

var _ Provider = (*Manager)(nil)

// New creates a Manager. It does not touch the store.
func New(config Config) (*Manager, error) {
	if config.Store == nil {
		return nil, errors.New("keymanager: Store is required")
	}
	if config.Namespace == "" || config.Account == "" {
		return nil, errors.New("keymanager: Namespace and Account are required")
	}
	manager := &Manager{
		store:     config.Store,
		namespace: config.Namespace,
		account:   config.Account,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if config.LockPath != "" {
		manager.fileLock = flock.New(config.LockPath)
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.logger == nil {
		manager.logger = slog.Default()
	}
	return manager, nil
}

// GetOrCreateKey implements Provider.
//
// A stored record that cannot be decoded, or whose material is not
// KeySize bytes, yields a KindEncryptionFailed error. It is never
// replaced silently: doing so would orphan every credential sealed
// with the old key without telling anyone.
func (m *Manager) GetOrCreateKey(ctx context.Context) (*secret.Buffer, error) {
	const op = "keymanager.get_or_create"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached.Clone()
	}

	unlock, err := m.lockFile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	data, err := m.store.Get(ctx, m.namespace, m.account, "")
	switch {
	case err == nil:
		key, id, err := decodeRecord(data)
		secret.Zero(data)
		if err != nil {
			return nil, vaulterr.Wrap(vaulterr.KindEncryptionFailed, op, err)
		}
		m.cached, m.cachedID = key, id
		m.logger.Debug("loaded encryption key", "key_id", id)
	case errors.Is(err, vaulterr.ErrNotFound):
		key, id, err := m.create(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.cached, m.cachedID = key, id
		m.logger.Info("created encryption key", "key_id", id)
	default:
		return nil, fmt.Errorf("%s: reading key: %w", op, err)
	}

	return m.cached.Clone()
}

func (m *Manager) create(ctx context.Context) (*secret.Buffer, string, error) {
	key, err := secret.Random(KeySize)
	if err != nil {
		return nil, "", fmt.Errorf("generating key: %w", err)
	}

	id := uuid.New().String()
	record := KeyRecord{
		ID:        id,
		CreatedAt: m.clock.Now().UnixNano(),
		Material:  key.Bytes(),
	}
	data, err := codec.Marshal(record)
	if err != nil {
		key.Close()
		return nil, "", fmt.Errorf("encoding key record: %w", err)
	}
	defer secret.Zero(data)

	policy := securestore.Policy{Accessibility: securestore.AccessibilityDeviceLocal}
	if err := m.store.Put(ctx, m.namespace, m.account, data, policy); err != nil {
		key.Close()
		return nil, "", fmt.Errorf("persisting key: %w", err)
	}
	return key, id, nil
}

func decodeRecord(data []byte) (*secret.Buffer, string, error) {
	var record KeyRecord
	if err := codec.UnmarshalStrict(data, &record); err != nil {
		return nil, "", fmt.Errorf("decoding key record: %w", err)
	}
	if len(record.Material) != KeySize {
		secret.Zero(record.Material)
		return nil, "", fmt.Errorf("key record holds %d bytes, want %d", len(record.Material), KeySize)
	}
	if _, err := uuid.Parse(record.ID); err != nil {
		secret.Zero(record.Material)
		return nil, "", fmt.Errorf("key record ID: %w", err)
	}
	key, err := secret.NewFromBytes(record.Material)
	if err != nil {
		return nil, "", err
	}
	return key, record.ID, nil
}

// DestroyKey implements Provider. The cached copy is zeroed even when
// deleting the stored key fails.
func (m *Manager) DestroyKey(ctx context.Context) error {
	const op = "keymanager.destroy"

	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropCacheLocked()

	unlock, err := m.lockFile(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	if err := m.store.Delete(ctx, m.namespace, m.account); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.logger.Info("destroyed encryption key")
	return nil
}

// KeyID returns the ID of the cached key, or "" if no key is cached.
func (m *Manager) KeyID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cachedID
}

// Close zeroes the cached key. The Manager remains usable; the next
// GetOrCreateKey reloads the key from the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropCacheLocked()
	return nil
}

func (m *Manager) dropCacheLocked() {
	if m.cached != nil {
		m.cached.Close()
		m.cached = nil
	}
	m.cachedID = ""
}

// lockFile acquires the cross-process lock, if configured, and returns
// the function that releases it.
func (m *Manager) lockFile(ctx context.Context) (func(), error) {
	if m.fileLock == nil {
		return func() {}, nil
	}
	locked, err := m.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", m.fileLock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: not acquired", m.fileLock.Path())
	}
	return func() {
		if err := m.fileLock.Unlock(); err != nil {
			m.logger.Warn("releasing key lock file failed", "path", m.fileLock.Path(), "error", err)
		}
	}, nil
}
