// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package securestore

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/biovault/lib/secret"
)

type entryKey struct {
	namespace string
	key       string
}

type memoryEntry struct {
	data           []byte
	policy         Policy
	enrollmentHash []byte
	updatedAt      time.Time
}

// Memory is an in-process Store. Values live on the Go heap and are
// zeroed when deleted or replaced. It is safe for concurrent use.
type Memory struct {
	binder *binder

	mu      sync.Mutex
	entries map[entryKey]*memoryEntry
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory(options Options) (*Memory, error) {
	binder, err := newBinder(options)
	if err != nil {
		return nil, err
	}
	return &Memory{
		binder:  binder,
		entries: make(map[entryKey]*memoryEntry),
	}, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, namespace, key string, data []byte, policy Policy) error {
	hash, err := m.binder.bind("securestore.put", namespace, policy)
	if err != nil {
		return err
	}

	entry := &memoryEntry{
		data:           append([]byte(nil), data...),
		policy:         policy,
		enrollmentHash: hash,
		updatedAt:      m.binder.clock.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if previous, ok := m.entries[entryKey{namespace, key}]; ok {
		secret.Zero(previous.data)
	}
	m.entries[entryKey{namespace, key}] = entry
	return nil
}

// Get implements Store. The entry is read before the challenge and
// the challenge runs without holding the store lock, so Exists and
// writes of other entries proceed while a prompt is on screen.
func (m *Memory) Get(ctx context.Context, namespace, key, prompt string) ([]byte, error) {
	const op = "securestore.get"

	entry, ok := m.lookup(namespace, key)
	if !ok {
		return nil, notFound(op)
	}
	if err := m.binder.unlock(ctx, op, namespace, entry.policy, entry.enrollmentHash, prompt); err != nil {
		return nil, err
	}

	return entry.data, nil
}

// lookup returns a snapshot copy of the entry.
func (m *Memory) lookup(namespace, key string) (*memoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[entryKey{namespace, key}]
	if !ok {
		return nil, false
	}
	snapshot := *entry
	snapshot.data = append([]byte(nil), entry.data...)
	return &snapshot, true
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[entryKey{namespace, key}]; ok {
		secret.Zero(entry.data)
		delete(m.entries, entryKey{namespace, key})
	}
	return nil
}

// Exists implements Store.
func (m *Memory) Exists(ctx context.Context, namespace, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[entryKey{namespace, key}]
	return ok, nil
}

// InvalidateOnBiometricChange implements Store.
func (m *Memory) InvalidateOnBiometricChange() bool {
	return m.binder.enabled
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Corrupt replaces the stored bytes of an existing entry while keeping
// its policy and binding, as a disk error or tampering would. It
// reports whether the entry existed.
func (m *Memory) Corrupt(namespace, key string, mutate func(data []byte) []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[entryKey{namespace, key}]
	if !ok {
		return false
	}
	entry.data = mutate(entry.data)
	return true
}

// Raw returns a copy of the stored bytes without enforcing any policy.
func (m *Memory) Raw(namespace, key string) ([]byte, bool) {
	entry, ok := m.lookup(namespace, key)
	if !ok {
		return nil, false
	}
	return entry.data, true
}
