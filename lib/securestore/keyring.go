// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package securestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/bureau-foundation/biovault/lib/codec"
	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// Keyring is a Store kept in the operating system's secret service:
// the freedesktop Secret Service on Linux, the login Keychain on macOS
// and Credential Manager on Windows. The namespace is the keyring
// service name and the key is the item's user name.
//
// Each item holds a base64 entryRecord, so the policy and enrollment
// binding travel with the value and an item copied under another name
// is rejected. Access control beyond the login session is the
// platform's; biometric binding is enforced here as in the other
// stores.
type Keyring struct {
	binder *binder
}

var _ Store = (*Keyring)(nil)

// NewKeyring returns a Store over the platform keyring. It does not
// contact the keyring until first use.
func NewKeyring(options Options) (*Keyring, error) {
	binder, err := newBinder(options)
	if err != nil {
		return nil, err
	}
	return &Keyring{binder: binder}, nil
}

// Put implements Store.
func (k *Keyring) Put(ctx context.Context, namespace, key string, data []byte, policy Policy) error {
	const op = "securestore.put"

	hash, err := k.binder.bind(op, namespace, policy)
	if err != nil {
		return err
	}
	encoded, err := codec.Marshal(entryRecord{
		Namespace:      namespace,
		Key:            key,
		Policy:         policy.encode(),
		EnrollmentHash: hash,
		Data:           data,
	})
	if err != nil {
		return fmt.Errorf("%s: encoding record: %w", op, err)
	}
	value := base64.StdEncoding.EncodeToString(encoded)
	secret.Zero(encoded)

	if err := keyring.Set(namespace, key, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get implements Store.
func (k *Keyring) Get(ctx context.Context, namespace, key, prompt string) ([]byte, error) {
	const op = "securestore.get"

	value, err := keyring.Get(namespace, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, notFound(op)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record, err := decodeKeyringItem(namespace, key, value)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindDecryptionFailed, op, err)
	}
	if err := k.binder.unlock(ctx, op, namespace, decodePolicy(record.Policy), record.EnrollmentHash, prompt); err != nil {
		secret.Zero(record.Data)
		return nil, err
	}
	return record.Data, nil
}

// decodeKeyringItem parses an item value and checks it belongs where
// it was found.
func decodeKeyringItem(namespace, key, value string) (*entryRecord, error) {
	encoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	defer secret.Zero(encoded)

	var record entryRecord
	if err := codec.UnmarshalStrict(encoded, &record); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	if record.Namespace != namespace || record.Key != key {
		secret.Zero(record.Data)
		return nil, errors.New("entry was written for a different namespace or key")
	}
	return &record, nil
}

// Delete implements Store.
func (k *Keyring) Delete(ctx context.Context, namespace, key string) error {
	err := keyring.Delete(namespace, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("securestore.delete: %w", err)
	}
	return nil
}

// Exists implements Store.
func (k *Keyring) Exists(ctx context.Context, namespace, key string) (bool, error) {
	_, err := keyring.Get(namespace, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("securestore.exists: %w", err)
}

// InvalidateOnBiometricChange implements Store.
func (k *Keyring) InvalidateOnBiometricChange() bool {
	return k.binder.enabled
}
