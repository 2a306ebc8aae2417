// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/capability"
	"github.com/bureau-foundation/biovault/lib/clock"
	"github.com/bureau-foundation/biovault/lib/envelope"
	"github.com/bureau-foundation/biovault/lib/flight"
	"github.com/bureau-foundation/biovault/lib/keymanager"
	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/securestore"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

const (
	// DefaultNamespace groups every entry the vault writes.
	DefaultNamespace = "com.bblearning.app.biometric"

	// DefaultAccount addresses the credential entry.
	DefaultAccount = "biometric_credential"

	// DefaultKeyAccount addresses the encryption key entry.
	DefaultKeyAccount = "encryption_key"

	// DefaultPrompt is shown in the native biometric challenge.
	DefaultPrompt = "Verify your identity to sign in"

	// generationSuffix is appended to the credential account to
	// address the generation entry.
	generationSuffix = ".generation"
)

// ErrNoBiometricBinding is returned by New when the store cannot bind
// entries to the biometric enrollment set. There is no fallback to an
// unbound entry.
var ErrNoBiometricBinding = errors.New("vault: store does not support invalidate-on-biometric-change")

// Config holds a Vault's dependencies.
type Config struct {
	// Store holds the credential entry. Required; must report
	// InvalidateOnBiometricChange.
	Store securestore.Store

	// Authenticator answers capability queries. Required.
	Authenticator biometric.Authenticator

	// Keys supplies the encryption key. Required.
	Keys keymanager.Provider

	// Cipher seals new credentials. Defaults to envelope.Default.
	// Either format opens.
	Cipher envelope.Cipher

	// Namespace and Account address the credential entry. Default to
	// DefaultNamespace and DefaultAccount.
	Namespace string
	Account   string

	// Prompt is the reason shown in the biometric challenge. Defaults
	// to DefaultPrompt.
	Prompt string

	// Clock is used to warn about saving an expired credential.
	// Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnShare, if set, is called each time a Retrieve joins one
	// already in flight.
	OnShare func()
}

// Vault is safe for concurrent use.
type Vault struct {
	store      securestore.Store
	keys       keymanager.Provider
	probe      *capability.Probe
	cipher     envelope.Cipher
	namespace  string
	account    string
	generation string
	prompt     string
	clock      clock.Clock
	logger     *slog.Logger

	// opMu serializes Save, Delete, ClearAll, and the shared Retrieve
	// body.
	opMu     sync.Mutex
	retrieve flight.Single[Credential]
}

// New creates a Vault. It does not touch the store.
func New(config Config) (*Vault, error) {
	if config.Store == nil || config.Authenticator == nil || config.Keys == nil {
		return nil, errors.New("vault: Store, Authenticator, and Keys are required")
	}
	if !config.Store.InvalidateOnBiometricChange() {
		return nil, ErrNoBiometricBinding
	}

	v := &Vault{
		store:     config.Store,
		keys:      config.Keys,
		probe:     capability.New(config.Authenticator),
		cipher:    config.Cipher,
		namespace: config.Namespace,
		account:   config.Account,
		prompt:    config.Prompt,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if v.cipher == 0 {
		v.cipher = envelope.Default
	}
	if v.namespace == "" {
		v.namespace = DefaultNamespace
	}
	if v.account == "" {
		v.account = DefaultAccount
	}
	if v.prompt == "" {
		v.prompt = DefaultPrompt
	}
	if v.clock == nil {
		v.clock = clock.Real()
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.generation = v.account + generationSuffix
	v.retrieve.OnShare = config.OnShare
	return v, nil
}

// Save replaces the stored credential. Errors have kind
// KindStoreFailed; when sealing fails the chain also matches
// KindEncryptionFailed.
func (v *Vault) Save(ctx context.Context, credential Credential) error {
	const op = "vault.save"

	if err := credential.Validate(); err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, err)
	}
	if credential.Expired(v.clock.Now()) {
		v.logger.Warn("saving credential that has already expired", "credential", credential)
	}

	v.opMu.Lock()
	defer v.opMu.Unlock()

	key, err := v.keys.GetOrCreateKey(ctx)
	if err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, err)
	}
	defer key.Close()

	plaintext, err := encodeCredential(credential)
	if err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op,
			vaulterr.Wrap(vaulterr.KindEncryptionFailed, op, fmt.Errorf("encoding credential: %w", err)))
	}
	defer secret.Zero(plaintext)

	generation := uuid.New().String()
	blob, err := v.cipher.Seal(plaintext, key, v.associatedData(generation))
	if err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, err)
	}

	if err := v.store.Delete(ctx, v.namespace, v.account); err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, fmt.Errorf("deleting previous credential: %w", err))
	}
	// The credential goes in before its generation. A failure part way
	// removes whatever was written, so neither entry outlives the other.
	bound := securestore.Policy{
		Accessibility:               securestore.AccessibilityDeviceLocal,
		InvalidateOnBiometricChange: true,
	}
	if err := v.store.Put(ctx, v.namespace, v.account, blob, bound); err != nil {
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, errors.Join(err, v.removeOrphan(ctx, v.generation)))
	}
	unbound := securestore.Policy{Accessibility: securestore.AccessibilityDeviceLocal}
	if err := v.store.Put(ctx, v.namespace, v.generation, []byte(generation), unbound); err != nil {
		err = fmt.Errorf("writing generation: %w", err)
		return vaulterr.Wrap(vaulterr.KindStoreFailed, op, errors.Join(err, v.removeOrphan(ctx, v.account)))
	}

	v.logger.Info("saved credential", "credential", credential, "cipher", v.cipher.String())
	return nil
}

// Retrieve reads the credential after a biometric challenge. Errors:
//
//   - KindNotFound when nothing is stored.
//   - KindBiometryInvalidated when the enrollment set changed since
//     Save. The entry stays until Delete or the next Save.
//   - The capability and auth kinds of the challenge (KindLockedOut,
//     KindUserCanceled, ...). The entry stays.
//   - KindDecryptionFailed when the stored entry or its ciphertext does
//     not open. The entry is deleted, so the next Retrieve reports
//     KindNotFound.
//   - KindRetrieveFailed for anything else.
//
// Concurrent calls share one execution and receive the same result. A
// caller whose ctx ends stops waiting with ctx.Err(); the shared
// execution continues for the others.
func (v *Vault) Retrieve(ctx context.Context) (Credential, error) {
	credential, _, err := v.retrieve.Do(ctx, func(ctx context.Context) (Credential, error) {
		v.opMu.Lock()
		defer v.opMu.Unlock()
		return v.retrieveLocked(ctx)
	})
	return credential, err
}

func (v *Vault) retrieveLocked(ctx context.Context) (Credential, error) {
	const op = "vault.retrieve"

	blob, err := v.store.Get(ctx, v.namespace, v.account, v.prompt)
	if err != nil {
		switch {
		case vaulterr.KindOf(err) == vaulterr.KindDecryptionFailed:
			return Credential{}, v.discard(ctx, op, err)
		case passThrough(err):
			return Credential{}, err
		}
		return Credential{}, vaulterr.Wrap(vaulterr.KindRetrieveFailed, op, err)
	}

	generation, err := v.readGeneration(ctx)
	if err != nil {
		switch vaulterr.KindOf(err) {
		case vaulterr.KindNotFound:
			// Without its generation the blob can never open.
			return Credential{}, v.discard(ctx, op, errors.New("credential generation missing"))
		case vaulterr.KindDecryptionFailed:
			return Credential{}, v.discard(ctx, op, fmt.Errorf("reading credential generation: %w", err))
		}
		return Credential{}, vaulterr.Wrap(vaulterr.KindRetrieveFailed, op, err)
	}

	key, err := v.keys.GetOrCreateKey(ctx)
	if err != nil {
		return Credential{}, vaulterr.Wrap(vaulterr.KindRetrieveFailed, op, err)
	}
	defer key.Close()

	plaintext, err := envelope.OpenWith(blob, key, v.associatedData(generation))
	if err != nil {
		return Credential{}, v.discard(ctx, op, err)
	}
	credential, err := decodeCredential(plaintext)
	if err != nil {
		return Credential{}, v.discard(ctx, op, fmt.Errorf("decoding credential: %w", err))
	}

	v.logger.Info("retrieved credential", "credential", credential)
	return credential, nil
}

// removeOrphan deletes the entry left behind by a failed Save. The
// error it returns is nil when the entry is gone.
func (v *Vault) removeOrphan(ctx context.Context, account string) error {
	if err := v.store.Delete(ctx, v.namespace, account); err != nil {
		v.logger.Error("removing entry after failed save", "account", account, "error", err)
		return fmt.Errorf("removing %s: %w", account, err)
	}
	return nil
}

// readGeneration returns the generation of the stored credential.
// A malformed generation is reported as not found.
func (v *Vault) readGeneration(ctx context.Context) (string, error) {
	data, err := v.store.Get(ctx, v.namespace, v.generation, "")
	if err != nil {
		return "", err
	}
	parsed, err := uuid.ParseBytes(data)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.KindNotFound, "vault.generation", err)
	}
	return parsed.String(), nil
}

// discard deletes a credential that can never be read and returns a
// KindDecryptionFailed error with cause.
func (v *Vault) discard(ctx context.Context, op string, cause error) error {
	v.logger.Warn("discarding unreadable credential", "error", cause)
	if err := v.deleteEntries(ctx); err != nil {
		v.logger.Error("deleting unreadable credential failed", "error", err)
	}
	if vaulterr.KindOf(cause) == vaulterr.KindDecryptionFailed {
		return cause
	}
	return vaulterr.Wrap(vaulterr.KindDecryptionFailed, op, cause)
}

// passThrough reports whether a store read error is returned to the
// caller unchanged.
func passThrough(err error) bool {
	switch vaulterr.KindOf(err) {
	case vaulterr.KindNotFound:
		return true
	case "":
		return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}
	switch vaulterr.CategoryOf(err) {
	case vaulterr.CategoryCapability, vaulterr.CategoryAuth:
		return true
	}
	return false
}

// Delete removes the stored credential. Deleting when nothing is
// stored succeeds. Errors have kind KindDeleteFailed. The key is kept.
func (v *Vault) Delete(ctx context.Context) error {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	if err := v.deleteEntries(ctx); err != nil {
		return vaulterr.Wrap(vaulterr.KindDeleteFailed, "vault.delete", err)
	}
	v.logger.Info("deleted credential")
	return nil
}

func (v *Vault) deleteEntries(ctx context.Context) error {
	return errors.Join(
		v.store.Delete(ctx, v.namespace, v.account),
		v.store.Delete(ctx, v.namespace, v.generation),
	)
}

// Exists reports whether a credential is stored, without prompting.
// Store errors are logged and reported as false.
func (v *Vault) Exists(ctx context.Context) bool {
	exists, err := v.store.Exists(ctx, v.namespace, v.account)
	if err != nil {
		v.logger.Warn("checking for stored credential failed", "error", err)
		return false
	}
	return exists
}

// ClearAll deletes the credential and destroys the key. Ciphertext
// captured before ClearAll never opens afterwards. Every step is
// attempted; errors have kind KindDeleteFailed and join every failure.
func (v *Vault) ClearAll(ctx context.Context) error {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	if err := errors.Join(v.deleteEntries(ctx), v.keys.DestroyKey(ctx)); err != nil {
		return vaulterr.Wrap(vaulterr.KindDeleteFailed, "vault.clear_all", err)
	}
	v.logger.Info("cleared credential and encryption key")
	return nil
}

// Enable saves credential if biometric login can be offered on this
// device. Otherwise it returns KindUnavailable or KindNotEnrolled and
// stores nothing.
func (v *Vault) Enable(ctx context.Context, credential Credential) error {
	if err := v.probe.Check(); err != nil {
		return err
	}
	return v.Save(ctx, credential)
}

// BiometricType reports the device's sensor modality.
func (v *Vault) BiometricType() biometric.Modality {
	return v.probe.BiometricType()
}

// IsAvailable reports whether biometric login can be offered.
func (v *Vault) IsAvailable() bool {
	return v.probe.IsAvailable()
}

// Description is the label for the biometric login affordance.
func (v *Vault) Description() string {
	return v.probe.Description()
}

// associatedData binds a blob to its entry address and save
// generation.
func (v *Vault) associatedData(generation string) []byte {
	return []byte("biovault credential v1\x00" + v.namespace + "\x00" + v.account + "\x00" + generation)
}
