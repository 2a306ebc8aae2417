// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package securestore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/clock"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// Accessibility says when and where an entry may be read.
type Accessibility uint8

const (
	// AccessibilityDeviceLocal entries are readable only on this
	// device while the user session is active. They are never exported
	// or synced.
	AccessibilityDeviceLocal Accessibility = 1
)

func (a Accessibility) String() string {
	switch a {
	case AccessibilityDeviceLocal:
		return "device_local"
	default:
		return fmt.Sprintf("accessibility(%d)", uint8(a))
	}
}

// Policy is the access control attached to an entry when it is written.
type Policy struct {
	Accessibility Accessibility

	// InvalidateOnBiometricChange binds the entry to the enrollment set
	// current at write time and requires a biometric challenge on read.
	InvalidateOnBiometricChange bool
}

// encode packs a policy into one integer column: accessibility in the
// low byte, the invalidation flag in bit 8.
func (p Policy) encode() int64 {
	value := int64(p.Accessibility)
	if p.InvalidateOnBiometricChange {
		value |= 1 << 8
	}
	return value
}

func decodePolicy(value int64) Policy {
	return Policy{
		Accessibility:               Accessibility(value & 0xff),
		InvalidateOnBiometricChange: value&(1<<8) != 0,
	}
}

// Store is a secure credential store.
type Store interface {
	// Put writes data under (namespace, key), replacing any existing
	// entry.
	Put(ctx context.Context, namespace, key string, data []byte, policy Policy) error

	// Get reads the entry. For biometric-bound entries it first checks
	// the enrollment binding, then runs a biometric challenge showing
	// prompt. Errors: KindNotFound when absent, KindBiometryInvalidated
	// when the enrollment set changed, KindDecryptionFailed when the
	// stored entry is corrupt or was tampered with, the gate's
	// capability and auth kinds unchanged, and plain errors for storage
	// failures.
	Get(ctx context.Context, namespace, key, prompt string) ([]byte, error)

	// Delete removes the entry. Deleting an absent entry succeeds.
	Delete(ctx context.Context, namespace, key string) error

	// Exists reports whether an entry is present, without prompting.
	Exists(ctx context.Context, namespace, key string) (bool, error)

	// InvalidateOnBiometricChange reports whether the store can bind
	// entries to the biometric enrollment set.
	InvalidateOnBiometricChange() bool
}

// Gate runs the biometric challenge guarding biometric-bound reads.
// *authgate.Gate implements it.
type Gate interface {
	Authenticate(ctx context.Context, reason string) error
}

// Options configure the access-control behaviour shared by every
// implementation.
type Options struct {
	// Gate authenticates reads of biometric-bound entries. Required
	// when InvalidateOnBiometricChange is set.
	Gate Gate

	// Enrollment describes the current enrollment set. Required when
	// InvalidateOnBiometricChange is set.
	Enrollment biometric.EnrollmentSource

	// InvalidateOnBiometricChange enables biometric-bound entries.
	InvalidateOnBiometricChange bool

	// Clock stamps entry update times. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// binder enforces entry policies. Both implementations delegate to it
// so the emulation behaves identically regardless of backend.
type binder struct {
	gate       Gate
	enrollment biometric.EnrollmentSource
	enabled    bool
	clock      clock.Clock
	logger     *slog.Logger
}

// errMisconfigured is returned by constructors when invalidation is
// requested without the pieces needed to enforce it.
var errMisconfigured = errors.New("securestore: invalidate-on-biometric-change requires both an enrollment source and a gate")

func newBinder(options Options) (*binder, error) {
	if options.InvalidateOnBiometricChange && (options.Enrollment == nil || options.Gate == nil) {
		return nil, errMisconfigured
	}
	b := &binder{
		gate:       options.Gate,
		enrollment: options.Enrollment,
		enabled:    options.InvalidateOnBiometricChange,
		clock:      options.Clock,
		logger:     options.Logger,
	}
	if b.clock == nil {
		b.clock = clock.Real()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b, nil
}

// bind validates policy and returns the enrollment hash to store with
// the entry: nil for entries that are not biometric-bound.
func (b *binder) bind(op, namespace string, policy Policy) ([]byte, error) {
	if policy.Accessibility != AccessibilityDeviceLocal {
		return nil, fmt.Errorf("%s: unsupported accessibility %s", op, policy.Accessibility)
	}
	if !policy.InvalidateOnBiometricChange {
		return nil, nil
	}
	if !b.enabled {
		return nil, fmt.Errorf("%s: store does not support invalidate-on-biometric-change", op)
	}
	hash, err := b.currentHash(namespace)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if hash == nil {
		// Binding to an empty enrollment set would make the entry
		// readable by whoever enrolls first.
		return nil, vaulterr.New(vaulterr.KindNotEnrolled, op)
	}
	return hash, nil
}

// unlock enforces policy on read. For biometric-bound entries it
// compares the enrollment binding and then runs the gate.
func (b *binder) unlock(ctx context.Context, op, namespace string, policy Policy, storedHash []byte, prompt string) error {
	if !policy.InvalidateOnBiometricChange {
		return nil
	}
	if !b.enabled {
		return fmt.Errorf("%s: biometric-bound entry in a store without invalidation support", op)
	}

	current, err := b.currentHash(namespace)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if current == nil || subtle.ConstantTimeCompare(current, storedHash) != 1 {
		b.logger.Info("biometric enrollment changed since entry was written",
			"namespace", namespace,
		)
		return vaulterr.New(vaulterr.KindBiometryInvalidated, op)
	}

	return b.gate.Authenticate(ctx, prompt)
}

// currentHash returns the keyed BLAKE3 hash of the current enrollment
// description, or nil when nothing is enrolled. The key is derived
// from the namespace so hashes are not comparable across namespaces.
func (b *binder) currentHash(namespace string) ([]byte, error) {
	description, err := b.enrollment.Enrollment()
	if err != nil {
		return nil, fmt.Errorf("reading biometric enrollment: %w", err)
	}
	if len(description) == 0 {
		return nil, nil
	}

	key := blake3.Sum256([]byte("biovault enrollment binding v1\x00" + namespace))
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("securestore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(description)
	return hasher.Sum(nil), nil
}

func notFound(op string) error {
	return vaulterr.New(vaulterr.KindNotFound, op)
}
