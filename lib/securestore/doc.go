// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package securestore is the local stand-in for a platform credential
// store (a keychain): small byte values addressed by namespace and
// key, each written with an access-control [Policy].
//
// Entries written with Policy.InvalidateOnBiometricChange are
// biometric-bound. Reading one runs the configured [Gate] with the
// caller's prompt, and the entry becomes permanently unreadable once
// the set of enrolled biometric identities changes. Platforms enforce
// that in hardware; this package emulates it by storing a BLAKE3 hash
// of the authenticator's enrollment description with the entry and
// comparing it on every read, before prompting. A mismatch reports
// vaulterr.KindBiometryInvalidated and leaves the entry in place until
// it is deleted or overwritten.
//
// Entries without the flag are read with no prompt. The encryption key
// is stored that way.
//
// Implementations:
//
//   - [Memory] -- in-process map, for tests and throwaway sessions
//   - [SQLite] -- single-table database whose values are sealed to the
//     device's age identity (see lib/sealed), so a copied database file
//     is useless without the identity file
//
// A store configured to emulate invalidation without an enrollment
// source cannot be constructed: there would be nothing to bind to, and
// silently storing unbound entries would defeat the policy.
package securestore
