// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed binds stored data to this device with an age x25519
// identity.
//
// The on-disk store seals every record to the device [Identity] before
// writing it. The identity lives in an owner-only file next to the
// database, so a copied database without the identity file is
// unreadable. This is the local stand-in for a platform keychain's
// "this device only" accessibility class.
//
// Key exports:
//
//   - [LoadOrCreateIdentity] -- read the identity file, generating it
//     (mode 0600) on first use
//   - [GenerateIdentity] -- new in-memory identity, for tests and the
//     memory store
//   - [Identity.Seal] / [Identity.Open] -- binary age encryption to the
//     identity's own recipient
//
// The private key is held in a [secret.Buffer] backed by mmap memory
// outside the Go heap (locked against swap, excluded from core dumps,
// zeroed on Close).
package sealed
