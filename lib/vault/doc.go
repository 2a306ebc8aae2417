// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vault stores one user's session credential behind a
// biometric check.
//
// [Vault.Save] encodes the credential canonically, seals it with
// [envelope] under the key held by a [keymanager.Provider], and writes
// it to a [securestore.Store] entry that is bound to the current
// biometric enrollment. [Vault.Retrieve] reads the entry, which runs
// the biometric challenge, then opens and decodes it.
//
// Every save draws a fresh generation identifier, stored beside the
// credential entry and bound into the envelope as associated data. A
// ciphertext captured before a later save no longer opens, even when
// written back into the store directly. [Vault.ClearAll] also destroys
// the key, so nothing captured before it opens afterwards.
//
// A ciphertext that fails to open is deleted, so the next Retrieve
// reports not found instead of failing the same way forever. Errors
// that say nothing about the stored bytes (a canceled prompt, a
// lockout, a changed enrollment set) leave the entry in place.
//
// Concurrent Retrieve calls share one execution and one prompt. Save,
// Delete, ClearAll, and the shared Retrieve body are serialized by one
// vault-wide mutex.
package vault
