// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vaulterr defines the error taxonomy shared by every biovault
// layer. Each failure carries a [Kind] from one of four categories:
//
//   - capability: the device cannot run a biometric check at all
//     (unavailable, not_enrolled)
//   - auth: a biometric challenge ran and did not succeed (locked_out,
//     user_canceled, user_fallback, system_canceled, passcode_not_set,
//     biometry_invalidated, unknown)
//   - store: the secure store rejected an operation (store_failed,
//     retrieve_failed, delete_failed, not_found)
//   - crypto: envelope sealing or opening failed (encryption_failed,
//     decryption_failed)
//
// [Error] wraps an underlying cause and an operation name, preserving
// the full chain for errors.As while letting callers branch on kind
// with errors.Is against the exported sentinels:
//
//	if errors.Is(err, vaulterr.ErrBiometryInvalidated) {
//	    // prompt the user to re-enable biometric login
//	}
//
// Error messages never contain token values or key material. Callers
// that wrap a cause must ensure the cause's text is equally clean.
//
// This package has no biovault-internal dependencies.
package vaulterr
