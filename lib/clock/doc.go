// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable source of the current time.
//
// Vault code never calls time.Now directly. Credential expiry checks,
// key record timestamps, and the biometric simulator's lockout window
// all read a Clock, so tests can pin time with Fake and move it with
// Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	vault, _ := vault.New(vault.Config{Clock: c, ...})
//	c.Advance(2 * time.Hour) // saved credential is now expired
//
// Production code passes Real().
package clock
