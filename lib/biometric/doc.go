// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package biometric adapts platform biometric subsystems to one small
// interface.
//
// [Authenticator] has two operations: [Authenticator.CanEvaluate]
// reports the available modality and whether a challenge could run
// right now, and [Authenticator.Evaluate] runs one native challenge and
// reports a platform [Code]. Codes are raw platform outcomes; the
// authgate package maps them onto the vaulterr taxonomy.
//
// Authenticators that can describe the current enrollment set also
// implement [EnrollmentSource]. Stores that emulate
// invalidate-on-biometric-change hash that description and compare it
// on every read.
//
// Backends:
//
//   - [Simulator] -- deterministic in-process device with scripted
//     outcomes, a prompt counter, hold/release for concurrency tests,
//     and failed-attempt lockout. Used by tests and by the CLI's
//     simulator mode.
//   - [Fprintd] -- Linux fingerprint readers via fprintd-list and
//     fprintd-verify.
package biometric
