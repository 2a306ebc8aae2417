// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for biovault packages.
//
// [RequireReceive] and [RequireClosed] bound every wait on a channel
// with a timer so a broken test fails instead of hanging. They are the
// only place in the test suite that uses wall-clock time; everything
// else runs on lib/clock's fake clock.
//
// [PrivateDir] creates an owner-only temporary directory for identity
// files, key lock files, and SQLite databases. [FileMode] reads back
// the permission bits the code under test set.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as per-test namespaces that must not collide in
// a shared store.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no biovault-internal dependencies.
package testutil
