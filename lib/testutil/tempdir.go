// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// PrivateDir returns a fresh temporary directory with mode 0700, for
// tests that write identity files, lock files, or databases the code
// under test expects to be readable only by the owner.
//
// The directory is removed when the test completes.
func PrivateDir(t *testing.T) string {
	t.Helper()
	directory := t.TempDir()
	if err := os.Chmod(directory, 0o700); err != nil {
		t.Fatalf("restricting %s: %v", directory, err)
	}
	return directory
}

// FileMode returns the permission bits of path, failing the test if
// it cannot be stat'ed.
func FileMode(t *testing.T, path string) os.FileMode {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Mode().Perm()
}
