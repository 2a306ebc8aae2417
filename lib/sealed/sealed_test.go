// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/biovault/lib/testutil"
)

func TestSealOpenRoundtrip(t *testing.T) {
	identity, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer identity.Close()

	if !strings.HasPrefix(identity.Recipient(), "age1") {
		t.Errorf("Recipient() = %q, want age1 prefix", identity.Recipient())
	}

	plaintext := []byte("record payload")
	ciphertext, err := identity.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	opened, err := identity.Open(ciphertext)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open = %q, want %q", opened, plaintext)
	}
}

func TestOpenWithOtherIdentityFails(t *testing.T) {
	first, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer first.Close()
	second, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer second.Close()

	ciphertext, err := first.Seal([]byte("bound to first"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := second.Open(ciphertext); err == nil {
		t.Error("Open with a different identity succeeded")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	identity, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer identity.Close()

	ciphertext, err := identity.Seal([]byte("integrity protected"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := identity.Open(ciphertext); err == nil {
		t.Error("Open accepted tampered ciphertext")
	}
}

func TestLoadOrCreateIdentity(t *testing.T) {
	path := filepath.Join(testutil.PrivateDir(t), "keys", "device.age")

	first, created, err := LoadOrCreateIdentity(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity (create): %v", err)
	}
	defer first.Close()
	if !created {
		t.Error("first call reported created = false")
	}
	if mode := testutil.FileMode(t, path); mode != 0o600 {
		t.Errorf("identity file mode = %04o, want 0600", mode)
	}

	second, created, err := LoadOrCreateIdentity(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity (load): %v", err)
	}
	defer second.Close()
	if created {
		t.Error("second call reported created = true")
	}
	if first.Recipient() != second.Recipient() {
		t.Errorf("reloaded recipient %q != created %q", second.Recipient(), first.Recipient())
	}

	ciphertext, err := first.Seal([]byte("survives reload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := second.Open(ciphertext); err != nil {
		t.Errorf("reloaded identity cannot open: %v", err)
	}
}

func TestLoadIdentityMissing(t *testing.T) {
	_, err := LoadIdentity(filepath.Join(testutil.PrivateDir(t), "absent.age"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadIdentity(missing) = %v, want os.ErrNotExist", err)
	}
}

func TestLoadIdentityRejectsGroupReadable(t *testing.T) {
	path := filepath.Join(testutil.PrivateDir(t), "device.age")
	identity, _, err := LoadOrCreateIdentity(path)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity: %v", err)
	}
	identity.Close()

	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if _, err := LoadIdentity(path); err == nil {
		t.Error("LoadIdentity accepted a world-readable identity file")
	}
}

func TestLoadIdentityRejectsGarbage(t *testing.T) {
	path := filepath.Join(testutil.PrivateDir(t), "device.age")
	if err := os.WriteFile(path, []byte("not an identity\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadIdentity(path); err == nil {
		t.Error("LoadIdentity accepted garbage")
	}
}
