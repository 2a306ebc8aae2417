// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/biovault/lib/secret"
)

// Identity is a device's age x25519 identity. The private key lives in
// a secret.Buffer; the public recipient string is safe to log.
//
// The caller must call Close when the identity is no longer needed.
type Identity struct {
	// privateKey holds the AGE-SECRET-KEY-1... encoding. It is parsed
	// per operation so the mmap buffer stays the only durable copy.
	privateKey *secret.Buffer
	recipient  string
}

// GenerateIdentity creates a new in-memory identity.
func GenerateIdentity() (*Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	return fromAge(identity)
}

func fromAge(identity *age.X25519Identity) (*Identity, error) {
	// The string form returned by age is on the heap and is GC'd; the
	// byte copy is zeroed by NewFromBytes.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Identity{
		privateKey: privateKey,
		recipient:  identity.Recipient().String(),
	}, nil
}

// LoadOrCreateIdentity reads the identity file at path, creating it
// with a fresh identity if it does not exist. The file is written with
// mode 0600 in a directory created with mode 0700. created reports
// whether a new identity was generated.
//
// An existing file readable by group or other is rejected: an identity
// other users could copy does not bind data to this device.
func LoadOrCreateIdentity(path string) (identity *Identity, created bool, err error) {
	identity, err = LoadIdentity(path)
	if err == nil {
		return identity, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, false, fmt.Errorf("generating age identity: %w", err)
	}
	if err := writeIdentityFile(path, generated); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process created it between our read and write.
			identity, err = LoadIdentity(path)
			return identity, false, err
		}
		return nil, false, err
	}
	identity, err = fromAge(generated)
	if err != nil {
		return nil, false, err
	}
	return identity, true, nil
}

// LoadIdentity reads an existing identity file. The returned error
// wraps os.ErrNotExist when the file is missing.
func LoadIdentity(path string) (*Identity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading device identity: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("device identity %s has mode %04o, want 0600", path, info.Mode().Perm())
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device identity: %w", err)
	}
	defer secret.Zero(contents)

	identities, err := age.ParseIdentities(bytes.NewReader(contents))
	if err != nil {
		return nil, fmt.Errorf("parsing device identity %s: %w", path, err)
	}
	if len(identities) != 1 {
		return nil, fmt.Errorf("device identity %s holds %d identities, want 1", path, len(identities))
	}
	x25519, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("device identity %s is not an x25519 identity", path)
	}
	return fromAge(x25519)
}

// writeIdentityFile writes the identity to a temporary file and links
// it into place, so readers never observe a partial file and a
// concurrent creator gets os.ErrExist.
func writeIdentityFile(path string, identity *age.X25519Identity) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	temporary, err := os.CreateTemp(directory, ".identity-*")
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	contents := []byte("# biovault device identity\n# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n")
	defer secret.Zero(contents)

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("restricting identity file: %w", err)
	}
	if _, err := temporary.Write(contents); err != nil {
		temporary.Close()
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("syncing identity file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing identity file: %w", err)
	}
	if err := os.Link(temporaryPath, path); err != nil {
		return fmt.Errorf("installing identity file: %w", err)
	}
	return nil
}

// Recipient returns the public key in age1... format.
func (i *Identity) Recipient() string {
	return i.recipient
}

// Seal encrypts plaintext to this identity. The result is a binary age
// file.
func (i *Identity) Seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(i.recipient)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts ciphertext produced by Seal on this identity. The
// caller should zero the returned plaintext with secret.Zero when done.
func (i *Identity) Open(ciphertext []byte) ([]byte, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(i.privateKey.Bytes())))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// Close releases the private key memory. Idempotent.
func (i *Identity) Close() error {
	if i.privateKey != nil {
		return i.privateKey.Close()
	}
	return nil
}
