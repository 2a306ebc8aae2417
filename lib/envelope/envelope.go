// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope seals credential payloads with an AEAD under the
// vault key.
//
// A sealed blob is
//
//	[Format: 1 byte] [Nonce: 12 bytes (random)] [Ciphertext+Tag: N+16 bytes]
//
// The format byte selects the AEAD and is included as additional
// authenticated data, so changing it fails authentication rather than
// selecting a different algorithm over the same bytes. Callers may
// bind further context (which save a blob belongs to) with
// [Cipher.Seal] and [OpenWith]. Both formats
// use a 96-bit nonce drawn fresh from crypto/rand per Seal: sealing the
// same plaintext twice yields different blobs.
//
// The AEAD key is not the stored vault key itself but an HKDF-SHA256
// subkey of it, so the stored key is never used directly by a cipher
// and future uses of the vault key get their own derivation path.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// KeySize is the required vault key length.
const KeySize = 32

const (
	nonceSize = 12
	tagSize   = 16
)

// Overhead is the size a blob adds to its plaintext: format byte,
// nonce, and authentication tag.
const Overhead = 1 + nonceSize + tagSize

// hkdfInfoCredential is the HKDF info string for the credential AEAD
// key. Changing it invalidates every sealed credential.
var hkdfInfoCredential = []byte("biovault.credential.v1")

// Cipher identifies a blob format.
type Cipher byte

const (
	// ChaCha20Poly1305 is the default format.
	ChaCha20Poly1305 Cipher = 0x01

	// AES256GCM is available for platforms with AES hardware where
	// policy requires it.
	AES256GCM Cipher = 0x02
)

// Default is the format used by Seal.
const Default = ChaCha20Poly1305

func (c Cipher) String() string {
	switch c {
	case ChaCha20Poly1305:
		return "chacha20-poly1305"
	case AES256GCM:
		return "aes-256-gcm"
	default:
		return fmt.Sprintf("cipher(0x%02x)", byte(c))
	}
}

// ParseCipher parses the String form of a Cipher.
func ParseCipher(name string) (Cipher, error) {
	switch name {
	case "chacha20-poly1305":
		return ChaCha20Poly1305, nil
	case "aes-256-gcm":
		return AES256GCM, nil
	}
	return 0, fmt.Errorf("unknown cipher %q (want chacha20-poly1305 or aes-256-gcm)", name)
}

// Seal seals plaintext in the Default format with no associated data.
func Seal(plaintext []byte, key *secret.Buffer) ([]byte, error) {
	return Default.Seal(plaintext, key, nil)
}

// Seal seals plaintext in format c. associatedData is authenticated
// but not stored; OpenWith must be given the same bytes. The key is
// borrowed and not closed. Errors have kind KindEncryptionFailed.
func (c Cipher) Seal(plaintext []byte, key *secret.Buffer, associatedData []byte) ([]byte, error) {
	const op = "envelope.seal"

	aead, err := newAEAD(c, key)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindEncryptionFailed, op, err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindEncryptionFailed, op, fmt.Errorf("generating random nonce: %w", err))
	}

	output := make([]byte, 1+nonceSize, Overhead+len(plaintext))
	output[0] = byte(c)
	copy(output[1:], nonce[:])

	// Seal appends ciphertext+tag to output.
	return aead.Seal(output, nonce[:], plaintext, buildAAD(c, associatedData)), nil
}

// Open authenticates and decrypts a blob sealed with no associated
// data.
func Open(blob []byte, key *secret.Buffer) ([]byte, error) {
	return OpenWith(blob, key, nil)
}

// OpenWith authenticates and decrypts a blob produced by Seal in
// either format. It fails with KindDecryptionFailed on a short blob,
// an unknown format byte, a wrong key, different associated data, or
// any modification, and never returns partial plaintext.
func OpenWith(blob []byte, key *secret.Buffer, associatedData []byte) ([]byte, error) {
	const op = "envelope.open"

	if len(blob) < Overhead {
		return nil, vaulterr.Wrap(vaulterr.KindDecryptionFailed, op,
			fmt.Errorf("blob is %d bytes, minimum is %d", len(blob), Overhead))
	}

	aead, err := newAEAD(Cipher(blob[0]), key)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindDecryptionFailed, op, err)
	}

	plaintext, err := aead.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], buildAAD(Cipher(blob[0]), associatedData))
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KindDecryptionFailed, op, err)
	}
	return plaintext, nil
}

// buildAAD is the format byte followed by the caller's associated
// data.
func buildAAD(format Cipher, associatedData []byte) []byte {
	aad := make([]byte, 1+len(associatedData))
	aad[0] = byte(format)
	copy(aad[1:], associatedData)
	return aad
}

func newAEAD(format Cipher, key *secret.Buffer) (cipher.AEAD, error) {
	if key == nil || key.Len() != KeySize {
		length := 0
		if key != nil {
			length = key.Len()
		}
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, length)
	}

	subkey, err := deriveKey(key.Bytes())
	if err != nil {
		return nil, err
	}
	defer subkey.Close()

	switch format {
	case ChaCha20Poly1305:
		return chacha20poly1305.New(subkey.Bytes())
	case AES256GCM:
		block, err := aes.NewCipher(subkey.Bytes())
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("unknown blob format 0x%02x", byte(format))
	}
}

// deriveKey returns the HKDF-SHA256 credential subkey. The salt is
// nil: the vault key is uniformly random.
func deriveKey(key []byte) (*secret.Buffer, error) {
	reader := hkdf.New(sha256.New, key, nil, hkdfInfoCredential)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}
