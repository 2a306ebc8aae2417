// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bureau-foundation/biovault/lib/secret"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

func testKey(t *testing.T) *secret.Buffer {
	t.Helper()
	key, err := secret.Random(KeySize)
	if err != nil {
		t.Fatalf("secret.Random: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

var ciphers = []Cipher{ChaCha20Poly1305, AES256GCM}

func TestSealOpenRoundtrip(t *testing.T) {
	key := testKey(t)
	for _, format := range ciphers {
		t.Run(format.String(), func(t *testing.T) {
			for _, plaintext := range [][]byte{{}, []byte("x"), bytes.Repeat([]byte("credential"), 100)} {
				blob, err := format.Seal(plaintext, key, nil)
				if err != nil {
					t.Fatalf("Seal: %v", err)
				}
				if len(blob) != len(plaintext)+Overhead {
					t.Errorf("blob length = %d, want %d", len(blob), len(plaintext)+Overhead)
				}
				if Cipher(blob[0]) != format {
					t.Errorf("format byte = 0x%02x, want 0x%02x", blob[0], byte(format))
				}
				opened, err := Open(blob, key)
				if err != nil {
					t.Fatalf("Open: %v", err)
				}
				if !bytes.Equal(opened, plaintext) {
					t.Errorf("Open = %q, want %q", opened, plaintext)
				}
			}
		})
	}
}

func TestSealDefaultFormat(t *testing.T) {
	blob, err := Seal([]byte("payload"), testKey(t))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if Cipher(blob[0]) != ChaCha20Poly1305 {
		t.Errorf("default format = %v, want chacha20-poly1305", Cipher(blob[0]))
	}
}

func TestSealIsNonDeterministic(t *testing.T) {
	key := testKey(t)
	for _, format := range ciphers {
		first, err := format.Seal([]byte("same plaintext"), key, nil)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		second, err := format.Seal([]byte("same plaintext"), key, nil)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if bytes.Equal(first, second) {
			t.Errorf("%v: two seals of the same plaintext are identical", format)
		}
		if bytes.Equal(first[1:1+nonceSize], second[1:1+nonceSize]) {
			t.Errorf("%v: nonce reused", format)
		}
	}
}

func TestOpenFailsClosed(t *testing.T) {
	key := testKey(t)
	otherKey := testKey(t)

	for _, format := range ciphers {
		t.Run(format.String(), func(t *testing.T) {
			blob, err := format.Seal([]byte("access and refresh tokens"), key, nil)
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}

			mutations := map[string]func() ([]byte, *secret.Buffer){
				"flipped tag bit": func() ([]byte, *secret.Buffer) {
					tampered := bytes.Clone(blob)
					tampered[len(tampered)-1] ^= 0x01
					return tampered, key
				},
				"flipped ciphertext bit": func() ([]byte, *secret.Buffer) {
					tampered := bytes.Clone(blob)
					tampered[1+nonceSize] ^= 0x80
					return tampered, key
				},
				"flipped nonce bit": func() ([]byte, *secret.Buffer) {
					tampered := bytes.Clone(blob)
					tampered[1] ^= 0x01
					return tampered, key
				},
				"swapped format byte": func() ([]byte, *secret.Buffer) {
					tampered := bytes.Clone(blob)
					if format == ChaCha20Poly1305 {
						tampered[0] = byte(AES256GCM)
					} else {
						tampered[0] = byte(ChaCha20Poly1305)
					}
					return tampered, key
				},
				"unknown format byte": func() ([]byte, *secret.Buffer) {
					tampered := bytes.Clone(blob)
					tampered[0] = 0x7f
					return tampered, key
				},
				"truncated": func() ([]byte, *secret.Buffer) {
					return blob[:len(blob)-1], key
				},
				"shorter than overhead": func() ([]byte, *secret.Buffer) {
					return blob[:Overhead-1], key
				},
				"empty": func() ([]byte, *secret.Buffer) {
					return nil, key
				},
				"wrong key": func() ([]byte, *secret.Buffer) {
					return blob, otherKey
				},
			}
			for name, mutate := range mutations {
				tampered, useKey := mutate()
				plaintext, err := Open(tampered, useKey)
				if !errors.Is(err, vaulterr.ErrDecryptionFailed) {
					t.Errorf("%s: Open error = %v, want decryption failed", name, err)
				}
				if plaintext != nil {
					t.Errorf("%s: Open returned plaintext %q", name, plaintext)
				}
			}
		})
	}
}

func TestAssociatedDataIsBound(t *testing.T) {
	key := testKey(t)
	for _, format := range ciphers {
		blob, err := format.Seal([]byte("payload"), key, []byte("generation-2"))
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if _, err := OpenWith(blob, key, []byte("generation-2")); err != nil {
			t.Errorf("%v: OpenWith matching data: %v", format, err)
		}
		if _, err := OpenWith(blob, key, []byte("generation-1")); !errors.Is(err, vaulterr.ErrDecryptionFailed) {
			t.Errorf("%v: OpenWith different data = %v, want decryption failed", format, err)
		}
		if _, err := Open(blob, key); !errors.Is(err, vaulterr.ErrDecryptionFailed) {
			t.Errorf("%v: Open without data = %v, want decryption failed", format, err)
		}
	}
}

func TestWrongKeySize(t *testing.T) {
	short, err := secret.Random(16)
	if err != nil {
		t.Fatalf("secret.Random: %v", err)
	}
	defer short.Close()

	if _, err := Seal([]byte("payload"), short); !errors.Is(err, vaulterr.ErrEncryptionFailed) {
		t.Errorf("Seal with 16-byte key = %v, want encryption failed", err)
	}
	blob, err := Seal([]byte("payload"), testKey(t))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Open(blob, short); !errors.Is(err, vaulterr.ErrDecryptionFailed) {
		t.Errorf("Open with 16-byte key = %v, want decryption failed", err)
	}
	if _, err := Seal([]byte("payload"), nil); !errors.Is(err, vaulterr.ErrEncryptionFailed) {
		t.Errorf("Seal with nil key = %v, want encryption failed", err)
	}
}

func TestUnknownCipherSeal(t *testing.T) {
	if _, err := Cipher(0x09).Seal([]byte("payload"), testKey(t), nil); !errors.Is(err, vaulterr.ErrEncryptionFailed) {
		t.Errorf("Seal with unknown cipher = %v, want encryption failed", err)
	}
}

func TestAEADKeyIsDerived(t *testing.T) {
	key := testKey(t)
	subkey, err := deriveKey(key.Bytes())
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}
	defer subkey.Close()
	if subkey.Equal(key) {
		t.Error("AEAD key equals the stored vault key")
	}
}

func TestParseCipher(t *testing.T) {
	for _, format := range ciphers {
		parsed, err := ParseCipher(format.String())
		if err != nil || parsed != format {
			t.Errorf("ParseCipher(%q) = %v, %v", format, parsed, err)
		}
	}
	if _, err := ParseCipher("rot13"); err == nil {
		t.Error("ParseCipher accepted an unknown cipher")
	}
}
