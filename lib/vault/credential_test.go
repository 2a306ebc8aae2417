// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/biovault/lib/codec"
)

func TestCredentialExpired(t *testing.T) {
	credential := NewCredential("alice", "access", "refresh", time.Hour, testNow)
	if credential.Expired(testNow) {
		t.Error("Expired at creation")
	}
	if credential.Expired(testNow.Add(59 * time.Minute)) {
		t.Error("Expired before ExpiresAt")
	}
	if !credential.Expired(testNow.Add(time.Hour)) {
		t.Error("not Expired at ExpiresAt")
	}
}

func TestCredentialValidate(t *testing.T) {
	complete := NewCredential("alice", "access", "refresh", time.Hour, testNow)
	if err := complete.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	mutations := map[string]func(*Credential){
		"Username":     func(c *Credential) { c.Username = "" },
		"AccessToken":  func(c *Credential) { c.AccessToken = "" },
		"RefreshToken": func(c *Credential) { c.RefreshToken = "" },
		"ExpiresAt":    func(c *Credential) { c.ExpiresAt = time.Time{} },
	}
	for field, mutate := range mutations {
		credential := complete
		mutate(&credential)
		err := credential.Validate()
		if err == nil {
			t.Errorf("Validate accepted missing %s", field)
			continue
		}
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Validate error %q does not name %s", err, field)
		}
	}
}

func TestCredentialStringOmitsTokens(t *testing.T) {
	credential := NewCredential("alice", "secret-access", "secret-refresh", time.Hour, testNow)
	for _, text := range []string{credential.String(), credential.LogValue().String()} {
		if strings.Contains(text, "secret-") {
			t.Errorf("token in %q", text)
		}
		if !strings.Contains(text, "alice") {
			t.Errorf("username missing from %q", text)
		}
	}
}

func TestCredentialEncodingIsCanonical(t *testing.T) {
	first := NewCredential("alice", "access", "refresh", time.Hour, testNow)
	// Same instant in another zone.
	second := first
	second.ExpiresAt = first.ExpiresAt.In(time.FixedZone("UTC+8", 8*3600))

	firstBytes, err := encodeCredential(first)
	if err != nil {
		t.Fatalf("encodeCredential: %v", err)
	}
	secondBytes, err := encodeCredential(second)
	if err != nil {
		t.Fatalf("encodeCredential: %v", err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Error("equal credentials encode differently")
	}

	decoded, err := decodeCredential(firstBytes)
	if err != nil {
		t.Fatalf("decodeCredential: %v", err)
	}
	if !decoded.Equal(first) {
		t.Errorf("decoded %v, want %v", decoded, first)
	}
	for _, b := range firstBytes {
		if b != 0 {
			t.Fatal("decodeCredential did not zero the plaintext")
		}
	}
}

func TestDecodeCredentialRejectsUnknownFields(t *testing.T) {
	type extended struct {
		Username     string `cbor:"1,keyasint"`
		AccessToken  string `cbor:"2,keyasint"`
		RefreshToken string `cbor:"3,keyasint"`
		ExpiresAt    int64  `cbor:"4,keyasint"`
		Extra        string `cbor:"9,keyasint"`
	}
	data, err := codec.Marshal(extended{"alice", "access", "refresh", testNow.Unix(), "surprise"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeCredential(data); err == nil {
		t.Error("decodeCredential accepted an unknown field")
	}
}

func TestDecodeCredentialRejectsMissingFields(t *testing.T) {
	data, err := codec.Marshal(credentialRecord{Username: "alice", ExpiresAt: testNow.Unix()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeCredential(data); err == nil {
		t.Error("decodeCredential accepted a credential without tokens")
	}
}

func TestCredentialEncodingPreservesExpiry(t *testing.T) {
	expiries := []time.Time{
		time.Date(1600, 2, 29, 12, 0, 0, 1, time.UTC),
		time.Date(1969, 12, 31, 23, 59, 59, 999_999_999, time.UTC),
		time.Date(2262, 4, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 123_456_789, time.UTC),
	}
	for _, expiresAt := range expiries {
		credential := Credential{Username: "alice", AccessToken: "access", RefreshToken: "refresh", ExpiresAt: expiresAt}
		data, err := encodeCredential(credential)
		if err != nil {
			t.Fatalf("encodeCredential(%v): %v", expiresAt, err)
		}
		decoded, err := decodeCredential(data)
		if err != nil {
			t.Fatalf("decodeCredential(%v): %v", expiresAt, err)
		}
		if !decoded.ExpiresAt.Equal(expiresAt) {
			t.Errorf("expiry %v decoded as %v", expiresAt, decoded.ExpiresAt)
		}
	}
}

func TestDecodeCredentialRejectsOutOfRangeNanos(t *testing.T) {
	data, err := codec.Marshal(credentialRecord{
		Username:       "alice",
		AccessToken:    "access",
		RefreshToken:   "refresh",
		ExpiresAt:      testNow.Unix(),
		ExpiresAtNanos: uint32(time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeCredential(data); err == nil {
		t.Error("decodeCredential accepted a nanosecond field of one second")
	}
}
