// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vaulterr

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Wrap(KindLockedOut, "authgate.authenticate", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrLockedOut) {
		t.Error("errors.Is(err, ErrLockedOut) = false, want true")
	}
	if errors.Is(err, ErrUserCanceled) {
		t.Error("errors.Is(err, ErrUserCanceled) = true, want false")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestErrorIsThroughFmtWrapping(t *testing.T) {
	inner := New(KindNotFound, "securestore.get")
	outer := fmt.Errorf("loading session: %w", inner)

	if !errors.Is(outer, ErrNotFound) {
		t.Error("errors.Is through fmt.Errorf wrapper = false, want true")
	}
	if KindOf(outer) != KindNotFound {
		t.Errorf("KindOf = %q, want %q", KindOf(outer), KindNotFound)
	}
}

func TestKindOfReportsOutermost(t *testing.T) {
	err := Wrap(KindRetrieveFailed, "vault.retrieve", New(KindDecryptionFailed, "envelope.open"))

	if got := KindOf(err); got != KindRetrieveFailed {
		t.Errorf("KindOf = %q, want %q", got, KindRetrieveFailed)
	}
	if got := CategoryOf(err); got != CategoryStore {
		t.Errorf("CategoryOf = %q, want %q", got, CategoryStore)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	if got := CategoryOf(nil); got != "" {
		t.Errorf("CategoryOf(nil) = %q, want empty", got)
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{KindUnavailable, CategoryCapability},
		{KindNotEnrolled, CategoryCapability},
		{KindLockedOut, CategoryAuth},
		{KindBiometryInvalidated, CategoryAuth},
		{KindUnknown, CategoryAuth},
		{KindNotFound, CategoryStore},
		{KindDeleteFailed, CategoryStore},
		{KindDecryptionFailed, CategoryCrypto},
		{KindEncryptionFailed, CategoryCrypto},
	}
	for _, test := range tests {
		if got := test.kind.Category(); got != test.want {
			t.Errorf("%s.Category() = %q, want %q", test.kind, got, test.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindStoreFailed, "vault.save", errors.New("disk full"))
	message := err.Error()

	for _, want := range []string{"vault.save", "storing credential failed", "disk full"} {
		if !strings.Contains(message, want) {
			t.Errorf("Error() = %q, missing %q", message, want)
		}
	}

	if got := ErrNotFound.Error(); got != "no stored credential" {
		t.Errorf("sentinel Error() = %q", got)
	}
}
