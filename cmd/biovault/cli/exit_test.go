// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"usage", &UsageError{Message: "bad flag"}, ExitUsage},
		{"explicit", fmt.Errorf("wrapped: %w", &ExitError{Code: 9}), 9},
		{"canceled", fmt.Errorf("retrieve: %w", context.Canceled), ExitCanceled},
		{"unavailable", vaulterr.New(vaulterr.KindUnavailable, "op"), ExitCapability},
		{"locked out", vaulterr.New(vaulterr.KindLockedOut, "op"), ExitAuth},
		{"invalidated", vaulterr.New(vaulterr.KindBiometryInvalidated, "op"), ExitAuth},
		{"not found", vaulterr.New(vaulterr.KindNotFound, "op"), ExitNotFound},
		{"store", vaulterr.Wrap(vaulterr.KindStoreFailed, "op", vaulterr.New(vaulterr.KindEncryptionFailed, "seal")), ExitStore},
		{"crypto", vaulterr.New(vaulterr.KindDecryptionFailed, "op"), ExitCrypto},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCodeFor(test.err); got != test.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}
