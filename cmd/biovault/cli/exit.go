// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// Exit codes. Scripts branch on these rather than parsing messages.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitCapability = 3
	ExitAuth       = 4
	ExitNotFound   = 5
	ExitStore      = 6
	ExitCrypto     = 7
	ExitCanceled   = 130
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError is a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCodeFor maps an error returned by a command to the process exit
// code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	var usageError *UsageError
	if errors.As(err, &usageError) {
		return ExitUsage
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	if vaulterr.KindOf(err) == vaulterr.KindNotFound {
		return ExitNotFound
	}
	switch vaulterr.CategoryOf(err) {
	case vaulterr.CategoryCapability:
		return ExitCapability
	case vaulterr.CategoryAuth:
		return ExitAuth
	case vaulterr.CategoryStore:
		return ExitStore
	case vaulterr.CategoryCrypto:
		return ExitCrypto
	}
	return ExitFailure
}
