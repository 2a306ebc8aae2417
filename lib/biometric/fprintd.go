// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Runner executes a command and returns its combined output. The
// error is non-nil when the command could not start or exited
// non-zero; output is still returned in the latter case.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Fprintd authenticates against fingerprints enrolled with fprintd on
// Linux. It shells out to fprintd-list and fprintd-verify, which talk
// to the fprintd D-Bus service on the caller's behalf.
type Fprintd struct {
	// User whose enrolled fingers are checked.
	User string

	// Run executes fprintd commands. Defaults to ExecRunner.
	Run Runner
}

func (f *Fprintd) runner() Runner {
	if f.Run != nil {
		return f.Run
	}
	return ExecRunner
}

// CanEvaluate implements Authenticator.
func (f *Fprintd) CanEvaluate() (Modality, Code) {
	fingers, code := f.listFingers(context.Background())
	if code != CodeOK {
		if code == CodeNotAvailable {
			return ModalityNone, code
		}
		return ModalityFingerprint, code
	}
	if len(fingers) == 0 {
		return ModalityFingerprint, CodeNotEnrolled
	}
	return ModalityFingerprint, CodeOK
}

// Evaluate implements Authenticator. fprintd-verify prints its own
// prompt on the terminal; reason is not shown by fprintd.
func (f *Fprintd) Evaluate(ctx context.Context, reason string) Code {
	output, err := f.runner()(ctx, "fprintd-verify", f.User)
	return parseVerifyOutput(output, err)
}

// Enrollment implements EnrollmentSource: the user name and the
// sorted list of enrolled fingers.
func (f *Fprintd) Enrollment() ([]byte, error) {
	fingers, code := f.listFingers(context.Background())
	switch code {
	case CodeOK:
	case CodeNotAvailable:
		return nil, nil
	default:
		return nil, fmt.Errorf("fprintd-list: %s", code)
	}
	if len(fingers) == 0 {
		return nil, nil
	}
	return []byte(f.User + ":" + strings.Join(fingers, ",")), nil
}

func (f *Fprintd) listFingers(ctx context.Context) ([]string, Code) {
	output, err := f.runner()(ctx, "fprintd-list", f.User)
	return parseListOutput(output, err)
}

// parseListOutput extracts enrolled finger names from fprintd-list
// output, whose enrolled entries look like " - #0: right-index-finger".
func parseListOutput(output []byte, runErr error) ([]string, Code) {
	text := string(output)
	if isExecNotFound(runErr) || strings.Contains(text, "No devices available") {
		return nil, CodeNotAvailable
	}
	if strings.Contains(text, "no fingers enrolled") {
		return nil, CodeOK
	}
	if runErr != nil {
		return nil, CodeUnknown
	}

	var fingers []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "- #") {
			continue
		}
		_, finger, found := strings.Cut(line, ": ")
		if found && finger != "" {
			fingers = append(fingers, finger)
		}
	}
	sort.Strings(fingers)
	return fingers, CodeOK
}

// parseVerifyOutput maps the "Verify result: <status>" line of
// fprintd-verify to a Code.
func parseVerifyOutput(output []byte, runErr error) Code {
	text := string(output)
	switch {
	case isExecNotFound(runErr), strings.Contains(text, "No devices available"), strings.Contains(text, "verify-disconnected"):
		return CodeNotAvailable
	case strings.Contains(text, "no fingers enrolled"), strings.Contains(text, "NoEnrolledPrints"):
		return CodeNotEnrolled
	case strings.Contains(text, "verify-match"):
		return CodeOK
	case strings.Contains(text, "verify-no-match"):
		return CodeAuthenticationFailed
	case strings.Contains(text, "PermissionDenied"):
		return CodeNotInteractive
	case strings.Contains(text, "AlreadyInUse"):
		return CodeSystemCancel
	}

	var exitError *exec.ExitError
	if errors.As(runErr, &exitError) && !exitError.Exited() {
		// Killed by a signal: the user interrupted fprintd-verify.
		return CodeUserCancel
	}
	return CodeUnknown
}

func isExecNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
