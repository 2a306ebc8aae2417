// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/testutil"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

func readySimulator() *biometric.Simulator {
	return biometric.NewSimulator(biometric.SimulatorConfig{
		Modality:     biometric.ModalityFace,
		Enrolled:     true,
		EnrollmentID: "enrollment-1",
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestAuthenticateOutcomes(t *testing.T) {
	tests := []struct {
		code biometric.Code
		want error
	}{
		{biometric.CodeOK, nil},
		{biometric.CodeUserCancel, vaulterr.ErrUserCanceled},
		{biometric.CodeUserFallback, vaulterr.ErrUserFallback},
		{biometric.CodeSystemCancel, vaulterr.ErrSystemCanceled},
		{biometric.CodeLockout, vaulterr.ErrLockedOut},
		{biometric.CodeBiometryChanged, vaulterr.ErrBiometryInvalidated},
		{biometric.CodePasscodeNotSet, vaulterr.ErrPasscodeNotSet},
		{biometric.CodeNotAvailable, vaulterr.ErrUnavailable},
		{biometric.CodeNotEnrolled, vaulterr.ErrNotEnrolled},
		{biometric.CodeAuthenticationFailed, vaulterr.ErrUnknown},
		{biometric.CodeInvalidContext, vaulterr.ErrUnknown},
		{biometric.CodeNotInteractive, vaulterr.ErrUnknown},
		{biometric.CodeUnknown, vaulterr.ErrUnknown},
	}
	for _, test := range tests {
		t.Run(test.code.String(), func(t *testing.T) {
			simulator := readySimulator()
			simulator.Script(test.code)
			gate := New(Config{Authenticator: simulator, Logger: discardLogger()})

			err := gate.Authenticate(context.Background(), "Log in to your account")
			if test.want == nil {
				if err != nil {
					t.Fatalf("Authenticate() = %v, want nil", err)
				}
			} else if !errors.Is(err, test.want) {
				t.Fatalf("Authenticate() = %v, want %v", err, test.want)
			}
			if gate.Prompts() != 1 {
				t.Errorf("Prompts() = %d, want 1", gate.Prompts())
			}
		})
	}
}

func TestAuthenticatePrecheckDoesNotPrompt(t *testing.T) {
	tests := []struct {
		name   string
		config biometric.SimulatorConfig
		want   error
	}{
		{"no hardware", biometric.SimulatorConfig{}, vaulterr.ErrUnavailable},
		{"not enrolled", biometric.SimulatorConfig{Modality: biometric.ModalityFingerprint}, vaulterr.ErrNotEnrolled},
		{"no passcode", biometric.SimulatorConfig{Modality: biometric.ModalityFace, Enrolled: true, PasscodeNotSet: true}, vaulterr.ErrPasscodeNotSet},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			simulator := biometric.NewSimulator(test.config)
			gate := New(Config{Authenticator: simulator, Logger: discardLogger()})

			if err := gate.Authenticate(context.Background(), "unlock"); !errors.Is(err, test.want) {
				t.Errorf("Authenticate() = %v, want %v", err, test.want)
			}
			if simulator.Prompts() != 0 || gate.Prompts() != 0 {
				t.Errorf("prompts = %d/%d, want 0", simulator.Prompts(), gate.Prompts())
			}
		})
	}
}

func TestAuthenticateLockoutPrecheck(t *testing.T) {
	simulator := biometric.NewSimulator(biometric.SimulatorConfig{
		Modality:        biometric.ModalityFingerprint,
		Enrolled:        true,
		Outcome:         biometric.CodeAuthenticationFailed,
		MaxFailures:     1,
		LockoutDuration: time.Minute,
	})
	gate := New(Config{Authenticator: simulator, Logger: discardLogger()})

	if err := gate.Authenticate(context.Background(), "unlock"); !errors.Is(err, vaulterr.ErrLockedOut) {
		t.Fatalf("first Authenticate() = %v, want locked out", err)
	}
	if err := gate.Authenticate(context.Background(), "unlock"); !errors.Is(err, vaulterr.ErrLockedOut) {
		t.Fatalf("second Authenticate() = %v, want locked out", err)
	}
	if simulator.Prompts() != 1 {
		t.Errorf("simulator prompted %d times, want 1 (lockout reported by precheck)", simulator.Prompts())
	}
}

func TestAuthenticateConcurrentCallersShareOnePrompt(t *testing.T) {
	const callers = 6

	simulator := readySimulator()
	simulator.Script(biometric.CodeUserCancel)
	simulator.Hold()

	joined := make(chan struct{}, callers)
	gate := New(Config{
		Authenticator: simulator,
		Logger:        discardLogger(),
		OnShare:       func() { joined <- struct{}{} },
	})

	errs := make([]error, callers)
	var group errgroup.Group
	group.Go(func() error {
		errs[0] = gate.Authenticate(context.Background(), "unlock")
		return nil
	})
	testutil.RequireReceive(t, simulator.Started(), 5*time.Second, "native prompt start")

	for index := 1; index < callers; index++ {
		group.Go(func() error {
			errs[index] = gate.Authenticate(context.Background(), "unlock")
			return nil
		})
	}
	for index := 1; index < callers; index++ {
		testutil.RequireReceive(t, joined, 5*time.Second, "caller %d joining", index)
	}

	simulator.Release()
	_ = group.Wait()

	if simulator.Prompts() != 1 {
		t.Errorf("native prompts = %d, want 1", simulator.Prompts())
	}
	for index, err := range errs {
		if !errors.Is(err, vaulterr.ErrUserCanceled) {
			t.Errorf("caller %d: %v, want user canceled", index, err)
		}
	}
}

func TestAuthenticateCallerCancellationLeavesChallengeRunning(t *testing.T) {
	simulator := readySimulator()
	simulator.Hold()

	joined := make(chan struct{}, 1)
	gate := New(Config{
		Authenticator: simulator,
		Logger:        discardLogger(),
		OnShare:       func() { joined <- struct{}{} },
	})

	ctx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() { leader <- gate.Authenticate(ctx, "unlock") }()
	testutil.RequireReceive(t, simulator.Started(), 5*time.Second, "native prompt start")

	follower := make(chan error, 1)
	go func() { follower <- gate.Authenticate(context.Background(), "unlock") }()
	testutil.RequireReceive(t, joined, 5*time.Second, "follower joining")

	cancel()
	if err := testutil.RequireReceive(t, leader, 5*time.Second, "leader return"); !errors.Is(err, context.Canceled) {
		t.Errorf("leader = %v, want context.Canceled", err)
	}

	simulator.Release()
	if err := testutil.RequireReceive(t, follower, 5*time.Second, "follower return"); err != nil {
		t.Errorf("follower = %v, want nil", err)
	}
	if simulator.Prompts() != 1 {
		t.Errorf("native prompts = %d, want 1", simulator.Prompts())
	}
}

func TestAuthenticateDoesNotLogReason(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	simulator := readySimulator()
	simulator.Script(biometric.CodeOK, biometric.CodeUserCancel)
	gate := New(Config{Authenticator: simulator, Logger: logger})

	const reason = "Log in as alice@example.com"
	_ = gate.Authenticate(context.Background(), reason)
	_ = gate.Authenticate(context.Background(), reason)

	output := logs.String()
	if strings.Contains(output, "alice") {
		t.Errorf("log output contains reason text:\n%s", output)
	}
	if !strings.Contains(output, "reason_length=") {
		t.Errorf("log output missing reason_length:\n%s", output)
	}
	if !strings.Contains(output, "kind=user_canceled") {
		t.Errorf("log output missing failure kind:\n%s", output)
	}
}

func TestKindCoversEveryCode(t *testing.T) {
	for code := biometric.CodeOK; code <= biometric.CodeUnknown; code++ {
		kind := Kind(code)
		if code == biometric.CodeOK {
			if kind != "" {
				t.Errorf("Kind(ok) = %q, want empty", kind)
			}
			continue
		}
		category := kind.Category()
		if category != vaulterr.CategoryAuth && category != vaulterr.CategoryCapability {
			t.Errorf("Kind(%v) = %q in category %q", code, kind, category)
		}
	}
}
