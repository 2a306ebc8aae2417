// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authgate runs biometric challenges one at a time and reports
// their outcome as vaulterr errors.
//
// A platform biometric subsystem shows one native prompt at a time.
// [Gate.Authenticate] collapses concurrent callers onto the challenge
// already on screen: every caller attached to it receives the same
// result, and the user sees one prompt. The challenge is detached from
// any caller's context. A caller whose context ends stops waiting and
// gets ctx.Err(), but the prompt stays up and its outcome still reaches
// the other callers. Only the user or the platform ends a challenge.
//
// Before prompting, the gate asks the authenticator whether a challenge
// can run at all. Missing hardware, missing enrollment, a missing
// passcode, and an active lockout are reported without a prompt.
package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/flight"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// Config holds the dependencies of a Gate.
type Config struct {
	// Authenticator runs the native challenge. Required.
	Authenticator biometric.Authenticator

	// Logger receives challenge start and outcome records. Defaults
	// to slog.Default().
	Logger *slog.Logger

	// OnShare, if set, is called each time a caller joins a challenge
	// already in flight.
	OnShare func()
}

// Gate serializes biometric challenges. It is safe for concurrent use.
type Gate struct {
	auth    biometric.Authenticator
	logger  *slog.Logger
	flight  flight.Single[struct{}]
	prompts atomic.Uint64
}

// New creates a Gate.
func New(config Config) *Gate {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := &Gate{
		auth:   config.Authenticator,
		logger: logger,
	}
	gate.flight.OnShare = config.OnShare
	return gate
}

// Authenticate returns nil once the user passes a biometric challenge
// shown with reason. On failure the error has one of the capability or
// auth kinds: KindUnavailable, KindNotEnrolled, KindLockedOut,
// KindUserCanceled, KindUserFallback, KindSystemCanceled,
// KindPasscodeNotSet, KindBiometryInvalidated, or KindUnknown. If ctx
// ends before the outcome is known, Authenticate returns ctx.Err().
//
// A caller that joins a challenge already in flight shares its outcome;
// its own reason is not shown.
func (g *Gate) Authenticate(ctx context.Context, reason string) error {
	_, shared, err := g.flight.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.challenge(ctx, reason)
	})
	if shared && err == nil {
		g.logger.Debug("joined biometric challenge")
	}
	return err
}

// Prompts returns the number of native challenges started.
func (g *Gate) Prompts() uint64 {
	return g.prompts.Load()
}

func (g *Gate) challenge(ctx context.Context, reason string) error {
	modality, code := g.auth.CanEvaluate()
	if code != biometric.CodeOK {
		g.logger.Info("biometric challenge not possible",
			"modality", modality.String(),
			"code", code.String(),
		)
		return Error(code, "authgate.precheck")
	}

	number := g.prompts.Add(1)
	g.logger.Debug("biometric challenge starting",
		"modality", modality.String(),
		"prompt", number,
		"reason_length", len(reason),
	)

	code = g.auth.Evaluate(ctx, reason)
	err := Error(code, "authgate.authenticate")
	if err != nil {
		g.logger.Info("biometric challenge failed",
			"prompt", number,
			"code", code.String(),
			"kind", string(vaulterr.KindOf(err)),
		)
		return err
	}
	g.logger.Info("biometric challenge passed", "prompt", number)
	return nil
}

// Kind maps a platform code to its error kind. CodeOK maps to the
// empty Kind. Codes with no dedicated kind (a failed match the
// platform did not escalate, an invalid context, a non-interactive
// session) map to KindUnknown.
func Kind(code biometric.Code) vaulterr.Kind {
	switch code {
	case biometric.CodeOK:
		return ""
	case biometric.CodeNotAvailable:
		return vaulterr.KindUnavailable
	case biometric.CodeNotEnrolled:
		return vaulterr.KindNotEnrolled
	case biometric.CodeLockout:
		return vaulterr.KindLockedOut
	case biometric.CodeUserCancel:
		return vaulterr.KindUserCanceled
	case biometric.CodeUserFallback:
		return vaulterr.KindUserFallback
	case biometric.CodeSystemCancel:
		return vaulterr.KindSystemCanceled
	case biometric.CodePasscodeNotSet:
		return vaulterr.KindPasscodeNotSet
	case biometric.CodeBiometryChanged:
		return vaulterr.KindBiometryInvalidated
	default:
		return vaulterr.KindUnknown
	}
}

// Error returns nil for CodeOK and otherwise a vaulterr error of
// Kind(code) attributed to op.
func Error(code biometric.Code, op string) error {
	kind := Kind(code)
	switch kind {
	case "":
		return nil
	case vaulterr.KindUnknown:
		return vaulterr.Wrap(kind, op, fmt.Errorf("platform code %s", code))
	}
	return vaulterr.New(kind, op)
}
