// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"context"
	"fmt"
)

// Modality is the kind of biometric sensor the device offers.
type Modality int

const (
	ModalityNone Modality = iota
	ModalityFingerprint
	ModalityFace
)

var modalityNames = map[Modality]string{
	ModalityNone:        "none",
	ModalityFingerprint: "fingerprint",
	ModalityFace:        "face",
}

func (m Modality) String() string {
	if name, ok := modalityNames[m]; ok {
		return name
	}
	return fmt.Sprintf("modality(%d)", int(m))
}

// ParseModality parses the String form of a Modality.
func ParseModality(name string) (Modality, error) {
	for modality, modalityName := range modalityNames {
		if modalityName == name {
			return modality, nil
		}
	}
	return ModalityNone, fmt.Errorf("unknown biometric modality %q (want none, fingerprint, or face)", name)
}

// Code is a raw platform outcome from CanEvaluate or Evaluate.
type Code int

const (
	CodeOK Code = iota
	CodeNotAvailable
	CodeNotEnrolled
	CodeLockout
	CodeUserCancel
	CodeUserFallback
	CodeSystemCancel
	CodePasscodeNotSet
	CodeBiometryChanged
	CodeAuthenticationFailed
	CodeInvalidContext
	CodeNotInteractive
	CodeUnknown
)

var codeNames = map[Code]string{
	CodeOK:                   "ok",
	CodeNotAvailable:         "not_available",
	CodeNotEnrolled:          "not_enrolled",
	CodeLockout:              "lockout",
	CodeUserCancel:           "user_cancel",
	CodeUserFallback:         "user_fallback",
	CodeSystemCancel:         "system_cancel",
	CodePasscodeNotSet:       "passcode_not_set",
	CodeBiometryChanged:      "biometry_changed",
	CodeAuthenticationFailed: "authentication_failed",
	CodeInvalidContext:       "invalid_context",
	CodeNotInteractive:       "not_interactive",
	CodeUnknown:              "unknown",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// ParseCode parses the String form of a Code.
func ParseCode(name string) (Code, error) {
	for code, codeName := range codeNames {
		if codeName == name {
			return code, nil
		}
	}
	return CodeUnknown, fmt.Errorf("unknown biometric outcome %q", name)
}

// Authenticator is the platform biometric subsystem.
type Authenticator interface {
	// CanEvaluate reports the sensor modality and whether a challenge
	// could run now. The Code is CodeOK when it could, otherwise one
	// of CodeNotAvailable, CodeNotEnrolled, CodePasscodeNotSet, or
	// CodeLockout. Must not prompt the user.
	CanEvaluate() (Modality, Code)

	// Evaluate shows one native challenge with the given reason and
	// blocks until the platform reports an outcome. Implementations
	// may use ctx for values and process lifetime but must not treat
	// cancellation of ctx as the user canceling.
	Evaluate(ctx context.Context, reason string) Code
}

// EnrollmentSource is implemented by authenticators that can describe
// the current enrollment set. The description is opaque: two calls
// return equal bytes exactly when the set of enrolled identities is
// unchanged. An empty description means nothing is enrolled.
type EnrollmentSource interface {
	Enrollment() ([]byte, error)
}
