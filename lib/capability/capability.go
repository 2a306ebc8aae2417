// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability answers whether biometric login can be offered on
// this device, without ever prompting the user.
package capability

import (
	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// Probe queries an Authenticator's capability. It holds no state: each
// call reflects the device as it is now, so enrolling a fingerprint
// while the program runs is picked up on the next call.
type Probe struct {
	auth biometric.Authenticator
}

// New creates a Probe over auth.
func New(auth biometric.Authenticator) *Probe {
	return &Probe{auth: auth}
}

// BiometricType reports the sensor modality. It is ModalityNone when
// the device has no biometric hardware, even if the platform reports a
// modality alongside CodeNotAvailable.
func (p *Probe) BiometricType() biometric.Modality {
	modality, code := p.auth.CanEvaluate()
	if code == biometric.CodeNotAvailable {
		return biometric.ModalityNone
	}
	return modality
}

// IsAvailable reports whether hardware exists and at least one identity
// is enrolled. A temporary lockout does not make biometrics
// unavailable: the user can still be offered the quick-login path, and
// the gate reports the lockout when they take it.
func (p *Probe) IsAvailable() bool {
	return p.Check() == nil
}

// Check returns nil when biometric login can be offered, otherwise a
// vaulterr error of kind KindUnavailable or KindNotEnrolled.
func (p *Probe) Check() error {
	modality, code := p.auth.CanEvaluate()
	switch code {
	case biometric.CodeNotAvailable:
		return vaulterr.New(vaulterr.KindUnavailable, "capability.check")
	case biometric.CodeNotEnrolled:
		return vaulterr.New(vaulterr.KindNotEnrolled, "capability.check")
	}
	if modality == biometric.ModalityNone {
		return vaulterr.New(vaulterr.KindUnavailable, "capability.check")
	}
	return nil
}

// Description is the label shown on the quick-login affordance.
func (p *Probe) Description() string {
	return Describe(p.BiometricType())
}

// Describe returns the user-facing label for a modality.
func Describe(modality biometric.Modality) string {
	switch modality {
	case biometric.ModalityFingerprint:
		return "Fingerprint"
	case biometric.ModalityFace:
		return "Face recognition"
	default:
		return "Biometric authentication"
	}
}
