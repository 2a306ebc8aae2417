// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/biovault/lib/biometric"
	"github.com/bureau-foundation/biovault/lib/vaulterr"
)

// countingAuthenticator fails the test if anything prompts.
type countingAuthenticator struct {
	t        *testing.T
	modality biometric.Modality
	code     biometric.Code
}

func (a *countingAuthenticator) CanEvaluate() (biometric.Modality, biometric.Code) {
	return a.modality, a.code
}

func (a *countingAuthenticator) Evaluate(context.Context, string) biometric.Code {
	a.t.Error("capability probe prompted the user")
	return biometric.CodeUnknown
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name          string
		modality      biometric.Modality
		code          biometric.Code
		wantType      biometric.Modality
		wantAvailable bool
		wantErr       error
	}{
		{"face ready", biometric.ModalityFace, biometric.CodeOK, biometric.ModalityFace, true, nil},
		{"fingerprint ready", biometric.ModalityFingerprint, biometric.CodeOK, biometric.ModalityFingerprint, true, nil},
		{"no hardware", biometric.ModalityNone, biometric.CodeNotAvailable, biometric.ModalityNone, false, vaulterr.ErrUnavailable},
		{"hardware reported but unavailable", biometric.ModalityFace, biometric.CodeNotAvailable, biometric.ModalityNone, false, vaulterr.ErrUnavailable},
		{"not enrolled", biometric.ModalityFingerprint, biometric.CodeNotEnrolled, biometric.ModalityFingerprint, false, vaulterr.ErrNotEnrolled},
		{"locked out still offered", biometric.ModalityFace, biometric.CodeLockout, biometric.ModalityFace, true, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			probe := New(&countingAuthenticator{t: t, modality: test.modality, code: test.code})

			if got := probe.BiometricType(); got != test.wantType {
				t.Errorf("BiometricType() = %v, want %v", got, test.wantType)
			}
			if got := probe.IsAvailable(); got != test.wantAvailable {
				t.Errorf("IsAvailable() = %v, want %v", got, test.wantAvailable)
			}
			err := probe.Check()
			if test.wantErr == nil {
				if err != nil {
					t.Errorf("Check() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Check() = %v, want %v", err, test.wantErr)
			}
			if category := vaulterr.CategoryOf(err); category != vaulterr.CategoryCapability {
				t.Errorf("CategoryOf(Check()) = %q, want capability", category)
			}
		})
	}
}

func TestProbeTracksEnrollmentChanges(t *testing.T) {
	simulator := biometric.NewSimulator(biometric.SimulatorConfig{Modality: biometric.ModalityFingerprint})
	probe := New(simulator)

	if probe.IsAvailable() {
		t.Fatal("IsAvailable() true with nothing enrolled")
	}
	simulator.SetEnrolled(true)
	if !probe.IsAvailable() {
		t.Error("IsAvailable() false after enrollment")
	}
	if simulator.Prompts() != 0 {
		t.Errorf("probe caused %d prompts", simulator.Prompts())
	}
}

func TestDescription(t *testing.T) {
	tests := map[biometric.Modality]string{
		biometric.ModalityFace:        "Face recognition",
		biometric.ModalityFingerprint: "Fingerprint",
		biometric.ModalityNone:        "Biometric authentication",
	}
	for modality, want := range tests {
		probe := New(&countingAuthenticator{t: t, modality: modality, code: biometric.CodeOK})
		if got := probe.Description(); got != want {
			t.Errorf("Description() for %v = %q, want %q", modality, got, want)
		}
	}
}
