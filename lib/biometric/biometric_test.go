// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/bureau-foundation/biovault/lib/clock"
	"github.com/bureau-foundation/biovault/lib/testutil"
)

func TestModalityRoundtrip(t *testing.T) {
	for _, modality := range []Modality{ModalityNone, ModalityFingerprint, ModalityFace} {
		parsed, err := ParseModality(modality.String())
		if err != nil {
			t.Fatalf("ParseModality(%q): %v", modality, err)
		}
		if parsed != modality {
			t.Errorf("ParseModality(%q) = %v", modality, parsed)
		}
	}
	if _, err := ParseModality("iris"); err == nil {
		t.Error("ParseModality accepted unknown modality")
	}
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode("user_cancel")
	if err != nil || code != CodeUserCancel {
		t.Errorf("ParseCode(user_cancel) = %v, %v", code, err)
	}
	if _, err := ParseCode("nope"); err == nil {
		t.Error("ParseCode accepted unknown outcome")
	}
}

func TestSimulatorCanEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		config       SimulatorConfig
		wantModality Modality
		wantCode     Code
	}{
		{"no hardware", SimulatorConfig{}, ModalityNone, CodeNotAvailable},
		{"not enrolled", SimulatorConfig{Modality: ModalityFace}, ModalityFace, CodeNotEnrolled},
		{"no passcode", SimulatorConfig{Modality: ModalityFace, Enrolled: true, PasscodeNotSet: true}, ModalityFace, CodePasscodeNotSet},
		{"ready", SimulatorConfig{Modality: ModalityFingerprint, Enrolled: true}, ModalityFingerprint, CodeOK},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			modality, code := NewSimulator(test.config).CanEvaluate()
			if modality != test.wantModality || code != test.wantCode {
				t.Errorf("CanEvaluate() = (%v, %v), want (%v, %v)", modality, code, test.wantModality, test.wantCode)
			}
		})
	}
}

func TestSimulatorScriptAndCount(t *testing.T) {
	simulator := NewSimulator(SimulatorConfig{Modality: ModalityFace, Enrolled: true})
	simulator.Script(CodeUserCancel, CodeSystemCancel)

	ctx := context.Background()
	want := []Code{CodeUserCancel, CodeSystemCancel, CodeOK}
	for index, expected := range want {
		if got := simulator.Evaluate(ctx, "unlock"); got != expected {
			t.Errorf("Evaluate #%d = %v, want %v", index, got, expected)
		}
	}
	if simulator.Prompts() != 3 {
		t.Errorf("Prompts() = %d, want 3", simulator.Prompts())
	}
	if reasons := simulator.Reasons(); len(reasons) != 3 || reasons[0] != "unlock" {
		t.Errorf("Reasons() = %v", reasons)
	}
}

func TestSimulatorLockout(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	simulator := NewSimulator(SimulatorConfig{
		Modality:        ModalityFingerprint,
		Enrolled:        true,
		Outcome:         CodeAuthenticationFailed,
		MaxFailures:     3,
		LockoutDuration: 30 * time.Second,
		Clock:           fakeClock,
	})

	ctx := context.Background()
	for attempt := 1; attempt <= 2; attempt++ {
		if got := simulator.Evaluate(ctx, "unlock"); got != CodeAuthenticationFailed {
			t.Fatalf("attempt %d = %v, want authentication_failed", attempt, got)
		}
	}
	if got := simulator.Evaluate(ctx, "unlock"); got != CodeLockout {
		t.Fatalf("third failure = %v, want lockout", got)
	}
	if _, code := simulator.CanEvaluate(); code != CodeLockout {
		t.Errorf("CanEvaluate during lockout = %v", code)
	}

	fakeClock.Advance(31 * time.Second)
	simulator.SetOutcome(CodeOK)
	if got := simulator.Evaluate(ctx, "unlock"); got != CodeOK {
		t.Errorf("after lockout window = %v, want ok", got)
	}
}

func TestSimulatorEnrollment(t *testing.T) {
	simulator := NewSimulator(SimulatorConfig{Modality: ModalityFace, Enrolled: true, EnrollmentID: "set-1"})

	first, err := simulator.Enrollment()
	if err != nil || len(first) == 0 {
		t.Fatalf("Enrollment() = %q, %v", first, err)
	}
	again, _ := simulator.Enrollment()
	if !bytes.Equal(first, again) {
		t.Error("enrollment description changed without re-enrollment")
	}

	simulator.Reenroll("set-2")
	changed, _ := simulator.Enrollment()
	if bytes.Equal(first, changed) {
		t.Error("enrollment description unchanged after Reenroll")
	}

	simulator.SetEnrolled(false)
	if empty, _ := simulator.Enrollment(); len(empty) != 0 {
		t.Errorf("Enrollment() with nothing enrolled = %q, want empty", empty)
	}
}

func TestSimulatorHold(t *testing.T) {
	simulator := NewSimulator(SimulatorConfig{Modality: ModalityFace, Enrolled: true})
	simulator.Hold()

	result := make(chan Code, 1)
	go func() { result <- simulator.Evaluate(context.Background(), "unlock") }()

	testutil.RequireReceive(t, simulator.Started(), 5*time.Second, "prompt start")
	select {
	case <-result:
		t.Fatal("Evaluate returned while held")
	default:
	}

	simulator.Release()
	if code := testutil.RequireReceive(t, result, 5*time.Second, "Evaluate after Release"); code != CodeOK {
		t.Errorf("Evaluate = %v, want ok", code)
	}
}

// scriptedRunner returns canned output per command name.
func scriptedRunner(outputs map[string]string, errs map[string]error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(outputs[name]), errs[name]
	}
}

const fprintdListEnrolled = `found 1 devices
Device at /net/reactivated/Fprint/Device/0
Using device /net/reactivated/Fprint/Device/0
Fingerprints for user alice on Synaptics Sensors (press):
 - #0: right-index-finger
 - #1: left-index-finger
`

func TestFprintdCanEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		err          error
		wantModality Modality
		wantCode     Code
	}{
		{"enrolled", fprintdListEnrolled, nil, ModalityFingerprint, CodeOK},
		{"no fingers", "User alice has no fingers enrolled for Synaptics Sensors.\n", nil, ModalityFingerprint, CodeNotEnrolled},
		{"no device", "No devices available\n", errors.New("exit status 1"), ModalityNone, CodeNotAvailable},
		{"not installed", "", exec.ErrNotFound, ModalityNone, CodeNotAvailable},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := &Fprintd{
				User: "alice",
				Run:  scriptedRunner(map[string]string{"fprintd-list": test.output}, map[string]error{"fprintd-list": test.err}),
			}
			modality, code := backend.CanEvaluate()
			if modality != test.wantModality || code != test.wantCode {
				t.Errorf("CanEvaluate() = (%v, %v), want (%v, %v)", modality, code, test.wantModality, test.wantCode)
			}
		})
	}
}

func TestFprintdEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   Code
	}{
		{"match", "Verify started!\nVerify result: verify-match (done)\n", nil, CodeOK},
		{"no match", "Verify result: verify-no-match (done)\n", errors.New("exit status 1"), CodeAuthenticationFailed},
		{"disconnected", "Verify result: verify-disconnected\n", errors.New("exit status 1"), CodeNotAvailable},
		{"busy", "failed to claim device: net.reactivated.Fprint.Error.AlreadyInUse\n", errors.New("exit status 1"), CodeSystemCancel},
		{"garbage", "???", errors.New("exit status 2"), CodeUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := &Fprintd{
				User: "alice",
				Run:  scriptedRunner(map[string]string{"fprintd-verify": test.output}, map[string]error{"fprintd-verify": test.err}),
			}
			if got := backend.Evaluate(context.Background(), "unlock"); got != test.want {
				t.Errorf("Evaluate() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestFprintdEnrollmentSortedAndStable(t *testing.T) {
	reordered := `Fingerprints for user alice on Synaptics Sensors (press):
 - #0: left-index-finger
 - #1: right-index-finger
`
	first := &Fprintd{User: "alice", Run: scriptedRunner(map[string]string{"fprintd-list": fprintdListEnrolled}, nil)}
	second := &Fprintd{User: "alice", Run: scriptedRunner(map[string]string{"fprintd-list": reordered}, nil)}

	firstEnrollment, err := first.Enrollment()
	if err != nil {
		t.Fatalf("Enrollment: %v", err)
	}
	secondEnrollment, err := second.Enrollment()
	if err != nil {
		t.Fatalf("Enrollment: %v", err)
	}
	if !bytes.Equal(firstEnrollment, secondEnrollment) {
		t.Errorf("enrollment depends on listing order: %q vs %q", firstEnrollment, secondEnrollment)
	}
	if string(firstEnrollment) != "alice:left-index-finger,right-index-finger" {
		t.Errorf("Enrollment() = %q", firstEnrollment)
	}
}
