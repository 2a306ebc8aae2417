// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/biovault/lib/clock"
)

// SimulatorConfig describes the simulated device.
type SimulatorConfig struct {
	// Modality is the sensor the device reports. ModalityNone means no
	// hardware: CanEvaluate reports CodeNotAvailable.
	Modality Modality

	// Enrolled reports whether at least one identity is enrolled.
	Enrolled bool

	// EnrollmentID identifies the enrolled set. Changing it (via
	// Reenroll) invalidates entries bound to the previous set.
	EnrollmentID string

	// PasscodeNotSet makes CanEvaluate report CodePasscodeNotSet.
	PasscodeNotSet bool

	// Outcome is returned by Evaluate when no scripted outcome is
	// queued. The zero value is CodeOK.
	Outcome Code

	// MaxFailures is the number of consecutive
	// CodeAuthenticationFailed outcomes after which the device locks
	// out for LockoutDuration. Zero disables lockout.
	MaxFailures int

	// LockoutDuration is how long the device stays locked out.
	LockoutDuration time.Duration

	// Clock measures the lockout window. Defaults to clock.Real().
	Clock clock.Clock
}

// Simulator is a deterministic in-process Authenticator. It is safe
// for concurrent use.
type Simulator struct {
	mu          sync.Mutex
	config      SimulatorConfig
	script      []Code
	prompts     int
	reasons     []string
	failures    int
	lockedUntil time.Time
	held        chan struct{}
	started     chan struct{}
}

// NewSimulator creates a Simulator from config.
func NewSimulator(config SimulatorConfig) *Simulator {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Simulator{
		config:  config,
		started: make(chan struct{}, 64),
	}
}

// CanEvaluate implements Authenticator.
func (s *Simulator) CanEvaluate() (Modality, Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Modality, s.availabilityLocked()
}

func (s *Simulator) availabilityLocked() Code {
	switch {
	case s.config.Modality == ModalityNone:
		return CodeNotAvailable
	case s.config.PasscodeNotSet:
		return CodePasscodeNotSet
	case !s.config.Enrolled:
		return CodeNotEnrolled
	case s.config.Clock.Now().Before(s.lockedUntil):
		return CodeLockout
	}
	return CodeOK
}

// Evaluate implements Authenticator. Each call counts as one prompt.
// If Hold is in effect, Evaluate blocks until Release after signaling
// on Started.
func (s *Simulator) Evaluate(ctx context.Context, reason string) Code {
	s.mu.Lock()
	s.prompts++
	s.reasons = append(s.reasons, reason)
	held := s.held
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}

	if held != nil {
		<-held
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if availability := s.availabilityLocked(); availability != CodeOK {
		return availability
	}

	outcome := s.config.Outcome
	if len(s.script) > 0 {
		outcome = s.script[0]
		s.script = s.script[1:]
	}

	switch outcome {
	case CodeOK:
		s.failures = 0
	case CodeAuthenticationFailed:
		s.failures++
		if s.config.MaxFailures > 0 && s.failures >= s.config.MaxFailures {
			s.failures = 0
			s.lockedUntil = s.config.Clock.Now().Add(s.config.LockoutDuration)
			return CodeLockout
		}
	}
	return outcome
}

// Enrollment implements EnrollmentSource.
func (s *Simulator) Enrollment() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Modality == ModalityNone || !s.config.Enrolled {
		return nil, nil
	}
	return []byte(s.config.Modality.String() + "/" + s.config.EnrollmentID), nil
}

// Script queues outcomes returned by the next Evaluate calls, in
// order, before falling back to the configured Outcome.
func (s *Simulator) Script(outcomes ...Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, outcomes...)
}

// SetOutcome changes the default Evaluate outcome.
func (s *Simulator) SetOutcome(outcome Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Outcome = outcome
}

// SetEnrolled changes whether any identity is enrolled.
func (s *Simulator) SetEnrolled(enrolled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Enrolled = enrolled
}

// Reenroll replaces the enrolled set, as when a fingerprint is added
// or face data is reset.
func (s *Simulator) Reenroll(enrollmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Enrolled = true
	s.config.EnrollmentID = enrollmentID
}

// Hold makes subsequent Evaluate calls block until Release.
func (s *Simulator) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		s.held = make(chan struct{})
	}
}

// Release unblocks every Evaluate waiting on Hold and ends the hold.
func (s *Simulator) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		close(s.held)
		s.held = nil
	}
}

// Started receives one value each time Evaluate begins a prompt.
func (s *Simulator) Started() <-chan struct{} {
	return s.started
}

// Prompts returns the number of Evaluate calls so far.
func (s *Simulator) Prompts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts
}

// Reasons returns the reason strings passed to Evaluate, in order.
func (s *Simulator) Reasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reasons...)
}
