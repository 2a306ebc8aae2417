// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive returns the next value on ch, failing the test if ch
// is closed or nothing arrives within timeout. what names the event
// being waited for and may be a format string followed by its
// arguments.
//
//	testutil.RequireReceive(t, simulator.Started(), 5*time.Second, "prompt start")
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, what ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed with no value", describe(what))
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received within %v", describe(what), timeout)
	}
	panic("unreachable")
}

// RequireClosed waits for ch to be closed or to deliver a value,
// failing the test after timeout. Use it for signals sent by closing a
// channel, such as an execution having started.
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, what ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: channel not closed within %v", describe(what), timeout)
	}
}

func describe(what []any) string {
	switch {
	case len(what) == 0:
		return "waiting"
	case len(what) == 1:
		return fmt.Sprint(what[0])
	}
	if format, ok := what[0].(string); ok {
		return fmt.Sprintf(format, what[1:]...)
	}
	return fmt.Sprint(what...)
}
