// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package flight collapses concurrent calls to one operation into a
// single execution whose result every caller receives.
//
// [Single] is keyless: a process holds one Single per operation that
// must never run twice at once (one biometric challenge, one vault
// read). The shared execution runs on a context detached from the
// leader's cancellation, so a caller that gives up does not abort the
// work the remaining callers are waiting on. A caller whose context
// ends returns ctx.Err() immediately; the execution continues and its
// result goes to whoever is still waiting.
//
// Unlike golang.org/x/sync/singleflight, Single exposes an OnShare hook
// that fires each time a caller joins an execution already in flight.
// Tests use it to know, without sleeping, that N callers are attached
// before letting the execution finish.
package flight

import (
	"context"
	"fmt"
	"sync"
)

type call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Single runs at most one execution at a time. The zero value is ready
// to use. A Single must not be copied after first use.
type Single[T any] struct {
	mu   sync.Mutex
	call *call[T]

	// OnShare, if set, is called (outside the lock) each time Do joins
	// an execution that is already in flight. Set it before the first
	// Do.
	OnShare func()
}

// Do runs fn if no execution is in flight, otherwise waits for the one
// that is. It returns fn's result, whether the result was shared with
// an earlier caller, and fn's error or ctx.Err() if ctx ended first.
//
// fn receives a context that carries ctx's values but not its
// cancellation or deadline. A panic in fn is recovered and delivered
// to every caller as an error. A caller whose ctx has already ended
// does not start an execution.
func (s *Single[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, bool, error) {
	s.mu.Lock()
	current := s.call
	shared := current != nil
	if !shared {
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			var zero T
			return zero, false, err
		}
		current = &call[T]{done: make(chan struct{})}
		s.call = current
		go s.run(context.WithoutCancel(ctx), current, fn)
	}
	onShare := s.OnShare
	s.mu.Unlock()

	if shared && onShare != nil {
		onShare()
	}

	select {
	case <-current.done:
		return current.value, shared, current.err
	case <-ctx.Done():
		var zero T
		return zero, shared, ctx.Err()
	}
}

// InFlight reports whether an execution is running.
func (s *Single[T]) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call != nil
}

func (s *Single[T]) run(ctx context.Context, current *call[T], fn func(context.Context) (T, error)) {
	defer func() {
		if recovered := recover(); recovered != nil {
			var zero T
			current.value = zero
			current.err = fmt.Errorf("flight: panic in shared call: %v", recovered)
		}
		// Clear before closing done so a caller that observes the
		// result and immediately calls Do again starts a new execution.
		s.mu.Lock()
		if s.call == current {
			s.call = nil
		}
		s.mu.Unlock()
		close(current.done)
	}()
	current.value, current.err = fn(ctx)
}
