// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// RetryPolicy controls how transient failures are retried.
//
// # Description
//
// The delay before attempt k (for k >= 2) is
// InitialBackoff * Multiplier^(k-2), clamped at MaxDelay. With the defaults
// (3 attempts, 2s initial, multiplier 2) a fully failing operation sleeps
// 2s then 4s before giving up.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64

	// MaxDelay clamps the computed backoff.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used in production deployments.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		Multiplier:     2,
		MaxDelay:       30 * time.Second,
	}
}

// BackoffFor returns the delay to sleep before the given attempt.
// Attempt numbering starts at 1; the first attempt never sleeps.
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := time.Duration(float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt-2)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// retryState tracks the progress of one wrapped operation. It lives only for
// the duration of a single Download/Upload/Exists call.
type retryState struct {
	attempt   int
	lastDelay time.Duration
}

// SleepFunc pauses for d or returns early with the context's error. Tests
// substitute a recording implementation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryObserver is notified before each re-attempt. Used to feed the
// storage_retries_total metric without coupling this package to Prometheus.
type RetryObserver func(op string, attempt int, delay time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ResilientStore wraps a BlobStore with bounded retries, exponential
// backoff, and a per-attempt operation timeout.
//
// # Description
//
// Transient failures (see IsTransient) consume the attempt budget and are
// retried after an exponentially growing delay. Permanent failures
// (not-found, auth, malformed request) are returned immediately. When the
// budget is exhausted the last cause is wrapped in *UnavailableError.
//
// Because documents are written whole, retrying an Upload can never
// duplicate a side effect; the operation either fully replaced the document
// or left the previous version intact.
//
// Thread Safety: ResilientStore is safe for concurrent use if the wrapped
// store is.
type ResilientStore struct {
	inner     BlobStore
	policy    RetryPolicy
	opTimeout time.Duration
	sleep     SleepFunc
	observer  RetryObserver
}

// ResilientOption configures a ResilientStore.
type ResilientOption func(*ResilientStore)

// WithSleepFunc replaces the real clock. Tests use this to record the delay
// sequence instead of sleeping.
func WithSleepFunc(fn SleepFunc) ResilientOption {
	return func(s *ResilientStore) { s.sleep = fn }
}

// WithRetryObserver registers a callback fired before each re-attempt.
func WithRetryObserver(fn RetryObserver) ResilientOption {
	return func(s *ResilientStore) { s.observer = fn }
}

// NewResilientStore wraps inner with the given policy.
//
// # Inputs
//
//   - inner: The backend to wrap.
//   - policy: Retry policy; zero MaxAttempts falls back to the default.
//   - opTimeout: Per-attempt deadline; zero disables the per-attempt bound.
//   - opts: Optional overrides, mainly for tests.
func NewResilientStore(inner BlobStore, policy RetryPolicy, opTimeout time.Duration, opts ...ResilientOption) *ResilientStore {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	s := &ResilientStore{
		inner:     inner,
		policy:    policy,
		opTimeout: opTimeout,
		sleep:     defaultSleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Download implements BlobStore with resilience wrapping.
func (s *ResilientStore) Download(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, "download", key, func(attemptCtx context.Context) error {
		var err error
		data, err = s.inner.Download(attemptCtx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Upload implements BlobStore with resilience wrapping.
func (s *ResilientStore) Upload(ctx context.Context, key string, data []byte) error {
	return s.do(ctx, "upload", key, func(attemptCtx context.Context) error {
		return s.inner.Upload(attemptCtx, key, data)
	})
}

// Exists implements BlobStore with resilience wrapping.
func (s *ResilientStore) Exists(ctx context.Context, key string) (bool, error) {
	var present bool
	err := s.do(ctx, "exists", key, func(attemptCtx context.Context) error {
		var err error
		present, err = s.inner.Exists(attemptCtx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// do runs fn under the retry policy.
func (s *ResilientStore) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	state := retryState{}
	var lastErr error

	for state.attempt = 1; state.attempt <= s.policy.MaxAttempts; state.attempt++ {
		if state.attempt > 1 {
			state.lastDelay = s.policy.BackoffFor(state.attempt)
			slog.Warn("Retrying storage operation",
				slog.String("op", op),
				slog.String("key", key),
				slog.Int("attempt", state.attempt),
				slog.Duration("delay", state.lastDelay),
				slog.String("cause", lastErr.Error()),
			)
			if s.observer != nil {
				s.observer(op, state.attempt, state.lastDelay)
			}
			if err := s.sleep(ctx, state.lastDelay); err != nil {
				return err
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if s.opTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.opTimeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}
		// The parent context is gone; further attempts cannot succeed.
		if ctx.Err() != nil {
			break
		}
	}

	attempts := state.attempt
	if attempts > s.policy.MaxAttempts {
		attempts = s.policy.MaxAttempts
	}
	return &UnavailableError{
		Op:       op,
		Key:      key,
		Attempts: attempts,
		Cause:    lastErr,
	}
}
