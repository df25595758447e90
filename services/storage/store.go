// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides whole-document blob access for the factory
// copilot: a GCS backend, a local-file backend, and a resilience wrapper
// that adds bounded retries with exponential backoff.
//
// # Description
//
// Every persisted dataset is a single UTF-8 JSON document addressed by a
// logical key (for example "production-data"). Documents are always read and
// written whole; there are no partial updates, which is what makes retries
// safe to re-issue.
package storage

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

// ErrNotFound is returned when the requested key does not exist. It is a
// permanent condition and is never retried.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the minimal contract every backend implements.
//
// # Description
//
// Download returns the full document for a key, Upload replaces it, and
// Exists reports presence without transferring the body. Implementations
// must be safe for concurrent use by multiple in-flight calls.
type BlobStore interface {
	// Download returns the complete document stored under key.
	// Returns ErrNotFound if the key does not exist.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload replaces the document stored under key. The write is atomic
	// at the document level: readers see either the old or the new body,
	// never a partial write.
	Upload(ctx context.Context, key string, data []byte) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// IsTransient classifies an error as retry-safe.
//
// # Description
//
// Transient failures are the classes a retry can reasonably fix: network
// timeouts, connection resets, and server-side 5xx responses. Permanent
// failures (not-found, auth, malformed request) return false and must be
// surfaced immediately.
//
// # Inputs
//
//   - err: The error to classify. Nil returns false.
//
// # Outputs
//
//   - bool: True if a retry may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Per-attempt deadline expiry counts against the retry budget like any
	// other transient failure.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code >= http.StatusInternalServerError:
			return true
		case apiErr.Code == http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}

	// Connection teardown frequently surfaces as wrapped text only.
	msg := err.Error()
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") {
		return true
	}

	return false
}
