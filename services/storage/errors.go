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

import "fmt"

// CodeStorageUnavailable is the stable discriminant carried by
// UnavailableError, used by the HTTP layer to map this failure class to a
// status code without parsing message text.
const CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

// UnavailableError reports that the store exhausted its retry budget.
//
// # Description
//
// Carries the operation, key, attempt count, and the last underlying cause.
// Callers decide whether to fall back (for example to a default snapshot) or
// to propagate.
type UnavailableError struct {
	Op       string
	Key      string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %s %q failed after %d attempts: %v",
		e.Op, e.Key, e.Attempts, e.Cause)
}

// Unwrap exposes the last underlying cause for errors.Is/As.
func (e *UnavailableError) Unwrap() error { return e.Cause }

// Code returns the stable error discriminant.
func (e *UnavailableError) Code() string { return CodeStorageUnavailable }
