// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import "fmt"

// Stable error codes returned to clients. Handlers map them to HTTP
// statuses; clients and tests match on the code string, never on the
// message text.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeToolLoopExceeded = "TOOL_LOOP_EXCEEDED"
	CodeUpstreamError    = "UPSTREAM_SERVICE_ERROR"
	CodeToolInvocation   = "TOOL_INVOCATION_ERROR"
)

// ValidationError reports a request that failed input validation. The
// turn never started; no model or tool calls were made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Code returns the stable error code.
func (e *ValidationError) Code() string { return CodeValidationError }

// ToolLoopExceededError reports a turn that hit the tool iteration cap
// without the model producing a final answer.
type ToolLoopExceededError struct {
	Iterations int
}

func (e *ToolLoopExceededError) Error() string {
	return fmt.Sprintf("model did not converge within %d tool iterations", e.Iterations)
}

// Code returns the stable error code.
func (e *ToolLoopExceededError) Code() string { return CodeToolLoopExceeded }

// ToolInvocationError reports a tool whose failure could not be
// contained as a result value. Today that is only a storage outage
// surfacing through a tool; the cause stays reachable via Unwrap so
// handlers can map it.
type ToolInvocationError struct {
	Tool  string
	Cause error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *ToolInvocationError) Unwrap() error { return e.Cause }

// Code returns the stable error code.
func (e *ToolInvocationError) Code() string { return CodeToolInvocation }

// UpstreamServiceError reports a completion backend failure that
// persisted through retries.
type UpstreamServiceError struct {
	Cause error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("completion backend failed: %v", e.Cause)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Cause }

// Code returns the stable error code.
func (e *UpstreamServiceError) Code() string { return CodeUpstreamError }
