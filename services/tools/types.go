// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools exposes the factory capabilities the model is allowed to
// call.
//
// # Description
//
// The registry is closed: the set of tools is fixed at startup and the
// model can only name tools from it. Every invocation is validated against
// the tool's JSON schema before the handler runs, and every handler
// failure is converted into an error-text result the model can read. A
// tool can never abort a chat turn; only infrastructure failures (storage
// unreachable after retries) escape the registry as Go errors.
package tools

import (
	"context"
	"encoding/json"
)

// Tool names as declared to the model.
const (
	ToolCalculateOEE        = "calculate_oee"
	ToolGetScrapMetrics     = "get_scrap_metrics"
	ToolGetQualityIssues    = "get_quality_issues"
	ToolGetDowntimeAnalysis = "get_downtime_analysis"
	ToolSaveInvestigation   = "save_investigation"
	ToolLogAction           = "log_action"
	ToolGetPendingFollowups = "get_pending_followups"
	ToolGetMemoryContext    = "get_memory_context"
)

// Declaration describes one tool to the model.
type Declaration struct {
	Name            string
	Description     string
	ParameterSchema json.RawMessage
}

// InvocationRequest is one tool call requested by the model.
type InvocationRequest struct {
	// CallID is the model's identifier for this call. It is echoed back on
	// the result so the transcript pairs calls with outputs.
	CallID string

	// Name is the tool to invoke.
	Name string

	// Arguments is the raw JSON argument object from the model.
	Arguments json.RawMessage
}

// Result is the outcome of one tool invocation.
//
// IsError marks a contained failure (unknown tool, bad arguments, handler
// error). The Content then holds the error text; the model reads it and
// decides how to proceed. Results with IsError set still count as
// completed invocations.
type Result struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Handler executes one validated tool call.
//
// The arguments have already passed schema validation. A returned error is
// contained by the registry unless it is an infrastructure failure; see
// Registry.Invoke.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)
