// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm abstracts the chat completion backend.
package llm

import (
	"context"
	"encoding/json"
)

// Chat message roles on the wire to the model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatMessage is one transcript entry sent to or received from the model.
type ChatMessage struct {
	Role    string
	Content string

	// ToolCallID links a RoleTool message back to the call it answers.
	ToolCallID string

	// Name is the tool name on RoleTool messages.
	Name string

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall
}

// ToolDefinition describes one callable function to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// CompletionRequest is one call to the completion backend.
type CompletionRequest struct {
	Messages []ChatMessage
	Tools    []ToolDefinition
}

// Completion is the model's reply: either content, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// CompletionClient defines the standard interface for any chat backend.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
