// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the
// orchestrator service.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Request Bounds
// =============================================================================

const (
	// MaxMessageChars is the maximum length of one incoming user message.
	MaxMessageChars = 2000

	// MaxHistoryMessages is the maximum number of prior messages a request
	// may carry.
	MaxHistoryMessages = 50

	// MaxHistoryChars is the maximum combined content length across the
	// history.
	MaxHistoryChars = 50000
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
}

// =============================================================================
// Chat Request Types
// =============================================================================

// Message is one entry in a conversation transcript.
//
// # Fields
//
//   - Role: "user", "assistant", or "tool". Tool entries hold the JSON
//     output of a tool invocation made on the user's behalf.
//   - Content: The message text. Tool entries carry the tool result
//     payload, which is exempt from the per-message length cap.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant tool"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat.
//
// # Description
//
// Carries one new user message plus the prior conversation history. The
// history is client-held state: the server is stateless between turns and
// returns the updated history in the response.
//
// # Validation
//
//   - Message: required, 1 to 2000 characters.
//   - History: at most 50 entries, each with a known role.
//   - User and assistant history entries: content non-empty and at most
//     2000 characters. Tool entries are exempt from the per-message cap
//     because tool payloads are machine-generated.
//   - Combined history content at most 50000 characters, checked in
//     Validate because the tag syntax cannot express a cross-field sum.
type ChatRequest struct {
	Message string    `json:"message" validate:"required,min=1,max=2000"`
	History []Message `json:"history" validate:"omitempty,max=50,dive"`
}

// Validate validates the ChatRequest fields.
//
// # Outputs
//
//   - error: Non-nil if validation failed, with details about which field.
func (r *ChatRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return err
	}

	total := 0
	for i, msg := range r.History {
		if msg.Role != "tool" {
			if msg.Content == "" {
				return &HistoryEntryError{Index: i, Reason: "content must not be empty"}
			}
			if len(msg.Content) > MaxMessageChars {
				return &HistoryEntryError{Index: i, Reason: "content exceeds the per-message limit"}
			}
		}
		total += len(msg.Content)
		if total > MaxHistoryChars {
			return &HistoryTooLargeError{Chars: total}
		}
	}
	return nil
}

// HistoryTooLargeError reports a history that exceeds the combined
// content cap.
type HistoryTooLargeError struct {
	Chars int
}

func (e *HistoryTooLargeError) Error() string {
	return "conversation history exceeds the combined content limit"
}

// HistoryEntryError reports a single user or assistant history entry
// whose content violates the per-message bounds.
type HistoryEntryError struct {
	Index  int
	Reason string
}

func (e *HistoryEntryError) Error() string {
	return fmt.Sprintf("history entry %d: %s", e.Index, e.Reason)
}

// =============================================================================
// Chat Response Types
// =============================================================================

// ChatResponse is the body returned by POST /api/v1/chat.
//
// # Fields
//
//   - Reply: The assistant's final text for this turn.
//   - UpdatedHistory: The request history extended with this turn's user
//     message, any tool results, and the assistant reply. Clients send it
//     back verbatim on the next turn.
//   - InputFlagged: True when the message matched a known prompt-injection
//     signature. Advisory only.
//   - ToolsUsed: Names of the tools invoked during this turn, in call
//     order.
type ChatResponse struct {
	Reply          string    `json:"reply"`
	UpdatedHistory []Message `json:"updated_history"`
	InputFlagged   bool      `json:"input_flagged,omitempty"`
	ToolsUsed      []string  `json:"tools_used,omitempty"`
}

// =============================================================================
// Error Response Types
// =============================================================================

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
