// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services holds the orchestrator's business logic, one service
// per endpoint family.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/llm"
	"github.com/AleutianAI/AleutianFactory/services/memory"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianFactory/services/sanitizer"
	"github.com/AleutianAI/AleutianFactory/services/storage"
	"github.com/AleutianAI/AleutianFactory/services/tools"
)

// DefaultMaxToolIterations caps how many completion rounds one turn may
// spend on tool calls before the turn fails.
const DefaultMaxToolIterations = 8

// ChatConfig carries the tunable parts of the chat service.
type ChatConfig struct {
	// FactoryName appears in the system preamble.
	FactoryName string

	// MaxToolIterations overrides DefaultMaxToolIterations when positive.
	MaxToolIterations int

	// RetryPolicy governs completion backend retries. The zero value is
	// replaced with storage.DefaultRetryPolicy so the two call sites back
	// off identically.
	RetryPolicy storage.RetryPolicy
}

// ChatOption customizes a ChatService.
type ChatOption func(*ChatService)

// WithChatSleepFunc replaces the retry sleep, for tests.
func WithChatSleepFunc(sleep storage.SleepFunc) ChatOption {
	return func(s *ChatService) { s.sleep = sleep }
}

func defaultChatSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ChatService runs one conversational turn end to end.
//
// # Description
//
// A turn is: validate the request, scan it for injection signatures,
// build the system preamble from live factory state, then alternate
// completion calls and tool executions until the model answers in plain
// text or the iteration cap is hit. The service is stateless between
// turns; conversation history travels with the request.
//
// Thread Safety: ChatService is safe for concurrent use. Each turn works
// on its own transcript.
type ChatService struct {
	cfg      ChatConfig
	client   llm.CompletionClient
	registry *tools.Registry
	scanner  *sanitizer.Scanner
	loader   *factorydata.Loader
	memory   *memory.Service
	sleep    storage.SleepFunc
}

// NewChatService wires a chat service.
func NewChatService(
	cfg ChatConfig,
	client llm.CompletionClient,
	registry *tools.Registry,
	scanner *sanitizer.Scanner,
	loader *factorydata.Loader,
	mem *memory.Service,
	opts ...ChatOption,
) *ChatService {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultMaxToolIterations
	}
	if cfg.RetryPolicy.MaxAttempts == 0 {
		cfg.RetryPolicy = storage.DefaultRetryPolicy()
	}
	s := &ChatService{
		cfg:      cfg,
		client:   client,
		registry: registry,
		scanner:  scanner,
		loader:   loader,
		memory:   mem,
		sleep:    defaultChatSleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTurn executes one conversational turn.
//
// # Description
//
// On success the response carries the assistant's reply and the updated
// history: the request history plus the user message, one entry per tool
// result in call order, and the final reply. On any failure the history
// is not advanced; the client retries the same turn.
//
// # Outputs
//
//   - *datatypes.ChatResponse: The reply and updated history.
//   - error: *ValidationError, *ToolLoopExceededError,
//     *UpstreamServiceError, or *ToolInvocationError wrapping
//     *storage.UnavailableError.
func (s *ChatService) RunTurn(ctx context.Context, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	scan := s.scanner.Sanitize(req.Message)
	if scan.Flagged {
		observability.RecordInjectionFlag()
		slog.Warn("Message matched injection signatures", "patterns", scan.MatchedPatterns)
	}

	preamble, err := s.buildPreamble(ctx)
	if err != nil {
		return nil, err
	}

	transcript := make([]llm.ChatMessage, 0, len(req.History)+2)
	transcript = append(transcript, llm.ChatMessage{Role: llm.RoleSystem, Content: preamble})
	transcript = append(transcript, replayHistory(req.History)...)
	transcript = append(transcript, llm.ChatMessage{Role: llm.RoleUser, Content: scan.CleanText})

	defs := toolDefinitions(s.registry.Declarations())

	var toolEntries []datatypes.Message
	var toolsUsed []string

	for iteration := 1; iteration <= s.cfg.MaxToolIterations; iteration++ {
		completion, err := s.completeWithRetry(ctx, llm.CompletionRequest{
			Messages: transcript,
			Tools:    defs,
		})
		if err != nil {
			return nil, &UpstreamServiceError{Cause: err}
		}

		if len(completion.ToolCalls) == 0 {
			updated := make([]datatypes.Message, 0, len(req.History)+len(toolEntries)+2)
			updated = append(updated, req.History...)
			updated = append(updated, datatypes.Message{Role: "user", Content: req.Message})
			updated = append(updated, toolEntries...)
			updated = append(updated, datatypes.Message{Role: "assistant", Content: completion.Content})
			return &datatypes.ChatResponse{
				Reply:          completion.Content,
				UpdatedHistory: updated,
				InputFlagged:   scan.Flagged,
				ToolsUsed:      toolsUsed,
			}, nil
		}

		transcript = append(transcript, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			result, err := s.registry.Invoke(ctx, tools.InvocationRequest{
				CallID:    call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
			if err != nil {
				return nil, &ToolInvocationError{Tool: call.Name, Cause: err}
			}
			observability.RecordToolInvocation(call.Name, result.IsError)
			toolsUsed = append(toolsUsed, call.Name)

			transcript = append(transcript, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    result.Content,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
			toolEntries = append(toolEntries, datatypes.Message{Role: "tool", Content: result.Content})
		}
	}

	return nil, &ToolLoopExceededError{Iterations: s.cfg.MaxToolIterations}
}

// validateRequest maps validation failures onto *ValidationError.
func validateRequest(req *datatypes.ChatRequest) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	var tooLarge *datatypes.HistoryTooLargeError
	if errors.As(err, &tooLarge) {
		return &ValidationError{Field: "history", Reason: tooLarge.Error()}
	}
	var entryErr *datatypes.HistoryEntryError
	if errors.As(err, &entryErr) {
		return &ValidationError{Field: "history", Reason: entryErr.Error()}
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &ValidationError{
			Field:  strings.ToLower(first.Field()),
			Reason: fmt.Sprintf("failed the %q constraint", first.Tag()),
		}
	}
	return &ValidationError{Reason: err.Error()}
}

// completeWithRetry calls the completion backend with the same bounded
// backoff the blob store uses. Only transient failures consume the retry
// budget; permanent ones (auth, malformed request) fail on the first
// attempt.
func (s *ChatService) completeWithRetry(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.RetryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.cfg.RetryPolicy.BackoffFor(attempt)
			slog.Warn("Retrying completion call",
				"attempt", attempt,
				"max_attempts", s.cfg.RetryPolicy.MaxAttempts,
				"delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		completion, err := s.client.Complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if !retryableCompletion(err) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// retryableCompletion classifies a completion failure as retry-safe.
//
// API errors retry only on rate limiting and server-side failures; a 401
// or a malformed request will not get better on a second attempt. Errors
// without an HTTP status fall back to the network-level classification
// the blob store uses.
func retryableCompletion(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return storage.IsTransient(err)
}

// replayHistory converts client-held history into model messages.
//
// The backend rejects tool-role messages that do not follow a matching
// assistant tool call, so replayed tool results travel as system context
// instead.
func replayHistory(history []datatypes.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "tool":
			out = append(out, llm.ChatMessage{
				Role:    llm.RoleSystem,
				Content: "Result from an earlier tool call:\n" + msg.Content,
			})
		default:
			out = append(out, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	return out
}

// toolDefinitions converts registry declarations to the wire shape.
func toolDefinitions(decls []tools.Declaration) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(decls))
	for _, decl := range decls {
		defs = append(defs, llm.ToolDefinition{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters:  decl.ParameterSchema,
		})
	}
	return defs
}

// buildPreamble assembles the system message from live factory state.
//
// # Description
//
// The preamble names the factory, its machines and shifts, the date range
// the production snapshot covers, and a digest of open investigations and
// due follow-ups. A missing snapshot degrades the preamble rather than
// failing the turn; a store that stays unreachable after retries fails
// the turn with *storage.UnavailableError.
func (s *ChatService) buildPreamble(ctx context.Context) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the operations assistant for %s.\n\n", s.cfg.FactoryName)

	b.WriteString("Machines:\n")
	for _, m := range factorydata.Machines {
		fmt.Fprintf(&b, "  - %s (%s)\n", m.Name, m.Type)
	}
	b.WriteString("Shifts:\n")
	for _, sh := range factorydata.Shifts {
		fmt.Fprintf(&b, "  - %s: %02d:00 to %02d:00\n", sh.Name, sh.StartHour, sh.EndHour)
	}

	start, end, err := s.loader.DateRange(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(&b, "\nProduction data is available from %s to %s.\n", start, end)
		b.WriteString("Use the provided tools to answer questions about OEE, scrap, quality, and downtime. Always give dates in YYYY-MM-DD format when calling tools.\n")
	case errors.Is(err, factorydata.ErrNoSnapshot):
		slog.Warn("No production snapshot available, continuing with a degraded preamble")
		b.WriteString("\nNo production data has been loaded yet. KPI tools will report missing data; say so plainly instead of guessing numbers.\n")
	default:
		return "", err
	}

	summary, err := s.memory.ShiftSummary(ctx)
	if err != nil {
		return "", err
	}
	if len(summary.ActiveInvestigations) > 0 {
		b.WriteString("\nActive investigations:\n")
		for _, inv := range summary.ActiveInvestigations {
			fmt.Fprintf(&b, "  - [%s] %s (%s)\n", inv.ID, inv.Title, inv.Status)
		}
	}
	if len(summary.PendingFollowups) > 0 {
		b.WriteString("\nFollow-ups due:\n")
		for _, action := range summary.PendingFollowups {
			fmt.Fprintf(&b, "  - [%s] %s (since %s)\n", action.ID, action.Description, action.FollowUpDate)
		}
	}

	b.WriteString("\nRecord new investigations and user actions with the memory tools so the next shift can pick them up.")
	return b.String(), nil
}
