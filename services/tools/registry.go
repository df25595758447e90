// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/AleutianAI/AleutianFactory/services/storage"
)

// entry pairs a declaration with its compiled schema and handler.
type entry struct {
	decl    Declaration
	schema  *gojsonschema.Schema
	handler Handler
}

// Registry is the closed tool set offered to the model.
//
// Thread Safety: Registry is immutable once Register calls finish during
// startup. Invoke and Declarations are safe for concurrent use afterward.
type Registry struct {
	order   []string
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds one tool. Registration order is preserved in Declarations.
//
// # Outputs
//
//   - error: Non-nil for a duplicate name, a nil handler, or a parameter
//     schema that does not compile. All three are startup defects.
func (r *Registry) Register(decl Declaration, handler Handler) error {
	if decl.Name == "" {
		return errors.New("tool declaration requires a name")
	}
	if handler == nil {
		return fmt.Errorf("tool %q requires a handler", decl.Name)
	}
	if _, exists := r.entries[decl.Name]; exists {
		return fmt.Errorf("tool %q is already registered", decl.Name)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(decl.ParameterSchema))
	if err != nil {
		return fmt.Errorf("failed to compile the schema for tool %q: %w", decl.Name, err)
	}

	r.entries[decl.Name] = &entry{decl: decl, schema: schema, handler: handler}
	r.order = append(r.order, decl.Name)
	return nil
}

// Declarations returns every tool declaration in registration order.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.entries[name].decl)
	}
	return decls
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.entries)
}

// Invoke runs one tool call requested by the model.
//
// # Description
//
// Unknown tools, schema violations, handler errors, and handler panics are
// all contained: they come back as a Result with IsError set and a nil Go
// error, so the model can read the failure and recover within the same
// turn. The single exception is storage exhaustion, which is an
// infrastructure failure of the turn itself and is returned as a Go error.
//
// # Inputs
//
//   - ctx: Context for the handler.
//   - req: The model's call, including its raw JSON arguments.
//
// # Outputs
//
//   - Result: The outcome, always carrying the request's CallID and Name.
//   - error: Non-nil only when the blob store stayed unreachable after
//     retries.
func (r *Registry) Invoke(ctx context.Context, req InvocationRequest) (Result, error) {
	result := Result{CallID: req.CallID, Name: req.Name}

	e, ok := r.entries[req.Name]
	if !ok {
		result.IsError = true
		result.Content = fmt.Sprintf("unknown tool: %s", req.Name)
		slog.Warn("Model requested an unregistered tool", "tool", req.Name)
		return result, nil
	}

	args := req.Arguments
	if len(args) == 0 {
		args = []byte("{}")
	}
	validation, err := e.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		result.IsError = true
		result.Content = fmt.Sprintf("invalid arguments: %v", err)
		return result, nil
	}
	if !validation.Valid() {
		var reasons []string
		for _, desc := range validation.Errors() {
			reasons = append(reasons, desc.String())
		}
		result.IsError = true
		result.Content = fmt.Sprintf("invalid arguments: %s", strings.Join(reasons, "; "))
		return result, nil
	}

	content, err := r.run(ctx, e, args)
	if err != nil {
		var unavailable *storage.UnavailableError
		if errors.As(err, &unavailable) {
			return result, err
		}
		result.IsError = true
		result.Content = err.Error()
		slog.Warn("Tool invocation failed", "tool", req.Name, "error", err)
		return result, nil
	}

	result.Content = content
	return result, nil
}

// run executes the handler with panic containment.
func (r *Registry) run(ctx context.Context, e *entry, args []byte) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool handler panicked", "tool", e.decl.Name, "panic", rec)
			err = fmt.Errorf("tool %s failed: internal error", e.decl.Name)
		}
	}()
	return e.handler(ctx, args)
}
