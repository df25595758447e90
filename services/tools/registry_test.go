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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/memory"
	"github.com/AleutianAI/AleutianFactory/services/metrics"
	"github.com/AleutianAI/AleutianFactory/services/storage"
)

var echoSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string"}
  },
  "required": ["text"],
  "additionalProperties": false
}`)

func echoTool(t *testing.T, registry *Registry) {
	t.Helper()
	err := registry.Register(Declaration{
		Name:            "echo",
		Description:     "Echo the text back",
		ParameterSchema: echoSchema,
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", err
		}
		return in.Text, nil
	})
	require.NoError(t, err)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	registry := NewRegistry()
	echoTool(t, registry)

	result, err := registry.Invoke(context.Background(), InvocationRequest{
		CallID:    "call-1",
		Name:      "echo",
		Arguments: json.RawMessage(`{"text":"hello"}`),
	})

	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, "call-1", result.CallID)
	assert.Equal(t, "echo", result.Name)
}

func TestRegistry_UnknownToolIsContained(t *testing.T) {
	registry := NewRegistry()
	echoTool(t, registry)

	result, err := registry.Invoke(context.Background(), InvocationRequest{
		CallID: "call-2",
		Name:   "drop_tables",
	})

	require.NoError(t, err, "an unknown tool never fails the turn")
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "unknown tool: drop_tables")
}

func TestRegistry_SchemaViolationIsContained(t *testing.T) {
	registry := NewRegistry()
	echoTool(t, registry)

	cases := []struct {
		name string
		args string
	}{
		{"missing required", `{}`},
		{"wrong type", `{"text": 42}`},
		{"extra property", `{"text":"x","bonus":true}`},
		{"not json", `{"text":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := registry.Invoke(context.Background(), InvocationRequest{
				Name:      "echo",
				Arguments: json.RawMessage(tc.args),
			})
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, result.Content, "invalid arguments")
		})
	}
}

func TestRegistry_HandlerErrorIsContained(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Declaration{
		Name:            "failing",
		Description:     "always fails",
		ParameterSchema: json.RawMessage(`{"type":"object"}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "", errors.New("no data for specified date range")
	})
	require.NoError(t, err)

	result, err := registry.Invoke(context.Background(), InvocationRequest{Name: "failing"})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "no data for specified date range", result.Content)
}

func TestRegistry_PanicIsContained(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Declaration{
		Name:            "panicky",
		Description:     "always panics",
		ParameterSchema: json.RawMessage(`{"type":"object"}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		panic("index out of range")
	})
	require.NoError(t, err)

	result, err := registry.Invoke(context.Background(), InvocationRequest{Name: "panicky"})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "internal error")
}

func TestRegistry_StorageUnavailableEscapes(t *testing.T) {
	registry := NewRegistry()
	cause := &storage.UnavailableError{Op: "download", Key: "production-data", Attempts: 3}
	err := registry.Register(Declaration{
		Name:            "needs_storage",
		Description:     "reads the snapshot",
		ParameterSchema: json.RawMessage(`{"type":"object"}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "", cause
	})
	require.NoError(t, err)

	_, err = registry.Invoke(context.Background(), InvocationRequest{Name: "needs_storage"})

	var unavailable *storage.UnavailableError
	require.ErrorAs(t, err, &unavailable, "storage exhaustion fails the turn")
	assert.Equal(t, 3, unavailable.Attempts)
}

func TestRegistry_DeclarationsPreserveOrder(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		err := registry.Register(Declaration{
			Name:            name,
			Description:     name,
			ParameterSchema: json.RawMessage(`{"type":"object"}`),
		}, func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", nil
		})
		require.NoError(t, err)
	}

	var names []string
	for _, decl := range registry.Declarations() {
		names = append(names, decl.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
	assert.Equal(t, 3, registry.Count())
}

func TestRegistry_RejectsDuplicatesAndBadSchemas(t *testing.T) {
	registry := NewRegistry()
	echoTool(t, registry)

	err := registry.Register(Declaration{
		Name:            "echo",
		Description:     "duplicate",
		ParameterSchema: json.RawMessage(`{"type":"object"}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) { return "", nil })
	assert.Error(t, err)

	err = registry.Register(Declaration{
		Name:            "broken",
		Description:     "bad schema",
		ParameterSchema: json.RawMessage(`{"type":`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) { return "", nil })
	assert.Error(t, err)

	err = registry.Register(Declaration{
		Name:            "nohandler",
		Description:     "nil handler",
		ParameterSchema: json.RawMessage(`{"type":"object"}`),
	}, nil)
	assert.Error(t, err)
}

type memStore struct {
	blobs map[string][]byte
}

func (m *memStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Upload(ctx context.Context, key string, data []byte) error {
	m.blobs[key] = data
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

func TestRegisterAllFactoryTools(t *testing.T) {
	store := &memStore{blobs: map[string][]byte{}}
	registry := NewRegistry()

	engine := metrics.NewEngine(factorydata.NewLoader(store, "production-data"))
	require.NoError(t, RegisterMetricsTools(registry, engine))
	require.NoError(t, RegisterMemoryTools(registry, memory.NewService(store, "factory-memory")))

	var names []string
	for _, decl := range registry.Declarations() {
		names = append(names, decl.Name)
	}
	assert.Equal(t, []string{
		ToolCalculateOEE,
		ToolGetScrapMetrics,
		ToolGetQualityIssues,
		ToolGetDowntimeAnalysis,
		ToolSaveInvestigation,
		ToolLogAction,
		ToolGetPendingFollowups,
		ToolGetMemoryContext,
	}, names)
}

func TestMetricsTool_NoSnapshotIsContained(t *testing.T) {
	store := &memStore{blobs: map[string][]byte{}}
	registry := NewRegistry()
	engine := metrics.NewEngine(factorydata.NewLoader(store, "production-data"))
	require.NoError(t, RegisterMetricsTools(registry, engine))

	result, err := registry.Invoke(context.Background(), InvocationRequest{
		Name:      ToolCalculateOEE,
		Arguments: json.RawMessage(`{"start_date":"2025-01-01","end_date":"2025-01-02"}`),
	})

	require.NoError(t, err, "a missing snapshot is an expected condition")
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "no production snapshot")
}

func TestMemoryTool_SaveInvestigationRoundTrip(t *testing.T) {
	store := &memStore{blobs: map[string][]byte{}}
	registry := NewRegistry()
	require.NoError(t, RegisterMemoryTools(registry, memory.NewService(store, "factory-memory")))

	result, err := registry.Invoke(context.Background(), InvocationRequest{
		Name: ToolSaveInvestigation,
		Arguments: json.RawMessage(`{
			"title": "CNC-001 scrap spike",
			"initial_observation": "scrap doubled overnight",
			"machine_id": "CNC-001"
		}`),
	})
	require.NoError(t, err)
	require.False(t, result.IsError, result.Content)

	var inv memory.Investigation
	require.NoError(t, json.Unmarshal([]byte(result.Content), &inv))
	assert.Equal(t, memory.StatusOpen, inv.Status)
	assert.Equal(t, "CNC-001", inv.MachineID)

	ctxResult, err := registry.Invoke(context.Background(), InvocationRequest{
		Name:      ToolGetMemoryContext,
		Arguments: json.RawMessage(`{"machine_id":"CNC-001"}`),
	})
	require.NoError(t, err)
	require.False(t, ctxResult.IsError, ctxResult.Content)
	assert.Contains(t, ctxResult.Content, "CNC-001 scrap spike")
}
