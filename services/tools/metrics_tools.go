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
	"fmt"

	"github.com/AleutianAI/AleutianFactory/services/metrics"
)

// dateRangeArgs is the shared argument shape of the KPI tools.
type dateRangeArgs struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	MachineName string `json:"machine_name"`
	Severity    string `json:"severity"`
}

const dateRangeProperties = `
    "start_date": {
      "type": "string",
      "description": "Start date in YYYY-MM-DD format"
    },
    "end_date": {
      "type": "string",
      "description": "End date in YYYY-MM-DD format"
    },
    "machine_name": {
      "type": "string",
      "description": "Optional machine filter, e.g. CNC-001. Omit to aggregate all machines."
    }`

// toJSON renders a tool result payload for the model.
func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode the tool result: %w", err)
	}
	return string(data), nil
}

// RegisterMetricsTools binds the four KPI tools to a metrics engine.
//
// # Description
//
// Expected query conditions (no data in range, malformed dates) surface as
// contained error results so the model can correct its call. Only storage
// exhaustion escapes as a Go error.
func RegisterMetricsTools(registry *Registry, engine *metrics.Engine) error {
	specs := []struct {
		decl    Declaration
		handler Handler
	}{
		{
			decl: Declaration{
				Name:        ToolCalculateOEE,
				Description: "Calculate Overall Equipment Effectiveness (OEE) for a date range, optionally filtered to one machine. Returns availability, performance, quality, and the combined OEE.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {` + dateRangeProperties + `
  },
  "required": ["start_date", "end_date"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args dateRangeArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				result, err := engine.CalculateOEE(ctx, args.StartDate, args.EndDate, args.MachineName)
				if err != nil {
					return "", err
				}
				return toJSON(result)
			},
		},
		{
			decl: Declaration{
				Name:        ToolGetScrapMetrics,
				Description: "Get scrap production totals, scrap rate, and a per-machine breakdown for a date range.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {` + dateRangeProperties + `
  },
  "required": ["start_date", "end_date"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args dateRangeArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				result, err := engine.ScrapMetrics(ctx, args.StartDate, args.EndDate, args.MachineName)
				if err != nil {
					return "", err
				}
				return toJSON(result)
			},
		},
		{
			decl: Declaration{
				Name:        ToolGetQualityIssues,
				Description: "List quality issues for a date range, optionally filtered by severity (low, medium, high) and machine. Includes material lot and supplier traceability where recorded.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {` + dateRangeProperties + `,
    "severity": {
      "type": "string",
      "enum": ["low", "medium", "high"],
      "description": "Optional severity filter"
    }
  },
  "required": ["start_date", "end_date"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args dateRangeArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				result, err := engine.QualityIssues(ctx, args.StartDate, args.EndDate, args.Severity, args.MachineName)
				if err != nil {
					return "", err
				}
				return toJSON(result)
			},
		},
		{
			decl: Declaration{
				Name:        ToolGetDowntimeAnalysis,
				Description: "Analyze machine downtime for a date range: total hours, a breakdown by reason, and individual events longer than two hours.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {` + dateRangeProperties + `
  },
  "required": ["start_date", "end_date"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args dateRangeArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				result, err := engine.DowntimeAnalysis(ctx, args.StartDate, args.EndDate, args.MachineName)
				if err != nil {
					return "", err
				}
				return toJSON(result)
			},
		},
	}

	for _, spec := range specs {
		if err := registry.Register(spec.decl, spec.handler); err != nil {
			return err
		}
	}
	return nil
}
