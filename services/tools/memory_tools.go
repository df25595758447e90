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

	"github.com/AleutianAI/AleutianFactory/services/memory"
)

// RegisterMemoryTools binds the investigation and action tools to the
// memory service.
func RegisterMemoryTools(registry *Registry, svc *memory.Service) error {
	specs := []struct {
		decl    Declaration
		handler Handler
	}{
		{
			decl: Declaration{
				Name:        ToolSaveInvestigation,
				Description: "Open a new investigation into a factory issue so it can be tracked across conversations. Use when the user starts looking into a problem.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "description": "Short title for the investigation"
    },
    "initial_observation": {
      "type": "string",
      "description": "What was observed that prompted the investigation"
    },
    "machine_id": {
      "type": "string",
      "description": "Optional machine involved, e.g. CNC-001"
    },
    "supplier_id": {
      "type": "string",
      "description": "Optional supplier involved"
    }
  },
  "required": ["title", "initial_observation"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					Title              string `json:"title"`
					InitialObservation string `json:"initial_observation"`
					MachineID          string `json:"machine_id"`
					SupplierID         string `json:"supplier_id"`
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				inv, err := svc.SaveInvestigation(ctx, args.Title, args.InitialObservation, args.MachineID, args.SupplierID)
				if err != nil {
					return "", err
				}
				return toJSON(inv)
			},
		},
		{
			decl: Declaration{
				Name:        ToolLogAction,
				Description: "Record an action the user took (maintenance, parameter change, supplier change) together with baseline metrics and an optional follow-up date for checking its impact.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "description": {
      "type": "string",
      "description": "What was done"
    },
    "action_type": {
      "type": "string",
      "description": "Category, e.g. maintenance, parameter_change, supplier_change"
    },
    "expected_impact": {
      "type": "string",
      "description": "What the action is expected to improve"
    },
    "machine_id": {
      "type": "string",
      "description": "Optional machine the action applies to"
    },
    "baseline_metrics": {
      "type": "object",
      "description": "Current metric values to compare against later",
      "additionalProperties": {"type": "number"}
    },
    "follow_up_date": {
      "type": "string",
      "description": "Date to check the impact, YYYY-MM-DD"
    }
  },
  "required": ["description", "action_type"],
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					Description     string             `json:"description"`
					ActionType      string             `json:"action_type"`
					ExpectedImpact  string             `json:"expected_impact"`
					MachineID       string             `json:"machine_id"`
					BaselineMetrics map[string]float64 `json:"baseline_metrics"`
					FollowUpDate    string             `json:"follow_up_date"`
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				action, err := svc.LogAction(ctx, memory.Action{
					Description:     args.Description,
					ActionType:      args.ActionType,
					ExpectedImpact:  args.ExpectedImpact,
					MachineID:       args.MachineID,
					BaselineMetrics: args.BaselineMetrics,
					FollowUpDate:    args.FollowUpDate,
				})
				if err != nil {
					return "", err
				}
				return toJSON(action)
			},
		},
		{
			decl: Declaration{
				Name:        ToolGetPendingFollowups,
				Description: "List logged actions whose follow-up date has arrived without a recorded outcome. Use at the start of a shift to surface what needs checking.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {},
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				pending, err := svc.PendingFollowups(ctx)
				if err != nil {
					return "", err
				}
				if pending == nil {
					pending = []memory.Action{}
				}
				return toJSON(pending)
			},
		},
		{
			decl: Declaration{
				Name:        ToolGetMemoryContext,
				Description: "Retrieve past investigations and actions relevant to a machine, supplier, or investigation status. Use to recall prior work on a recurring issue.",
				ParameterSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "machine_id": {
      "type": "string",
      "description": "Optional machine filter"
    },
    "supplier_id": {
      "type": "string",
      "description": "Optional supplier filter"
    },
    "status": {
      "type": "string",
      "enum": ["open", "in_progress", "resolved", "closed"],
      "description": "Optional investigation status filter"
    }
  },
  "additionalProperties": false
}`),
			},
			handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					MachineID  string `json:"machine_id"`
					SupplierID string `json:"supplier_id"`
					Status     string `json:"status"`
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				doc, err := svc.RelevantMemories(ctx, args.MachineID, args.SupplierID, args.Status)
				if err != nil {
					return "", err
				}
				return toJSON(doc)
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
