// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory persists investigation and action records across chat
// sessions.
//
// # Description
//
// The whole memory lives in one JSON document behind the same resilient
// blob store as the production snapshot. Writes are read-modify-write on
// the full document; the demo deployment runs a single orchestrator
// instance, so no cross-process merge is attempted.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianFactory/services/storage"
)

// Investigation statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Investigation tracks an ongoing factory issue across conversations.
type Investigation struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	InitialObservation string   `json:"initial_observation"`
	MachineID          string   `json:"machine_id,omitempty"`
	SupplierID         string   `json:"supplier_id,omitempty"`
	Status             string   `json:"status"`
	Findings           []string `json:"findings,omitempty"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

// Action records a change the user made, with baseline metrics so the
// impact can be checked later.
type Action struct {
	ID              string             `json:"id"`
	Description     string             `json:"description"`
	ActionType      string             `json:"action_type"`
	ExpectedImpact  string             `json:"expected_impact"`
	MachineID       string             `json:"machine_id,omitempty"`
	BaselineMetrics map[string]float64 `json:"baseline_metrics,omitempty"`
	FollowUpDate    string             `json:"follow_up_date,omitempty"`
	ActualImpact    string             `json:"actual_impact,omitempty"`
	CreatedAt       string             `json:"created_at"`
}

// Document is the persisted memory layout.
type Document struct {
	Investigations []Investigation `json:"investigations"`
	Actions        []Action        `json:"actions"`
}

// Summary is the digest folded into the chat system preamble and served
// on the shift handoff endpoint.
type Summary struct {
	ActiveInvestigations []Investigation `json:"active_investigations"`
	PendingFollowups     []Action        `json:"pending_followups"`
	TodaysActions        int             `json:"todays_actions"`
}

// Stats counts the memory store's contents by status.
type Stats struct {
	TotalInvestigations      int `json:"total_investigations"`
	TotalActions             int `json:"total_actions"`
	OpenInvestigations       int `json:"open_investigations"`
	InProgressInvestigations int `json:"in_progress_investigations"`
	ResolvedInvestigations   int `json:"resolved_investigations"`
	PendingFollowups         int `json:"pending_followups"`
}

// Service reads and writes the memory document.
//
// Thread Safety: Service serializes nothing itself; callers on the same
// document must not interleave writes. The demo runs turns serially per
// conversation, which satisfies this.
type Service struct {
	store storage.BlobStore
	key   string
	now   func() time.Time
}

// NewService creates a memory service bound to one logical key.
func NewService(store storage.BlobStore, key string) *Service {
	return &Service{store: store, key: key, now: time.Now}
}

// load fetches the document, returning an empty one when none exists yet.
func (s *Service) load(ctx context.Context) (*Document, error) {
	data, err := s.store.Download(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Document{}, nil
		}
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode memory document %q: %w", s.key, err)
	}
	return &doc, nil
}

func (s *Service) save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory document: %w", err)
	}
	if err := s.store.Upload(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to upload memory document %q: %w", s.key, err)
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// SaveInvestigation creates a new open investigation.
func (s *Service) SaveInvestigation(ctx context.Context, title, initialObservation, machineID, supplierID string) (*Investigation, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	inv := Investigation{
		ID:                 "inv-" + uuid.NewString()[:8],
		Title:              title,
		InitialObservation: initialObservation,
		MachineID:          machineID,
		SupplierID:         supplierID,
		Status:             StatusOpen,
		CreatedAt:          s.timestamp(),
		UpdatedAt:          s.timestamp(),
	}
	doc.Investigations = append(doc.Investigations, inv)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	slog.Info("Created investigation", "id", inv.ID, "title", title)
	return &inv, nil
}

// LogAction records a user action with optional baseline metrics.
func (s *Service) LogAction(ctx context.Context, action Action) (*Action, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	action.ID = "act-" + uuid.NewString()[:8]
	action.CreatedAt = s.timestamp()
	doc.Actions = append(doc.Actions, action)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	slog.Info("Logged action", "id", action.ID, "type", action.ActionType)
	return &action, nil
}

// PendingFollowups returns actions whose follow-up date has passed without
// a recorded actual impact.
func (s *Service) PendingFollowups(ctx context.Context) ([]Action, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Format("2006-01-02")
	var pending []Action
	for _, action := range doc.Actions {
		if action.ActualImpact != "" || action.FollowUpDate == "" {
			continue
		}
		if action.FollowUpDate <= today {
			pending = append(pending, action)
		}
	}
	return pending, nil
}

// RelevantMemories filters investigations and actions by machine, supplier,
// and investigation status. Empty filters match everything.
func (s *Service) RelevantMemories(ctx context.Context, machineID, supplierID, status string) (*Document, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	filtered := &Document{}
	for _, inv := range doc.Investigations {
		if machineID != "" && inv.MachineID != machineID {
			continue
		}
		if supplierID != "" && inv.SupplierID != supplierID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		filtered.Investigations = append(filtered.Investigations, inv)
	}
	for _, action := range doc.Actions {
		if machineID != "" && action.MachineID != machineID {
			continue
		}
		filtered.Actions = append(filtered.Actions, action)
	}
	return filtered, nil
}

// Stats counts investigations by status and actions awaiting follow-up.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalInvestigations: len(doc.Investigations),
		TotalActions:        len(doc.Actions),
	}
	for _, inv := range doc.Investigations {
		switch inv.Status {
		case StatusOpen:
			stats.OpenInvestigations++
		case StatusInProgress:
			stats.InProgressInvestigations++
		case StatusResolved:
			stats.ResolvedInvestigations++
		}
	}

	today := s.now().UTC().Format("2006-01-02")
	for _, action := range doc.Actions {
		if action.ActualImpact == "" && action.FollowUpDate != "" && action.FollowUpDate <= today {
			stats.PendingFollowups++
		}
	}
	return stats, nil
}

// ShiftSummary builds the digest used in the system preamble.
func (s *Service) ShiftSummary(ctx context.Context) (*Summary, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, inv := range doc.Investigations {
		if inv.Status == StatusOpen || inv.Status == StatusInProgress {
			summary.ActiveInvestigations = append(summary.ActiveInvestigations, inv)
		}
	}

	today := s.now().UTC().Format("2006-01-02")
	for _, action := range doc.Actions {
		if action.ActualImpact == "" && action.FollowUpDate != "" && action.FollowUpDate <= today {
			summary.PendingFollowups = append(summary.PendingFollowups, action)
		}
		if len(action.CreatedAt) >= 10 && action.CreatedAt[:10] == today {
			summary.TodaysActions++
		}
	}
	return summary, nil
}
