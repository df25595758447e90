// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFactory/services/memory"
)

func memoryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	doc := memory.Document{
		Investigations: []memory.Investigation{
			{ID: "inv-1", Title: "CNC-001 scrap spike", Status: memory.StatusOpen,
				MachineID: "CNC-001", CreatedAt: "2025-01-01T08:00:00Z", UpdatedAt: "2025-01-01T08:00:00Z"},
			{ID: "inv-2", Title: "Supplier lot quarantine", Status: memory.StatusResolved,
				SupplierID: "SUP-001", CreatedAt: "2025-01-02T08:00:00Z", UpdatedAt: "2025-01-03T08:00:00Z"},
		},
		Actions: []memory.Action{
			{ID: "act-1", Description: "Reduced feed rate on CNC-001", ActionType: "parameter_change",
				MachineID: "CNC-001", FollowUpDate: "2020-01-01", CreatedAt: "2025-01-01T09:00:00Z"},
			{ID: "act-2", Description: "Swapped coolant supplier", ActionType: "process_change",
				ActualImpact: "scrap down 2%", CreatedAt: "2025-01-02T09:00:00Z"},
		},
	}
	data, err := json.Marshal(&doc)
	require.NoError(t, err)

	store := &memStore{blobs: map[string][]byte{"factory-memory": data}}
	mem := memory.NewService(store, "factory-memory")

	router := gin.New()
	router.GET("/api/v1/memory/summary", HandleMemorySummary(mem))
	router.GET("/api/v1/memory/investigations", HandleInvestigations(mem))
	router.GET("/api/v1/memory/actions", HandleActions(mem))
	router.GET("/api/v1/memory/shift-summary", HandleShiftSummary(mem))
	return router
}

func TestHandleMemorySummary(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/summary")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got memory.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalInvestigations)
	assert.Equal(t, 2, got.TotalActions)
	assert.Equal(t, 1, got.OpenInvestigations)
	assert.Equal(t, 1, got.ResolvedInvestigations)
	assert.Equal(t, 1, got.PendingFollowups, "only the unanswered follow-up counts")
}

func TestHandleInvestigations_MachineFilter(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/investigations?machine_id=CNC-001")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Investigations []memory.Investigation `json:"investigations"`
		Total          int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Investigations, 1)
	assert.Equal(t, "inv-1", got.Investigations[0].ID)
}

func TestHandleInvestigations_StatusFilter(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/investigations?status=resolved")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Investigations []memory.Investigation `json:"investigations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Investigations, 1)
	assert.Equal(t, "inv-2", got.Investigations[0].ID)
}

func TestHandleInvestigations_UnknownStatusIs400(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/investigations?status=abandoned")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestHandleActions(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/actions?machine_id=CNC-001")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Actions []memory.Action `json:"actions"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "act-1", got.Actions[0].ID)
}

func TestHandleShiftSummary(t *testing.T) {
	rec := get(memoryRouter(t), "/api/v1/memory/shift-summary")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Date                 string                 `json:"date"`
		ActiveInvestigations []memory.Investigation `json:"active_investigations"`
		PendingFollowups     []memory.Action        `json:"pending_followups"`
		Counts               map[string]int         `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Date)
	require.Len(t, got.ActiveInvestigations, 1)
	assert.Equal(t, "inv-1", got.ActiveInvestigations[0].ID)
	require.Len(t, got.PendingFollowups, 1)
	assert.Equal(t, "act-1", got.PendingFollowups[0].ID)
	assert.Equal(t, 1, got.Counts["active_investigations"])
	assert.Equal(t, 1, got.Counts["pending_followups"])
}
