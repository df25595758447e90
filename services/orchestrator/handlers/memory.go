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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFactory/services/memory"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
)

// validInvestigationStatuses are the status values the investigations
// filter accepts.
var validInvestigationStatuses = map[string]bool{
	memory.StatusOpen:       true,
	memory.StatusInProgress: true,
	memory.StatusResolved:   true,
	memory.StatusClosed:     true,
}

// HandleMemorySummary serves GET /api/v1/memory/summary.
func HandleMemorySummary(mem *memory.Service) gin.HandlerFunc {
	return memoryHandler("HandleMemorySummary", func(c *gin.Context) (any, error) {
		return mem.Stats(c.Request.Context())
	})
}

// HandleInvestigations serves GET /api/v1/memory/investigations.
//
// Filters by machine_id, supplier_id, and status. An unknown status is a
// validation error rather than an empty result.
func HandleInvestigations(mem *memory.Service) gin.HandlerFunc {
	return memoryHandler("HandleInvestigations", func(c *gin.Context) (any, error) {
		status := c.Query("status")
		if status != "" && !validInvestigationStatuses[status] {
			return nil, &services.ValidationError{
				Field:  "status",
				Reason: "must be one of open, in_progress, resolved, closed",
			}
		}
		doc, err := mem.RelevantMemories(c.Request.Context(),
			c.Query("machine_id"), c.Query("supplier_id"), status)
		if err != nil {
			return nil, err
		}
		return gin.H{
			"investigations": doc.Investigations,
			"total":          len(doc.Investigations),
		}, nil
	})
}

// HandleActions serves GET /api/v1/memory/actions.
func HandleActions(mem *memory.Service) gin.HandlerFunc {
	return memoryHandler("HandleActions", func(c *gin.Context) (any, error) {
		doc, err := mem.RelevantMemories(c.Request.Context(), c.Query("machine_id"), "", "")
		if err != nil {
			return nil, err
		}
		return gin.H{
			"actions": doc.Actions,
			"total":   len(doc.Actions),
		}, nil
	})
}

// HandleShiftSummary serves GET /api/v1/memory/shift-summary.
func HandleShiftSummary(mem *memory.Service) gin.HandlerFunc {
	return memoryHandler("HandleShiftSummary", func(c *gin.Context) (any, error) {
		summary, err := mem.ShiftSummary(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return gin.H{
			"date":                  time.Now().UTC().Format("2006-01-02"),
			"active_investigations": summary.ActiveInvestigations,
			"pending_followups":     summary.PendingFollowups,
			"counts": gin.H{
				"active_investigations": len(summary.ActiveInvestigations),
				"pending_followups":     len(summary.PendingFollowups),
				"todays_actions":        summary.TodaysActions,
			},
		}, nil
	})
}

// memoryHandler wraps the error mapping shared by the memory endpoints.
func memoryHandler(span string, query func(*gin.Context) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sp := chatTracer.Start(c.Request.Context(), span)
		defer sp.End()

		result, err := query(c)
		if err != nil {
			status, body := mapMemoryError(err)
			slog.Warn("Memory query failed", "endpoint", span, "code", body.Code, "error", err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// mapMemoryError converts memory errors into statuses and stable codes.
func mapMemoryError(err error) (int, datatypes.ErrorResponse) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, datatypes.ErrorResponse{
			Code:    services.CodeValidationError,
			Message: validation.Error(),
		}
	}
	return mapKPIError(err)
}
