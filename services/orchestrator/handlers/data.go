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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
)

// HandleDataStatus serves GET /api/v1/data/status.
//
// Reports whether a production snapshot exists and, if so, its date range
// and day count.
func HandleDataStatus(loader *factorydata.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleDataStatus")
		defer span.End()

		snap, err := loader.Load(ctx)
		if err != nil {
			if errors.Is(err, factorydata.ErrNoSnapshot) {
				c.JSON(http.StatusOK, gin.H{"loaded": false})
				return
			}
			status, body := mapKPIError(err)
			slog.Error("Failed to load the production snapshot", "error", err)
			c.JSON(status, body)
			return
		}

		start, end := snap.DateRangeISO()
		c.JSON(http.StatusOK, gin.H{
			"loaded":     true,
			"start_date": start,
			"end_date":   end,
			"days":       len(snap.Production),
		})
	}
}

// HandleDataUpload serves PUT /api/v1/data/snapshot.
//
// Replaces the production snapshot with the request body. The body must
// decode as a full snapshot document.
func HandleDataUpload(loader *factorydata.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleDataUpload")
		defer span.End()

		var snap factorydata.Snapshot
		if err := c.BindJSON(&snap); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Code:    services.CodeValidationError,
				Message: "the body is not a valid production snapshot",
			})
			return
		}

		if err := loader.Save(ctx, &snap); err != nil {
			status, body := mapKPIError(err)
			slog.Error("Failed to save the production snapshot", "error", err)
			c.JSON(status, body)
			return
		}

		start, end := snap.DateRangeISO()
		slog.Info("Replaced the production snapshot", "start", start, "end", end)
		c.JSON(http.StatusOK, gin.H{"loaded": true, "start_date": start, "end_date": end})
	}
}

// HandleDataDownload serves GET /api/v1/data/snapshot.
func HandleDataDownload(loader *factorydata.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleDataDownload")
		defer span.End()

		snap, err := loader.Load(ctx)
		if err != nil {
			if errors.Is(err, factorydata.ErrNoSnapshot) {
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
					Code:    "NO_DATA",
					Message: "no production snapshot has been uploaded",
				})
				return
			}
			status, body := mapKPIError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}
