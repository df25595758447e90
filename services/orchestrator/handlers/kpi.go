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
	"github.com/AleutianAI/AleutianFactory/services/metrics"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
	"github.com/AleutianAI/AleutianFactory/services/storage"
)

// kpiQuery is the shared query-string shape of the KPI endpoints.
type kpiQuery struct {
	StartDate   string `form:"start_date" binding:"required"`
	EndDate     string `form:"end_date" binding:"required"`
	MachineName string `form:"machine_name"`
	Severity    string `form:"severity"`
}

// HandleOEE serves GET /api/v1/kpi/oee.
func HandleOEE(engine *metrics.Engine) gin.HandlerFunc {
	return kpiHandler("HandleOEE", func(c *gin.Context, q kpiQuery) (any, error) {
		return engine.CalculateOEE(c.Request.Context(), q.StartDate, q.EndDate, q.MachineName)
	})
}

// HandleScrap serves GET /api/v1/kpi/scrap.
func HandleScrap(engine *metrics.Engine) gin.HandlerFunc {
	return kpiHandler("HandleScrap", func(c *gin.Context, q kpiQuery) (any, error) {
		return engine.ScrapMetrics(c.Request.Context(), q.StartDate, q.EndDate, q.MachineName)
	})
}

// HandleQuality serves GET /api/v1/kpi/quality.
func HandleQuality(engine *metrics.Engine) gin.HandlerFunc {
	return kpiHandler("HandleQuality", func(c *gin.Context, q kpiQuery) (any, error) {
		return engine.QualityIssues(c.Request.Context(), q.StartDate, q.EndDate, q.Severity, q.MachineName)
	})
}

// HandleDowntime serves GET /api/v1/kpi/downtime.
func HandleDowntime(engine *metrics.Engine) gin.HandlerFunc {
	return kpiHandler("HandleDowntime", func(c *gin.Context, q kpiQuery) (any, error) {
		return engine.DowntimeAnalysis(c.Request.Context(), q.StartDate, q.EndDate, q.MachineName)
	})
}

// kpiHandler wraps the query binding and error mapping shared by the four
// KPI endpoints.
func kpiHandler(span string, query func(*gin.Context, kpiQuery) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sp := chatTracer.Start(c.Request.Context(), span)
		defer sp.End()

		var q kpiQuery
		if err := c.BindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Code:    services.CodeValidationError,
				Message: "start_date and end_date are required, YYYY-MM-DD",
			})
			return
		}

		result, err := query(c, q)
		if err != nil {
			status, body := mapKPIError(err)
			slog.Warn("KPI query failed", "endpoint", span, "code", body.Code, "error", err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// mapKPIError converts engine errors into statuses and stable codes.
func mapKPIError(err error) (int, datatypes.ErrorResponse) {
	switch {
	case errors.Is(err, metrics.ErrBadDateRange):
		return http.StatusBadRequest, datatypes.ErrorResponse{
			Code:    services.CodeValidationError,
			Message: err.Error(),
		}
	case errors.Is(err, metrics.ErrNoData), errors.Is(err, factorydata.ErrNoSnapshot):
		return http.StatusNotFound, datatypes.ErrorResponse{
			Code:    "NO_DATA",
			Message: err.Error(),
		}
	}

	var unavailable *storage.UnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusServiceUnavailable, datatypes.ErrorResponse{
			Code:    unavailable.Code(),
			Message: "factory data storage is unavailable",
		}
	}
	return http.StatusInternalServerError, datatypes.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}
}
