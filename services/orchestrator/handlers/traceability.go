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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/traceability"
)

// traceDateRange is the optional date window shared by the supplier
// analysis endpoints.
type traceDateRange struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// HandleSuppliers serves GET /api/v1/suppliers.
func HandleSuppliers(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleSuppliers", func(c *gin.Context) (any, error) {
		return engine.Suppliers(c.Request.Context(), c.Query("status"))
	})
}

// HandleSupplier serves GET /api/v1/suppliers/:supplier_id.
func HandleSupplier(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleSupplier", func(c *gin.Context) (any, error) {
		return engine.Supplier(c.Request.Context(), c.Param("supplier_id"))
	})
}

// HandleSupplierImpact serves GET /api/v1/suppliers/:supplier_id/impact.
func HandleSupplierImpact(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleSupplierImpact", func(c *gin.Context) (any, error) {
		var window traceDateRange
		if err := c.BindQuery(&window); err != nil {
			return nil, err
		}
		return engine.SupplierImpact(c.Request.Context(),
			c.Param("supplier_id"), window.StartDate, window.EndDate)
	})
}

// HandleBatches serves GET /api/v1/batches.
func HandleBatches(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleBatches", func(c *gin.Context) (any, error) {
		machineID, _ := strconv.Atoi(c.Query("machine_id"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		return engine.Batches(c.Request.Context(), traceability.BatchFilter{
			MachineID: machineID,
			StartDate: c.Query("start_date"),
			EndDate:   c.Query("end_date"),
			OrderID:   c.Query("order_id"),
			Limit:     limit,
		})
	})
}

// HandleBatch serves GET /api/v1/batches/:batch_id.
func HandleBatch(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleBatch", func(c *gin.Context) (any, error) {
		return engine.Batch(c.Request.Context(), c.Param("batch_id"))
	})
}

// HandleBackwardTrace serves GET /api/v1/traceability/backward/:batch_id.
func HandleBackwardTrace(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleBackwardTrace", func(c *gin.Context) (any, error) {
		return engine.BackwardTrace(c.Request.Context(), c.Param("batch_id"))
	})
}

// HandleForwardTrace serves GET /api/v1/traceability/forward/:supplier_id.
func HandleForwardTrace(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleForwardTrace", func(c *gin.Context) (any, error) {
		var window traceDateRange
		if err := c.BindQuery(&window); err != nil {
			return nil, err
		}
		return engine.ForwardTrace(c.Request.Context(),
			c.Param("supplier_id"), window.StartDate, window.EndDate)
	})
}

// HandleOrders serves GET /api/v1/orders.
func HandleOrders(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleOrders", func(c *gin.Context) (any, error) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		return engine.Orders(c.Request.Context(), c.Query("status"), limit)
	})
}

// HandleOrder serves GET /api/v1/orders/:order_id.
func HandleOrder(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleOrder", func(c *gin.Context) (any, error) {
		return engine.Order(c.Request.Context(), c.Param("order_id"))
	})
}

// HandleOrderBatches serves GET /api/v1/orders/:order_id/batches.
func HandleOrderBatches(engine *traceability.Engine) gin.HandlerFunc {
	return traceHandler("HandleOrderBatches", func(c *gin.Context) (any, error) {
		return engine.OrderBatches(c.Request.Context(), c.Param("order_id"))
	})
}

// traceHandler wraps the error mapping shared by the traceability
// endpoints.
func traceHandler(span string, query func(*gin.Context) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, sp := chatTracer.Start(c.Request.Context(), span)
		defer sp.End()

		result, err := query(c)
		if err != nil {
			status, body := mapTraceError(err)
			slog.Warn("Traceability query failed", "endpoint", span, "code", body.Code, "error", err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// mapTraceError converts engine errors into statuses and stable codes.
// Unknown referents get their own 404 code so clients can tell a missing
// supplier apart from a missing snapshot.
func mapTraceError(err error) (int, datatypes.ErrorResponse) {
	switch {
	case errors.Is(err, traceability.ErrSupplierNotFound),
		errors.Is(err, traceability.ErrBatchNotFound),
		errors.Is(err, traceability.ErrOrderNotFound):
		return http.StatusNotFound, datatypes.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		}
	}
	return mapKPIError(err)
}
