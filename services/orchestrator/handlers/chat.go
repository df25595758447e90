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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianFactory/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
	"github.com/AleutianAI/AleutianFactory/services/storage"
)

var chatTracer = otel.Tracer("factory.orchestrator.handlers")

// HandleChat serves POST /api/v1/chat.
//
// # Description
//
// Binds and validates the request, runs one conversational turn, and maps
// the turn's typed errors onto HTTP statuses. When debugErrors is false
// the response body carries only the stable error code and a generic
// message; the full error stays in the server log.
//
// # Error Mapping
//
//   - VALIDATION_ERROR:        400
//   - UPSTREAM_SERVICE_ERROR:  502
//   - TOOL_LOOP_EXCEEDED:      500
//   - STORAGE_UNAVAILABLE:     503
func HandleChat(chat *services.ChatService, debugErrors bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()
		started := time.Now()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			observability.RecordTurn("validation_error", time.Since(started))
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Code:    services.CodeValidationError,
				Message: "invalid request body",
			})
			return
		}

		resp, err := chat.RunTurn(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, body, metricLabel := mapTurnError(err, debugErrors)
			slog.Error("Chat turn failed", "code", body.Code, "error", err)
			observability.RecordTurn(metricLabel, time.Since(started))
			c.JSON(status, body)
			return
		}

		observability.RecordTurn("ok", time.Since(started))
		c.JSON(http.StatusOK, resp)
	}
}

// mapTurnError converts a turn error into a status, body, and metric label.
func mapTurnError(err error, debugErrors bool) (int, datatypes.ErrorResponse, string) {
	message := func(generic string) string {
		if debugErrors {
			return err.Error()
		}
		return generic
	}

	// Validation messages name the offending field and constraint and
	// are safe to return regardless of the debug flag.
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, datatypes.ErrorResponse{
			Code:    validation.Code(),
			Message: validation.Error(),
		}, "validation_error"
	}

	var upstream *services.UpstreamServiceError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, datatypes.ErrorResponse{
			Code:    upstream.Code(),
			Message: message("the language model service is unavailable"),
		}, "upstream_error"
	}

	var loop *services.ToolLoopExceededError
	if errors.As(err, &loop) {
		return http.StatusInternalServerError, datatypes.ErrorResponse{
			Code:    loop.Code(),
			Message: message("the assistant could not complete the request"),
		}, "tool_loop_exceeded"
	}

	var unavailable *storage.UnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusServiceUnavailable, datatypes.ErrorResponse{
			Code:    unavailable.Code(),
			Message: message("factory data storage is unavailable"),
		}, "storage_unavailable"
	}

	return http.StatusInternalServerError, datatypes.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: message("internal error"),
	}, "internal_error"
}
