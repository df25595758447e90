// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/memory"
	"github.com/AleutianAI/AleutianFactory/services/metrics"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianFactory/services/orchestrator/services"
	"github.com/AleutianAI/AleutianFactory/services/traceability"
)

// SetupRoutes registers every endpoint on the router.
func SetupRoutes(
	router *gin.Engine,
	chat *services.ChatService,
	engine *metrics.Engine,
	trace *traceability.Engine,
	mem *memory.Service,
	loader *factorydata.Loader,
	debugErrors bool,
) {
	router.GET("/health", handlers.HealthCheck(loader))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/api/v1")
	{
		v1.POST("/chat", handlers.HandleChat(chat, debugErrors))

		kpi := v1.Group("/kpi")
		{
			kpi.GET("/oee", handlers.HandleOEE(engine))
			kpi.GET("/scrap", handlers.HandleScrap(engine))
			kpi.GET("/quality", handlers.HandleQuality(engine))
			kpi.GET("/downtime", handlers.HandleDowntime(engine))
		}

		data := v1.Group("/data")
		{
			data.GET("/status", handlers.HandleDataStatus(loader))
			data.GET("/snapshot", handlers.HandleDataDownload(loader))
			data.PUT("/snapshot", handlers.HandleDataUpload(loader))
		}

		suppliers := v1.Group("/suppliers")
		{
			suppliers.GET("", handlers.HandleSuppliers(trace))
			suppliers.GET("/:supplier_id", handlers.HandleSupplier(trace))
			suppliers.GET("/:supplier_id/impact", handlers.HandleSupplierImpact(trace))
		}

		batches := v1.Group("/batches")
		{
			batches.GET("", handlers.HandleBatches(trace))
			batches.GET("/:batch_id", handlers.HandleBatch(trace))
		}

		traces := v1.Group("/traceability")
		{
			traces.GET("/backward/:batch_id", handlers.HandleBackwardTrace(trace))
			traces.GET("/forward/:supplier_id", handlers.HandleForwardTrace(trace))
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", handlers.HandleOrders(trace))
			orders.GET("/:order_id", handlers.HandleOrder(trace))
			orders.GET("/:order_id/batches", handlers.HandleOrderBatches(trace))
		}

		memoryGroup := v1.Group("/memory")
		{
			memoryGroup.GET("/summary", handlers.HandleMemorySummary(mem))
			memoryGroup.GET("/investigations", handlers.HandleInvestigations(mem))
			memoryGroup.GET("/actions", handlers.HandleActions(mem))
			memoryGroup.GET("/shift-summary", handlers.HandleShiftSummary(mem))
		}
	}
}
