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

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/traceability"
)

func traceRouter(t *testing.T, withSnapshot bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{blobs: map[string][]byte{}}
	if withSnapshot {
		snap := &factorydata.Snapshot{
			StartDate: "2025-01-01",
			EndDate:   "2025-01-02",
			Production: map[string]map[string]factorydata.MachineDay{
				"2025-01-01": {
					"CNC-001": {PartsProduced: 100, GoodParts: 95, ScrapParts: 5, UptimeHours: 14},
				},
			},
			Suppliers: []factorydata.Supplier{
				{ID: "SUP-001", Name: "Apex Metals", Type: "Raw Materials",
					QualityMetrics: map[string]float64{"quality_rating": 92}, Status: "Active"},
			},
			MaterialLots: []factorydata.MaterialLot{
				{LotNumber: "LOT-A", MaterialID: "MAT-001", SupplierID: "SUP-001",
					ReceivedDate: "2025-01-01", QuantityReceived: 500, QuantityRemaining: 120, Status: "InUse"},
			},
			Orders: []factorydata.Order{
				{ID: "ORD-001", OrderNumber: "PO-7731", Customer: "Northstar Assembly",
					DueDate: "2025-01-10", Status: "InProgress", Priority: "High", TotalValue: 12000},
			},
			ProductionBatches: []factorydata.ProductionBatch{
				{
					BatchID: "BATCH-20250101-CNC001-001", Date: "2025-01-01",
					MachineID: 1, MachineName: "CNC-001", ShiftID: 1, ShiftName: "Day",
					OrderID: "ORD-001", PartNumber: "PN-1001", Operator: "J. Alvarez",
					PartsProduced: 100, GoodParts: 95, ScrapParts: 5,
					MaterialsConsumed: []factorydata.MaterialUsage{
						{MaterialID: "MAT-001", MaterialName: "Steel Bar 304",
							LotNumber: "LOT-A", QuantityUsed: 80, Unit: "kg"},
					},
				},
			},
		}
		data, err := json.Marshal(snap)
		require.NoError(t, err)
		store.blobs["production-data"] = data
	}

	engine := traceability.NewEngine(factorydata.NewLoader(store, "production-data"))

	router := gin.New()
	router.GET("/api/v1/suppliers", HandleSuppliers(engine))
	router.GET("/api/v1/suppliers/:supplier_id", HandleSupplier(engine))
	router.GET("/api/v1/suppliers/:supplier_id/impact", HandleSupplierImpact(engine))
	router.GET("/api/v1/batches", HandleBatches(engine))
	router.GET("/api/v1/batches/:batch_id", HandleBatch(engine))
	router.GET("/api/v1/traceability/backward/:batch_id", HandleBackwardTrace(engine))
	router.GET("/api/v1/traceability/forward/:supplier_id", HandleForwardTrace(engine))
	router.GET("/api/v1/orders", HandleOrders(engine))
	router.GET("/api/v1/orders/:order_id", HandleOrder(engine))
	router.GET("/api/v1/orders/:order_id/batches", HandleOrderBatches(engine))
	return router
}

func TestHandleSuppliers_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/suppliers?status=Active")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []factorydata.Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Apex Metals", got[0].Name)
}

func TestHandleSupplier_UnknownIs404(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/suppliers/SUP-999")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestHandleSupplierImpact_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/suppliers/SUP-001/impact?start_date=2025-01-01&end_date=2025-01-31")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got traceability.SupplierImpact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.AffectedBatchCount)
	assert.Equal(t, 5, got.TotalDefects)
	assert.InDelta(t, 250.0, got.EstimatedCostImpact, 1e-9)
}

func TestHandleBatches_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/batches?machine_id=1")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []factorydata.ProductionBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "BATCH-20250101-CNC001-001", got[0].BatchID)
}

func TestHandleBackwardTrace_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/traceability/backward/BATCH-20250101-CNC001-001")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got traceability.BackwardTrace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.MaterialsTrace, 1)
	assert.Equal(t, "SUP-001", got.MaterialsTrace[0].SupplierID)
	assert.InDelta(t, 95.0, got.Summary.QualityRate, 1e-9)
}

func TestHandleBackwardTrace_UnknownBatchIs404(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/traceability/backward/BATCH-NOPE")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestHandleForwardTrace_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/traceability/forward/SUP-001")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got traceability.ForwardTrace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.AffectedOrders, 1)
	assert.Equal(t, "ORD-001", got.AffectedOrders[0].ID)
}

func TestHandleOrderBatches_Success(t *testing.T) {
	rec := get(traceRouter(t, true), "/api/v1/orders/ORD-001/batches")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got traceability.OrderProduction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.BatchesCount)
	assert.Equal(t, 100, got.Summary.TotalProduced)
}

func TestHandleSuppliers_NoSnapshotIs404(t *testing.T) {
	rec := get(traceRouter(t, false), "/api/v1/suppliers")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, rec).Code)
}
