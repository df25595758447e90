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
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/metrics"
)

func kpiRouter(t *testing.T, withSnapshot bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{blobs: map[string][]byte{}}
	if withSnapshot {
		snap := &factorydata.Snapshot{
			StartDate: "2025-01-01",
			EndDate:   "2025-01-01",
			Production: map[string]map[string]factorydata.MachineDay{
				"2025-01-01": {
					"CNC-001": {PartsProduced: 100, GoodParts: 95, ScrapParts: 5, UptimeHours: 14},
				},
			},
		}
		data, err := json.Marshal(snap)
		require.NoError(t, err)
		store.blobs["production-data"] = data
	}

	loader := factorydata.NewLoader(store, "production-data")
	engine := metrics.NewEngine(loader)

	router := gin.New()
	router.GET("/api/v1/kpi/oee", HandleOEE(engine))
	router.GET("/api/v1/kpi/scrap", HandleScrap(engine))
	router.GET("/api/v1/data/status", HandleDataStatus(loader))
	return router
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleOEE_Success(t *testing.T) {
	router := kpiRouter(t, true)

	rec := get(router, "/api/v1/kpi/oee?start_date=2025-01-01&end_date=2025-01-01&machine_name=CNC-001")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got metrics.OEEMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.79, got.OEE, 1e-9)
}

func TestHandleOEE_MissingParamsIs400(t *testing.T) {
	router := kpiRouter(t, true)

	rec := get(router, "/api/v1/kpi/oee?start_date=2025-01-01")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOEE_BadRangeIs400(t *testing.T) {
	router := kpiRouter(t, true)

	rec := get(router, "/api/v1/kpi/oee?start_date=2025-01-02&end_date=2025-01-01")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScrap_NoDataIs404(t *testing.T) {
	router := kpiRouter(t, true)

	rec := get(router, "/api/v1/kpi/scrap?start_date=2030-01-01&end_date=2030-01-02")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, rec).Code)
}

func TestHandleDataStatus(t *testing.T) {
	loaded := get(kpiRouter(t, true), "/api/v1/data/status")
	require.Equal(t, http.StatusOK, loaded.Code)
	assert.Contains(t, loaded.Body.String(), `"loaded":true`)

	empty := get(kpiRouter(t, false), "/api/v1/data/status")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `"loaded":false`)
}
