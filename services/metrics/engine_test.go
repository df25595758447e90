// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
	"github.com/AleutianAI/AleutianFactory/services/storage"
)

// memStore is an in-memory BlobStore for tests.
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}}
}

func (m *memStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Upload(ctx context.Context, key string, data []byte) error {
	m.blobs[key] = data
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

func testEngine(t *testing.T, snap *factorydata.Snapshot) *Engine {
	t.Helper()
	store := newMemStore()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	store.blobs["production-data"] = data
	return NewEngine(factorydata.NewLoader(store, "production-data"))
}

func testSnapshot() *factorydata.Snapshot {
	return &factorydata.Snapshot{
		StartDate: "2025-01-01",
		EndDate:   "2025-01-02",
		Production: map[string]map[string]factorydata.MachineDay{
			"2025-01-01": {
				"CNC-001": {
					PartsProduced: 100,
					GoodParts:     95,
					ScrapParts:    5,
					UptimeHours:   14,
					DowntimeHours: 2,
					QualityIssues: []factorydata.QualityIssueRecord{
						{
							Type:          "dimensional",
							Description:   "bore diameter out of tolerance",
							PartsAffected: 5,
							Severity:      "high",
							MaterialID:    "MAT-7431",
							LotNumber:     "LOT-2025-0042",
							SupplierID:    "SUP-12",
							SupplierName:  "Apex Metals",
						},
					},
					DowntimeEvents: []factorydata.DowntimeEventRecord{
						{Reason: "tooling", Description: "spindle tool change", DurationHours: 0.5},
						{Reason: "breakdown", Description: "coolant pump failure", DurationHours: 1.5},
					},
				},
				"Assembly-001": {
					PartsProduced: 80,
					GoodParts:     80,
					UptimeHours:   16,
				},
			},
			"2025-01-02": {
				"CNC-001": {
					PartsProduced: 110,
					GoodParts:     99,
					ScrapParts:    11,
					UptimeHours:   12,
					DowntimeHours: 4,
					QualityIssues: []factorydata.QualityIssueRecord{
						{
							Type:          "surface",
							Description:   "scratches after deburring",
							PartsAffected: 11,
							Severity:      "low",
						},
					},
					DowntimeEvents: []factorydata.DowntimeEventRecord{
						{Reason: "breakdown", Description: "spindle bearing seizure", DurationHours: 4},
					},
				},
			},
		},
	}
}

// =============================================================================
// OEE
// =============================================================================

func TestEngine_CalculateOEE_SingleMachineSingleDay(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.CalculateOEE(context.Background(), "2025-01-01", "2025-01-01", "CNC-001")
	require.NoError(t, err)

	// availability 14/16, quality 95/100, performance fixed at 0.95
	assert.InDelta(t, 0.875, got.Availability, 1e-9)
	assert.InDelta(t, 0.95, got.Quality, 1e-9)
	assert.InDelta(t, 0.95, got.Performance, 1e-9)
	assert.InDelta(t, 0.79, got.OEE, 1e-9)
	assert.Equal(t, 100, got.TotalParts)
	assert.Equal(t, 95, got.GoodParts)
	assert.Equal(t, 5, got.ScrapParts)
}

func TestEngine_CalculateOEE_AggregatesAllMachines(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.CalculateOEE(context.Background(), "2025-01-01", "2025-01-02", "")
	require.NoError(t, err)

	// three machine-days: planned 48h, uptime 42h, parts 290, good 274
	assert.InDelta(t, 42.0/48.0, got.Availability, 1e-3)
	assert.Equal(t, 290, got.TotalParts)
	assert.Equal(t, 274, got.GoodParts)
	assert.Equal(t, 16, got.ScrapParts)
}

func TestEngine_CalculateOEE_NoDataInRange(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	_, err := engine.CalculateOEE(context.Background(), "2030-01-01", "2030-01-05", "")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestEngine_CalculateOEE_BadDates(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	_, err := engine.CalculateOEE(context.Background(), "not-a-date", "2025-01-02", "")
	assert.ErrorIs(t, err, ErrBadDateRange)

	_, err = engine.CalculateOEE(context.Background(), "2025-01-02", "2025-01-01", "")
	assert.ErrorIs(t, err, ErrBadDateRange)
}

func TestEngine_CalculateOEE_UnknownMachine(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	_, err := engine.CalculateOEE(context.Background(), "2025-01-01", "2025-01-02", "Welder-009")
	assert.ErrorIs(t, err, ErrNoData)
}

// =============================================================================
// Scrap
// =============================================================================

func TestEngine_ScrapMetrics_AllMachines(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.ScrapMetrics(context.Background(), "2025-01-01", "2025-01-02", "")
	require.NoError(t, err)

	assert.Equal(t, 16, got.TotalScrap)
	assert.Equal(t, 290, got.TotalParts)
	assert.InDelta(t, 5.52, got.ScrapRate, 1e-9)
	assert.Equal(t, map[string]int{"CNC-001": 16, "Assembly-001": 0}, got.ScrapByMachine)
}

func TestEngine_ScrapMetrics_MachineFilterOmitsBreakdown(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.ScrapMetrics(context.Background(), "2025-01-01", "2025-01-02", "CNC-001")
	require.NoError(t, err)

	assert.Equal(t, 16, got.TotalScrap)
	assert.Nil(t, got.ScrapByMachine)
}

// =============================================================================
// Quality
// =============================================================================

func TestEngine_QualityIssues_SeverityFilter(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.QualityIssues(context.Background(), "2025-01-01", "2025-01-02", "high", "")
	require.NoError(t, err)

	require.Len(t, got.Issues, 1)
	issue := got.Issues[0]
	assert.Equal(t, "dimensional", issue.Type)
	assert.Equal(t, "2025-01-01", issue.Date)
	assert.Equal(t, "CNC-001", issue.Machine)
	assert.Equal(t, "SUP-12", issue.SupplierID)
	assert.Equal(t, "unknown", issue.RootCause)
	assert.Equal(t, 1, got.TotalIssues)
	assert.Equal(t, 5, got.TotalPartsAffected)
}

func TestEngine_QualityIssues_Unfiltered(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.QualityIssues(context.Background(), "2025-01-01", "2025-01-02", "", "")
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalIssues)
	assert.Equal(t, 16, got.TotalPartsAffected)
	assert.Equal(t, map[string]int{"high": 1, "low": 1}, got.SeverityBreakdown)
}

// =============================================================================
// Downtime
// =============================================================================

func TestEngine_DowntimeAnalysis_MajorEventsOnly(t *testing.T) {
	engine := testEngine(t, testSnapshot())

	got, err := engine.DowntimeAnalysis(context.Background(), "2025-01-01", "2025-01-02", "")
	require.NoError(t, err)

	assert.InDelta(t, 6.0, got.TotalDowntimeHours, 1e-9)
	assert.InDelta(t, 5.5, got.DowntimeByReason["breakdown"], 1e-9)
	assert.InDelta(t, 0.5, got.DowntimeByReason["tooling"], 1e-9)

	// Only the 4h seizure crosses the 2h threshold.
	require.Len(t, got.MajorEvents, 1)
	assert.Equal(t, "2025-01-02", got.MajorEvents[0].Date)
	assert.Equal(t, "breakdown", got.MajorEvents[0].Reason)
	assert.InDelta(t, 4.0, got.MajorEvents[0].DurationHours, 1e-9)
}

// =============================================================================
// Missing snapshot
// =============================================================================

func TestEngine_MissingSnapshot(t *testing.T) {
	engine := NewEngine(factorydata.NewLoader(newMemStore(), "production-data"))

	_, err := engine.CalculateOEE(context.Background(), "2025-01-01", "2025-01-02", "")
	assert.ErrorIs(t, err, factorydata.ErrNoSnapshot)
}
