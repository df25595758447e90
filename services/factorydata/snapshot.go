// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package factorydata defines the production snapshot document and its
// loader.
//
// # Description
//
// All persisted production data lives in a single JSON document keyed by
// day and machine. The document is read wholesale from the blob store and
// is treated as immutable by every consumer; the metrics engine only
// aggregates over it.
package factorydata

// Machine describes one piece of equipment on the floor.
type Machine struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	IdealCycleTime int    `json:"ideal_cycle_time"`
}

// Shift describes a production shift window.
type Shift struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

// Machines is the static equipment catalog for the demo plant.
var Machines = []Machine{
	{ID: 1, Name: "CNC-001", Type: "CNC Machining Center", IdealCycleTime: 45},
	{ID: 2, Name: "Assembly-001", Type: "Assembly Station", IdealCycleTime: 120},
	{ID: 3, Name: "Packaging-001", Type: "Automated Packaging Line", IdealCycleTime: 30},
	{ID: 4, Name: "Testing-001", Type: "Quality Testing Station", IdealCycleTime: 90},
}

// Shifts is the static shift schedule: two 8-hour shifts per day.
var Shifts = []Shift{
	{ID: 1, Name: "Day", StartHour: 6, EndHour: 14},
	{ID: 2, Name: "Night", StartHour: 14, EndHour: 22},
}

// QualityIssueRecord is one recorded defect event.
type QualityIssueRecord struct {
	Type          string `json:"type"`
	Description   string `json:"description"`
	PartsAffected int    `json:"parts_affected"`
	Severity      string `json:"severity"`
	MaterialID    string `json:"material_id,omitempty"`
	LotNumber     string `json:"lot_number,omitempty"`
	SupplierID    string `json:"supplier_id,omitempty"`
	SupplierName  string `json:"supplier_name,omitempty"`
	RootCause     string `json:"root_cause,omitempty"`
}

// DowntimeEventRecord is one recorded stoppage.
type DowntimeEventRecord struct {
	Reason        string  `json:"reason"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours"`
}

// MachineDay aggregates one machine's production for one calendar day.
type MachineDay struct {
	PartsProduced  int                   `json:"parts_produced"`
	GoodParts      int                   `json:"good_parts"`
	ScrapParts     int                   `json:"scrap_parts"`
	UptimeHours    float64               `json:"uptime_hours"`
	DowntimeHours  float64               `json:"downtime_hours"`
	QualityIssues  []QualityIssueRecord  `json:"quality_issues,omitempty"`
	DowntimeEvents []DowntimeEventRecord `json:"downtime_events,omitempty"`
}

// Snapshot is the complete persisted production dataset.
//
// Production is keyed by ISO date (YYYY-MM-DD), then machine name. The
// supply-chain collections are optional; a snapshot without them still
// serves every KPI query, and the traceability endpoints simply report
// nothing to trace.
type Snapshot struct {
	StartDate  string                           `json:"start_date"`
	EndDate    string                           `json:"end_date"`
	Production map[string]map[string]MachineDay `json:"production"`

	Suppliers         []Supplier        `json:"suppliers,omitempty"`
	MaterialLots      []MaterialLot     `json:"material_lots,omitempty"`
	Orders            []Order           `json:"orders,omitempty"`
	ProductionBatches []ProductionBatch `json:"production_batches,omitempty"`
}

// Day returns the per-machine data for an ISO date, or nil when the date is
// outside the snapshot.
func (s *Snapshot) Day(date string) map[string]MachineDay {
	if s == nil || s.Production == nil {
		return nil
	}
	return s.Production[date]
}

// DateRangeISO returns the snapshot's date bounds trimmed to YYYY-MM-DD.
func (s *Snapshot) DateRangeISO() (string, string) {
	return trimToDate(s.StartDate), trimToDate(s.EndDate)
}

// trimToDate strips a trailing time component from an ISO timestamp.
func trimToDate(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}
