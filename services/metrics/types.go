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

// OEEMetrics is the Overall Equipment Effectiveness breakdown for a date
// range: OEE = Availability x Performance x Quality.
type OEEMetrics struct {
	OEE          float64 `json:"oee"`
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	TotalParts   int     `json:"total_parts"`
	GoodParts    int     `json:"good_parts"`
	ScrapParts   int     `json:"scrap_parts"`
}

// ScrapMetrics summarizes scrap production for a date range.
type ScrapMetrics struct {
	TotalScrap     int            `json:"total_scrap"`
	TotalParts     int            `json:"total_parts"`
	ScrapRate      float64        `json:"scrap_rate"`
	ScrapByMachine map[string]int `json:"scrap_by_machine,omitempty"`
}

// QualityIssue is one defect event enriched with its date and machine.
type QualityIssue struct {
	Type          string `json:"type"`
	Description   string `json:"description"`
	PartsAffected int    `json:"parts_affected"`
	Severity      string `json:"severity"`
	Date          string `json:"date"`
	Machine       string `json:"machine"`
	MaterialID    string `json:"material_id,omitempty"`
	LotNumber     string `json:"lot_number,omitempty"`
	SupplierID    string `json:"supplier_id,omitempty"`
	SupplierName  string `json:"supplier_name,omitempty"`
	RootCause     string `json:"root_cause,omitempty"`
}

// QualityReport aggregates defect events for a date range.
type QualityReport struct {
	Issues             []QualityIssue `json:"issues"`
	TotalIssues        int            `json:"total_issues"`
	TotalPartsAffected int            `json:"total_parts_affected"`
	SeverityBreakdown  map[string]int `json:"severity_breakdown"`
}

// MajorDowntimeEvent is a stoppage long enough to call out individually.
type MajorDowntimeEvent struct {
	Date          string  `json:"date"`
	Machine       string  `json:"machine"`
	Reason        string  `json:"reason"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours"`
}

// DowntimeAnalysis aggregates stoppages for a date range.
type DowntimeAnalysis struct {
	TotalDowntimeHours float64              `json:"total_downtime_hours"`
	DowntimeByReason   map[string]float64   `json:"downtime_by_reason"`
	MajorEvents        []MajorDowntimeEvent `json:"major_events"`
}
