// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics computes manufacturing KPIs over the production snapshot.
//
// # Description
//
// Every query loads the snapshot through the resilient store and aggregates
// it in memory. Expected conditions, such as a date range the snapshot does
// not cover, are reported with the sentinel errors below so
// the tool layer can convert them into result values the model can read.
// Only genuine infrastructure failures (store unreachable after retries)
// flow through as wrapped storage errors.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
)

// Expected query conditions. These never escape the tool boundary as
// exceptions; handlers and tools render them as messages.
var (
	// ErrNoData means the requested range contains no production days.
	ErrNoData = errors.New("no data for specified date range")

	// ErrBadDateRange means the dates are malformed or inverted.
	ErrBadDateRange = errors.New("invalid date range")
)

// plannedHoursPerDay is the scheduled production time per machine per day:
// two 8-hour shifts.
const plannedHoursPerDay = 16.0

// demoPerformance is the assumed performance factor. The snapshot does not
// record per-part cycle times, so the demo uses a fixed 95% of ideal speed
// instead of actual_output / theoretical_maximum.
const demoPerformance = 0.95

// majorDowntimeThresholdHours marks a stoppage worth reporting on its own.
const majorDowntimeThresholdHours = 2.0

// Engine answers KPI queries over the production snapshot.
//
// Thread Safety: Engine is stateless apart from the loader and is safe for
// concurrent use.
type Engine struct {
	loader *factorydata.Loader
}

// NewEngine creates a metrics engine reading through the given loader.
func NewEngine(loader *factorydata.Loader) *Engine {
	return &Engine{loader: loader}
}

// dateRange expands an inclusive ISO date range into individual days.
func dateRange(startDate, endDate string) ([]string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start date %q", ErrBadDateRange, startDate)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end date %q", ErrBadDateRange, endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %q before start %q", ErrBadDateRange, endDate, startDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

// validDates filters a date list to days present in the snapshot.
func validDates(snap *factorydata.Snapshot, dates []string) []string {
	var valid []string
	for _, d := range dates {
		if snap.Day(d) != nil {
			valid = append(valid, d)
		}
	}
	return valid
}

// machinesFor returns the machines to aggregate for one day: the filter
// when set, otherwise every machine with data.
func machinesFor(day map[string]factorydata.MachineDay, machineName string) []string {
	if machineName != "" {
		if _, ok := day[machineName]; !ok {
			return nil
		}
		return []string{machineName}
	}
	names := make([]string, 0, len(day))
	for name := range day {
		names = append(names, name)
	}
	return names
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// CalculateOEE computes the OEE breakdown for a date range.
//
// # Inputs
//
//   - ctx: Context for the snapshot load.
//   - startDate, endDate: Inclusive ISO dates (YYYY-MM-DD).
//   - machineName: Optional machine filter; empty aggregates all machines.
//
// # Outputs
//
//   - *OEEMetrics: The breakdown, rounded to three decimals.
//   - error: ErrNoData/ErrBadDateRange for expected conditions; loader
//     errors for infrastructure failures.
func (e *Engine) CalculateOEE(ctx context.Context, startDate, endDate, machineName string) (*OEEMetrics, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	valid := validDates(snap, dates)
	if len(valid) == 0 {
		return nil, ErrNoData
	}

	var totalParts, totalGood int
	var totalUptime, totalPlanned float64

	for _, date := range valid {
		day := snap.Day(date)
		for _, machine := range machinesFor(day, machineName) {
			m := day[machine]
			totalParts += m.PartsProduced
			totalGood += m.GoodParts
			totalUptime += m.UptimeHours
			totalPlanned += plannedHoursPerDay
		}
	}
	if totalPlanned == 0 {
		return nil, ErrNoData
	}

	availability := totalUptime / totalPlanned
	quality := 0.0
	if totalParts > 0 {
		quality = float64(totalGood) / float64(totalParts)
	}
	oee := availability * demoPerformance * quality

	return &OEEMetrics{
		OEE:          round3(oee),
		Availability: round3(availability),
		Performance:  round3(demoPerformance),
		Quality:      round3(quality),
		TotalParts:   totalParts,
		GoodParts:    totalGood,
		ScrapParts:   totalParts - totalGood,
	}, nil
}

// ScrapMetrics computes scrap totals and per-machine breakdown.
//
// The per-machine breakdown is omitted when a machine filter is supplied,
// matching the dashboard's expectations.
func (e *Engine) ScrapMetrics(ctx context.Context, startDate, endDate, machineName string) (*ScrapMetrics, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	valid := validDates(snap, dates)
	if len(valid) == 0 {
		return nil, ErrNoData
	}

	var totalScrap, totalParts int
	byMachine := map[string]int{}

	for _, date := range valid {
		day := snap.Day(date)
		for _, machine := range machinesFor(day, machineName) {
			m := day[machine]
			totalScrap += m.ScrapParts
			totalParts += m.PartsProduced
			if machineName == "" {
				byMachine[machine] += m.ScrapParts
			}
		}
	}

	rate := 0.0
	if totalParts > 0 {
		rate = float64(totalScrap) / float64(totalParts) * 100
	}
	result := &ScrapMetrics{
		TotalScrap: totalScrap,
		TotalParts: totalParts,
		ScrapRate:  round2(rate),
	}
	if len(byMachine) > 0 {
		result.ScrapByMachine = byMachine
	}
	return result, nil
}

// QualityIssues lists defect events with optional severity and machine
// filters.
func (e *Engine) QualityIssues(ctx context.Context, startDate, endDate, severity, machineName string) (*QualityReport, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	valid := validDates(snap, dates)
	if len(valid) == 0 {
		return nil, ErrNoData
	}

	report := &QualityReport{
		Issues:            []QualityIssue{},
		SeverityBreakdown: map[string]int{},
	}

	for _, date := range valid {
		day := snap.Day(date)
		for _, machine := range machinesFor(day, machineName) {
			for _, rec := range day[machine].QualityIssues {
				if severity != "" && rec.Severity != severity {
					continue
				}
				rootCause := rec.RootCause
				if rootCause == "" {
					rootCause = "unknown"
				}
				report.Issues = append(report.Issues, QualityIssue{
					Type:          rec.Type,
					Description:   rec.Description,
					PartsAffected: rec.PartsAffected,
					Severity:      rec.Severity,
					Date:          date,
					Machine:       machine,
					MaterialID:    rec.MaterialID,
					LotNumber:     rec.LotNumber,
					SupplierID:    rec.SupplierID,
					SupplierName:  rec.SupplierName,
					RootCause:     rootCause,
				})
				report.TotalPartsAffected += rec.PartsAffected
				report.SeverityBreakdown[rec.Severity]++
			}
		}
	}
	report.TotalIssues = len(report.Issues)
	return report, nil
}

// DowntimeAnalysis aggregates stoppages and calls out events above the
// major threshold.
func (e *Engine) DowntimeAnalysis(ctx context.Context, startDate, endDate, machineName string) (*DowntimeAnalysis, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	valid := validDates(snap, dates)
	if len(valid) == 0 {
		return nil, ErrNoData
	}

	analysis := &DowntimeAnalysis{
		DowntimeByReason: map[string]float64{},
		MajorEvents:      []MajorDowntimeEvent{},
	}

	for _, date := range valid {
		day := snap.Day(date)
		for _, machine := range machinesFor(day, machineName) {
			m := day[machine]
			analysis.TotalDowntimeHours += m.DowntimeHours
			for _, event := range m.DowntimeEvents {
				analysis.DowntimeByReason[event.Reason] += event.DurationHours
				if event.DurationHours > majorDowntimeThresholdHours {
					analysis.MajorEvents = append(analysis.MajorEvents, MajorDowntimeEvent{
						Date:          date,
						Machine:       machine,
						Reason:        event.Reason,
						Description:   event.Description,
						DurationHours: event.DurationHours,
					})
				}
			}
		}
	}

	analysis.TotalDowntimeHours = round2(analysis.TotalDowntimeHours)
	for reason, hours := range analysis.DowntimeByReason {
		analysis.DowntimeByReason[reason] = round2(hours)
	}
	return analysis, nil
}
