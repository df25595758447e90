// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package traceability answers supply-chain queries over the production
// snapshot.
//
// # Description
//
// The snapshot's supply-chain collections link suppliers to material lots,
// lots to production batches through their consumed materials, and batches
// to customer orders. The engine walks those links in both directions:
// backward from a batch to the suppliers behind it, and forward from a
// supplier to every batch and order its material touched. Missing
// referents are expected conditions reported with the sentinel errors
// below; infrastructure failures flow through as wrapped storage errors.
package traceability

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
)

var (
	// ErrSupplierNotFound means no supplier carries the requested ID.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrBatchNotFound means no production batch carries the requested ID.
	ErrBatchNotFound = errors.New("production batch not found")

	// ErrOrderNotFound means no customer order carries the requested ID.
	ErrOrderNotFound = errors.New("order not found")
)

// costPerDefect is the flat dollar estimate applied per scrapped part when
// sizing a supplier's quality impact.
const costPerDefect = 50.0

// impactListCap bounds the detail lists in an impact report so one bad
// supplier cannot blow up the response.
const impactListCap = 10

// DefaultBatchLimit bounds a batch listing when the caller does not set
// its own limit.
const DefaultBatchLimit = 50

// DefaultOrderLimit bounds an order listing when the caller does not set
// its own limit.
const DefaultOrderLimit = 50

// Engine answers traceability queries over the production snapshot.
//
// Thread Safety: Engine is stateless apart from the loader and is safe for
// concurrent use.
type Engine struct {
	loader *factorydata.Loader
}

// NewEngine creates a traceability engine reading through the given loader.
func NewEngine(loader *factorydata.Loader) *Engine {
	return &Engine{loader: loader}
}

// Suppliers lists the supplier catalog, best quality rating first.
//
// # Inputs
//
//   - status: Optional filter on the supplier status, such as "Active".
func (e *Engine) Suppliers(ctx context.Context, status string) ([]factorydata.Supplier, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	suppliers := make([]factorydata.Supplier, 0, len(snap.Suppliers))
	for _, s := range snap.Suppliers {
		if status != "" && s.Status != status {
			continue
		}
		suppliers = append(suppliers, s)
	}
	sort.SliceStable(suppliers, func(i, j int) bool {
		return suppliers[i].QualityMetrics["quality_rating"] > suppliers[j].QualityMetrics["quality_rating"]
	})
	return suppliers, nil
}

// Supplier returns one supplier by ID, or ErrSupplierNotFound.
func (e *Engine) Supplier(ctx context.Context, supplierID string) (*factorydata.Supplier, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findSupplier(snap, supplierID)
}

func findSupplier(snap *factorydata.Snapshot, supplierID string) (*factorydata.Supplier, error) {
	for i := range snap.Suppliers {
		if snap.Suppliers[i].ID == supplierID {
			return &snap.Suppliers[i], nil
		}
	}
	return nil, ErrSupplierNotFound
}

// lotNumbersFor collects the lots a supplier shipped, filtered by received
// date. Dates compare lexicographically; empty bounds are open.
func lotNumbersFor(snap *factorydata.Snapshot, supplierID, startDate, endDate string) ([]factorydata.MaterialLot, map[string]bool) {
	var lots []factorydata.MaterialLot
	numbers := map[string]bool{}
	for _, lot := range snap.MaterialLots {
		if lot.SupplierID != supplierID {
			continue
		}
		if startDate != "" && lot.ReceivedDate < startDate {
			continue
		}
		if endDate != "" && lot.ReceivedDate > endDate {
			continue
		}
		lots = append(lots, lot)
		numbers[lot.LotNumber] = true
	}
	return lots, numbers
}

// consumesAny reports whether a batch consumed material from any of the
// given lots.
func consumesAny(batch *factorydata.ProductionBatch, lotNumbers map[string]bool) bool {
	for _, usage := range batch.MaterialsConsumed {
		if lotNumbers[usage.LotNumber] {
			return true
		}
	}
	return false
}

// defectTypes lists the distinct quality issue types recorded on a batch.
func defectTypes(batch *factorydata.ProductionBatch) []string {
	var types []string
	seen := map[string]bool{}
	for _, issue := range batch.QualityIssues {
		if !seen[issue.Type] {
			seen[issue.Type] = true
			types = append(types, issue.Type)
		}
	}
	return types
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// SupplierImpact analyzes the quality fallout of one supplier's materials.
//
// # Description
//
// Walks forward from the supplier's material lots to every batch that
// consumed them, counting scrapped parts as supplier-attributable defects
// and pricing them at a flat estimate per part. The detail lists are
// capped; the counters always cover the full result.
//
// # Inputs
//
//   - supplierID: The supplier to analyze.
//   - startDate, endDate: Optional ISO date bounds applied to both lot
//     received dates and batch dates.
//
// # Outputs
//
//   - *SupplierImpact: The analysis.
//   - error: ErrSupplierNotFound for an unknown supplier; loader errors
//     for infrastructure failures.
func (e *Engine) SupplierImpact(ctx context.Context, supplierID, startDate, endDate string) (*SupplierImpact, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	supplier, err := findSupplier(snap, supplierID)
	if err != nil {
		return nil, err
	}

	lots, lotNumbers := lotNumbersFor(snap, supplierID, startDate, endDate)
	if lots == nil {
		lots = []factorydata.MaterialLot{}
	}

	impact := &SupplierImpact{
		Supplier:        *supplier,
		MaterialLots:    lots,
		AffectedBatches: []AffectedBatch{},
		QualityIssues:   []BatchDefects{},
	}
	impact.MaterialLotsSupplied = len(lots)

	for i := range snap.ProductionBatches {
		batch := &snap.ProductionBatches[i]
		if startDate != "" && batch.Date < startDate {
			continue
		}
		if endDate != "" && batch.Date > endDate {
			continue
		}
		if !consumesAny(batch, lotNumbers) {
			continue
		}

		impact.AffectedBatchCount++
		if len(impact.AffectedBatches) < impactListCap {
			impact.AffectedBatches = append(impact.AffectedBatches, AffectedBatch{
				BatchID:           batch.BatchID,
				Date:              batch.Date,
				MachineName:       batch.MachineName,
				PartsProduced:     batch.PartsProduced,
				ScrapParts:        batch.ScrapParts,
				MaterialsConsumed: batch.MaterialsConsumed,
			})
		}
		if batch.ScrapParts > 0 {
			impact.QualityIssueCount++
			impact.TotalDefects += batch.ScrapParts
			if len(impact.QualityIssues) < impactListCap {
				impact.QualityIssues = append(impact.QualityIssues, BatchDefects{
					BatchID:     batch.BatchID,
					Date:        batch.Date,
					DefectCount: batch.ScrapParts,
					DefectTypes: defectTypes(batch),
				})
			}
		}
	}

	impact.EstimatedCostImpact = float64(impact.TotalDefects) * costPerDefect
	return impact, nil
}

// Batches lists production batches, newest first.
func (e *Engine) Batches(ctx context.Context, filter BatchFilter) ([]factorydata.ProductionBatch, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	batches := make([]factorydata.ProductionBatch, 0, len(snap.ProductionBatches))
	for _, b := range snap.ProductionBatches {
		if filter.MachineID != 0 && b.MachineID != filter.MachineID {
			continue
		}
		if filter.StartDate != "" && b.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && b.Date > filter.EndDate {
			continue
		}
		if filter.OrderID != "" && b.OrderID != filter.OrderID {
			continue
		}
		batches = append(batches, b)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Date > batches[j].Date
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

// Batch returns one production batch by ID, or ErrBatchNotFound.
func (e *Engine) Batch(ctx context.Context, batchID string) (*factorydata.ProductionBatch, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findBatch(snap, batchID)
}

func findBatch(snap *factorydata.Snapshot, batchID string) (*factorydata.ProductionBatch, error) {
	for i := range snap.ProductionBatches {
		if snap.ProductionBatches[i].BatchID == batchID {
			return &snap.ProductionBatches[i], nil
		}
	}
	return nil, ErrBatchNotFound
}

// BackwardTrace traces one batch back to its materials and suppliers.
//
// # Description
//
// Each consumed material resolves through its lot number to the received
// lot and the supplier that shipped it. Usages whose lot is not in the
// snapshot are skipped; a trace never fails on a dangling reference.
//
// # Outputs
//
//   - *BackwardTrace: The batch, its material trace, and the distinct
//     suppliers involved.
//   - error: ErrBatchNotFound for an unknown batch; loader errors for
//     infrastructure failures.
func (e *Engine) BackwardTrace(ctx context.Context, batchID string) (*BackwardTrace, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := findBatch(snap, batchID)
	if err != nil {
		return nil, err
	}

	lotsByNumber := map[string]*factorydata.MaterialLot{}
	for i := range snap.MaterialLots {
		lotsByNumber[snap.MaterialLots[i].LotNumber] = &snap.MaterialLots[i]
	}

	trace := &BackwardTrace{
		Batch:          *batch,
		MaterialsTrace: []MaterialTrace{},
		Suppliers:      []factorydata.Supplier{},
	}
	supplierSeen := map[string]bool{}

	for _, usage := range batch.MaterialsConsumed {
		lot, ok := lotsByNumber[usage.LotNumber]
		if !ok {
			continue
		}
		step := MaterialTrace{
			MaterialID:   usage.MaterialID,
			MaterialName: usage.MaterialName,
			QuantityUsed: usage.QuantityUsed,
			Unit:         usage.Unit,
			LotNumber:    usage.LotNumber,
			LotDetails:   lot,
			SupplierID:   lot.SupplierID,
		}
		if supplier, err := findSupplier(snap, lot.SupplierID); err == nil {
			step.Supplier = supplier
			if !supplierSeen[supplier.ID] {
				supplierSeen[supplier.ID] = true
				trace.Suppliers = append(trace.Suppliers, *supplier)
			}
		}
		trace.MaterialsTrace = append(trace.MaterialsTrace, step)
	}

	qualityRate := 0.0
	if batch.PartsProduced > 0 {
		qualityRate = float64(batch.GoodParts) / float64(batch.PartsProduced) * 100
	}
	trace.Summary = SupplyChainSummary{
		MaterialsCount:     len(trace.MaterialsTrace),
		SuppliersCount:     len(trace.Suppliers),
		TotalPartsProduced: batch.PartsProduced,
		ScrapParts:         batch.ScrapParts,
		QualityRate:        round2(qualityRate),
	}
	return trace, nil
}

// ForwardTrace traces one supplier forward to batches and customer orders.
//
// # Description
//
// The mirror image of BackwardTrace: from the supplier's lots to every
// batch that consumed them, and from those batches to the orders they
// fulfill. Unlike SupplierImpact the batch list is not capped, because
// the order linkage needs the complete set.
func (e *Engine) ForwardTrace(ctx context.Context, supplierID, startDate, endDate string) (*ForwardTrace, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	supplier, err := findSupplier(snap, supplierID)
	if err != nil {
		return nil, err
	}

	lots, lotNumbers := lotNumbersFor(snap, supplierID, startDate, endDate)

	trace := &ForwardTrace{
		Supplier:             *supplier,
		MaterialLotsSupplied: len(lots),
		AffectedBatches:      []AffectedBatch{},
		QualityIssues:        []BatchDefects{},
		AffectedOrders:       []factorydata.Order{},
	}
	orderIDs := map[string]bool{}

	for i := range snap.ProductionBatches {
		batch := &snap.ProductionBatches[i]
		if startDate != "" && batch.Date < startDate {
			continue
		}
		if endDate != "" && batch.Date > endDate {
			continue
		}
		if !consumesAny(batch, lotNumbers) {
			continue
		}

		trace.AffectedBatches = append(trace.AffectedBatches, AffectedBatch{
			BatchID:       batch.BatchID,
			Date:          batch.Date,
			MachineName:   batch.MachineName,
			PartsProduced: batch.PartsProduced,
			ScrapParts:    batch.ScrapParts,
			OrderID:       batch.OrderID,
		})
		if batch.ScrapParts > 0 {
			trace.QualityIssues = append(trace.QualityIssues, BatchDefects{
				BatchID:     batch.BatchID,
				Date:        batch.Date,
				DefectCount: batch.ScrapParts,
			})
			trace.Impact.TotalDefects += batch.ScrapParts
		}
		if batch.OrderID != "" {
			orderIDs[batch.OrderID] = true
		}
	}

	for _, order := range snap.Orders {
		if orderIDs[order.ID] {
			trace.AffectedOrders = append(trace.AffectedOrders, order)
		}
	}

	trace.Impact.BatchesAffected = len(trace.AffectedBatches)
	trace.Impact.QualityIssuesCount = len(trace.QualityIssues)
	trace.Impact.OrdersAffected = len(trace.AffectedOrders)
	trace.Impact.EstimatedCostImpact = float64(trace.Impact.TotalDefects) * costPerDefect
	return trace, nil
}

// Orders lists customer orders, nearest due date first.
func (e *Engine) Orders(ctx context.Context, status string, limit int) ([]factorydata.Order, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]factorydata.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if status != "" && o.Status != status {
			continue
		}
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].DueDate < orders[j].DueDate
	})

	if limit <= 0 {
		limit = DefaultOrderLimit
	}
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// Order returns one customer order by ID, or ErrOrderNotFound.
func (e *Engine) Order(ctx context.Context, orderID string) (*factorydata.Order, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findOrder(snap, orderID)
}

func findOrder(snap *factorydata.Snapshot, orderID string) (*factorydata.Order, error) {
	for i := range snap.Orders {
		if snap.Orders[i].ID == orderID {
			return &snap.Orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

// OrderBatches links one order to the production batches assigned to it.
func (e *Engine) OrderBatches(ctx context.Context, orderID string) (*OrderProduction, error) {
	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	order, err := findOrder(snap, orderID)
	if err != nil {
		return nil, err
	}

	result := &OrderProduction{
		Order:           *order,
		AssignedBatches: []factorydata.ProductionBatch{},
	}
	for _, batch := range snap.ProductionBatches {
		if batch.OrderID != orderID {
			continue
		}
		result.AssignedBatches = append(result.AssignedBatches, batch)
		result.Summary.TotalProduced += batch.PartsProduced
		result.Summary.TotalGoodParts += batch.GoodParts
		result.Summary.TotalScrap += batch.ScrapParts
	}
	result.Summary.BatchesCount = len(result.AssignedBatches)
	if result.Summary.TotalProduced > 0 {
		result.Summary.QualityRate = round2(
			float64(result.Summary.TotalGoodParts) / float64(result.Summary.TotalProduced) * 100)
	}
	return result, nil
}
