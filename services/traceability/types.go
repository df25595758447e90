// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traceability

import "github.com/AleutianAI/AleutianFactory/services/factorydata"

// BatchFilter narrows a batch listing. Zero values mean no filter; a zero
// Limit falls back to DefaultBatchLimit.
type BatchFilter struct {
	MachineID int
	StartDate string
	EndDate   string
	OrderID   string
	Limit     int
}

// AffectedBatch is one production batch touched by a supplier's material,
// reduced to the fields an impact report needs.
type AffectedBatch struct {
	BatchID           string                      `json:"batch_id"`
	Date              string                      `json:"date"`
	MachineName       string                      `json:"machine_name"`
	PartsProduced     int                         `json:"parts_produced"`
	ScrapParts        int                         `json:"scrap_parts"`
	OrderID           string                      `json:"order_id,omitempty"`
	MaterialsConsumed []factorydata.MaterialUsage `json:"materials_consumed,omitempty"`
}

// BatchDefects counts the defects one affected batch contributed.
type BatchDefects struct {
	BatchID     string   `json:"batch_id"`
	Date        string   `json:"date"`
	DefectCount int      `json:"defect_count"`
	DefectTypes []string `json:"defect_types,omitempty"`
}

// SupplierImpact is the forward-looking quality analysis for one supplier:
// which batches consumed its material lots and what they scrapped.
type SupplierImpact struct {
	Supplier             factorydata.Supplier      `json:"supplier"`
	MaterialLotsSupplied int                       `json:"material_lots_supplied"`
	AffectedBatchCount   int                       `json:"affected_batches_count"`
	QualityIssueCount    int                       `json:"quality_issues_count"`
	TotalDefects         int                       `json:"total_defects"`
	EstimatedCostImpact  float64                   `json:"estimated_cost_impact"`
	MaterialLots         []factorydata.MaterialLot `json:"material_lots"`
	AffectedBatches      []AffectedBatch           `json:"affected_batches"`
	QualityIssues        []BatchDefects            `json:"quality_issues"`
}

// MaterialTrace is one step of a backward trace: a consumed material, the
// lot it came from, and the supplier that shipped the lot.
type MaterialTrace struct {
	MaterialID   string                    `json:"material_id"`
	MaterialName string                    `json:"material_name"`
	QuantityUsed float64                   `json:"quantity_used"`
	Unit         string                    `json:"unit"`
	LotNumber    string                    `json:"lot_number"`
	LotDetails   *factorydata.MaterialLot  `json:"lot_details,omitempty"`
	SupplierID   string                    `json:"supplier_id,omitempty"`
	Supplier     *factorydata.Supplier     `json:"supplier,omitempty"`
}

// SupplyChainSummary condenses a backward trace into headline numbers.
type SupplyChainSummary struct {
	MaterialsCount     int     `json:"materials_count"`
	SuppliersCount     int     `json:"suppliers_count"`
	TotalPartsProduced int     `json:"total_parts_produced"`
	ScrapParts         int     `json:"scrap_parts"`
	QualityRate        float64 `json:"quality_rate"`
}

// BackwardTrace answers "where did these parts come from" for one batch.
type BackwardTrace struct {
	Batch          factorydata.ProductionBatch `json:"batch"`
	MaterialsTrace []MaterialTrace             `json:"materials_trace"`
	Suppliers      []factorydata.Supplier      `json:"suppliers"`
	Summary        SupplyChainSummary          `json:"supply_chain_summary"`
}

// ImpactSummary condenses a forward trace into headline numbers.
type ImpactSummary struct {
	BatchesAffected     int     `json:"batches_affected"`
	QualityIssuesCount  int     `json:"quality_issues_count"`
	TotalDefects        int     `json:"total_defects"`
	OrdersAffected      int     `json:"orders_affected"`
	EstimatedCostImpact float64 `json:"estimated_cost_impact"`
}

// ForwardTrace answers "what was affected by this supplier": every batch
// that consumed its lots and every customer order those batches fulfill.
type ForwardTrace struct {
	Supplier             factorydata.Supplier `json:"supplier"`
	MaterialLotsSupplied int                  `json:"material_lots_supplied"`
	AffectedBatches      []AffectedBatch      `json:"affected_batches"`
	QualityIssues        []BatchDefects       `json:"quality_issues"`
	AffectedOrders       []factorydata.Order  `json:"affected_orders"`
	Impact               ImpactSummary        `json:"impact_summary"`
}

// ProductionSummary totals the batches assigned to one order.
type ProductionSummary struct {
	BatchesCount   int     `json:"batches_count"`
	TotalProduced  int     `json:"total_produced"`
	TotalGoodParts int     `json:"total_good_parts"`
	TotalScrap     int     `json:"total_scrap"`
	QualityRate    float64 `json:"quality_rate"`
}

// OrderProduction links one customer order to the batches fulfilling it.
type OrderProduction struct {
	Order           factorydata.Order             `json:"order"`
	AssignedBatches []factorydata.ProductionBatch `json:"assigned_batches"`
	Summary         ProductionSummary             `json:"production_summary"`
}
