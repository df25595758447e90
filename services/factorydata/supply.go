// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factorydata

// Supplier is one vendor in the supply-chain catalog.
//
// # Fields
//
//   - QualityMetrics: Named ratings on a 0 to 100 scale, typically
//     quality_rating, on_time_delivery_rate, and defect_rate.
//   - Status: "Active", "OnHold", or "Suspended".
type Supplier struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	MaterialsSupplied []string           `json:"materials_supplied,omitempty"`
	Contact           map[string]string  `json:"contact,omitempty"`
	QualityMetrics    map[string]float64 `json:"quality_metrics,omitempty"`
	Certifications    []string           `json:"certifications,omitempty"`
	Status            string             `json:"status"`
}

// MaterialLot is one received batch of material, the unit of supply-chain
// traceability. Lot numbers link production batches back to suppliers.
type MaterialLot struct {
	LotNumber         string            `json:"lot_number"`
	MaterialID        string            `json:"material_id"`
	SupplierID        string            `json:"supplier_id"`
	ReceivedDate      string            `json:"received_date"`
	QuantityReceived  float64           `json:"quantity_received"`
	QuantityRemaining float64           `json:"quantity_remaining"`
	InspectionResults map[string]string `json:"inspection_results,omitempty"`
	Status            string            `json:"status"`
	Quarantine        bool              `json:"quarantine"`
}

// OrderItem is one line of a customer order.
type OrderItem struct {
	PartNumber string  `json:"part_number"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Order is a customer order that production batches fulfill.
type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"order_number"`
	Customer     string      `json:"customer"`
	Items        []OrderItem `json:"items,omitempty"`
	DueDate      string      `json:"due_date"`
	Status       string      `json:"status"`
	Priority     string      `json:"priority"`
	ShippingDate string      `json:"shipping_date,omitempty"`
	TotalValue   float64     `json:"total_value"`
}

// MaterialUsage records one material consumed by a production batch. The
// name and unit are denormalized onto the usage so a batch reads on its
// own without the material catalog.
type MaterialUsage struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	LotNumber    string  `json:"lot_number"`
	QuantityUsed float64 `json:"quantity_used"`
	Unit         string  `json:"unit"`
}

// ProductionBatch is one production run with full traceability: the
// machine, shift, and operator that made it, the material lots it
// consumed, and the order it fulfills.
type ProductionBatch struct {
	BatchID           string               `json:"batch_id"`
	Date              string               `json:"date"`
	MachineID         int                  `json:"machine_id"`
	MachineName       string               `json:"machine_name"`
	ShiftID           int                  `json:"shift_id"`
	ShiftName         string               `json:"shift_name"`
	OrderID           string               `json:"order_id,omitempty"`
	PartNumber        string               `json:"part_number"`
	Operator          string               `json:"operator"`
	PartsProduced     int                  `json:"parts_produced"`
	GoodParts         int                  `json:"good_parts"`
	ScrapParts        int                  `json:"scrap_parts"`
	SerialStart       int                  `json:"serial_start,omitempty"`
	SerialEnd         int                  `json:"serial_end,omitempty"`
	MaterialsConsumed []MaterialUsage      `json:"materials_consumed,omitempty"`
	QualityIssues     []QualityIssueRecord `json:"quality_issues,omitempty"`
	ProcessParameters map[string]float64   `json:"process_parameters,omitempty"`
	StartTime         string               `json:"start_time,omitempty"`
	EndTime           string               `json:"end_time,omitempty"`
	DurationHours     float64              `json:"duration_hours,omitempty"`
}
