package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the locally cached slice of catalog master data. The catalog
// service owns products; this cache is kept current by the catalog event
// consumer and read by the workflows.
type Product struct {
	ID                   string    `db:"id" json:"id"`
	SKU                  string    `db:"sku" json:"sku"`
	Name                 string    `db:"name" json:"name"`
	Unit                 string    `db:"unit" json:"unit"`
	RequiresItemTracking bool      `db:"requires_item_tracking" json:"requires_item_tracking"`
	DefaultBinID         *string   `db:"default_bin_id" json:"default_bin_id,omitempty"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Warehouse master data (owned by an external collaborator, read here).
type Warehouse struct {
	ID       string `db:"id" json:"id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// ZoneType classifies a storage zone. The returns type marks zones whose
// bins serve as repair-center and external-provider locations.
type ZoneType string

const (
	ZoneStorage  ZoneType = "storage"
	ZoneInbound  ZoneType = "inbound"
	ZoneOutbound ZoneType = "outbound"
	ZoneReturns  ZoneType = "returns"
)

// StorageZone groups bins inside a warehouse.
type StorageZone struct {
	ID          string   `db:"id" json:"id"`
	WarehouseID string   `db:"warehouse_id" json:"warehouse_id"`
	Code        string   `db:"code" json:"code"`
	ZoneType    ZoneType `db:"zone_type" json:"zone_type"`
	IsActive    bool     `db:"is_active" json:"is_active"`
}

// BinLocation is the smallest addressable storage location.
type BinLocation struct {
	ID       string `db:"id" json:"id"`
	ZoneID   string `db:"zone_id" json:"zone_id"`
	Code     string `db:"code" json:"code"`
	IsActive bool   `db:"is_active" json:"is_active"`
	// WarehouseID is resolved through the zone when bins are loaded for
	// warehouse checks; it is not a column of the bins table.
	WarehouseID string `db:"warehouse_id" json:"warehouse_id,omitempty"`
}

// PurchaseOrderStatus mirrors the purchasing collaborator's state field as
// far as this service needs it.
type PurchaseOrderStatus string

const (
	POStatusDraft             PurchaseOrderStatus = "draft"
	POStatusOrdered           PurchaseOrderStatus = "ordered"
	POStatusConfirmed         PurchaseOrderStatus = "confirmed"
	POStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	POStatusCompleted         PurchaseOrderStatus = "completed"
	POStatusCancelled         PurchaseOrderStatus = "cancelled"
)

// Receivable reports whether goods may still be booked against the order.
func (s PurchaseOrderStatus) Receivable() bool {
	switch s {
	case POStatusOrdered, POStatusConfirmed, POStatusPartiallyReceived:
		return true
	default:
		return false
	}
}

// PurchaseOrder is the purchasing collaborator's order as far as receipt
// reconciliation and replenishment drafting need it.
type PurchaseOrder struct {
	ID                string              `db:"id" json:"id"`
	OrderNumber       string              `db:"order_number" json:"order_number"`
	SupplierID        *string             `db:"supplier_id" json:"supplier_id,omitempty"`
	Status            PurchaseOrderStatus `db:"status" json:"status"`
	SupplierConfirmed bool                `db:"supplier_confirmed" json:"supplier_confirmed"`
	CreatedBy         string              `db:"created_by" json:"created_by"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// PurchaseOrderItem is one line of a purchase order.
type PurchaseOrderItem struct {
	ID               string          `db:"id" json:"id"`
	PurchaseOrderID  string          `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	OrderedQuantity  decimal.Decimal `db:"ordered_quantity" json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `db:"received_quantity" json:"received_quantity"`
	Unit             string          `db:"unit" json:"unit"`
}

// Outstanding returns ordered minus received, floored at zero.
func (i *PurchaseOrderItem) Outstanding() decimal.Decimal {
	out := i.OrderedQuantity.Sub(i.ReceivedQuantity)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// SupplierProduct is the supplier relation for a product: who prefers to
// deliver it and in which order multiples.
type SupplierProduct struct {
	ID                   string          `db:"id" json:"id"`
	SupplierID           string          `db:"supplier_id" json:"supplier_id"`
	ProductID            string          `db:"product_id" json:"product_id"`
	MinimumOrderMultiple decimal.Decimal `db:"minimum_order_multiple" json:"minimum_order_multiple"`
	IsPreferred          bool            `db:"is_preferred" json:"is_preferred"`
}
