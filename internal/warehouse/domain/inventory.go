package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Inventory is the on-hand balance for one product at one bin. Rows are
// created lazily on the first movement into a bin and are unique per
// (product, bin). quantity and reserved_quantity never go negative;
// available stock is quantity minus reserved.
type Inventory struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	BinLocationID    string          `db:"bin_location_id" json:"bin_location_id"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	ReservedQuantity decimal.Decimal `db:"reserved_quantity" json:"reserved_quantity"`
	Unit             string          `db:"unit" json:"unit"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Available returns the quantity not held by reservations.
func (i *Inventory) Available() decimal.Decimal {
	return i.Quantity.Sub(i.ReservedQuantity)
}

// InventoryBatch is a dated sub-quantity of a product at a bin, unique per
// (product, bin, batch_number). The sum of batch quantities at a bin never
// exceeds the inventory quantity there; un-batched stock may coexist.
type InventoryBatch struct {
	ID             string          `db:"id" json:"id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	BinLocationID  string          `db:"bin_location_id" json:"bin_location_id"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	Unit           string          `db:"unit" json:"unit"`
	ExpiryDate     *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	ManufacturedAt *time.Time      `db:"manufactured_at" json:"manufactured_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// FEFOLess orders batches for first-expired-first-out picking: dated
// batches before undated ones, earlier expiry first, batch id as the
// final tie-break.
func FEFOLess(a, b *InventoryBatch) bool {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate == nil:
		return a.ID < b.ID
	case a.ExpiryDate == nil:
		return false
	case b.ExpiryDate == nil:
		return true
	case a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ID < b.ID
	default:
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
}

// SortFEFO sorts batches in FEFO picking order, in place.
func SortFEFO(batches []*InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return FEFOLess(batches[i], batches[j])
	})
}
