package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement row.
type MovementType string

const (
	MovementGoodsReceipt     MovementType = "goods_receipt"
	MovementGoodsIssue       MovementType = "goods_issue"
	MovementStockTransfer    MovementType = "stock_transfer"
	MovementDispatch         MovementType = "warehouse_dispatch"
	MovementReceive          MovementType = "warehouse_receive"
	MovementAdjustment       MovementType = "adjustment"
	MovementReturnRestock    MovementType = "return_restock"
	MovementReturnScrap      MovementType = "return_scrap"
	MovementRepairDispatch   MovementType = "repair_dispatch"
	MovementRepairReceive    MovementType = "repair_receive"
)

// ReferenceType names the document kind a movement points back to.
type ReferenceType string

const (
	RefGoodsReceipt      ReferenceType = "goods_receipt"
	RefGoodsIssue        ReferenceType = "goods_issue"
	RefStockTransfer     ReferenceType = "stock_transfer"
	RefWarehouseTransfer ReferenceType = "warehouse_transfer"
	RefReturnOrder       ReferenceType = "return_order"
	RefStocktake         ReferenceType = "stocktake"
)

// MovementMetadata is the typed payload stored on every movement row.
// One struct covers all movement kinds; unused fields stay empty and are
// omitted from the JSON. All ids, batch numbers, serials and condition
// information written by the workflows survive here for audit parity.
type MovementMetadata struct {
	DocumentItemID      string   `json:"document_item_id,omitempty"`
	PurchaseOrderItemID string   `json:"purchase_order_item_id,omitempty"`
	BatchNumber         string   `json:"batch_number,omitempty"`
	SerialNumbers       []string `json:"serial_numbers,omitempty"`
	Condition           string   `json:"condition,omitempty"`
	// OriginalBinID is set when a receipt was redirected to the repair
	// center; the effective bin is the movement's to_bin.
	OriginalBinID string `json:"original_bin_id,omitempty"`
	// CountedQuantity/ExpectedQuantity record stocktake discrepancies.
	CountedQuantity  string `json:"counted_quantity,omitempty"`
	ExpectedQuantity string `json:"expected_quantity,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Value implements driver.Valuer so the metadata lands in a JSONB column.
func (m MovementMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *MovementMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = MovementMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// StockMovement is one atomic, append-only balance change. Rows are never
// updated or deleted; the movement log is the system of record from which
// all current balances are derivable.
type StockMovement struct {
	ID              string           `db:"id" json:"id"`
	MovementType    MovementType     `db:"movement_type" json:"movement_type"`
	ReferenceType   ReferenceType    `db:"reference_type" json:"reference_type"`
	ReferenceNumber string           `db:"reference_number" json:"reference_number"`
	ProductID       string           `db:"product_id" json:"product_id"`
	FromBinID       *string          `db:"from_bin_id" json:"from_bin_id,omitempty"`
	ToBinID         *string          `db:"to_bin_id" json:"to_bin_id,omitempty"`
	Quantity        decimal.Decimal  `db:"quantity" json:"quantity"`
	Unit            string           `db:"unit" json:"unit"`
	PerformedBy     string           `db:"performed_by" json:"performed_by"`
	PerformedAt     time.Time        `db:"performed_at" json:"performed_at"`
	Metadata        MovementMetadata `db:"metadata" json:"metadata"`
}
