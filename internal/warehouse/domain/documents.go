package domain

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ItemCondition records the state goods arrive in. Anything other than
// "new" redirects the receipt to the repair-center bin and spawns a
// return order.
type ItemCondition string

const (
	ConditionNew       ItemCondition = "new"
	ConditionUsed      ItemCondition = "used"
	ConditionDamaged   ItemCondition = "damaged"
	ConditionDefective ItemCondition = "defective"
)

// IsNew reports whether the goods arrived unused and undamaged.
func (c ItemCondition) IsNew() bool {
	return c == ConditionNew || c == ""
}

// ReceiptSource says where a goods receipt originates.
type ReceiptSource string

const (
	SourceSupplier   ReceiptSource = "supplier"
	SourceTechnician ReceiptSource = "technician"
	SourceOther      ReceiptSource = "other"
)

// GoodsReceipt books stock into the warehouse.
type GoodsReceipt struct {
	ID            string         `db:"id" json:"id"`
	ReceiptNumber string         `db:"receipt_number" json:"receipt_number"`
	Source        ReceiptSource  `db:"source" json:"source"`
	Status        DocumentStatus `db:"status" json:"status"`
	Notes         *string        `db:"notes" json:"notes,omitempty"`
	CreatedBy     string         `db:"created_by" json:"created_by"`
	CompletedBy   *string        `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`

	Items []*GoodsReceiptItem `db:"-" json:"items,omitempty"`
}

// GoodsReceiptItem is one line of a goods receipt.
type GoodsReceiptItem struct {
	ID                  string           `db:"id" json:"id"`
	GoodsReceiptID      string           `db:"goods_receipt_id" json:"goods_receipt_id"`
	Position            int              `db:"position" json:"position"`
	ProductID           string           `db:"product_id" json:"product_id"`
	ExpectedQuantity    *decimal.Decimal `db:"expected_quantity" json:"expected_quantity,omitempty"`
	ReceivedQuantity    decimal.Decimal  `db:"received_quantity" json:"received_quantity"`
	Unit                string           `db:"unit" json:"unit"`
	TargetBinID         *string          `db:"target_bin_id" json:"target_bin_id,omitempty"`
	BatchNumber         *string          `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate          *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	ManufacturedAt      *time.Time       `db:"manufactured_at" json:"manufactured_at,omitempty"`
	SerialNumbers       pq.StringArray   `db:"serial_numbers" json:"serial_numbers,omitempty"`
	Condition           ItemCondition    `db:"condition" json:"condition"`
	PurchaseOrderItemID *string          `db:"purchase_order_item_id" json:"purchase_order_item_id,omitempty"`
}

// GoodsIssue books stock out of the warehouse.
type GoodsIssue struct {
	ID          string         `db:"id" json:"id"`
	IssueNumber string         `db:"issue_number" json:"issue_number"`
	Status      DocumentStatus `db:"status" json:"status"`
	Reason      *string        `db:"reason" json:"reason,omitempty"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	CompletedBy *string        `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`

	Items []*GoodsIssueItem `db:"-" json:"items,omitempty"`
}

// GoodsIssueItem is one line of a goods issue. IssuedQuantity overrides
// RequestedQuantity when set and positive.
type GoodsIssueItem struct {
	ID                string           `db:"id" json:"id"`
	GoodsIssueID      string           `db:"goods_issue_id" json:"goods_issue_id"`
	Position          int              `db:"position" json:"position"`
	ProductID         string           `db:"product_id" json:"product_id"`
	RequestedQuantity decimal.Decimal  `db:"requested_quantity" json:"requested_quantity"`
	IssuedQuantity    *decimal.Decimal `db:"issued_quantity" json:"issued_quantity,omitempty"`
	Unit              string           `db:"unit" json:"unit"`
	SourceBinID       string           `db:"source_bin_id" json:"source_bin_id"`
	BatchNumber       *string          `db:"batch_number" json:"batch_number,omitempty"`
	UseFEFO           bool             `db:"use_fefo" json:"use_fefo"`
	SerialNumbers     pq.StringArray   `db:"serial_numbers" json:"serial_numbers,omitempty"`
}

// EffectiveQuantity returns issued_quantity when set and positive,
// otherwise the requested quantity.
func (i *GoodsIssueItem) EffectiveQuantity() decimal.Decimal {
	if i.IssuedQuantity != nil && i.IssuedQuantity.IsPositive() {
		return *i.IssuedQuantity
	}
	return i.RequestedQuantity
}

// StockTransfer moves stock between two bins of the same warehouse.
type StockTransfer struct {
	ID             string         `db:"id" json:"id"`
	TransferNumber string         `db:"transfer_number" json:"transfer_number"`
	Status         DocumentStatus `db:"status" json:"status"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	CompletedBy    *string        `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt    *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	Items []*StockTransferItem `db:"-" json:"items,omitempty"`
}

// StockTransferItem is one line of an intra-warehouse transfer.
// FromBinID and ToBinID must differ.
type StockTransferItem struct {
	ID              string          `db:"id" json:"id"`
	StockTransferID string          `db:"stock_transfer_id" json:"stock_transfer_id"`
	Position        int             `db:"position" json:"position"`
	ProductID       string          `db:"product_id" json:"product_id"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	Unit            string          `db:"unit" json:"unit"`
	FromBinID       string          `db:"from_bin_id" json:"from_bin_id"`
	ToBinID         string          `db:"to_bin_id" json:"to_bin_id"`
	BatchNumber     *string         `db:"batch_number" json:"batch_number,omitempty"`
	UseFEFO         bool            `db:"use_fefo" json:"use_fefo"`
	SerialNumbers   pq.StringArray  `db:"serial_numbers" json:"serial_numbers,omitempty"`
}

// WarehouseTransfer moves stock between two warehouses in two phases:
// dispatch takes the goods out of the source, receive books them into the
// target. A transfer may stay dispatched indefinitely while goods are in
// transit.
type WarehouseTransfer struct {
	ID                string         `db:"id" json:"id"`
	TransferNumber    string         `db:"transfer_number" json:"transfer_number"`
	SourceWarehouseID string         `db:"source_warehouse_id" json:"source_warehouse_id"`
	TargetWarehouseID string         `db:"target_warehouse_id" json:"target_warehouse_id"`
	Status            DocumentStatus `db:"status" json:"status"`
	Notes             *string        `db:"notes" json:"notes,omitempty"`
	CreatedBy         string         `db:"created_by" json:"created_by"`
	DispatchedBy      *string        `db:"dispatched_by" json:"dispatched_by,omitempty"`
	DispatchedAt      *time.Time     `db:"dispatched_at" json:"dispatched_at,omitempty"`
	ReceivedBy        *string        `db:"received_by" json:"received_by,omitempty"`
	ReceivedAt        *time.Time     `db:"received_at" json:"received_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`

	Items []*WarehouseTransferItem `db:"-" json:"items,omitempty"`
}

// WarehouseTransferItem is one line of an inter-warehouse transfer.
type WarehouseTransferItem struct {
	ID                  string          `db:"id" json:"id"`
	WarehouseTransferID string          `db:"warehouse_transfer_id" json:"warehouse_transfer_id"`
	Position            int             `db:"position" json:"position"`
	ProductID           string          `db:"product_id" json:"product_id"`
	RequestedQuantity   decimal.Decimal `db:"requested_quantity" json:"requested_quantity"`
	DispatchedQuantity  decimal.Decimal `db:"dispatched_quantity" json:"dispatched_quantity"`
	Unit                string          `db:"unit" json:"unit"`
	FromBinID           string          `db:"from_bin_id" json:"from_bin_id"`
	ToBinID             string          `db:"to_bin_id" json:"to_bin_id"`
	BatchNumber         *string         `db:"batch_number" json:"batch_number,omitempty"`
	// Batch dates are copied from the source batch at dispatch so the
	// receive phase can recreate the batch at the target warehouse.
	ExpiryDate     *time.Time     `db:"expiry_date" json:"expiry_date,omitempty"`
	ManufacturedAt *time.Time     `db:"manufactured_at" json:"manufactured_at,omitempty"`
	SerialNumbers  pq.StringArray `db:"serial_numbers" json:"serial_numbers,omitempty"`
}

// ReceiveQuantity returns the quantity to credit at the target: what was
// dispatched, falling back to the requested quantity when dispatch
// recorded zero.
func (i *WarehouseTransferItem) ReceiveQuantity() decimal.Decimal {
	if i.DispatchedQuantity.IsPositive() {
		return i.DispatchedQuantity
	}
	return i.RequestedQuantity
}

// ReturnDecision is the disposition chosen for a returned item.
type ReturnDecision string

const (
	DecisionRepair  ReturnDecision = "repair"
	DecisionRestock ReturnDecision = "restock"
	DecisionScrap   ReturnDecision = "scrap"
)

// ReturnOrder collects returned goods awaiting disposition.
type ReturnOrder struct {
	ID          string         `db:"id" json:"id"`
	OrderNumber string         `db:"order_number" json:"order_number"`
	SourceType  ReceiptSource  `db:"source_type" json:"source_type"`
	Status      DocumentStatus `db:"status" json:"status"`
	Notes       *string        `db:"notes" json:"notes,omitempty"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	ProcessedBy *string        `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`

	Items []*ReturnOrderItem `db:"-" json:"items,omitempty"`
}

// ReturnOrderItem is one returned unit or quantity with its disposition.
// RepairState is only set while the decision is repair and the item is on
// its round trip to the external provider.
type ReturnOrderItem struct {
	ID                 string               `db:"id" json:"id"`
	ReturnOrderID      string               `db:"return_order_id" json:"return_order_id"`
	Position           int                  `db:"position" json:"position"`
	ProductID          string               `db:"product_id" json:"product_id"`
	Quantity           decimal.Decimal      `db:"quantity" json:"quantity"`
	Unit               string               `db:"unit" json:"unit"`
	TargetBinID        string               `db:"target_bin_id" json:"target_bin_id"`
	Decision           ReturnDecision       `db:"decision" json:"decision"`
	SerialNumber       *string              `db:"serial_number" json:"serial_number,omitempty"`
	BatchNumber        *string              `db:"batch_number" json:"batch_number,omitempty"`
	RepairState        *ExternalRepairState `db:"repair_state" json:"repair_state,omitempty"`
	GoodsReceiptItemID *string              `db:"goods_receipt_item_id" json:"goods_receipt_item_id,omitempty"`
}

// Stocktake is a counted inventory snapshot whose completion posts one
// adjustment movement per discrepancy.
type Stocktake struct {
	ID              string         `db:"id" json:"id"`
	StocktakeNumber string         `db:"stocktake_number" json:"stocktake_number"`
	WarehouseID     string         `db:"warehouse_id" json:"warehouse_id"`
	Status          DocumentStatus `db:"status" json:"status"`
	Notes           *string        `db:"notes" json:"notes,omitempty"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	CompletedBy     *string        `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt     *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	Items []*StocktakeItem `db:"-" json:"items,omitempty"`
}

// StocktakeItem is one counted (product, bin) pair.
type StocktakeItem struct {
	ID              string          `db:"id" json:"id"`
	StocktakeID     string          `db:"stocktake_id" json:"stocktake_id"`
	Position        int             `db:"position" json:"position"`
	ProductID       string          `db:"product_id" json:"product_id"`
	BinLocationID   string          `db:"bin_location_id" json:"bin_location_id"`
	CountedQuantity decimal.Decimal `db:"counted_quantity" json:"counted_quantity"`
	Unit            string          `db:"unit" json:"unit"`
}
