package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// PurchaseOrderRepository reads purchase orders for receipt reconciliation
// and writes the drafts the alert scanner creates.
type PurchaseOrderRepository struct {
	q database.Queryer
}

// NewPurchaseOrderRepository creates a new purchase order repository.
func NewPurchaseOrderRepository(q database.Queryer) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{q: q}
}

// GetByID loads an order with its items.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*domain.PurchaseOrder, []*domain.PurchaseOrderItem, error) {
	var po domain.PurchaseOrder
	if err := r.q.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, errors.NotFound("purchase order")
		}
		return nil, nil, err
	}
	var items []*domain.PurchaseOrderItem
	if err := r.q.SelectContext(ctx, &items,
		`SELECT * FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`, id,
	); err != nil {
		return nil, nil, err
	}
	return &po, items, nil
}

// GetItemForUpdate locks one order line for over-receipt checking.
func (r *PurchaseOrderRepository) GetItemForUpdate(ctx context.Context, itemID string) (*domain.PurchaseOrderItem, error) {
	var item domain.PurchaseOrderItem
	if err := r.q.GetContext(ctx, &item,
		`SELECT * FROM purchase_order_items WHERE id = $1 FOR UPDATE`, itemID,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase order item")
		}
		return nil, err
	}
	return &item, nil
}

// GetOrderForUpdate locks the order header.
func (r *PurchaseOrderRepository) GetOrderForUpdate(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	if err := r.q.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase order")
		}
		return nil, err
	}
	return &po, nil
}

// AddReceived adds qty to a line's received quantity.
func (r *PurchaseOrderRepository) AddReceived(ctx context.Context, itemID string, qty decimal.Decimal) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE purchase_order_items SET received_quantity = received_quantity + $2 WHERE id = $1`,
		itemID, qty,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "purchase order item")
}

// FullyReceived reports whether every line of the order has received at
// least its ordered quantity.
func (r *PurchaseOrderRepository) FullyReceived(ctx context.Context, orderID string) (bool, error) {
	var pending int
	query := `
		SELECT COUNT(*) FROM purchase_order_items
		WHERE purchase_order_id = $1 AND received_quantity < ordered_quantity
	`
	if err := r.q.GetContext(ctx, &pending, query, orderID); err != nil {
		return false, err
	}
	return pending == 0, nil
}

// SetStatus writes the order status.
func (r *PurchaseOrderRepository) SetStatus(ctx context.Context, id string, status domain.PurchaseOrderStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "purchase order")
}

// CreateDraft inserts a draft replenishment order with one line.
func (r *PurchaseOrderRepository) CreateDraft(ctx context.Context, po *domain.PurchaseOrder, item *domain.PurchaseOrderItem) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	if po.OrderNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "purchase_order_number_seq", "PO")
		if err != nil {
			return err
		}
		po.OrderNumber = number
	}
	po.Status = domain.POStatusDraft

	query := `
		INSERT INTO purchase_orders (id, order_number, supplier_id, status, supplier_confirmed, created_by)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		po.ID, po.OrderNumber, po.SupplierID, po.Status, po.CreatedBy,
	).Scan(&po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.PurchaseOrderID = po.ID
	itemQuery := `
		INSERT INTO purchase_order_items (id, purchase_order_id, product_id, ordered_quantity, received_quantity, unit)
		VALUES ($1, $2, $3, $4, 0, $5)
	`
	_, err = r.q.ExecContext(ctx, itemQuery,
		item.ID, item.PurchaseOrderID, item.ProductID, item.OrderedQuantity, item.Unit,
	)
	return database.MapPQError(err)
}

// OpenOrderQuantity sums the not-yet-received quantity for a product
// across every order that can still deliver: drafts plus receivable
// statuses. Low-stock replenishment subtracts this from the deficit so
// scans do not pile up orders for stock that is already on its way.
func (r *PurchaseOrderRepository) OpenOrderQuantity(ctx context.Context, productID string) (decimal.Decimal, error) {
	var qty decimal.Decimal
	query := `
		SELECT COALESCE(SUM(poi.ordered_quantity - poi.received_quantity), 0)
		FROM purchase_order_items poi
		JOIN purchase_orders po ON po.id = poi.purchase_order_id
		WHERE poi.product_id = $1
		  AND po.status IN ('draft', 'ordered', 'confirmed', 'partially_received')
	`
	if err := r.q.GetContext(ctx, &qty, query, productID); err != nil {
		return decimal.Zero, err
	}
	return qty, nil
}

// PreferredSupplier returns the preferred supplier relation for a
// product, or nil when none is configured.
func (r *PurchaseOrderRepository) PreferredSupplier(ctx context.Context, productID string) (*domain.SupplierProduct, error) {
	var sp domain.SupplierProduct
	query := `
		SELECT * FROM supplier_products
		WHERE product_id = $1
		ORDER BY is_preferred DESC, id
		LIMIT 1
	`
	if err := r.q.GetContext(ctx, &sp, query, productID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sp, nil
}
