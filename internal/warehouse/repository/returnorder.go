package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// ReturnOrderRepository handles return orders and their disposition lines.
type ReturnOrderRepository struct {
	q database.Queryer
}

// NewReturnOrderRepository creates a new return order repository.
func NewReturnOrderRepository(q database.Queryer) *ReturnOrderRepository {
	return &ReturnOrderRepository{q: q}
}

// Create inserts the return order and its items as one draft document.
func (r *ReturnOrderRepository) Create(ctx context.Context, ro *domain.ReturnOrder) error {
	if ro.ID == "" {
		ro.ID = uuid.New().String()
	}
	if ro.OrderNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "return_order_number_seq", "RO")
		if err != nil {
			return err
		}
		ro.OrderNumber = number
	}
	if ro.Status == "" {
		ro.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO return_orders (id, order_number, source_type, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		ro.ID, ro.OrderNumber, ro.SourceType, ro.Status, ro.Notes, ro.CreatedBy,
	).Scan(&ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range ro.Items {
		item.ReturnOrderID = ro.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReturnOrderRepository) insertItem(ctx context.Context, item *domain.ReturnOrderItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO return_order_items (
			id, return_order_id, position, product_id, quantity, unit,
			target_bin_id, decision, serial_number, batch_number,
			repair_state, goods_receipt_item_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.ReturnOrderID, item.Position, item.ProductID, item.Quantity,
		item.Unit, item.TargetBinID, item.Decision, item.SerialNumber,
		item.BatchNumber, item.RepairState, item.GoodsReceiptItemID,
	)
	return database.MapPQError(err)
}

// GetByID loads a return order with its items.
func (r *ReturnOrderRepository) GetByID(ctx context.Context, id string) (*domain.ReturnOrder, error) {
	var ro domain.ReturnOrder
	if err := r.q.GetContext(ctx, &ro, `SELECT * FROM return_orders WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("return order")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &ro.Items,
		`SELECT * FROM return_order_items WHERE return_order_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &ro, nil
}

// GetForUpdate locks the return order header and loads its items.
func (r *ReturnOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.ReturnOrder, error) {
	var ro domain.ReturnOrder
	if err := r.q.GetContext(ctx, &ro, `SELECT * FROM return_orders WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("return order")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &ro.Items,
		`SELECT * FROM return_order_items WHERE return_order_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &ro, nil
}

// GetItemForUpdate locks one disposition line. Repair round trips update
// a single line at a time while the order stays processed.
func (r *ReturnOrderRepository) GetItemForUpdate(ctx context.Context, itemID string) (*domain.ReturnOrderItem, error) {
	var item domain.ReturnOrderItem
	if err := r.q.GetContext(ctx, &item,
		`SELECT * FROM return_order_items WHERE id = $1 FOR UPDATE`, itemID,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("return order item")
		}
		return nil, err
	}
	return &item, nil
}

// List returns return orders newest first, optionally filtered by status.
func (r *ReturnOrderRepository) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.ReturnOrder, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM return_orders WHERE ($1 = '' OR status = $1)`, status,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.ReturnOrder
	query := `
		SELECT * FROM return_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the return order from one status to another, guarded
// on the current status.
func (r *ReturnOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE return_orders
		SET status = $3,
		    processed_by = CASE WHEN $3 = 'processed' THEN $4 ELSE processed_by END,
		    processed_at = CASE WHEN $3 = 'processed' THEN NOW() ELSE processed_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.q.ExecContext(ctx, query, id, from, to, actorID)
	if err != nil {
		return database.MapPQError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("return order status changed concurrently")
	}
	return nil
}

// SetItemDecision records the disposition chosen for a line during
// review.
func (r *ReturnOrderRepository) SetItemDecision(ctx context.Context, itemID string, decision domain.ReturnDecision) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE return_order_items SET decision = $2 WHERE id = $1`, itemID, decision,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "return order item")
}

// SetItemRepairState advances a repair line's round-trip state. A nil
// state clears the field once the round trip is finished.
func (r *ReturnOrderRepository) SetItemRepairState(ctx context.Context, itemID string, state *domain.ExternalRepairState) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE return_order_items SET repair_state = $2 WHERE id = $1`, itemID, state,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "return order item")
}

// ReplaceItems rewrites a draft return order's lines.
func (r *ReturnOrderRepository) ReplaceItems(ctx context.Context, ro *domain.ReturnOrder) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM return_order_items WHERE return_order_id = $1`, ro.ID,
	); err != nil {
		return err
	}
	for i, item := range ro.Items {
		item.ReturnOrderID = ro.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE return_orders SET notes = $2, updated_at = NOW() WHERE id = $1`, ro.ID, ro.Notes,
	)
	return err
}
