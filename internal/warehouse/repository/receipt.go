package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// ReceiptRepository handles goods receipt documents and their lines.
type ReceiptRepository struct {
	q database.Queryer
}

// NewReceiptRepository creates a new receipt repository.
func NewReceiptRepository(q database.Queryer) *ReceiptRepository {
	return &ReceiptRepository{q: q}
}

// Create inserts the receipt header and its items as one draft document.
func (r *ReceiptRepository) Create(ctx context.Context, gr *domain.GoodsReceipt) error {
	if gr.ID == "" {
		gr.ID = uuid.New().String()
	}
	if gr.ReceiptNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "goods_receipt_number_seq", "GR")
		if err != nil {
			return err
		}
		gr.ReceiptNumber = number
	}
	if gr.Status == "" {
		gr.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO goods_receipts (id, receipt_number, source, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		gr.ID, gr.ReceiptNumber, gr.Source, gr.Status, gr.Notes, gr.CreatedBy,
	).Scan(&gr.CreatedAt, &gr.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range gr.Items {
		item.GoodsReceiptID = gr.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReceiptRepository) insertItem(ctx context.Context, item *domain.GoodsReceiptItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Condition == "" {
		item.Condition = domain.ConditionNew
	}
	query := `
		INSERT INTO goods_receipt_items (
			id, goods_receipt_id, position, product_id, expected_quantity,
			received_quantity, unit, target_bin_id, batch_number, expiry_date,
			manufactured_at, serial_numbers, condition, purchase_order_item_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.GoodsReceiptID, item.Position, item.ProductID, item.ExpectedQuantity,
		item.ReceivedQuantity, item.Unit, item.TargetBinID, item.BatchNumber, item.ExpiryDate,
		item.ManufacturedAt, item.SerialNumbers, item.Condition, item.PurchaseOrderItemID,
	)
	return database.MapPQError(err)
}

// GetByID loads a receipt with its items.
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*domain.GoodsReceipt, error) {
	var gr domain.GoodsReceipt
	if err := r.q.GetContext(ctx, &gr, `SELECT * FROM goods_receipts WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("goods receipt")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &gr.Items,
		`SELECT * FROM goods_receipt_items WHERE goods_receipt_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &gr, nil
}

// GetForUpdate locks the receipt header and loads its items. Completion
// runs through this so two committers serialize on the row lock.
func (r *ReceiptRepository) GetForUpdate(ctx context.Context, id string) (*domain.GoodsReceipt, error) {
	var gr domain.GoodsReceipt
	if err := r.q.GetContext(ctx, &gr, `SELECT * FROM goods_receipts WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("goods receipt")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &gr.Items,
		`SELECT * FROM goods_receipt_items WHERE goods_receipt_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &gr, nil
}

// List returns receipts newest first, optionally filtered by status, with
// a total count for pagination.
func (r *ReceiptRepository) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.GoodsReceipt, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM goods_receipts WHERE ($1 = '' OR status = $1)`, status,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.GoodsReceipt
	query := `
		SELECT * FROM goods_receipts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the receipt from one status to another. The guard on
// the current status makes concurrent transitions lose cleanly.
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE goods_receipts
		SET status = $3,
		    completed_by = CASE WHEN $3 = 'completed' THEN $4 ELSE completed_by END,
		    completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END,
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
		return errors.Conflict("goods receipt status changed concurrently")
	}
	return nil
}

// ReplaceItems rewrites a draft receipt's lines.
func (r *ReceiptRepository) ReplaceItems(ctx context.Context, gr *domain.GoodsReceipt) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM goods_receipt_items WHERE goods_receipt_id = $1`, gr.ID,
	); err != nil {
		return err
	}
	for i, item := range gr.Items {
		item.GoodsReceiptID = gr.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE goods_receipts SET notes = $2, updated_at = NOW() WHERE id = $1`, gr.ID, gr.Notes,
	)
	return err
}
