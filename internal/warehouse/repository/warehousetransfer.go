package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// WarehouseTransferRepository handles two-phase inter-warehouse transfer
// documents.
type WarehouseTransferRepository struct {
	q database.Queryer
}

// NewWarehouseTransferRepository creates a new warehouse transfer
// repository.
func NewWarehouseTransferRepository(q database.Queryer) *WarehouseTransferRepository {
	return &WarehouseTransferRepository{q: q}
}

// Create inserts the transfer header and its items as one draft document.
func (r *WarehouseTransferRepository) Create(ctx context.Context, wt *domain.WarehouseTransfer) error {
	if wt.ID == "" {
		wt.ID = uuid.New().String()
	}
	if wt.TransferNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "warehouse_transfer_number_seq", "WT")
		if err != nil {
			return err
		}
		wt.TransferNumber = number
	}
	if wt.Status == "" {
		wt.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO warehouse_transfers (
			id, transfer_number, source_warehouse_id, target_warehouse_id,
			status, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		wt.ID, wt.TransferNumber, wt.SourceWarehouseID, wt.TargetWarehouseID,
		wt.Status, wt.Notes, wt.CreatedBy,
	).Scan(&wt.CreatedAt, &wt.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range wt.Items {
		item.WarehouseTransferID = wt.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *WarehouseTransferRepository) insertItem(ctx context.Context, item *domain.WarehouseTransferItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO warehouse_transfer_items (
			id, warehouse_transfer_id, position, product_id, requested_quantity,
			dispatched_quantity, unit, from_bin_id, to_bin_id, batch_number,
			expiry_date, manufactured_at, serial_numbers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.WarehouseTransferID, item.Position, item.ProductID,
		item.RequestedQuantity, item.DispatchedQuantity, item.Unit,
		item.FromBinID, item.ToBinID, item.BatchNumber,
		item.ExpiryDate, item.ManufacturedAt, item.SerialNumbers,
	)
	return database.MapPQError(err)
}

// GetByID loads a transfer with its items.
func (r *WarehouseTransferRepository) GetByID(ctx context.Context, id string) (*domain.WarehouseTransfer, error) {
	var wt domain.WarehouseTransfer
	if err := r.q.GetContext(ctx, &wt, `SELECT * FROM warehouse_transfers WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("warehouse transfer")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &wt.Items,
		`SELECT * FROM warehouse_transfer_items WHERE warehouse_transfer_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &wt, nil
}

// GetForUpdate locks the transfer header and loads its items.
func (r *WarehouseTransferRepository) GetForUpdate(ctx context.Context, id string) (*domain.WarehouseTransfer, error) {
	var wt domain.WarehouseTransfer
	if err := r.q.GetContext(ctx, &wt, `SELECT * FROM warehouse_transfers WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("warehouse transfer")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &wt.Items,
		`SELECT * FROM warehouse_transfer_items WHERE warehouse_transfer_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &wt, nil
}

// List returns transfers newest first, optionally filtered by status and
// by source or target warehouse.
func (r *WarehouseTransferRepository) List(ctx context.Context, status domain.DocumentStatus, warehouseID string, limit, offset int) ([]*domain.WarehouseTransfer, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR source_warehouse_id = $2::uuid OR target_warehouse_id = $2::uuid)
	`

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM warehouse_transfers`+where, status, warehouseID,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.WarehouseTransfer
	query := `SELECT * FROM warehouse_transfers` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, warehouseID, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the transfer from one status to another, stamping
// dispatch and receive audit fields as the status passes through them.
func (r *WarehouseTransferRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE warehouse_transfers
		SET status = $3,
		    dispatched_by = CASE WHEN $3 = 'dispatched' THEN $4 ELSE dispatched_by END,
		    dispatched_at = CASE WHEN $3 = 'dispatched' THEN NOW() ELSE dispatched_at END,
		    received_by = CASE WHEN $3 = 'received' THEN $4 ELSE received_by END,
		    received_at = CASE WHEN $3 = 'received' THEN NOW() ELSE received_at END,
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
		return errors.Conflict("warehouse transfer status changed concurrently")
	}
	return nil
}

// RecordDispatch stores what dispatch actually took for a line, together
// with the batch dates the receive phase will recreate at the target.
func (r *WarehouseTransferRepository) RecordDispatch(ctx context.Context, itemID string, qty decimal.Decimal, expiry, manufactured *time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE warehouse_transfer_items SET dispatched_quantity = $2, expiry_date = $3, manufactured_at = $4 WHERE id = $1`,
		itemID, qty, expiry, manufactured,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "warehouse transfer item")
}

// ReplaceItems rewrites a draft transfer's lines.
func (r *WarehouseTransferRepository) ReplaceItems(ctx context.Context, wt *domain.WarehouseTransfer) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM warehouse_transfer_items WHERE warehouse_transfer_id = $1`, wt.ID,
	); err != nil {
		return err
	}
	for i, item := range wt.Items {
		item.WarehouseTransferID = wt.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE warehouse_transfers SET notes = $2, updated_at = NOW() WHERE id = $1`, wt.ID, wt.Notes,
	)
	return err
}
