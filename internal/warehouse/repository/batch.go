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

// BatchRepository handles per-batch stock rows, keyed by product, bin and
// batch number.
type BatchRepository struct {
	q database.Queryer
}

// NewBatchRepository creates a new batch repository.
func NewBatchRepository(q database.Queryer) *BatchRepository {
	return &BatchRepository{q: q}
}

// GetByID gets a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.InventoryBatch, error) {
	var batch domain.InventoryBatch
	query := `SELECT * FROM inventory_batches WHERE id = $1`
	if err := r.q.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetOrCreateForUpdate locks the batch row for a batch number at a bin,
// creating it at zero quantity when missing. Expiry and manufacture dates
// are only written on creation; an existing batch keeps the dates it was
// first received with.
func (r *BatchRepository) GetOrCreateForUpdate(ctx context.Context, productID, binID, batchNumber, unit string, expiry, manufactured *time.Time) (*domain.InventoryBatch, error) {
	insert := `
		INSERT INTO inventory_batches (id, product_id, bin_location_id, batch_number, quantity, unit, expiry_date, manufactured_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
		ON CONFLICT (product_id, bin_location_id, batch_number) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, insert, uuid.New().String(), productID, binID, batchNumber, unit, expiry, manufactured); err != nil {
		return nil, database.MapPQError(err)
	}

	var batch domain.InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE product_id = $1 AND bin_location_id = $2 AND batch_number = $3
		FOR UPDATE
	`
	if err := r.q.GetContext(ctx, &batch, query, productID, binID, batchNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetForUpdate locks the batch row for a batch number at a bin without
// creating it.
func (r *BatchRepository) GetForUpdate(ctx context.Context, productID, binID, batchNumber string) (*domain.InventoryBatch, error) {
	var batch domain.InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE product_id = $1 AND bin_location_id = $2 AND batch_number = $3
		FOR UPDATE
	`
	if err := r.q.GetContext(ctx, &batch, query, productID, binID, batchNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// Credit adds qty to a batch.
func (r *BatchRepository) Credit(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE inventory_batches SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "batch")
}

// Debit subtracts qty from a batch. The quantity check constraint turns
// an overdraw into an insufficient-stock error.
func (r *BatchRepository) Debit(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE inventory_batches SET quantity = quantity - $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "batch")
}

// ListForPick locks and returns the non-empty batches for a product at a
// bin in first-expired-first-out order: dated batches before undated,
// earliest expiry first, creation order as the tiebreak.
func (r *BatchRepository) ListForPick(ctx context.Context, productID, binID string) ([]*domain.InventoryBatch, error) {
	var batches []*domain.InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE product_id = $1 AND bin_location_id = $2 AND quantity > 0
		ORDER BY expiry_date IS NULL, expiry_date, id
		FOR UPDATE
	`
	if err := r.q.SelectContext(ctx, &batches, query, productID, binID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListByProductAndBin lists all batches for a product at a bin, including
// empty ones.
func (r *BatchRepository) ListByProductAndBin(ctx context.Context, productID, binID string) ([]*domain.InventoryBatch, error) {
	var batches []*domain.InventoryBatch
	query := `
		SELECT * FROM inventory_batches
		WHERE product_id = $1 AND bin_location_id = $2
		ORDER BY expiry_date IS NULL, expiry_date, id
	`
	if err := r.q.SelectContext(ctx, &batches, query, productID, binID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ExpiringBatch is a non-empty batch with stock expiring soon, joined
// with its warehouse for alerting.
type ExpiringBatch struct {
	BatchID     string          `db:"batch_id"`
	BatchNumber string          `db:"batch_number"`
	ProductID   string          `db:"product_id"`
	WarehouseID string          `db:"warehouse_id"`
	ExpiryDate  time.Time       `db:"expiry_date"`
	Quantity    decimal.Decimal `db:"quantity"`
}

// ListExpiringWithin returns non-empty batches whose expiry date falls on
// or before the cutoff, scoped to a product or warehouse when set.
func (r *BatchRepository) ListExpiringWithin(ctx context.Context, cutoff time.Time, productID, warehouseID *string) ([]*ExpiringBatch, error) {
	var rows []*ExpiringBatch
	query := `
		SELECT ib.id AS batch_id, ib.batch_number, ib.product_id, z.warehouse_id,
		       ib.expiry_date, ib.quantity
		FROM inventory_batches ib
		JOIN bin_locations b ON b.id = ib.bin_location_id
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE ib.quantity > 0
		  AND ib.expiry_date IS NOT NULL
		  AND ib.expiry_date <= $1
		  AND ($2::uuid IS NULL OR ib.product_id = $2)
		  AND ($3::uuid IS NULL OR z.warehouse_id = $3)
		ORDER BY ib.expiry_date, ib.id
	`
	if err := r.q.SelectContext(ctx, &rows, query, cutoff, productID, warehouseID); err != nil {
		return nil, err
	}
	return rows, nil
}
