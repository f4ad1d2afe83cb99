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

// InventoryRepository handles quantity-on-hand rows keyed by product and
// bin location.
type InventoryRepository struct {
	q database.Queryer
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(q database.Queryer) *InventoryRepository {
	return &InventoryRepository{q: q}
}

// GetForUpdate locks and returns the inventory row for a product at a
// bin. Callers must hold a transaction.
func (r *InventoryRepository) GetForUpdate(ctx context.Context, productID, binID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	query := `SELECT * FROM inventory WHERE product_id = $1 AND bin_location_id = $2 FOR UPDATE`
	if err := r.q.GetContext(ctx, &inv, query, productID, binID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory")
		}
		return nil, err
	}
	return &inv, nil
}

// GetOrCreateForUpdate locks the inventory row for a product at a bin,
// inserting a zero-quantity row first if none exists. The insert uses ON
// CONFLICT DO NOTHING so concurrent creators converge on one row, and the
// follow-up SELECT FOR UPDATE serializes them.
func (r *InventoryRepository) GetOrCreateForUpdate(ctx context.Context, productID, binID string) (*domain.Inventory, error) {
	insert := `
		INSERT INTO inventory (id, product_id, bin_location_id, quantity, reserved_quantity)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (product_id, bin_location_id) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, insert, uuid.New().String(), productID, binID); err != nil {
		return nil, database.MapPQError(err)
	}
	return r.GetForUpdate(ctx, productID, binID)
}

// Credit adds qty to the locked row's quantity.
func (r *InventoryRepository) Credit(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE inventory SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "inventory")
}

// Debit subtracts qty from the locked row's quantity. The quantity check
// constraint turns an overdraw into an insufficient-stock error.
func (r *InventoryRepository) Debit(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE inventory SET quantity = quantity - $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "inventory")
}

// Reserve earmarks qty of the locked row for a pending issue.
func (r *InventoryRepository) Reserve(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE inventory SET reserved_quantity = reserved_quantity + $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "inventory")
}

// Release returns qty of a reservation, clamping at zero.
func (r *InventoryRepository) Release(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `
		UPDATE inventory
		SET reserved_quantity = GREATEST(reserved_quantity - $2, 0), updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "inventory")
}

// GetByProductAndBin returns the inventory row without locking it.
func (r *InventoryRepository) GetByProductAndBin(ctx context.Context, productID, binID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	query := `SELECT * FROM inventory WHERE product_id = $1 AND bin_location_id = $2`
	if err := r.q.GetContext(ctx, &inv, query, productID, binID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory")
		}
		return nil, err
	}
	return &inv, nil
}

// ListByProduct lists all inventory rows for a product across bins.
func (r *InventoryRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Inventory, error) {
	var rows []*domain.Inventory
	query := `SELECT * FROM inventory WHERE product_id = $1 ORDER BY bin_location_id`
	if err := r.q.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByBin lists all inventory rows in a bin location.
func (r *InventoryRepository) ListByBin(ctx context.Context, binID string) ([]*domain.Inventory, error) {
	var rows []*domain.Inventory
	query := `SELECT * FROM inventory WHERE bin_location_id = $1 ORDER BY product_id`
	if err := r.q.SelectContext(ctx, &rows, query, binID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ProductTotal is a product's summed on-hand quantity within whatever
// scope the query applied.
type ProductTotal struct {
	ProductID string          `db:"product_id"`
	Quantity  decimal.Decimal `db:"quantity"`
}

// TotalByProduct sums a product's quantity across all bins, or across one
// warehouse's bins when warehouseID is set.
func (r *InventoryRepository) TotalByProduct(ctx context.Context, productID string, warehouseID *string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(i.quantity), 0)
		FROM inventory i
		JOIN bin_locations b ON b.id = i.bin_location_id
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE i.product_id = $1 AND ($2::uuid IS NULL OR z.warehouse_id = $2)
	`
	if err := r.q.GetContext(ctx, &total, query, productID, warehouseID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// TotalsBelow returns per-product totals above zero but below the
// threshold, for products that have at least one inventory row. Products
// at zero are excluded: they belong to TotalsAtZero. Scoped to a
// warehouse when warehouseID is set, and to one product when productID
// is set.
func (r *InventoryRepository) TotalsBelow(ctx context.Context, threshold decimal.Decimal, productID, warehouseID *string) ([]*ProductTotal, error) {
	var rows []*ProductTotal
	query := `
		SELECT i.product_id, SUM(i.quantity) AS quantity
		FROM inventory i
		JOIN bin_locations b ON b.id = i.bin_location_id
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE ($2::uuid IS NULL OR i.product_id = $2)
		  AND ($3::uuid IS NULL OR z.warehouse_id = $3)
		GROUP BY i.product_id
		HAVING SUM(i.quantity) > 0 AND SUM(i.quantity) < $1
		ORDER BY i.product_id
	`
	if err := r.q.SelectContext(ctx, &rows, query, threshold, productID, warehouseID); err != nil {
		return nil, err
	}
	return rows, nil
}

// TotalsAtZero returns per-product totals for products whose inventory
// rows sum to nothing, with the same scoping as TotalsBelow.
func (r *InventoryRepository) TotalsAtZero(ctx context.Context, productID, warehouseID *string) ([]*ProductTotal, error) {
	var rows []*ProductTotal
	query := `
		SELECT i.product_id, SUM(i.quantity) AS quantity
		FROM inventory i
		JOIN bin_locations b ON b.id = i.bin_location_id
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE ($1::uuid IS NULL OR i.product_id = $1)
		  AND ($2::uuid IS NULL OR z.warehouse_id = $2)
		GROUP BY i.product_id
		HAVING SUM(i.quantity) <= 0
		ORDER BY i.product_id
	`
	if err := r.q.SelectContext(ctx, &rows, query, productID, warehouseID); err != nil {
		return nil, err
	}
	return rows, nil
}

func ensureRowAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound(entity)
	}
	return nil
}
