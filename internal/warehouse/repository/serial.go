package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// SerialRepository handles the registry of individually tracked units.
type SerialRepository struct {
	q database.Queryer
}

// NewSerialRepository creates a new serial repository.
func NewSerialRepository(q database.Queryer) *SerialRepository {
	return &SerialRepository{q: q}
}

// Register creates a serial registry entry. Serial numbers are unique
// across all products; the constraint rejects duplicates.
func (r *SerialRepository) Register(ctx context.Context, sn *domain.SerialNumber) error {
	if sn.ID == "" {
		sn.ID = uuid.New().String()
	}
	query := `
		INSERT INTO serial_numbers (id, serial_number, product_id, batch_id, current_bin_id, status, last_movement_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING last_movement_at, created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		sn.ID, sn.SerialNumber, sn.ProductID, sn.BatchID, sn.CurrentBinID, sn.Status,
	).Scan(&sn.LastMovementAt, &sn.CreatedAt, &sn.UpdatedAt)
	return database.MapPQError(err)
}

// GetForUpdate locks and returns one unit by product and serial number.
func (r *SerialRepository) GetForUpdate(ctx context.Context, productID, serial string) (*domain.SerialNumber, error) {
	var sn domain.SerialNumber
	query := `SELECT * FROM serial_numbers WHERE product_id = $1 AND serial_number = $2 FOR UPDATE`
	if err := r.q.GetContext(ctx, &sn, query, productID, serial); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("serial number")
		}
		return nil, err
	}
	return &sn, nil
}

// ListForUpdate locks and returns a set of units by product and serial
// numbers. Missing serials surface as a not-found error naming nothing
// specific; callers validate counts before moving stock.
func (r *SerialRepository) ListForUpdate(ctx context.Context, productID string, serials []string) ([]*domain.SerialNumber, error) {
	var rows []*domain.SerialNumber
	query := `
		SELECT * FROM serial_numbers
		WHERE product_id = $1 AND serial_number = ANY($2)
		ORDER BY serial_number
		FOR UPDATE
	`
	if err := r.q.SelectContext(ctx, &rows, query, productID, pq.Array(serials)); err != nil {
		return nil, err
	}
	if len(rows) != len(serials) {
		return nil, errors.NotFound("serial number")
	}
	return rows, nil
}

// Move updates a unit's status and location in one step and stamps the
// last movement time.
func (r *SerialRepository) Move(ctx context.Context, id string, status domain.SerialStatus, binID *string) error {
	query := `
		UPDATE serial_numbers
		SET status = $2, current_bin_id = $3, last_movement_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query, id, status, binID)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "serial number")
}

// GetByProductAndSerial returns one unit without locking it.
func (r *SerialRepository) GetByProductAndSerial(ctx context.Context, productID, serial string) (*domain.SerialNumber, error) {
	var sn domain.SerialNumber
	query := `SELECT * FROM serial_numbers WHERE product_id = $1 AND serial_number = $2`
	if err := r.q.GetContext(ctx, &sn, query, productID, serial); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("serial number")
		}
		return nil, err
	}
	return &sn, nil
}

// ListByBin lists the units currently located in a bin.
func (r *SerialRepository) ListByBin(ctx context.Context, binID string) ([]*domain.SerialNumber, error) {
	var rows []*domain.SerialNumber
	query := `SELECT * FROM serial_numbers WHERE current_bin_id = $1 ORDER BY serial_number`
	if err := r.q.SelectContext(ctx, &rows, query, binID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByProduct lists every registered unit of a product.
func (r *SerialRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.SerialNumber, error) {
	var rows []*domain.SerialNumber
	query := `SELECT * FROM serial_numbers WHERE product_id = $1 ORDER BY serial_number`
	if err := r.q.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, err
	}
	return rows, nil
}
