package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
)

// MovementRepository appends to and reads the stock movement log. The log
// is append-only: there is deliberately no update or delete here.
type MovementRepository struct {
	q database.Queryer
}

// NewMovementRepository creates a new movement repository.
func NewMovementRepository(q database.Queryer) *MovementRepository {
	return &MovementRepository{q: q}
}

// Record appends one movement row.
func (r *MovementRepository) Record(ctx context.Context, m *domain.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (
			id, movement_type, reference_type, reference_number, product_id,
			from_bin_id, to_bin_id, quantity, unit, performed_by, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING performed_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		m.ID, m.MovementType, m.ReferenceType, m.ReferenceNumber, m.ProductID,
		m.FromBinID, m.ToBinID, m.Quantity, m.Unit, m.PerformedBy, m.Metadata,
	).Scan(&m.PerformedAt)
	return database.MapPQError(err)
}

// MovementFilter narrows a movement log query. Zero values mean "any".
type MovementFilter struct {
	ProductID     string
	BinID         string
	MovementType  domain.MovementType
	ReferenceType domain.ReferenceType
	Reference     string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// List returns movements newest first, filtered and paginated, together
// with the total match count.
func (r *MovementRepository) List(ctx context.Context, f MovementFilter) ([]*domain.StockMovement, int, error) {
	where := `
		WHERE ($1 = '' OR product_id = $1::uuid)
		  AND ($2 = '' OR from_bin_id = $2::uuid OR to_bin_id = $2::uuid)
		  AND ($3 = '' OR movement_type = $3)
		  AND ($4 = '' OR reference_type = $4)
		  AND ($5 = '' OR reference_number = $5)
		  AND ($6::timestamptz IS NULL OR performed_at >= $6)
		  AND ($7::timestamptz IS NULL OR performed_at <= $7)
	`

	var total int
	countQuery := `SELECT COUNT(*) FROM stock_movements` + where
	if err := r.q.GetContext(ctx, &total, countQuery,
		f.ProductID, f.BinID, f.MovementType, f.ReferenceType, f.Reference, f.From, f.To,
	); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []*domain.StockMovement
	listQuery := `SELECT * FROM stock_movements` + where + `
		ORDER BY performed_at DESC, id DESC
		LIMIT $8 OFFSET $9
	`
	if err := r.q.SelectContext(ctx, &rows, listQuery,
		f.ProductID, f.BinID, f.MovementType, f.ReferenceType, f.Reference, f.From, f.To,
		limit, f.Offset,
	); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByReference returns every movement a document posted, oldest first.
func (r *MovementRepository) ListByReference(ctx context.Context, refType domain.ReferenceType, refNumber string) ([]*domain.StockMovement, error) {
	var rows []*domain.StockMovement
	query := `
		SELECT * FROM stock_movements
		WHERE reference_type = $1 AND reference_number = $2
		ORDER BY performed_at, id
	`
	if err := r.q.SelectContext(ctx, &rows, query, refType, refNumber); err != nil {
		return nil, err
	}
	return rows, nil
}
