package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// StocktakeRepository handles stocktake documents and their count lines.
type StocktakeRepository struct {
	q database.Queryer
}

// NewStocktakeRepository creates a new stocktake repository.
func NewStocktakeRepository(q database.Queryer) *StocktakeRepository {
	return &StocktakeRepository{q: q}
}

// Create inserts the stocktake header and its count lines as one draft.
func (r *StocktakeRepository) Create(ctx context.Context, st *domain.Stocktake) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.StocktakeNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "stocktake_number_seq", "SC")
		if err != nil {
			return err
		}
		st.StocktakeNumber = number
	}
	if st.Status == "" {
		st.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO stocktakes (id, stocktake_number, warehouse_id, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		st.ID, st.StocktakeNumber, st.WarehouseID, st.Status, st.Notes, st.CreatedBy,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range st.Items {
		item.StocktakeID = st.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *StocktakeRepository) insertItem(ctx context.Context, item *domain.StocktakeItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stocktake_items (
			id, stocktake_id, position, product_id, bin_location_id, counted_quantity, unit
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.StocktakeID, item.Position, item.ProductID,
		item.BinLocationID, item.CountedQuantity, item.Unit,
	)
	return database.MapPQError(err)
}

// GetByID loads a stocktake with its count lines.
func (r *StocktakeRepository) GetByID(ctx context.Context, id string) (*domain.Stocktake, error) {
	var st domain.Stocktake
	if err := r.q.GetContext(ctx, &st, `SELECT * FROM stocktakes WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stocktake")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &st.Items,
		`SELECT * FROM stocktake_items WHERE stocktake_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetForUpdate locks the stocktake header and loads its count lines.
func (r *StocktakeRepository) GetForUpdate(ctx context.Context, id string) (*domain.Stocktake, error) {
	var st domain.Stocktake
	if err := r.q.GetContext(ctx, &st, `SELECT * FROM stocktakes WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stocktake")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &st.Items,
		`SELECT * FROM stocktake_items WHERE stocktake_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns stocktakes newest first, optionally filtered by status and
// warehouse.
func (r *StocktakeRepository) List(ctx context.Context, status domain.DocumentStatus, warehouseID string, limit, offset int) ([]*domain.Stocktake, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR warehouse_id = $2::uuid)
	`

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM stocktakes`+where, status, warehouseID,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.Stocktake
	query := `SELECT * FROM stocktakes` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, warehouseID, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the stocktake from one status to another, guarded on
// the current status.
func (r *StocktakeRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE stocktakes
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
		return errors.Conflict("stocktake status changed concurrently")
	}
	return nil
}

// ReplaceItems rewrites the count lines while the stocktake is editable.
func (r *StocktakeRepository) ReplaceItems(ctx context.Context, st *domain.Stocktake) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM stocktake_items WHERE stocktake_id = $1`, st.ID,
	); err != nil {
		return err
	}
	for i, item := range st.Items {
		item.StocktakeID = st.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE stocktakes SET notes = $2, updated_at = NOW() WHERE id = $1`, st.ID, st.Notes,
	)
	return err
}
