package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// TransferRepository handles intra-warehouse stock transfer documents.
type TransferRepository struct {
	q database.Queryer
}

// NewTransferRepository creates a new transfer repository.
func NewTransferRepository(q database.Queryer) *TransferRepository {
	return &TransferRepository{q: q}
}

// Create inserts the transfer header and its items as one draft document.
func (r *TransferRepository) Create(ctx context.Context, st *domain.StockTransfer) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.TransferNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "stock_transfer_number_seq", "ST")
		if err != nil {
			return err
		}
		st.TransferNumber = number
	}
	if st.Status == "" {
		st.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO stock_transfers (id, transfer_number, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		st.ID, st.TransferNumber, st.Status, st.Notes, st.CreatedBy,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range st.Items {
		item.StockTransferID = st.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransferRepository) insertItem(ctx context.Context, item *domain.StockTransferItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_transfer_items (
			id, stock_transfer_id, position, product_id, quantity, unit,
			from_bin_id, to_bin_id, batch_number, use_fefo, serial_numbers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.StockTransferID, item.Position, item.ProductID, item.Quantity,
		item.Unit, item.FromBinID, item.ToBinID, item.BatchNumber, item.UseFEFO,
		item.SerialNumbers,
	)
	return database.MapPQError(err)
}

// GetByID loads a transfer with its items.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.StockTransfer, error) {
	var st domain.StockTransfer
	if err := r.q.GetContext(ctx, &st, `SELECT * FROM stock_transfers WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock transfer")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &st.Items,
		`SELECT * FROM stock_transfer_items WHERE stock_transfer_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetForUpdate locks the transfer header and loads its items.
func (r *TransferRepository) GetForUpdate(ctx context.Context, id string) (*domain.StockTransfer, error) {
	var st domain.StockTransfer
	if err := r.q.GetContext(ctx, &st, `SELECT * FROM stock_transfers WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock transfer")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &st.Items,
		`SELECT * FROM stock_transfer_items WHERE stock_transfer_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns transfers newest first, optionally filtered by status.
func (r *TransferRepository) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.StockTransfer, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM stock_transfers WHERE ($1 = '' OR status = $1)`, status,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.StockTransfer
	query := `
		SELECT * FROM stock_transfers
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the transfer from one status to another, guarded on
// the current status.
func (r *TransferRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE stock_transfers
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
		return errors.Conflict("stock transfer status changed concurrently")
	}
	return nil
}

// ReplaceItems rewrites a draft transfer's lines.
func (r *TransferRepository) ReplaceItems(ctx context.Context, st *domain.StockTransfer) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM stock_transfer_items WHERE stock_transfer_id = $1`, st.ID,
	); err != nil {
		return err
	}
	for i, item := range st.Items {
		item.StockTransferID = st.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE stock_transfers SET notes = $2, updated_at = NOW() WHERE id = $1`, st.ID, st.Notes,
	)
	return err
}
