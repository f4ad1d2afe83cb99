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

// IssueRepository handles goods issue documents and their lines.
type IssueRepository struct {
	q database.Queryer
}

// NewIssueRepository creates a new issue repository.
func NewIssueRepository(q database.Queryer) *IssueRepository {
	return &IssueRepository{q: q}
}

// Create inserts the issue header and its items as one draft document.
func (r *IssueRepository) Create(ctx context.Context, gi *domain.GoodsIssue) error {
	if gi.ID == "" {
		gi.ID = uuid.New().String()
	}
	if gi.IssueNumber == "" {
		number, err := nextDocumentNumber(ctx, r.q, "goods_issue_number_seq", "GI")
		if err != nil {
			return err
		}
		gi.IssueNumber = number
	}
	if gi.Status == "" {
		gi.Status = domain.StatusDraft
	}

	query := `
		INSERT INTO goods_issues (id, issue_number, status, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		gi.ID, gi.IssueNumber, gi.Status, gi.Reason, gi.CreatedBy,
	).Scan(&gi.CreatedAt, &gi.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for i, item := range gi.Items {
		item.GoodsIssueID = gi.ID
		item.Position = i + 1
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *IssueRepository) insertItem(ctx context.Context, item *domain.GoodsIssueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO goods_issue_items (
			id, goods_issue_id, position, product_id, requested_quantity,
			issued_quantity, unit, source_bin_id, batch_number, use_fefo, serial_numbers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.GoodsIssueID, item.Position, item.ProductID, item.RequestedQuantity,
		item.IssuedQuantity, item.Unit, item.SourceBinID, item.BatchNumber, item.UseFEFO,
		item.SerialNumbers,
	)
	return database.MapPQError(err)
}

// GetByID loads an issue with its items.
func (r *IssueRepository) GetByID(ctx context.Context, id string) (*domain.GoodsIssue, error) {
	var gi domain.GoodsIssue
	if err := r.q.GetContext(ctx, &gi, `SELECT * FROM goods_issues WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("goods issue")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &gi.Items,
		`SELECT * FROM goods_issue_items WHERE goods_issue_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &gi, nil
}

// GetForUpdate locks the issue header and loads its items.
func (r *IssueRepository) GetForUpdate(ctx context.Context, id string) (*domain.GoodsIssue, error) {
	var gi domain.GoodsIssue
	if err := r.q.GetContext(ctx, &gi, `SELECT * FROM goods_issues WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("goods issue")
		}
		return nil, err
	}
	if err := r.q.SelectContext(ctx, &gi.Items,
		`SELECT * FROM goods_issue_items WHERE goods_issue_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}
	return &gi, nil
}

// List returns issues newest first, optionally filtered by status.
func (r *IssueRepository) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.GoodsIssue, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM goods_issues WHERE ($1 = '' OR status = $1)`, status,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.GoodsIssue
	query := `
		SELECT * FROM goods_issues
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves the issue from one status to another, guarded on the
// current status.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actorID string) error {
	query := `
		UPDATE goods_issues
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
		return errors.Conflict("goods issue status changed concurrently")
	}
	return nil
}

// ReplaceItems rewrites a draft issue's lines.
func (r *IssueRepository) ReplaceItems(ctx context.Context, gi *domain.GoodsIssue) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM goods_issue_items WHERE goods_issue_id = $1`, gi.ID,
	); err != nil {
		return err
	}
	for i, item := range gi.Items {
		item.GoodsIssueID = gi.ID
		item.Position = i + 1
		item.ID = ""
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE goods_issues SET reason = $2, updated_at = NOW() WHERE id = $1`, gi.ID, gi.Reason,
	)
	return err
}

// RecordIssuedQuantity stores the quantity actually issued on one line.
func (r *IssueRepository) RecordIssuedQuantity(ctx context.Context, itemID string, qty decimal.Decimal) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE goods_issue_items SET issued_quantity = $2 WHERE id = $1`, itemID, qty,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "goods issue item")
}
