package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// AlertRepository handles alert rules and raised alerts.
type AlertRepository struct {
	q database.Queryer
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(q database.Queryer) *AlertRepository {
	return &AlertRepository{q: q}
}

// CreateRule inserts an alert rule.
func (r *AlertRepository) CreateRule(ctx context.Context, rule *domain.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	query := `
		INSERT INTO alert_rules (
			id, rule_type, product_id, warehouse_id, threshold, window_days,
			dedupe_window_sec, auto_draft_po, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		rule.ID, rule.RuleType, rule.ProductID, rule.WarehouseID, rule.Threshold,
		rule.WindowDays, rule.DedupeWindowSec, rule.AutoDraftPO, rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	return database.MapPQError(err)
}

// GetRule gets one rule by ID.
func (r *AlertRepository) GetRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	var rule domain.AlertRule
	if err := r.q.GetContext(ctx, &rule, `SELECT * FROM alert_rules WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert rule")
		}
		return nil, err
	}
	return &rule, nil
}

// ListActiveRules returns every active rule, in creation order so scan
// runs are deterministic.
func (r *AlertRepository) ListActiveRules(ctx context.Context) ([]*domain.AlertRule, error) {
	var rules []*domain.AlertRule
	query := `SELECT * FROM alert_rules WHERE is_active = true ORDER BY created_at, id`
	if err := r.q.SelectContext(ctx, &rules, query); err != nil {
		return nil, err
	}
	return rules, nil
}

// UpdateRule rewrites a rule's settings.
func (r *AlertRepository) UpdateRule(ctx context.Context, rule *domain.AlertRule) error {
	query := `
		UPDATE alert_rules SET
			rule_type = $2, product_id = $3, warehouse_id = $4, threshold = $5,
			window_days = $6, dedupe_window_sec = $7, auto_draft_po = $8,
			is_active = $9, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query,
		rule.ID, rule.RuleType, rule.ProductID, rule.WarehouseID, rule.Threshold,
		rule.WindowDays, rule.DedupeWindowSec, rule.AutoDraftPO, rule.IsActive,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return ensureRowAffected(result, "alert rule")
}

// CreateAlert inserts a raised alert as open.
func (r *AlertRepository) CreateAlert(ctx context.Context, a *domain.StockAlert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = domain.AlertOpen
	}
	query := `
		INSERT INTO stock_alerts (
			id, rule_id, alert_type, source_key, product_id, warehouse_id,
			batch_id, message, quantity, threshold, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		a.ID, a.RuleID, a.AlertType, a.SourceKey, a.ProductID, a.WarehouseID,
		a.BatchID, a.Message, a.Quantity, a.Threshold, a.Status,
	).Scan(&a.CreatedAt)
	return database.MapPQError(err)
}

// HasDuplicate reports whether an alert with the same rule, type and
// source key is still open, or was raised at all since the given time.
// Either one suppresses a new alert.
func (r *AlertRepository) HasDuplicate(ctx context.Context, ruleID string, alertType domain.AlertRuleType, sourceKey string, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_alerts
			WHERE rule_id = $1 AND alert_type = $2 AND source_key = $3
			  AND (status = 'open' OR created_at >= $4)
		)
	`
	if err := r.q.GetContext(ctx, &exists, query, ruleID, alertType, sourceKey, since); err != nil {
		return false, err
	}
	return exists, nil
}

// GetAlert gets one alert by ID.
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (*domain.StockAlert, error) {
	var a domain.StockAlert
	if err := r.q.GetContext(ctx, &a, `SELECT * FROM stock_alerts WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return &a, nil
}

// ListAlerts returns alerts newest first, optionally filtered by status
// and type.
func (r *AlertRepository) ListAlerts(ctx context.Context, status domain.AlertStatus, alertType domain.AlertRuleType, limit, offset int) ([]*domain.StockAlert, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR alert_type = $2)
	`

	var total int
	if err := r.q.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM stock_alerts`+where, status, alertType,
	); err != nil {
		return nil, 0, err
	}

	var rows []*domain.StockAlert
	query := `SELECT * FROM stock_alerts` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.q.SelectContext(ctx, &rows, query, status, alertType, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Acknowledge marks an open alert as seen by the actor.
func (r *AlertRepository) Acknowledge(ctx context.Context, id, actorID string) error {
	query := `
		UPDATE stock_alerts
		SET status = 'acknowledged', acknowledged_by = $2, acknowledged_at = NOW()
		WHERE id = $1 AND status = 'open'
	`
	result, err := r.q.ExecContext(ctx, query, id, actorID)
	if err != nil {
		return database.MapPQError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("alert is not open")
	}
	return nil
}

// Resolve closes an alert in any non-resolved state.
func (r *AlertRepository) Resolve(ctx context.Context, id string) error {
	query := `
		UPDATE stock_alerts
		SET status = 'resolved', resolved_at = NOW()
		WHERE id = $1 AND status <> 'resolved'
	`
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return database.MapPQError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("alert is already resolved")
	}
	return nil
}
