package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRuleType selects what an alert rule watches for.
type AlertRuleType string

const (
	RuleLowStock     AlertRuleType = "low_stock"
	RuleZeroStock    AlertRuleType = "zero_stock"
	RuleExpiryWindow AlertRuleType = "expiry_window"
)

// AlertRule configures one evaluation of the alert scanner. ProductID nil
// means the rule applies to every product; Threshold is only meaningful
// for low_stock rules and WindowDays only for expiry_window rules.
type AlertRule struct {
	ID              string           `db:"id" json:"id"`
	RuleType        AlertRuleType    `db:"rule_type" json:"rule_type"`
	ProductID       *string          `db:"product_id" json:"product_id,omitempty"`
	WarehouseID     *string          `db:"warehouse_id" json:"warehouse_id,omitempty"`
	Threshold       *decimal.Decimal `db:"threshold" json:"threshold,omitempty"`
	WindowDays      *int             `db:"window_days" json:"window_days,omitempty"`
	DedupeWindowSec *int             `db:"dedupe_window_sec" json:"dedupe_window_sec,omitempty"`
	AutoDraftPO     bool             `db:"auto_draft_po" json:"auto_draft_po"`
	IsActive        bool             `db:"is_active" json:"is_active"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// DedupeWindow returns the rule's dedupe window, or the given default
// when the rule does not set one.
func (r *AlertRule) DedupeWindow(def time.Duration) time.Duration {
	if r.DedupeWindowSec != nil && *r.DedupeWindowSec > 0 {
		return time.Duration(*r.DedupeWindowSec) * time.Second
	}
	return def
}

// ExpiryWindow returns the rule's expiry lookahead in days, or the given
// default when the rule does not set one.
func (r *AlertRule) ExpiryWindow(def int) int {
	if r.WindowDays != nil && *r.WindowDays > 0 {
		return *r.WindowDays
	}
	return def
}

// AlertStatus is the lifecycle of a raised alert.
type AlertStatus string

const (
	AlertOpen         AlertStatus = "open"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// StockAlert is one raised alert. SourceKey identifies what the alert is
// about (product, product+warehouse, or batch) so the scanner can dedupe:
// a new alert is suppressed while an open alert with the same rule, type
// and source key exists, or while any such alert was raised within the
// dedupe window.
type StockAlert struct {
	ID             string           `db:"id" json:"id"`
	RuleID         string           `db:"rule_id" json:"rule_id"`
	AlertType      AlertRuleType    `db:"alert_type" json:"alert_type"`
	SourceKey      string           `db:"source_key" json:"source_key"`
	ProductID      string           `db:"product_id" json:"product_id"`
	WarehouseID    *string          `db:"warehouse_id" json:"warehouse_id,omitempty"`
	BatchID        *string          `db:"batch_id" json:"batch_id,omitempty"`
	Message        string           `db:"message" json:"message"`
	Quantity       *decimal.Decimal `db:"quantity" json:"quantity,omitempty"`
	Threshold      *decimal.Decimal `db:"threshold" json:"threshold,omitempty"`
	Status         AlertStatus      `db:"status" json:"status"`
	AcknowledgedBy *string          `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time       `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
