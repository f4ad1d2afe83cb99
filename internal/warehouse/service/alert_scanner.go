package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/events"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// AlertScanner evaluates alert rules against current stock. Each rule is
// scanned independently; a failing rule is logged and skipped so one bad
// rule never stalls the rest. Raised alerts are deduped per (rule, type,
// source key): an open alert, or any alert raised within the dedupe
// window, suppresses a new one.
type AlertScanner struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	cfg       config.AlertsConfig
	logger    *logger.Logger
}

// NewAlertScanner creates a new alert scanner.
func NewAlertScanner(store *repository.Store, publisher *events.WarehouseEventPublisher, cfg config.AlertsConfig, log *logger.Logger) *AlertScanner {
	return &AlertScanner{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
}

// ScanAll evaluates every active rule. Logs errors but continues
// scanning; the last error is returned for the caller's bookkeeping.
func (s *AlertScanner) ScanAll(ctx context.Context) error {
	rules, err := s.store.Repos().Alerts.ListActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("ScanAll: list active rules: %w", err)
	}

	var lastErr error
	for _, rule := range rules {
		if err := s.scanRule(ctx, rule, rule.ProductID); err != nil {
			s.logger.Error().Err(err).Str("rule_id", rule.ID).Msg("alert scan failed")
			lastErr = err
		}
	}
	return lastErr
}

// ScanProducts evaluates every active rule against just the given
// products. Workflow completions call this after posting, so alerts
// follow a stock change immediately instead of waiting for the next
// periodic sweep. Safe on a nil scanner: services that were never
// attached to one simply skip evaluation.
func (s *AlertScanner) ScanProducts(ctx context.Context, ids []string) error {
	if s == nil || len(ids) == 0 {
		return nil
	}
	rules, err := s.store.Repos().Alerts.ListActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("ScanProducts: list active rules: %w", err)
	}

	var lastErr error
	for _, rule := range rules {
		for _, id := range ids {
			if rule.ProductID != nil && *rule.ProductID != id {
				continue
			}
			productID := id
			if err := s.scanRule(ctx, rule, &productID); err != nil {
				s.logger.Error().Err(err).Str("rule_id", rule.ID).Str("product_id", id).Msg("alert scan failed")
				lastErr = err
			}
		}
	}
	return lastErr
}

// scanRule runs one rule, narrowed to productID when set.
func (s *AlertScanner) scanRule(ctx context.Context, rule *domain.AlertRule, productID *string) error {
	switch rule.RuleType {
	case domain.RuleLowStock:
		return s.scanLowStock(ctx, rule, productID)
	case domain.RuleZeroStock:
		return s.scanZeroStock(ctx, rule, productID)
	case domain.RuleExpiryWindow:
		return s.scanExpiryWindow(ctx, rule, productID)
	default:
		s.logger.Warn().Str("rule_id", rule.ID).Str("rule_type", string(rule.RuleType)).Msg("unknown alert rule type")
		return nil
	}
}

// scanLowStock raises an alert per product whose summed stock sits
// above zero but below the rule threshold, and drafts a replenishment
// order when the rule asks for one. Products at zero are left to the
// zero_stock rule.
func (s *AlertScanner) scanLowStock(ctx context.Context, rule *domain.AlertRule, productID *string) error {
	if rule.Threshold == nil {
		return fmt.Errorf("low stock rule %s has no threshold", rule.ID)
	}

	repos := s.store.Repos()
	totals, err := repos.Inventory.TotalsBelow(ctx, *rule.Threshold, productID, rule.WarehouseID)
	if err != nil {
		return fmt.Errorf("scanLowStock: %w", err)
	}

	for _, t := range totals {
		alert := &domain.StockAlert{
			RuleID:      rule.ID,
			AlertType:   domain.RuleLowStock,
			SourceKey:   sourceKeyProduct(t.ProductID, rule.WarehouseID),
			ProductID:   t.ProductID,
			WarehouseID: rule.WarehouseID,
			Message:     fmt.Sprintf("stock level %s is below threshold %s", t.Quantity, *rule.Threshold),
			Quantity:    &t.Quantity,
			Threshold:   rule.Threshold,
		}
		raised, err := s.raise(ctx, rule, alert)
		if err != nil {
			return err
		}
		if raised && rule.AutoDraftPO {
			if err := s.draftReplenishment(ctx, rule, t.ProductID, t.Quantity); err != nil {
				s.logger.Error().Err(err).Str("product_id", t.ProductID).Msg("failed to draft replenishment order")
			}
		}
	}
	return nil
}

// scanZeroStock raises an alert per product with nothing on hand.
func (s *AlertScanner) scanZeroStock(ctx context.Context, rule *domain.AlertRule, productID *string) error {
	repos := s.store.Repos()
	totals, err := repos.Inventory.TotalsAtZero(ctx, productID, rule.WarehouseID)
	if err != nil {
		return fmt.Errorf("scanZeroStock: %w", err)
	}

	for _, t := range totals {
		alert := &domain.StockAlert{
			RuleID:      rule.ID,
			AlertType:   domain.RuleZeroStock,
			SourceKey:   sourceKeyProduct(t.ProductID, rule.WarehouseID),
			ProductID:   t.ProductID,
			WarehouseID: rule.WarehouseID,
			Message:     "product is out of stock",
			Quantity:    &t.Quantity,
		}
		if _, err := s.raise(ctx, rule, alert); err != nil {
			return err
		}
	}
	return nil
}

// scanExpiryWindow raises an alert per non-empty batch expiring inside
// the rule's lookahead window.
func (s *AlertScanner) scanExpiryWindow(ctx context.Context, rule *domain.AlertRule, productID *string) error {
	windowDays := rule.ExpiryWindow(s.cfg.DefaultExpiryWindowDays)
	cutoff := time.Now().UTC().AddDate(0, 0, windowDays)

	repos := s.store.Repos()
	batches, err := repos.Batches.ListExpiringWithin(ctx, cutoff, productID, rule.WarehouseID)
	if err != nil {
		return fmt.Errorf("scanExpiryWindow: %w", err)
	}

	for _, b := range batches {
		batchID := b.BatchID
		warehouseID := b.WarehouseID
		alert := &domain.StockAlert{
			RuleID:      rule.ID,
			AlertType:   domain.RuleExpiryWindow,
			SourceKey:   "batch:" + b.BatchID,
			ProductID:   b.ProductID,
			WarehouseID: &warehouseID,
			BatchID:     &batchID,
			Message: fmt.Sprintf("batch %s expires on %s with %s on hand",
				b.BatchNumber, b.ExpiryDate.Format("2006-01-02"), b.Quantity),
			Quantity: &b.Quantity,
		}
		if _, err := s.raise(ctx, rule, alert); err != nil {
			return err
		}
	}
	return nil
}

// raise creates the alert unless a duplicate suppresses it. Dedupe check
// and insert run in one transaction so two concurrent scans cannot both
// pass the check and insert.
func (s *AlertScanner) raise(ctx context.Context, rule *domain.AlertRule, alert *domain.StockAlert) (bool, error) {
	window := rule.DedupeWindow(s.cfg.DefaultDedupeWindow)
	since := time.Now().UTC().Add(-window)

	raised := false
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		dup, err := r.Alerts.HasDuplicate(ctx, rule.ID, alert.AlertType, alert.SourceKey, since)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		if err := r.Alerts.CreateAlert(ctx, alert); err != nil {
			return err
		}
		raised = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("raise alert: %w", err)
	}

	if raised {
		s.publisher.PublishAlertRaised(ctx, alert)
		s.logger.Info().
			Str("rule_id", rule.ID).
			Str("alert_type", string(alert.AlertType)).
			Str("source_key", alert.SourceKey).
			Msg("alert raised")
	}
	return raised, nil
}

// draftReplenishment creates a draft purchase order for the part of the
// deficit that open orders do not already cover, rounded up to the
// preferred supplier's minimum order multiple. Without a supplier
// relation the multiple falls back to one. When the open order quantity
// covers the deficit, or the rounded quantity ends up at zero, nothing
// is drafted.
func (s *AlertScanner) draftReplenishment(ctx context.Context, rule *domain.AlertRule, productID string, current decimal.Decimal) error {
	var (
		po   *domain.PurchaseOrder
		item *domain.PurchaseOrderItem
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		deficit := decimal.Zero
		if rule.Threshold != nil {
			deficit = rule.Threshold.Sub(current)
		}

		open, err := r.PurchaseOrders.OpenOrderQuantity(ctx, productID)
		if err != nil {
			return err
		}
		deficit = deficit.Sub(open)
		if !deficit.IsPositive() {
			return nil
		}

		product, err := r.MasterData.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		multiple := one
		var supplierID *string
		supplier, err := r.PurchaseOrders.PreferredSupplier(ctx, productID)
		if err != nil {
			return err
		}
		if supplier != nil {
			supplierID = &supplier.SupplierID
			if supplier.MinimumOrderMultiple.IsPositive() {
				multiple = supplier.MinimumOrderMultiple
			}
		}

		quantity := domain.RoundUpToMultiple(deficit, multiple)
		if !quantity.IsPositive() {
			return nil
		}

		po = &domain.PurchaseOrder{
			SupplierID: supplierID,
			CreatedBy:  actor.SystemActor().ID,
		}
		item = &domain.PurchaseOrderItem{
			ProductID:       productID,
			OrderedQuantity: quantity,
			Unit:            product.Unit,
		}
		return r.PurchaseOrders.CreateDraft(ctx, po, item)
	})
	if err != nil {
		return err
	}

	if po != nil && po.ID != "" {
		s.publisher.PublishPurchaseOrderDrafted(ctx, po, item, rule.ID)
		s.logger.Info().
			Str("purchase_order", po.OrderNumber).
			Str("product_id", productID).
			Str("quantity", item.OrderedQuantity.String()).
			Msg("replenishment order drafted")
	}
	return nil
}

func sourceKeyProduct(productID string, warehouseID *string) string {
	if warehouseID != nil {
		return "product:" + productID + ":warehouse:" + *warehouseID
	}
	return "product:" + productID
}
