package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// InventoryService answers stock queries: balances, batch breakdowns,
// the serial registry, and the movement log. All reads, no postings;
// stock only ever changes through document workflows.
type InventoryService struct {
	store  *repository.Store
	logger *logger.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(store *repository.Store, log *logger.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		logger: log,
	}
}

// StockAtBin is one bin's balance with its batch breakdown.
type StockAtBin struct {
	*domain.Inventory
	Batches []*domain.InventoryBatch `json:"batches,omitempty"`
}

// ProductStock is a product's stock across bins with a grand total.
type ProductStock struct {
	ProductID string          `json:"product_id"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Bins      []*StockAtBin   `json:"bins"`
}

// GetProductStock returns a product's balances across every bin, each
// with its batches in first-expired-first-out order.
func (s *InventoryService) GetProductStock(ctx context.Context, productID string) (*ProductStock, error) {
	repos := s.store.Repos()
	if _, err := repos.MasterData.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	rows, err := repos.Inventory.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	out := &ProductStock{ProductID: productID, Total: decimal.Zero, Available: decimal.Zero}
	for _, inv := range rows {
		batches, err := repos.Batches.ListByProductAndBin(ctx, productID, inv.BinLocationID)
		if err != nil {
			return nil, err
		}
		out.Bins = append(out.Bins, &StockAtBin{Inventory: inv, Batches: batches})
		out.Total = out.Total.Add(inv.Quantity)
		out.Available = out.Available.Add(inv.Available())
	}
	return out, nil
}

// GetBinStock returns every product balance in one bin.
func (s *InventoryService) GetBinStock(ctx context.Context, binID string) ([]*domain.Inventory, error) {
	repos := s.store.Repos()
	if _, err := repos.MasterData.GetBin(ctx, binID); err != nil {
		return nil, err
	}
	return repos.Inventory.ListByBin(ctx, binID)
}

// LookupSerial finds one tracked unit of a product.
func (s *InventoryService) LookupSerial(ctx context.Context, productID, serial string) (*domain.SerialNumber, error) {
	return s.store.Repos().Serials.GetByProductAndSerial(ctx, productID, serial)
}

// ListSerialsByProduct lists every registered unit of a product.
func (s *InventoryService) ListSerialsByProduct(ctx context.Context, productID string) ([]*domain.SerialNumber, error) {
	return s.store.Repos().Serials.ListByProduct(ctx, productID)
}

// ListMovements returns the movement log, filtered and paginated.
func (s *InventoryService) ListMovements(ctx context.Context, f repository.MovementFilter) ([]*domain.StockMovement, int, error) {
	return s.store.Repos().Movements.List(ctx, f)
}

// ListMovementsByReference returns the movements a document posted.
func (s *InventoryService) ListMovementsByReference(ctx context.Context, refType domain.ReferenceType, refNumber string) ([]*domain.StockMovement, error) {
	return s.store.Repos().Movements.ListByReference(ctx, refType, refNumber)
}

// AlertService exposes alert rules and raised alerts over the API.
type AlertService struct {
	store  *repository.Store
	logger *logger.Logger
}

// NewAlertService creates a new alert service.
func NewAlertService(store *repository.Store, log *logger.Logger) *AlertService {
	return &AlertService{
		store:  store,
		logger: log,
	}
}

// CreateRule stores a new alert rule.
func (s *AlertService) CreateRule(ctx context.Context, rule *domain.AlertRule) error {
	return s.store.Repos().Alerts.CreateRule(ctx, rule)
}

// GetRule loads one rule.
func (s *AlertService) GetRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	return s.store.Repos().Alerts.GetRule(ctx, id)
}

// UpdateRule rewrites a rule.
func (s *AlertService) UpdateRule(ctx context.Context, rule *domain.AlertRule) error {
	return s.store.Repos().Alerts.UpdateRule(ctx, rule)
}

// ListAlerts lists raised alerts.
func (s *AlertService) ListAlerts(ctx context.Context, status domain.AlertStatus, alertType domain.AlertRuleType, limit, offset int) ([]*domain.StockAlert, int, error) {
	return s.store.Repos().Alerts.ListAlerts(ctx, status, alertType, limit, offset)
}

// GetAlert loads one alert.
func (s *AlertService) GetAlert(ctx context.Context, id string) (*domain.StockAlert, error) {
	return s.store.Repos().Alerts.GetAlert(ctx, id)
}

// Acknowledge marks an open alert as seen by the caller.
func (s *AlertService) Acknowledge(ctx context.Context, id string) error {
	return s.store.Repos().Alerts.Acknowledge(ctx, id, actor.IDOrSystem(ctx))
}

// Resolve closes an alert.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	return s.store.Repos().Alerts.Resolve(ctx, id)
}
