package events

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

// WarehouseEventPublisher publishes warehouse-side events. All methods are
// fire-and-forget after the owning transaction commits; a publish failure
// is logged, never propagated into the workflow result.
type WarehouseEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewWarehouseEventPublisher creates a new warehouse event publisher.
func NewWarehouseEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*WarehouseEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWarehouseEvents, "warehouse-service", log)
	if err != nil {
		return nil, err
	}

	return &WarehouseEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishMovementRecorded publishes one event per movement row written.
func (p *WarehouseEventPublisher) PublishMovementRecorded(ctx context.Context, m *domain.StockMovement) {
	if p == nil {
		return
	}

	data := messaging.MovementRecordedEvent{
		MovementID:      m.ID,
		MovementType:    string(m.MovementType),
		ReferenceType:   string(m.ReferenceType),
		ReferenceNumber: m.ReferenceNumber,
		ProductID:       m.ProductID,
		FromBinID:       m.FromBinID,
		ToBinID:         m.ToBinID,
		Quantity:        m.Quantity.String(),
		PerformedBy:     m.PerformedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement recorded event")
	}
}

// PublishDocumentCompleted publishes a document lifecycle event.
func (p *WarehouseEventPublisher) PublishDocumentCompleted(ctx context.Context, kind domain.DocumentKind, docID, docNumber string, status domain.DocumentStatus, productIDs []string, actorID string) {
	if p == nil {
		return
	}

	data := messaging.DocumentCompletedEvent{
		DocumentKind:   string(kind),
		DocumentID:     docID,
		DocumentNumber: docNumber,
		Status:         string(status),
		ProductIDs:     productIDs,
		PerformedBy:    actorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDocumentCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("document_id", docID).Msg("failed to publish document completed event")
	}
}

// PublishAlertRaised publishes an alert raised event.
func (p *WarehouseEventPublisher) PublishAlertRaised(ctx context.Context, a *domain.StockAlert) {
	if p == nil {
		return
	}

	batchID := ""
	if a.BatchID != nil {
		batchID = *a.BatchID
	}

	data := messaging.AlertRaisedEvent{
		AlertID:   a.ID,
		RuleID:    a.RuleID,
		AlertType: string(a.AlertType),
		SourceKey: a.SourceKey,
		Severity:  severityFor(a.AlertType),
		Message:   a.Message,
		ProductID: a.ProductID,
		BatchID:   batchID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertRaised, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to publish alert raised event")
	}
}

// PublishPurchaseOrderDrafted publishes a replenishment draft event.
func (p *WarehouseEventPublisher) PublishPurchaseOrderDrafted(ctx context.Context, po *domain.PurchaseOrder, item *domain.PurchaseOrderItem, ruleID string) {
	if p == nil {
		return
	}

	supplierID := ""
	if po.SupplierID != nil {
		supplierID = *po.SupplierID
	}

	data := messaging.PurchaseOrderDraftedEvent{
		PurchaseOrderID: po.ID,
		ProductID:       item.ProductID,
		SupplierID:      supplierID,
		Quantity:        item.OrderedQuantity.String(),
		TriggeredByRule: ruleID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPurchaseOrderDrafted, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_order_id", po.ID).Msg("failed to publish purchase order drafted event")
	}
}

func severityFor(t domain.AlertRuleType) string {
	switch t {
	case domain.RuleZeroStock:
		return "critical"
	case domain.RuleLowStock:
		return "warning"
	default:
		return "info"
	}
}
