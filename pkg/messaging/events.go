package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Warehouse events
	EventMovementRecorded     = "warehouse.movement.recorded"
	EventDocumentCompleted    = "warehouse.document.completed"
	EventAlertRaised          = "warehouse.alert.raised"
	EventPurchaseOrderDrafted = "warehouse.purchase_order.drafted"

	// Catalog events (consumed)
	EventProductCreated = "catalog.product.created"
	EventProductUpdated = "catalog.product.updated"
	EventProductDeleted = "catalog.product.deleted"
)

// Exchange names
const (
	ExchangeWarehouseEvents = "warehouse.events"
	ExchangeCatalogEvents   = "catalog.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Warehouse Events

// MovementRecordedEvent is published for every stock movement row written.
// Quantities travel as strings to keep decimal precision across consumers.
type MovementRecordedEvent struct {
	MovementID      string  `json:"movement_id"`
	MovementType    string  `json:"movement_type"`
	ReferenceType   string  `json:"reference_type"`
	ReferenceNumber string  `json:"reference_number"`
	ProductID       string  `json:"product_id"`
	FromBinID       *string `json:"from_bin_id,omitempty"`
	ToBinID         *string `json:"to_bin_id,omitempty"`
	Quantity        string  `json:"quantity"`
	PerformedBy     string  `json:"performed_by"`
}

// DocumentCompletedEvent is published when a workflow document reaches a
// terminal or phase-advancing status (completed, dispatched, received).
type DocumentCompletedEvent struct {
	DocumentKind   string   `json:"document_kind"`
	DocumentID     string   `json:"document_id"`
	DocumentNumber string   `json:"document_number"`
	Status         string   `json:"status"`
	ProductIDs     []string `json:"product_ids"`
	PerformedBy    string   `json:"performed_by"`
}

// AlertRaisedEvent is published when the alert evaluator opens an alert.
type AlertRaisedEvent struct {
	AlertID   string `json:"alert_id"`
	RuleID    string `json:"rule_id"`
	AlertType string `json:"alert_type"`
	SourceKey string `json:"source_key"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
}

// PurchaseOrderDraftedEvent is published when a low-stock alert auto-drafts
// a replenishment purchase order.
type PurchaseOrderDraftedEvent struct {
	PurchaseOrderID string `json:"purchase_order_id"`
	ProductID       string `json:"product_id"`
	SupplierID      string `json:"supplier_id,omitempty"`
	Quantity        string `json:"quantity"`
	TriggeredByRule string `json:"triggered_by_rule"`
}

// Catalog Events (consumed)

// ProductUpsertedEvent carries the product master data this service caches
// locally. Published by the catalog service on create and update.
type ProductUpsertedEvent struct {
	ProductID            string  `json:"product_id"`
	SKU                  string  `json:"sku"`
	Name                 string  `json:"name"`
	Unit                 string  `json:"unit"`
	RequiresItemTracking bool    `json:"requires_item_tracking"`
	DefaultBinID         *string `json:"default_bin_id,omitempty"`
	IsActive             bool    `json:"is_active"`
}

// ProductDeletedEvent is published when the catalog retires a product.
type ProductDeletedEvent struct {
	ProductID string `json:"product_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
