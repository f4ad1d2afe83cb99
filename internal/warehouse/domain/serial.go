package domain

import (
	"fmt"
	"time"

	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// SerialStatus is the lifecycle state of an individually tracked unit.
type SerialStatus string

const (
	SerialInStock     SerialStatus = "in_stock"
	SerialIssued      SerialStatus = "issued"
	SerialInTransit   SerialStatus = "in_transit"
	SerialReadyForUse SerialStatus = "ready_for_use"
)

// SerialNumber is an individually tracked unit of a product. CurrentBinID
// is null exactly while the unit is in transit or issued out of the
// warehouse.
type SerialNumber struct {
	ID             string       `db:"id" json:"id"`
	SerialNumber   string       `db:"serial_number" json:"serial_number"`
	ProductID      string       `db:"product_id" json:"product_id"`
	BatchID        *string      `db:"batch_id" json:"batch_id,omitempty"`
	CurrentBinID   *string      `db:"current_bin_id" json:"current_bin_id,omitempty"`
	Status         SerialStatus `db:"status" json:"status"`
	LastMovementAt time.Time    `db:"last_movement_at" json:"last_movement_at"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// EnsureAtBin verifies the unit is in stock at the given bin. Issue,
// transfer and dispatch all require this before they may touch the unit.
func (s *SerialNumber) EnsureAtBin(binID string) error {
	if s.Status != SerialInStock && s.Status != SerialReadyForUse {
		return errors.Conflict(fmt.Sprintf("serial %s is %s, not in stock", s.SerialNumber, s.Status))
	}
	if s.CurrentBinID == nil || *s.CurrentBinID != binID {
		return errors.Conflict(fmt.Sprintf("serial %s is not located at the source bin", s.SerialNumber))
	}
	return nil
}

// EnsureInTransit verifies the unit was dispatched and not yet received.
func (s *SerialNumber) EnsureInTransit() error {
	if s.Status != SerialInTransit {
		return errors.Conflict(fmt.Sprintf("serial %s is %s, expected in_transit", s.SerialNumber, s.Status))
	}
	return nil
}

// ExternalRepairState tracks a return-order item's trip to an external
// provider. It lives on the item, not the serial registry, but gates the
// inventory movements into and out of the external-provider bin.
type ExternalRepairState string

const (
	RepairWaitingProvider ExternalRepairState = "waiting_external_provider"
	RepairAtProvider      ExternalRepairState = "at_external_provider"
	RepairReadyForUse     ExternalRepairState = "ready_for_use"
)

// NextRepairState returns the single allowed successor state.
func NextRepairState(cur ExternalRepairState) (ExternalRepairState, error) {
	switch cur {
	case RepairWaitingProvider:
		return RepairAtProvider, nil
	case RepairAtProvider:
		return RepairReadyForUse, nil
	default:
		return "", errors.Conflict(fmt.Sprintf("repair state %s has no successor", cur))
	}
}
