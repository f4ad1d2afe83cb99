package service

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/events"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// WarehouseTransferService drives two-phase transfers between warehouses.
// Dispatch takes goods out of the source warehouse; receive books them
// into the target. Goods in between exist only on the transfer document
// and in the serial registry's in_transit state.
type WarehouseTransferService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *WarehouseTransferService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewWarehouseTransferService creates a new warehouse transfer service.
func NewWarehouseTransferService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *WarehouseTransferService {
	return &WarehouseTransferService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a new draft transfer after validating its lines.
func (s *WarehouseTransferService) Create(ctx context.Context, wt *domain.WarehouseTransfer) error {
	wt.CreatedBy = actor.IDOrSystem(ctx)
	if len(wt.Items) == 0 {
		return errors.ValidationMsg("a warehouse transfer needs at least one item")
	}
	if wt.SourceWarehouseID == wt.TargetWarehouseID {
		return errors.ValidationMsg("source and target warehouse must differ")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		if _, err := r.MasterData.GetWarehouse(ctx, wt.SourceWarehouseID); err != nil {
			return err
		}
		if _, err := r.MasterData.GetWarehouse(ctx, wt.TargetWarehouseID); err != nil {
			return err
		}
		for _, item := range wt.Items {
			if err := s.validateItem(ctx, r, wt, item); err != nil {
				return err
			}
		}
		return r.WarehouseTransfers.Create(ctx, wt)
	})
}

func (s *WarehouseTransferService) validateItem(ctx context.Context, r *repository.Repos, wt *domain.WarehouseTransfer, item *domain.WarehouseTransferItem) error {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if err := domain.EnsurePositiveQuantity(item.RequestedQuantity); err != nil {
		return err
	}
	if item.Unit == "" {
		item.Unit = product.Unit
	}
	fromBin, err := r.MasterData.GetActiveBin(ctx, item.FromBinID)
	if err != nil {
		return err
	}
	toBin, err := r.MasterData.GetActiveBin(ctx, item.ToBinID)
	if err != nil {
		return err
	}
	if fromBin.WarehouseID != wt.SourceWarehouseID {
		return errors.ValidationMsg("source bin is not in the source warehouse")
	}
	if toBin.WarehouseID != wt.TargetWarehouseID {
		return errors.ValidationMsg("target bin is not in the target warehouse")
	}
	if product.RequiresItemTracking {
		if err := domain.EnsureSerialCount(item.RequestedQuantity, item.SerialNumbers); err != nil {
			return err
		}
	} else if len(item.SerialNumbers) > 0 {
		return errors.ValidationMsg("product does not use item tracking")
	}
	return nil
}

// Get loads one transfer.
func (s *WarehouseTransferService) Get(ctx context.Context, id string) (*domain.WarehouseTransfer, error) {
	return s.store.Repos().WarehouseTransfers.GetByID(ctx, id)
}

// List lists transfers.
func (s *WarehouseTransferService) List(ctx context.Context, status domain.DocumentStatus, warehouseID string, limit, offset int) ([]*domain.WarehouseTransfer, int, error) {
	return s.store.Repos().WarehouseTransfers.List(ctx, status, warehouseID, limit, offset)
}

// Cancel voids a draft transfer without touching stock.
func (s *WarehouseTransferService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		wt, err := r.WarehouseTransfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindWarehouseTransfer, wt.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.WarehouseTransfers.UpdateStatus(ctx, id, wt.Status, domain.StatusCancelled, actorID)
	})
}

// Dispatch takes every line out of the source warehouse. Stock leaves the
// source bins, tracked units flip to in_transit with no location, and the
// batch dates travel on the document so receive can recreate the batches.
func (s *WarehouseTransferService) Dispatch(ctx context.Context, id string) (*domain.WarehouseTransfer, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		dispatched *domain.WarehouseTransfer
		movements  []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		wt, err := r.WarehouseTransfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindWarehouseTransfer, wt.Status, domain.StatusDispatched); err != nil {
			return err
		}

		for _, item := range wt.Items {
			m, err := s.dispatchItem(ctx, r, wt, item, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, m)
		}

		if err := r.WarehouseTransfers.UpdateStatus(ctx, id, wt.Status, domain.StatusDispatched, actorID); err != nil {
			return err
		}
		dispatched = wt
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindWarehouseTransfer, dispatched.ID,
		dispatched.TransferNumber, domain.StatusDispatched, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *WarehouseTransferService) dispatchItem(ctx context.Context, r *repository.Repos, wt *domain.WarehouseTransfer, item *domain.WarehouseTransferItem, actorID string) (*domain.StockMovement, error) {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if product.RequiresItemTracking {
		if err := takeSerials(ctx, r, item.ProductID, item.FromBinID, item.SerialNumbers, domain.SerialInTransit, nil); err != nil {
			return nil, err
		}
	}

	expiry := item.ExpiryDate
	manufactured := item.ManufacturedAt
	if item.BatchNumber != nil && *item.BatchNumber != "" {
		src, err := r.Batches.GetForUpdate(ctx, item.ProductID, item.FromBinID, *item.BatchNumber)
		if err != nil {
			return nil, err
		}
		expiry = src.ExpiryDate
		manufactured = src.ManufacturedAt
	}

	if _, err := debitStock(ctx, r, item.ProductID, item.FromBinID, item.RequestedQuantity, item.BatchNumber, false); err != nil {
		return nil, err
	}

	if err := r.WarehouseTransfers.RecordDispatch(ctx, item.ID, item.RequestedQuantity, expiry, manufactured); err != nil {
		return nil, err
	}

	fromBin := item.FromBinID
	meta := domain.MovementMetadata{
		DocumentItemID: item.ID,
		SerialNumbers:  item.SerialNumbers,
	}
	if item.BatchNumber != nil {
		meta.BatchNumber = *item.BatchNumber
	}
	m := &domain.StockMovement{
		MovementType:    domain.MovementDispatch,
		ReferenceType:   domain.RefWarehouseTransfer,
		ReferenceNumber: wt.TransferNumber,
		ProductID:       item.ProductID,
		FromBinID:       &fromBin,
		Quantity:        item.RequestedQuantity,
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata:        meta,
	}
	if err := r.Movements.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Receive books every dispatched line into the target warehouse. The
// credited quantity is what dispatch took, falling back to the requested
// quantity for documents dispatched before quantities were recorded.
func (s *WarehouseTransferService) Receive(ctx context.Context, id string) (*domain.WarehouseTransfer, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		received  *domain.WarehouseTransfer
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		wt, err := r.WarehouseTransfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindWarehouseTransfer, wt.Status, domain.StatusReceived); err != nil {
			return err
		}

		for _, item := range wt.Items {
			m, err := s.receiveItem(ctx, r, wt, item, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, m)
		}

		if err := r.WarehouseTransfers.UpdateStatus(ctx, id, wt.Status, domain.StatusReceived, actorID); err != nil {
			return err
		}
		received = wt
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindWarehouseTransfer, received.ID,
		received.TransferNumber, domain.StatusReceived, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *WarehouseTransferService) receiveItem(ctx context.Context, r *repository.Repos, wt *domain.WarehouseTransfer, item *domain.WarehouseTransferItem, actorID string) (*domain.StockMovement, error) {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	qty := item.ReceiveQuantity()
	if _, err := creditStock(ctx, r, item.ProductID, item.ToBinID, item.Unit, qty,
		item.BatchNumber, item.ExpiryDate, item.ManufacturedAt); err != nil {
		return nil, err
	}

	if product.RequiresItemTracking {
		if err := receiveSerials(ctx, r, item.ProductID, item.ToBinID, item.SerialNumbers); err != nil {
			return nil, err
		}
	}

	toBin := item.ToBinID
	meta := domain.MovementMetadata{
		DocumentItemID: item.ID,
		SerialNumbers:  item.SerialNumbers,
	}
	if item.BatchNumber != nil {
		meta.BatchNumber = *item.BatchNumber
	}
	m := &domain.StockMovement{
		MovementType:    domain.MovementReceive,
		ReferenceType:   domain.RefWarehouseTransfer,
		ReferenceNumber: wt.TransferNumber,
		ProductID:       item.ProductID,
		ToBinID:         &toBin,
		Quantity:        qty,
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata:        meta,
	}
	if err := r.Movements.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
