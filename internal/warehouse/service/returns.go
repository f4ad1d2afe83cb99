package service

import (
	"context"
	"fmt"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/events"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ReturnService drives return order disposition. Returned goods sit in
// the repair-center bin until review decides per line whether to restock,
// scrap, or send them on a repair round trip to the external provider.
type ReturnService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *ReturnService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewReturnService creates a new return service.
func NewReturnService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *ReturnService {
	return &ReturnService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a manually raised return order. Receipt completion
// creates most return orders automatically; this covers goods coming back
// outside any receipt.
func (s *ReturnService) Create(ctx context.Context, ro *domain.ReturnOrder) error {
	ro.CreatedBy = actor.IDOrSystem(ctx)
	if len(ro.Items) == 0 {
		return errors.ValidationMsg("a return order needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		for _, item := range ro.Items {
			product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := domain.EnsurePositiveQuantity(item.Quantity); err != nil {
				return err
			}
			if item.Unit == "" {
				item.Unit = product.Unit
			}
			if _, err := r.MasterData.GetActiveBin(ctx, item.TargetBinID); err != nil {
				return err
			}
			if item.SerialNumber != nil && !product.RequiresItemTracking {
				return errors.ValidationMsg("product does not use item tracking")
			}
		}
		return r.Returns.Create(ctx, ro)
	})
}

// Get loads one return order.
func (s *ReturnService) Get(ctx context.Context, id string) (*domain.ReturnOrder, error) {
	return s.store.Repos().Returns.GetByID(ctx, id)
}

// List lists return orders.
func (s *ReturnService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.ReturnOrder, int, error) {
	return s.store.Repos().Returns.List(ctx, status, limit, offset)
}

// SubmitForReview moves a draft order into review so decisions can be
// recorded.
func (s *ReturnService) SubmitForReview(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindReturnOrder, ro.Status, domain.StatusInReview); err != nil {
			return err
		}
		return r.Returns.UpdateStatus(ctx, id, ro.Status, domain.StatusInReview, actorID)
	})
}

// SetDecision records the disposition for one line while the order is in
// review.
func (s *ReturnService) SetDecision(ctx context.Context, orderID, itemID string, decision domain.ReturnDecision) error {
	switch decision {
	case domain.DecisionRestock, domain.DecisionScrap, domain.DecisionRepair:
	default:
		return errors.ValidationMsg(fmt.Sprintf("unknown disposition %q", decision))
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ro.Status != domain.StatusInReview {
			return errors.Conflict("decisions can only be recorded while the order is in review")
		}
		for _, item := range ro.Items {
			if item.ID == itemID {
				return r.Returns.SetItemDecision(ctx, itemID, decision)
			}
		}
		return errors.NotFound("return order item")
	})
}

// Cancel voids an order that has not been processed.
func (s *ReturnService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindReturnOrder, ro.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.Returns.UpdateStatus(ctx, id, ro.Status, domain.StatusCancelled, actorID)
	})
}

// Process executes the recorded decisions: restocked lines move from the
// repair-center bin back to regular storage, scrapped lines leave stock,
// and repair lines enter the external round trip waiting for dispatch.
// Every line must carry a decision before processing starts.
func (s *ReturnService) Process(ctx context.Context, id string) (*domain.ReturnOrder, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		processed *domain.ReturnOrder
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindReturnOrder, ro.Status, domain.StatusProcessed); err != nil {
			return err
		}

		for _, item := range ro.Items {
			if item.Decision == "" {
				return errors.ValidationMsg(fmt.Sprintf("line %d has no disposition decision", item.Position))
			}
		}

		for _, item := range ro.Items {
			m, err := s.processItem(ctx, r, ro, item, actorID)
			if err != nil {
				return err
			}
			if m != nil {
				movements = append(movements, m)
			}
		}

		if err := r.Returns.UpdateStatus(ctx, id, ro.Status, domain.StatusProcessed, actorID); err != nil {
			return err
		}
		processed = ro
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindReturnOrder, processed.ID,
		processed.OrderNumber, domain.StatusProcessed, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *ReturnService) processItem(ctx context.Context, r *repository.Repos, ro *domain.ReturnOrder, item *domain.ReturnOrderItem, actorID string) (*domain.StockMovement, error) {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	switch item.Decision {
	case domain.DecisionRestock:
		if product.DefaultBinID == nil {
			return nil, errors.ValidationMsg(fmt.Sprintf("product %s has no default bin to restock into", product.SKU))
		}
		return s.restockItem(ctx, r, ro, item, product, *product.DefaultBinID, actorID)

	case domain.DecisionScrap:
		return s.scrapItem(ctx, r, ro, item, product, actorID)

	case domain.DecisionRepair:
		// Stock stays in the repair-center bin. The round trip to the
		// external provider runs through DispatchRepair/ReceiveRepair.
		state := domain.RepairWaitingProvider
		return nil, r.Returns.SetItemRepairState(ctx, item.ID, &state)

	default:
		return nil, errors.ValidationMsg(fmt.Sprintf("unknown disposition %q", item.Decision))
	}
}

func (s *ReturnService) restockItem(ctx context.Context, r *repository.Repos, ro *domain.ReturnOrder, item *domain.ReturnOrderItem, product *domain.Product, storageBinID, actorID string) (*domain.StockMovement, error) {
	if product.RequiresItemTracking && item.SerialNumber != nil {
		toBin := storageBinID
		if err := takeSerials(ctx, r, item.ProductID, item.TargetBinID, []string{*item.SerialNumber}, domain.SerialInStock, &toBin); err != nil {
			return nil, err
		}
	}

	if _, err := moveStock(ctx, r, item.ProductID, item.TargetBinID, storageBinID, item.Unit,
		item.Quantity, item.BatchNumber, false); err != nil {
		return nil, err
	}

	fromBin, toBin := item.TargetBinID, storageBinID
	m := &domain.StockMovement{
		MovementType:    domain.MovementReturnRestock,
		ReferenceType:   domain.RefReturnOrder,
		ReferenceNumber: ro.OrderNumber,
		ProductID:       item.ProductID,
		FromBinID:       &fromBin,
		ToBinID:         &toBin,
		Quantity:        item.Quantity,
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata:        s.itemMetadata(item),
	}
	if err := r.Movements.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ReturnService) scrapItem(ctx context.Context, r *repository.Repos, ro *domain.ReturnOrder, item *domain.ReturnOrderItem, product *domain.Product, actorID string) (*domain.StockMovement, error) {
	if product.RequiresItemTracking && item.SerialNumber != nil {
		if err := takeSerials(ctx, r, item.ProductID, item.TargetBinID, []string{*item.SerialNumber}, domain.SerialIssued, nil); err != nil {
			return nil, err
		}
	}

	if _, err := debitStock(ctx, r, item.ProductID, item.TargetBinID, item.Quantity, item.BatchNumber, false); err != nil {
		return nil, err
	}

	fromBin := item.TargetBinID
	m := &domain.StockMovement{
		MovementType:    domain.MovementReturnScrap,
		ReferenceType:   domain.RefReturnOrder,
		ReferenceNumber: ro.OrderNumber,
		ProductID:       item.ProductID,
		FromBinID:       &fromBin,
		Quantity:        item.Quantity,
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata:        s.itemMetadata(item),
	}
	if err := r.Movements.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DispatchRepair sends one repair line to the external provider. Stock
// moves from the repair-center bin into the external-provider bin and the
// line's round-trip state advances.
func (s *ReturnService) DispatchRepair(ctx context.Context, orderID, itemID string) error {
	actorID := actor.IDOrSystem(ctx)

	var movement *domain.StockMovement
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := r.Returns.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.ReturnOrderID != orderID {
			return errors.NotFound("return order item")
		}
		if item.Decision != domain.DecisionRepair {
			return errors.Conflict("line is not marked for repair")
		}
		if item.RepairState == nil || *item.RepairState != domain.RepairWaitingProvider {
			return errors.Conflict("line is not waiting for provider dispatch")
		}

		bin, err := r.MasterData.GetBin(ctx, item.TargetBinID)
		if err != nil {
			return err
		}
		providerBin, err := r.MasterData.FindPurposeBin(ctx, bin.WarehouseID, repository.PurposeExternalProvider)
		if err != nil {
			return err
		}

		product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.RequiresItemTracking && item.SerialNumber != nil {
			providerID := providerBin.ID
			if err := takeSerials(ctx, r, item.ProductID, item.TargetBinID, []string{*item.SerialNumber}, domain.SerialInStock, &providerID); err != nil {
				return err
			}
		}

		if _, err := moveStock(ctx, r, item.ProductID, item.TargetBinID, providerBin.ID, item.Unit,
			item.Quantity, item.BatchNumber, false); err != nil {
			return err
		}

		next, err := domain.NextRepairState(*item.RepairState)
		if err != nil {
			return err
		}
		if err := r.Returns.SetItemRepairState(ctx, itemID, &next); err != nil {
			return err
		}

		fromBin, toBin := item.TargetBinID, providerBin.ID
		movement = &domain.StockMovement{
			MovementType:    domain.MovementRepairDispatch,
			ReferenceType:   domain.RefReturnOrder,
			ReferenceNumber: ro.OrderNumber,
			ProductID:       item.ProductID,
			FromBinID:       &fromBin,
			ToBinID:         &toBin,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			PerformedBy:     actorID,
			Metadata:        s.itemMetadata(item),
		}
		return r.Movements.Record(ctx, movement)
	})
	if err != nil {
		return err
	}

	s.publisher.PublishMovementRecorded(ctx, movement)
	return nil
}

// ReceiveRepair lands one repaired line back from the external provider.
// Stock moves from the external-provider bin into the product's default
// bin, the unit flips to ready_for_use, and the round trip finishes.
func (s *ReturnService) ReceiveRepair(ctx context.Context, orderID, itemID string) error {
	actorID := actor.IDOrSystem(ctx)

	var movement *domain.StockMovement
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		ro, err := r.Returns.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := r.Returns.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.ReturnOrderID != orderID {
			return errors.NotFound("return order item")
		}
		if item.RepairState == nil || *item.RepairState != domain.RepairAtProvider {
			return errors.Conflict("line is not at the external provider")
		}

		product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.DefaultBinID == nil {
			return errors.ValidationMsg(fmt.Sprintf("product %s has no default bin to receive into", product.SKU))
		}
		storageBinID := *product.DefaultBinID

		bin, err := r.MasterData.GetBin(ctx, item.TargetBinID)
		if err != nil {
			return err
		}
		providerBin, err := r.MasterData.FindPurposeBin(ctx, bin.WarehouseID, repository.PurposeExternalProvider)
		if err != nil {
			return err
		}

		if product.RequiresItemTracking && item.SerialNumber != nil {
			if err := takeSerials(ctx, r, item.ProductID, providerBin.ID, []string{*item.SerialNumber}, domain.SerialReadyForUse, &storageBinID); err != nil {
				return err
			}
		}

		if _, err := moveStock(ctx, r, item.ProductID, providerBin.ID, storageBinID, item.Unit,
			item.Quantity, item.BatchNumber, false); err != nil {
			return err
		}

		next, err := domain.NextRepairState(*item.RepairState)
		if err != nil {
			return err
		}
		if err := r.Returns.SetItemRepairState(ctx, itemID, &next); err != nil {
			return err
		}

		fromBin := providerBin.ID
		movement = &domain.StockMovement{
			MovementType:    domain.MovementRepairReceive,
			ReferenceType:   domain.RefReturnOrder,
			ReferenceNumber: ro.OrderNumber,
			ProductID:       item.ProductID,
			FromBinID:       &fromBin,
			ToBinID:         &storageBinID,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			PerformedBy:     actorID,
			Metadata:        s.itemMetadata(item),
		}
		return r.Movements.Record(ctx, movement)
	})
	if err != nil {
		return err
	}

	s.publisher.PublishMovementRecorded(ctx, movement)
	return nil
}

func (s *ReturnService) itemMetadata(item *domain.ReturnOrderItem) domain.MovementMetadata {
	meta := domain.MovementMetadata{
		DocumentItemID: item.ID,
	}
	if item.SerialNumber != nil {
		meta.SerialNumbers = []string{*item.SerialNumber}
	}
	if item.BatchNumber != nil {
		meta.BatchNumber = *item.BatchNumber
	}
	if item.Decision != "" {
		meta.Reason = string(item.Decision)
	}
	return meta
}
