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

// ReceiptService drives the goods receipt workflow.
type ReceiptService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *ReceiptService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewReceiptService creates a new receipt service.
func NewReceiptService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *ReceiptService {
	return &ReceiptService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a new draft receipt after validating its lines against
// the product cache.
func (s *ReceiptService) Create(ctx context.Context, gr *domain.GoodsReceipt) error {
	gr.CreatedBy = actor.IDOrSystem(ctx)
	if len(gr.Items) == 0 {
		return errors.ValidationMsg("a goods receipt needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		for _, item := range gr.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Receipts.Create(ctx, gr)
	})
}

func (s *ReceiptService) validateItem(ctx context.Context, r *repository.Repos, item *domain.GoodsReceiptItem) error {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if err := domain.EnsurePositiveQuantity(item.ReceivedQuantity); err != nil {
		return err
	}
	if item.Unit == "" {
		item.Unit = product.Unit
	}
	if err := domain.EnsureBatchFields(item.BatchNumber, item.ExpiryDate != nil || item.ManufacturedAt != nil); err != nil {
		return err
	}
	if product.RequiresItemTracking {
		if err := domain.EnsureSerialCount(item.ReceivedQuantity, item.SerialNumbers); err != nil {
			return err
		}
	} else if len(item.SerialNumbers) > 0 {
		return errors.ValidationMsg("product does not use item tracking")
	}
	if item.TargetBinID == nil && product.DefaultBinID == nil {
		return errors.ValidationMsg(fmt.Sprintf("no target bin for product %s and no default configured", product.SKU))
	}
	return nil
}

// Get loads one receipt.
func (s *ReceiptService) Get(ctx context.Context, id string) (*domain.GoodsReceipt, error) {
	return s.store.Repos().Receipts.GetByID(ctx, id)
}

// List lists receipts.
func (s *ReceiptService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.GoodsReceipt, int, error) {
	return s.store.Repos().Receipts.List(ctx, status, limit, offset)
}

// UpdateDraft replaces the lines of a receipt that is still editable.
func (s *ReceiptService) UpdateDraft(ctx context.Context, gr *domain.GoodsReceipt) error {
	if len(gr.Items) == 0 {
		return errors.ValidationMsg("a goods receipt needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		existing, err := r.Receipts.GetForUpdate(ctx, gr.ID)
		if err != nil {
			return err
		}
		if err := domain.EnsureEditable(domain.KindGoodsReceipt, existing.Status); err != nil {
			return err
		}
		for _, item := range gr.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Receipts.ReplaceItems(ctx, gr)
	})
}

// Cancel voids a draft receipt without touching stock.
func (s *ReceiptService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		gr, err := r.Receipts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindGoodsReceipt, gr.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.Receipts.UpdateStatus(ctx, id, gr.Status, domain.StatusCancelled, actorID)
	})
}

// Complete posts the receipt: every line credits stock at its target bin,
// batch and serial ledgers update in step, purchase order lines
// reconcile, and one movement row lands per line. Goods arriving in any
// condition other than new are redirected to the repair-center bin and
// collected into an automatic return order. The whole posting is one
// transaction.
func (s *ReceiptService) Complete(ctx context.Context, id string) (*domain.GoodsReceipt, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		completed *domain.GoodsReceipt
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		gr, err := r.Receipts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindGoodsReceipt, gr.Status, domain.StatusCompleted); err != nil {
			return err
		}

		var returnItems []*domain.ReturnOrderItem
		for _, item := range gr.Items {
			m, retItems, err := s.postItem(ctx, r, gr, item, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, m)
			returnItems = append(returnItems, retItems...)
		}

		if len(returnItems) > 0 {
			ro := &domain.ReturnOrder{
				SourceType: domain.SourceTechnician,
				Status:     domain.StatusDraft,
				CreatedBy:  actorID,
				Items:      returnItems,
			}
			if err := r.Returns.Create(ctx, ro); err != nil {
				return err
			}
			s.logger.Info().
				Str("receipt_number", gr.ReceiptNumber).
				Str("return_order", ro.OrderNumber).
				Int("items", len(returnItems)).
				Msg("auto-created return order for non-new goods")
		}

		if err := r.Receipts.UpdateStatus(ctx, id, gr.Status, domain.StatusCompleted, actorID); err != nil {
			return err
		}
		completed = gr
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindGoodsReceipt, completed.ID,
		completed.ReceiptNumber, domain.StatusCompleted, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

// postItem credits one receipt line and returns its movement plus any
// return order lines spawned by a non-new condition.
func (s *ReceiptService) postItem(ctx context.Context, r *repository.Repos, gr *domain.GoodsReceipt, item *domain.GoodsReceiptItem, actorID string) (*domain.StockMovement, []*domain.ReturnOrderItem, error) {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, nil, err
	}

	targetBinID := product.DefaultBinID
	if item.TargetBinID != nil {
		targetBinID = item.TargetBinID
	}
	if targetBinID == nil {
		return nil, nil, errors.ValidationMsg(fmt.Sprintf("no target bin for product %s", product.SKU))
	}
	bin, err := r.MasterData.GetActiveBin(ctx, *targetBinID)
	if err != nil {
		return nil, nil, err
	}

	// Non-new goods never land in regular storage. They go to the
	// repair-center bin and wait for a disposition decision.
	var originalBinID string
	var returnItems []*domain.ReturnOrderItem
	if !item.Condition.IsNew() {
		repairBin, err := r.MasterData.FindPurposeBin(ctx, bin.WarehouseID, repository.PurposeRepairCenter)
		if err != nil {
			return nil, nil, err
		}
		originalBinID = bin.ID
		bin = repairBin

		returnItems = append(returnItems, s.returnLinesFor(item, repairBin.ID)...)
	}

	if item.PurchaseOrderItemID != nil {
		if err := s.reconcilePOItem(ctx, r, *item.PurchaseOrderItemID, item); err != nil {
			return nil, nil, err
		}
	}

	batch, err := creditStock(ctx, r, item.ProductID, bin.ID, item.Unit,
		item.ReceivedQuantity, item.BatchNumber, item.ExpiryDate, item.ManufacturedAt)
	if err != nil {
		return nil, nil, err
	}

	if product.RequiresItemTracking {
		var batchID *string
		if batch != nil {
			batchID = &batch.ID
		}
		// Non-new units wait in the repair-center bin as regular stock;
		// ready_for_use is reserved for the end of a repair round trip.
		if err := registerSerials(ctx, r, item.ProductID, bin.ID, item.SerialNumbers, batchID, domain.SerialInStock); err != nil {
			return nil, nil, err
		}
	}

	meta := domain.MovementMetadata{
		DocumentItemID: item.ID,
		SerialNumbers:  item.SerialNumbers,
		Condition:      string(item.Condition),
		OriginalBinID:  originalBinID,
	}
	if item.BatchNumber != nil {
		meta.BatchNumber = *item.BatchNumber
	}
	if item.PurchaseOrderItemID != nil {
		meta.PurchaseOrderItemID = *item.PurchaseOrderItemID
	}

	binID := bin.ID
	movement := &domain.StockMovement{
		MovementType:    domain.MovementGoodsReceipt,
		ReferenceType:   domain.RefGoodsReceipt,
		ReferenceNumber: gr.ReceiptNumber,
		ProductID:       item.ProductID,
		ToBinID:         &binID,
		Quantity:        item.ReceivedQuantity,
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata:        meta,
	}
	if err := r.Movements.Record(ctx, movement); err != nil {
		return nil, nil, err
	}
	return movement, returnItems, nil
}

// returnLinesFor builds the auto return order lines for a non-new line:
// one per serial for tracked goods, a single quantity line otherwise.
func (s *ReceiptService) returnLinesFor(item *domain.GoodsReceiptItem, repairBinID string) []*domain.ReturnOrderItem {
	itemID := item.ID
	if len(item.SerialNumbers) > 0 {
		lines := make([]*domain.ReturnOrderItem, 0, len(item.SerialNumbers))
		for _, serial := range item.SerialNumbers {
			sn := serial
			lines = append(lines, &domain.ReturnOrderItem{
				ProductID:          item.ProductID,
				Quantity:           one,
				Unit:               item.Unit,
				TargetBinID:        repairBinID,
				SerialNumber:       &sn,
				BatchNumber:        item.BatchNumber,
				GoodsReceiptItemID: &itemID,
			})
		}
		return lines
	}
	return []*domain.ReturnOrderItem{{
		ProductID:          item.ProductID,
		Quantity:           item.ReceivedQuantity,
		Unit:               item.Unit,
		TargetBinID:        repairBinID,
		BatchNumber:        item.BatchNumber,
		GoodsReceiptItemID: &itemID,
	}}
}

// reconcilePOItem guards against over-receipt and rolls the order status
// forward as lines fill up.
func (s *ReceiptService) reconcilePOItem(ctx context.Context, r *repository.Repos, poItemID string, item *domain.GoodsReceiptItem) error {
	poItem, err := r.PurchaseOrders.GetItemForUpdate(ctx, poItemID)
	if err != nil {
		return err
	}
	if poItem.ProductID != item.ProductID {
		return errors.BadRequest("purchase order line is for a different product")
	}

	po, err := r.PurchaseOrders.GetOrderForUpdate(ctx, poItem.PurchaseOrderID)
	if err != nil {
		return err
	}
	if !po.Status.Receivable() {
		return errors.Conflict(fmt.Sprintf("purchase order %s is %s and cannot receive goods", po.OrderNumber, po.Status))
	}
	if !po.SupplierConfirmed {
		return errors.Conflict(fmt.Sprintf("purchase order %s is not supplier-confirmed", po.OrderNumber))
	}
	if item.ReceivedQuantity.GreaterThan(poItem.Outstanding()) {
		return errors.Conflict(fmt.Sprintf(
			"receiving %s exceeds the %s outstanding on purchase order %s",
			item.ReceivedQuantity, poItem.Outstanding(), po.OrderNumber))
	}

	if err := r.PurchaseOrders.AddReceived(ctx, poItemID, item.ReceivedQuantity); err != nil {
		return err
	}

	full, err := r.PurchaseOrders.FullyReceived(ctx, po.ID)
	if err != nil {
		return err
	}
	next := domain.POStatusPartiallyReceived
	if full {
		next = domain.POStatusCompleted
	}
	if po.Status != next {
		return r.PurchaseOrders.SetStatus(ctx, po.ID, next)
	}
	return nil
}

func productIDs(movements []*domain.StockMovement) []string {
	seen := make(map[string]struct{}, len(movements))
	ids := make([]string, 0, len(movements))
	for _, m := range movements {
		if _, ok := seen[m.ProductID]; ok {
			continue
		}
		seen[m.ProductID] = struct{}{}
		ids = append(ids, m.ProductID)
	}
	return ids
}
