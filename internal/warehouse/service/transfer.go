package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/events"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// TransferService drives intra-warehouse stock transfers.
type TransferService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *TransferService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewTransferService creates a new transfer service.
func NewTransferService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *TransferService {
	return &TransferService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a new draft transfer after validating its lines.
func (s *TransferService) Create(ctx context.Context, st *domain.StockTransfer) error {
	st.CreatedBy = actor.IDOrSystem(ctx)
	if len(st.Items) == 0 {
		return errors.ValidationMsg("a stock transfer needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		for _, item := range st.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Transfers.Create(ctx, st)
	})
}

func (s *TransferService) validateItem(ctx context.Context, r *repository.Repos, item *domain.StockTransferItem) error {
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
	if item.FromBinID == item.ToBinID {
		return errors.ValidationMsg("source and target bin must differ")
	}
	fromBin, err := r.MasterData.GetActiveBin(ctx, item.FromBinID)
	if err != nil {
		return err
	}
	toBin, err := r.MasterData.GetActiveBin(ctx, item.ToBinID)
	if err != nil {
		return err
	}
	if fromBin.WarehouseID != toBin.WarehouseID {
		return errors.ValidationMsg("bins belong to different warehouses; use a warehouse transfer")
	}
	if product.RequiresItemTracking {
		if err := domain.EnsureSerialCount(item.Quantity, item.SerialNumbers); err != nil {
			return err
		}
	} else if len(item.SerialNumbers) > 0 {
		return errors.ValidationMsg("product does not use item tracking")
	}
	return nil
}

// Get loads one transfer.
func (s *TransferService) Get(ctx context.Context, id string) (*domain.StockTransfer, error) {
	return s.store.Repos().Transfers.GetByID(ctx, id)
}

// List lists transfers.
func (s *TransferService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.StockTransfer, int, error) {
	return s.store.Repos().Transfers.List(ctx, status, limit, offset)
}

// UpdateDraft replaces the lines of a transfer that is still editable.
func (s *TransferService) UpdateDraft(ctx context.Context, st *domain.StockTransfer) error {
	if len(st.Items) == 0 {
		return errors.ValidationMsg("a stock transfer needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		existing, err := r.Transfers.GetForUpdate(ctx, st.ID)
		if err != nil {
			return err
		}
		if err := domain.EnsureEditable(domain.KindStockTransfer, existing.Status); err != nil {
			return err
		}
		for _, item := range st.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Transfers.ReplaceItems(ctx, st)
	})
}

// Cancel voids a draft transfer without touching stock.
func (s *TransferService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		st, err := r.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindStockTransfer, st.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.Transfers.UpdateStatus(ctx, id, st.Status, domain.StatusCancelled, actorID)
	})
}

// Complete posts the transfer: each line moves stock between two bins of
// the same warehouse in one step, batch identity and serial locations
// carried along, one movement row per batch drawn. All lines post in one
// transaction.
func (s *TransferService) Complete(ctx context.Context, id string) (*domain.StockTransfer, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		completed *domain.StockTransfer
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		st, err := r.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindStockTransfer, st.Status, domain.StatusCompleted); err != nil {
			return err
		}

		for _, item := range st.Items {
			ms, err := s.postItem(ctx, r, st, item, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, ms...)
		}

		if err := r.Transfers.UpdateStatus(ctx, id, st.Status, domain.StatusCompleted, actorID); err != nil {
			return err
		}
		completed = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindStockTransfer, completed.ID,
		completed.TransferNumber, domain.StatusCompleted, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *TransferService) postItem(ctx context.Context, r *repository.Repos, st *domain.StockTransfer, item *domain.StockTransferItem, actorID string) ([]*domain.StockMovement, error) {
	// lines may have been written without going through validation
	if item.FromBinID == item.ToBinID {
		return nil, errors.ValidationMsg("source and target bin must differ")
	}

	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if product.RequiresItemTracking {
		toBin := item.ToBinID
		if err := takeSerials(ctx, r, item.ProductID, item.FromBinID, item.SerialNumbers, domain.SerialInStock, &toBin); err != nil {
			return nil, err
		}
	}

	draws, err := moveStock(ctx, r, item.ProductID, item.FromBinID, item.ToBinID, item.Unit,
		item.Quantity, item.BatchNumber, item.UseFEFO)
	if err != nil {
		return nil, err
	}

	fromBin, toBin := item.FromBinID, item.ToBinID
	record := func(qty decimal.Decimal, batchNumber string) (*domain.StockMovement, error) {
		m := &domain.StockMovement{
			MovementType:    domain.MovementStockTransfer,
			ReferenceType:   domain.RefStockTransfer,
			ReferenceNumber: st.TransferNumber,
			ProductID:       item.ProductID,
			FromBinID:       &fromBin,
			ToBinID:         &toBin,
			Quantity:        qty,
			Unit:            item.Unit,
			PerformedBy:     actorID,
			Metadata: domain.MovementMetadata{
				DocumentItemID: item.ID,
				BatchNumber:    batchNumber,
				SerialNumbers:  item.SerialNumbers,
			},
		}
		if err := r.Movements.Record(ctx, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	if len(draws) == 0 {
		m, err := record(item.Quantity, "")
		if err != nil {
			return nil, err
		}
		return []*domain.StockMovement{m}, nil
	}

	movements := make([]*domain.StockMovement, 0, len(draws))
	for _, draw := range draws {
		m, err := record(draw.Quantity, draw.BatchNumber)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}
