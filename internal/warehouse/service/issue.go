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

// IssueService drives the goods issue workflow.
type IssueService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *IssueService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewIssueService creates a new issue service.
func NewIssueService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *IssueService {
	return &IssueService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a new draft issue after validating its lines.
func (s *IssueService) Create(ctx context.Context, gi *domain.GoodsIssue) error {
	gi.CreatedBy = actor.IDOrSystem(ctx)
	if len(gi.Items) == 0 {
		return errors.ValidationMsg("a goods issue needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		for _, item := range gi.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Issues.Create(ctx, gi)
	})
}

func (s *IssueService) validateItem(ctx context.Context, r *repository.Repos, item *domain.GoodsIssueItem) error {
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
	if _, err := r.MasterData.GetActiveBin(ctx, item.SourceBinID); err != nil {
		return err
	}
	if product.RequiresItemTracking {
		if err := domain.EnsureSerialCount(item.EffectiveQuantity(), item.SerialNumbers); err != nil {
			return err
		}
	} else if len(item.SerialNumbers) > 0 {
		return errors.ValidationMsg("product does not use item tracking")
	}
	return nil
}

// Get loads one issue.
func (s *IssueService) Get(ctx context.Context, id string) (*domain.GoodsIssue, error) {
	return s.store.Repos().Issues.GetByID(ctx, id)
}

// List lists issues.
func (s *IssueService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.GoodsIssue, int, error) {
	return s.store.Repos().Issues.List(ctx, status, limit, offset)
}

// UpdateDraft replaces the lines of an issue that is still editable.
func (s *IssueService) UpdateDraft(ctx context.Context, gi *domain.GoodsIssue) error {
	if len(gi.Items) == 0 {
		return errors.ValidationMsg("a goods issue needs at least one item")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		existing, err := r.Issues.GetForUpdate(ctx, gi.ID)
		if err != nil {
			return err
		}
		if err := domain.EnsureEditable(domain.KindGoodsIssue, existing.Status); err != nil {
			return err
		}
		for _, item := range gi.Items {
			if err := s.validateItem(ctx, r, item); err != nil {
				return err
			}
		}
		return r.Issues.ReplaceItems(ctx, gi)
	})
}

// Cancel voids a draft issue without touching stock.
func (s *IssueService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		gi, err := r.Issues.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindGoodsIssue, gi.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.Issues.UpdateStatus(ctx, id, gi.Status, domain.StatusCancelled, actorID)
	})
}

// Complete posts the issue: every line debits its source bin by the
// effective quantity, batch stock drains in FEFO order unless a batch is
// pinned, tracked units flip to issued, and one movement row lands per
// batch drawn. The whole posting is one transaction; the first line that
// cannot be covered rolls everything back.
func (s *IssueService) Complete(ctx context.Context, id string) (*domain.GoodsIssue, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		completed *domain.GoodsIssue
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		gi, err := r.Issues.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindGoodsIssue, gi.Status, domain.StatusCompleted); err != nil {
			return err
		}

		for _, item := range gi.Items {
			ms, err := s.postItem(ctx, r, gi, item, actorID)
			if err != nil {
				return err
			}
			movements = append(movements, ms...)
		}

		if err := r.Issues.UpdateStatus(ctx, id, gi.Status, domain.StatusCompleted, actorID); err != nil {
			return err
		}
		completed = gi
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		s.publisher.PublishMovementRecorded(ctx, m)
	}
	s.publisher.PublishDocumentCompleted(ctx, domain.KindGoodsIssue, completed.ID,
		completed.IssueNumber, domain.StatusCompleted, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *IssueService) postItem(ctx context.Context, r *repository.Repos, gi *domain.GoodsIssue, item *domain.GoodsIssueItem, actorID string) ([]*domain.StockMovement, error) {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	qty := item.EffectiveQuantity()
	if item.IssuedQuantity != nil {
		if err := r.Issues.RecordIssuedQuantity(ctx, item.ID, qty); err != nil {
			return nil, err
		}
	}

	if product.RequiresItemTracking {
		if err := domain.EnsureSerialCount(qty, item.SerialNumbers); err != nil {
			return nil, err
		}
		if err := takeSerials(ctx, r, item.ProductID, item.SourceBinID, item.SerialNumbers, domain.SerialIssued, nil); err != nil {
			return nil, err
		}
	}

	draws, err := debitStock(ctx, r, item.ProductID, item.SourceBinID, qty, item.BatchNumber, item.UseFEFO)
	if err != nil {
		return nil, err
	}

	fromBin := item.SourceBinID
	if len(draws) == 0 {
		m := &domain.StockMovement{
			MovementType:    domain.MovementGoodsIssue,
			ReferenceType:   domain.RefGoodsIssue,
			ReferenceNumber: gi.IssueNumber,
			ProductID:       item.ProductID,
			FromBinID:       &fromBin,
			Quantity:        qty,
			Unit:            item.Unit,
			PerformedBy:     actorID,
			Metadata: domain.MovementMetadata{
				DocumentItemID: item.ID,
				SerialNumbers:  item.SerialNumbers,
			},
		}
		if err := r.Movements.Record(ctx, m); err != nil {
			return nil, err
		}
		return []*domain.StockMovement{m}, nil
	}

	// One movement per batch drawn keeps the log replayable at batch
	// granularity.
	movements := make([]*domain.StockMovement, 0, len(draws))
	for _, draw := range draws {
		m := &domain.StockMovement{
			MovementType:    domain.MovementGoodsIssue,
			ReferenceType:   domain.RefGoodsIssue,
			ReferenceNumber: gi.IssueNumber,
			ProductID:       item.ProductID,
			FromBinID:       &fromBin,
			Quantity:        draw.Quantity,
			Unit:            item.Unit,
			PerformedBy:     actorID,
			Metadata: domain.MovementMetadata{
				DocumentItemID: item.ID,
				BatchNumber:    draw.BatchNumber,
				SerialNumbers:  item.SerialNumbers,
			},
		}
		if err := r.Movements.Record(ctx, m); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}
