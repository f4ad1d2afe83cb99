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

// StocktakeService drives counted inventory snapshots. Completing a
// stocktake posts one adjustment movement per discrepancy between the
// counted and the booked quantity.
type StocktakeService struct {
	store     *repository.Store
	publisher *events.WarehouseEventPublisher
	alerts    *AlertScanner
	logger    *logger.Logger
}

// AttachAlertScanner makes completed postings evaluate alert rules for
// the products they touched.
func (s *StocktakeService) AttachAlertScanner(sc *AlertScanner) {
	s.alerts = sc
}

// NewStocktakeService creates a new stocktake service.
func NewStocktakeService(store *repository.Store, publisher *events.WarehouseEventPublisher, log *logger.Logger) *StocktakeService {
	return &StocktakeService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// Create stores a new draft stocktake.
func (s *StocktakeService) Create(ctx context.Context, st *domain.Stocktake) error {
	st.CreatedBy = actor.IDOrSystem(ctx)
	if len(st.Items) == 0 {
		return errors.ValidationMsg("a stocktake needs at least one count line")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		if _, err := r.MasterData.GetWarehouse(ctx, st.WarehouseID); err != nil {
			return err
		}
		for _, item := range st.Items {
			if err := s.validateItem(ctx, r, st, item); err != nil {
				return err
			}
		}
		return r.Stocktakes.Create(ctx, st)
	})
}

func (s *StocktakeService) validateItem(ctx context.Context, r *repository.Repos, st *domain.Stocktake, item *domain.StocktakeItem) error {
	product, err := r.MasterData.GetActiveProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if item.CountedQuantity.IsNegative() {
		return errors.ValidationMsg("counted quantity must not be negative")
	}
	if item.Unit == "" {
		item.Unit = product.Unit
	}
	bin, err := r.MasterData.GetActiveBin(ctx, item.BinLocationID)
	if err != nil {
		return err
	}
	if bin.WarehouseID != st.WarehouseID {
		return errors.ValidationMsg("counted bin is not in the stocktake's warehouse")
	}
	return nil
}

// Get loads one stocktake.
func (s *StocktakeService) Get(ctx context.Context, id string) (*domain.Stocktake, error) {
	return s.store.Repos().Stocktakes.GetByID(ctx, id)
}

// List lists stocktakes.
func (s *StocktakeService) List(ctx context.Context, status domain.DocumentStatus, warehouseID string, limit, offset int) ([]*domain.Stocktake, int, error) {
	return s.store.Repos().Stocktakes.List(ctx, status, warehouseID, limit, offset)
}

// Start moves a draft stocktake into counting.
func (s *StocktakeService) Start(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		st, err := r.Stocktakes.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindStocktake, st.Status, domain.StatusInProgress); err != nil {
			return err
		}
		return r.Stocktakes.UpdateStatus(ctx, id, st.Status, domain.StatusInProgress, actorID)
	})
}

// UpdateCounts replaces the count lines while the stocktake is editable.
func (s *StocktakeService) UpdateCounts(ctx context.Context, st *domain.Stocktake) error {
	if len(st.Items) == 0 {
		return errors.ValidationMsg("a stocktake needs at least one count line")
	}

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		existing, err := r.Stocktakes.GetForUpdate(ctx, st.ID)
		if err != nil {
			return err
		}
		if err := domain.EnsureEditable(domain.KindStocktake, existing.Status); err != nil {
			return err
		}
		st.WarehouseID = existing.WarehouseID
		for _, item := range st.Items {
			if err := s.validateItem(ctx, r, existing, item); err != nil {
				return err
			}
		}
		return r.Stocktakes.ReplaceItems(ctx, st)
	})
}

// Cancel voids a stocktake that has not been completed.
func (s *StocktakeService) Cancel(ctx context.Context, id string) error {
	actorID := actor.IDOrSystem(ctx)
	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		st, err := r.Stocktakes.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindStocktake, st.Status, domain.StatusCancelled); err != nil {
			return err
		}
		return r.Stocktakes.UpdateStatus(ctx, id, st.Status, domain.StatusCancelled, actorID)
	})
}

// Complete posts the stocktake. Each count line is compared against the
// booked quantity under lock; a discrepancy credits or debits the
// inventory row and records one adjustment movement carrying both
// figures. Lines that match the books post nothing.
func (s *StocktakeService) Complete(ctx context.Context, id string) (*domain.Stocktake, error) {
	actorID := actor.IDOrSystem(ctx)

	var (
		completed *domain.Stocktake
		movements []*domain.StockMovement
	)

	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		st, err := r.Stocktakes.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.EnsureTransition(domain.KindStocktake, st.Status, domain.StatusCompleted); err != nil {
			return err
		}

		for _, item := range st.Items {
			m, err := s.postItem(ctx, r, st, item, actorID)
			if err != nil {
				return err
			}
			if m != nil {
				movements = append(movements, m)
			}
		}

		if err := r.Stocktakes.UpdateStatus(ctx, id, st.Status, domain.StatusCompleted, actorID); err != nil {
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
	s.publisher.PublishDocumentCompleted(ctx, domain.KindStocktake, completed.ID,
		completed.StocktakeNumber, domain.StatusCompleted, productIDs(movements), actorID)
	evaluateAlerts(ctx, s.alerts, s.logger, productIDs(movements))

	return s.Get(ctx, id)
}

func (s *StocktakeService) postItem(ctx context.Context, r *repository.Repos, st *domain.Stocktake, item *domain.StocktakeItem, actorID string) (*domain.StockMovement, error) {
	inv, err := r.Inventory.GetOrCreateForUpdate(ctx, item.ProductID, item.BinLocationID)
	if err != nil {
		return nil, err
	}

	diff := item.CountedQuantity.Sub(inv.Quantity)
	if diff.IsZero() {
		return nil, nil
	}

	if diff.IsPositive() {
		if err := r.Inventory.Credit(ctx, inv.ID, diff); err != nil {
			return nil, err
		}
	} else {
		if err := r.Inventory.Debit(ctx, inv.ID, diff.Neg()); err != nil {
			return nil, err
		}
	}

	binID := item.BinLocationID
	m := &domain.StockMovement{
		MovementType:    domain.MovementAdjustment,
		ReferenceType:   domain.RefStocktake,
		ReferenceNumber: st.StocktakeNumber,
		ProductID:       item.ProductID,
		Quantity:        diff.Abs(),
		Unit:            item.Unit,
		PerformedBy:     actorID,
		Metadata: domain.MovementMetadata{
			DocumentItemID:   item.ID,
			CountedQuantity:  item.CountedQuantity.String(),
			ExpectedQuantity: inv.Quantity.String(),
		},
	}
	if diff.IsPositive() {
		m.ToBinID = &binID
	} else {
		m.FromBinID = &binID
	}
	if err := r.Movements.Record(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("stocktake", st.StocktakeNumber).
		Str("product_id", item.ProductID).
		Str("bin_id", item.BinLocationID).
		Str("difference", diff.String()).
		Msg("stocktake discrepancy adjusted")
	return m, nil
}

// Discrepancy is a preview line for a stocktake that has not been
// completed yet.
type Discrepancy struct {
	ProductID       string          `json:"product_id"`
	BinLocationID   string          `json:"bin_location_id"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	BookedQuantity  decimal.Decimal `json:"booked_quantity"`
	Difference      decimal.Decimal `json:"difference"`
}

// PreviewDiscrepancies compares the count lines against current book
// quantities without posting anything.
func (s *StocktakeService) PreviewDiscrepancies(ctx context.Context, id string) ([]*Discrepancy, error) {
	repos := s.store.Repos()
	st, err := repos.Stocktakes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var out []*Discrepancy
	for _, item := range st.Items {
		booked := decimal.Zero
		inv, err := repos.Inventory.GetByProductAndBin(ctx, item.ProductID, item.BinLocationID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		if inv != nil {
			booked = inv.Quantity
		}
		diff := item.CountedQuantity.Sub(booked)
		if diff.IsZero() {
			continue
		}
		out = append(out, &Discrepancy{
			ProductID:       item.ProductID,
			BinLocationID:   item.BinLocationID,
			CountedQuantity: item.CountedQuantity,
			BookedQuantity:  booked,
			Difference:      diff,
		})
	}
	return out, nil
}
