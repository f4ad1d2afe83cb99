package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

var one = decimal.NewFromInt(1)

// evaluateAlerts runs the attached alert scanner over the products a
// posting touched, after the transaction has committed. The posting
// stands either way; evaluation failures only get logged.
func evaluateAlerts(ctx context.Context, sc *AlertScanner, log *logger.Logger, productIDs []string) {
	if err := sc.ScanProducts(ctx, productIDs); err != nil {
		log.Error().Err(err).Msg("alert evaluation after posting failed")
	}
}

// creditStock books qty of a product into a bin, keeping the batch ledger
// in step when a batch number is present. Must run inside a transaction.
func creditStock(ctx context.Context, r *repository.Repos, productID, binID, unit string, qty decimal.Decimal, batchNumber *string, expiry, manufactured *time.Time) (*domain.InventoryBatch, error) {
	inv, err := r.Inventory.GetOrCreateForUpdate(ctx, productID, binID)
	if err != nil {
		return nil, err
	}
	if err := r.Inventory.Credit(ctx, inv.ID, qty); err != nil {
		return nil, err
	}

	if batchNumber == nil || *batchNumber == "" {
		return nil, nil
	}
	batch, err := r.Batches.GetOrCreateForUpdate(ctx, productID, binID, *batchNumber, unit, expiry, manufactured)
	if err != nil {
		return nil, err
	}
	if err := r.Batches.Credit(ctx, batch.ID, qty); err != nil {
		return nil, err
	}
	return batch, nil
}

// batchDraw is one batch's share of a debit, used for movement metadata.
type batchDraw struct {
	BatchNumber string
	Quantity    decimal.Decimal
}

// debitStock books qty of a product out of a bin. An explicit batch number
// debits that batch alone; useFEFO spreads the debit across non-empty
// batches in first-expired-first-out order, with any remainder drawn from
// un-batched stock. The inventory row's non-negative constraint is the
// final guard against overdraws either way.
func debitStock(ctx context.Context, r *repository.Repos, productID, binID string, qty decimal.Decimal, batchNumber *string, useFEFO bool) ([]batchDraw, error) {
	inv, err := r.Inventory.GetForUpdate(ctx, productID, binID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InsufficientStock("insufficient stock for product "+productID)
		}
		return nil, err
	}
	if inv.Quantity.LessThan(qty) {
		return nil, errors.InsufficientStock("insufficient stock for product "+productID)
	}
	if err := r.Inventory.Debit(ctx, inv.ID, qty); err != nil {
		return nil, err
	}

	switch {
	case batchNumber != nil && *batchNumber != "":
		batch, err := r.Batches.GetForUpdate(ctx, productID, binID, *batchNumber)
		if err != nil {
			return nil, err
		}
		if batch.Quantity.LessThan(qty) {
			return nil, errors.InsufficientStock("insufficient stock for product "+productID)
		}
		if err := r.Batches.Debit(ctx, batch.ID, qty); err != nil {
			return nil, err
		}
		return []batchDraw{{BatchNumber: batch.BatchNumber, Quantity: qty}}, nil

	case useFEFO:
		batches, err := r.Batches.ListForPick(ctx, productID, binID)
		if err != nil {
			return nil, err
		}
		var draws []batchDraw
		remaining := qty
		for _, batch := range batches {
			if !remaining.IsPositive() {
				break
			}
			take := decimal.Min(batch.Quantity, remaining)
			if err := r.Batches.Debit(ctx, batch.ID, take); err != nil {
				return nil, err
			}
			draws = append(draws, batchDraw{BatchNumber: batch.BatchNumber, Quantity: take})
			remaining = remaining.Sub(take)
		}
		// Anything left comes out of un-batched stock, already debited
		// from the inventory row above. An empty batch number marks it.
		if remaining.IsPositive() {
			draws = append(draws, batchDraw{Quantity: remaining})
		}
		return draws, nil

	default:
		return nil, nil
	}
}

// moveStock shifts qty of a product from one bin to another, carrying
// batch identity and dates along. An explicit batch number moves that
// batch alone; useFEFO drains source batches in first-expired-first-out
// order and recreates each at the target with its original dates.
func moveStock(ctx context.Context, r *repository.Repos, productID, fromBinID, toBinID, unit string, qty decimal.Decimal, batchNumber *string, useFEFO bool) ([]batchDraw, error) {
	fromInv, err := r.Inventory.GetForUpdate(ctx, productID, fromBinID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InsufficientStock("insufficient stock for product " + productID)
		}
		return nil, err
	}
	if fromInv.Quantity.LessThan(qty) {
		return nil, errors.InsufficientStock("insufficient stock for product " + productID)
	}
	toInv, err := r.Inventory.GetOrCreateForUpdate(ctx, productID, toBinID)
	if err != nil {
		return nil, err
	}
	if err := r.Inventory.Debit(ctx, fromInv.ID, qty); err != nil {
		return nil, err
	}
	if err := r.Inventory.Credit(ctx, toInv.ID, qty); err != nil {
		return nil, err
	}

	moveBatch := func(src *domain.InventoryBatch, take decimal.Decimal) error {
		if err := r.Batches.Debit(ctx, src.ID, take); err != nil {
			return err
		}
		dst, err := r.Batches.GetOrCreateForUpdate(ctx, productID, toBinID, src.BatchNumber, unit, src.ExpiryDate, src.ManufacturedAt)
		if err != nil {
			return err
		}
		return r.Batches.Credit(ctx, dst.ID, take)
	}

	switch {
	case batchNumber != nil && *batchNumber != "":
		src, err := r.Batches.GetForUpdate(ctx, productID, fromBinID, *batchNumber)
		if err != nil {
			return nil, err
		}
		if src.Quantity.LessThan(qty) {
			return nil, errors.InsufficientStock("insufficient stock for product " + productID)
		}
		if err := moveBatch(src, qty); err != nil {
			return nil, err
		}
		return []batchDraw{{BatchNumber: src.BatchNumber, Quantity: qty}}, nil

	case useFEFO:
		batches, err := r.Batches.ListForPick(ctx, productID, fromBinID)
		if err != nil {
			return nil, err
		}
		var draws []batchDraw
		remaining := qty
		for _, src := range batches {
			if !remaining.IsPositive() {
				break
			}
			take := decimal.Min(src.Quantity, remaining)
			if err := moveBatch(src, take); err != nil {
				return nil, err
			}
			draws = append(draws, batchDraw{BatchNumber: src.BatchNumber, Quantity: take})
			remaining = remaining.Sub(take)
		}
		if remaining.IsPositive() {
			draws = append(draws, batchDraw{Quantity: remaining})
		}
		return draws, nil

	default:
		return nil, nil
	}
}

// takeSerials verifies each unit is in stock at the bin, then moves it to
// the given status and bin in one step.
func takeSerials(ctx context.Context, r *repository.Repos, productID, fromBinID string, serials []string, status domain.SerialStatus, toBinID *string) error {
	units, err := r.Serials.ListForUpdate(ctx, productID, serials)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := u.EnsureAtBin(fromBinID); err != nil {
			return err
		}
		if err := r.Serials.Move(ctx, u.ID, status, toBinID); err != nil {
			return err
		}
	}
	return nil
}

// registerSerials creates registry entries for newly received units.
func registerSerials(ctx context.Context, r *repository.Repos, productID, binID string, serials []string, batchID *string, status domain.SerialStatus) error {
	for _, s := range serials {
		sn := &domain.SerialNumber{
			SerialNumber: s,
			ProductID:    productID,
			BatchID:      batchID,
			CurrentBinID: &binID,
			Status:       status,
		}
		if err := r.Serials.Register(ctx, sn); err != nil {
			return err
		}
	}
	return nil
}

// receiveSerials lands dispatched units at their target bin.
func receiveSerials(ctx context.Context, r *repository.Repos, productID, toBinID string, serials []string) error {
	units, err := r.Serials.ListForUpdate(ctx, productID, serials)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := u.EnsureInTransit(); err != nil {
			return err
		}
		if err := r.Serials.Move(ctx, u.ID, domain.SerialInStock, &toBinID); err != nil {
			return err
		}
	}
	return nil
}

