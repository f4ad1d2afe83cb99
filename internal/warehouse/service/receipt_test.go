package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newReceiptService() *service.ReceiptService {
	return service.NewReceiptService(newStore(), nil, suite.Logger)
}

func TestReceiptService_CompleteCreditsStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	svc := newReceiptService()

	batch := "LOT-1"
	gr := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(5),
				TargetBinID:      &top.Bin.ID,
				BatchNumber:      &batch,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, gr))
	assert.Equal(t, domain.StatusDraft, gr.Status)

	completed, err := svc.Complete(ctx, gr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	assert.True(t, onHand(t, ctx, top.Product.ID, top.Bin.ID).Equal(decimal.NewFromInt(5)))

	repos := newStore().Repos()
	batchRow, err := repos.Batches.GetForUpdate(ctx, top.Product.ID, top.Bin.ID, "LOT-1")
	require.NoError(t, err)
	assert.True(t, batchRow.Quantity.Equal(decimal.NewFromInt(5)))

	movements, err := repos.Movements.ListByReference(ctx, domain.RefGoodsReceipt, gr.ReceiptNumber)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementGoodsReceipt, movements[0].MovementType)
	assert.Equal(t, "LOT-1", movements[0].Metadata.BatchNumber)

	// the transition guard rejects a second completion
	_, err = svc.Complete(ctx, gr.ID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestReceiptService_TrackedGoodsRegisterSerials(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	svc := newReceiptService()

	gr := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(2),
				TargetBinID:      &top.Bin.ID,
				SerialNumbers:    []string{"SN-1", "SN-2"},
			},
		},
	}
	require.NoError(t, svc.Create(ctx, gr))
	_, err := svc.Complete(ctx, gr.ID)
	require.NoError(t, err)

	repos := newStore().Repos()
	sn, err := repos.Serials.GetByProductAndSerial(ctx, top.Product.ID, "SN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInStock, sn.Status)
	require.NotNil(t, sn.CurrentBinID)
	assert.Equal(t, top.Bin.ID, *sn.CurrentBinID)
}

func TestReceiptService_SerialCountMismatchRejected(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	svc := newReceiptService()

	gr := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(3),
				TargetBinID:      &top.Bin.ID,
				SerialNumbers:    []string{"SN-1"},
			},
		},
	}
	err := svc.Create(ctx, gr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 serial numbers")
}

func TestReceiptService_NonNewGoodsRedirectToRepairCenter(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repairBin := seedBinWithPurpose(t, ctx, top.Warehouse.ID, "repair_center")
	svc := newReceiptService()

	gr := &domain.GoodsReceipt{
		Source: domain.SourceTechnician,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(3),
				TargetBinID:      &top.Bin.ID,
				Condition:        domain.ConditionDamaged,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, gr))
	_, err := svc.Complete(ctx, gr.ID)
	require.NoError(t, err)

	// stock landed in the repair-center bin, not the requested one
	assert.True(t, onHand(t, ctx, top.Product.ID, repairBin.ID).Equal(decimal.NewFromInt(3)))

	repos := newStore().Repos()
	_, err = repos.Inventory.GetByProductAndBin(ctx, top.Product.ID, top.Bin.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// and an automatic return order collects the goods
	orders, total, err := repos.Returns.List(ctx, domain.StatusDraft, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	ro, err := repos.Returns.GetByID(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTechnician, ro.SourceType)
	require.Len(t, ro.Items, 1)
	assert.Equal(t, repairBin.ID, ro.Items[0].TargetBinID)
	assert.True(t, ro.Items[0].Quantity.Equal(decimal.NewFromInt(3)))

	movements, err := repos.Movements.ListByReference(ctx, domain.RefGoodsReceipt, gr.ReceiptNumber)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, top.Bin.ID, movements[0].Metadata.OriginalBinID)
}

func TestReceiptService_NonNewTrackedUnitsWaitAsStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	repairBin := seedBinWithPurpose(t, ctx, top.Warehouse.ID, "repair_center")
	svc := newReceiptService()

	gr := &domain.GoodsReceipt{
		Source: domain.SourceOther,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(1),
				TargetBinID:      &top.Bin.ID,
				Condition:        domain.ConditionUsed,
				SerialNumbers:    []string{"SN-USED-1"},
			},
		},
	}
	require.NoError(t, svc.Create(ctx, gr))
	_, err := svc.Complete(ctx, gr.ID)
	require.NoError(t, err)

	// the unit sits in the repair-center bin as plain stock until a
	// repair round trip marks it ready_for_use
	repos := newStore().Repos()
	sn, err := repos.Serials.GetByProductAndSerial(ctx, top.Product.ID, "SN-USED-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInStock, sn.Status)
	require.NotNil(t, sn.CurrentBinID)
	assert.Equal(t, repairBin.ID, *sn.CurrentBinID)

	// the auto-created collection order is always a technician return
	orders, total, err := repos.Returns.List(ctx, domain.StatusDraft, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, domain.SourceTechnician, orders[0].SourceType)
}

func TestReceiptService_PurchaseOrderReconciliation(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := newStore().Repos()

	po := &domain.PurchaseOrder{CreatedBy: actor.SystemActor().ID}
	poItem := &domain.PurchaseOrderItem{
		ProductID:       top.Product.ID,
		OrderedQuantity: decimal.NewFromInt(10),
		Unit:            "piece",
	}
	require.NoError(t, repos.PurchaseOrders.CreateDraft(ctx, po, poItem))
	require.NoError(t, repos.PurchaseOrders.SetStatus(ctx, po.ID, domain.POStatusOrdered))

	svc := newReceiptService()

	// an ordered but not supplier-confirmed order cannot be received
	early := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:           top.Product.ID,
				ReceivedQuantity:    decimal.NewFromInt(4),
				TargetBinID:         &top.Bin.ID,
				PurchaseOrderItemID: &poItem.ID,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, early))
	_, err := svc.Complete(ctx, early.ID)
	var earlyErr *errors.AppError
	require.ErrorAs(t, err, &earlyErr)
	assert.Equal(t, 409, earlyErr.StatusCode)
	assert.Contains(t, err.Error(), "not supplier-confirmed")

	_, err = suite.RawDB.ExecContext(ctx,
		`UPDATE purchase_orders SET supplier_confirmed = true WHERE id = $1`, po.ID)
	require.NoError(t, err)

	// over-receipt against the line is rejected
	over := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:           top.Product.ID,
				ReceivedQuantity:    decimal.NewFromInt(12),
				TargetBinID:         &top.Bin.ID,
				PurchaseOrderItemID: &poItem.ID,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, over))
	_, err = svc.Complete(ctx, over.ID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)

	// a partial receipt rolls the order to partially_received
	partial := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:           top.Product.ID,
				ReceivedQuantity:    decimal.NewFromInt(4),
				TargetBinID:         &top.Bin.ID,
				PurchaseOrderItemID: &poItem.ID,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, partial))
	_, err = svc.Complete(ctx, partial.ID)
	require.NoError(t, err)

	order, items, err := repos.PurchaseOrders.GetByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusPartiallyReceived, order.Status)
	require.Len(t, items, 1)
	assert.True(t, items[0].Outstanding().Equal(decimal.NewFromInt(6)))

	// receiving the remainder completes the order
	rest := &domain.GoodsReceipt{
		Source: domain.SourceSupplier,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:           top.Product.ID,
				ReceivedQuantity:    decimal.NewFromInt(6),
				TargetBinID:         &top.Bin.ID,
				PurchaseOrderItemID: &poItem.ID,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, rest))
	_, err = svc.Complete(ctx, rest.ID)
	require.NoError(t, err)

	order, _, err = repos.PurchaseOrders.GetByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusCompleted, order.Status)
}

func TestReceiptService_CancelLeavesStockUntouched(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	svc := newReceiptService()

	gr := &domain.GoodsReceipt{
		Source: domain.SourceOther,
		Items: []*domain.GoodsReceiptItem{
			{ProductID: top.Product.ID, ReceivedQuantity: decimal.NewFromInt(5), TargetBinID: &top.Bin.ID},
		},
	}
	require.NoError(t, svc.Create(ctx, gr))
	require.NoError(t, svc.Cancel(ctx, gr.ID))

	got, err := svc.Get(ctx, gr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	_, err = newStore().Repos().Inventory.GetByProductAndBin(ctx, top.Product.ID, top.Bin.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// cancelled receipts cannot be completed
	_, err = svc.Complete(ctx, gr.ID)
	assert.Error(t, err)
}
