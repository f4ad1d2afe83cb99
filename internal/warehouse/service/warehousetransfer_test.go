package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newWarehouseTransferService() *service.WarehouseTransferService {
	return service.NewWarehouseTransferService(newStore(), nil, suite.Logger)
}

func TestWarehouseTransferService_DispatchAndReceive(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	source := seedTopology(t, ctx)
	target := seedTopology(t, ctx)

	seedStock(t, ctx, source.Product.ID, source.Bin.ID, 10)
	expiry := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, testutil.SeedBatch(ctx, suite.RawDB, testutil.BatchFixture{
		ProductID:     source.Product.ID,
		BinLocationID: source.Bin.ID,
		BatchNumber:   "LOT-X",
		Quantity:      decimal.NewFromInt(10),
		ExpiryDate:    &expiry,
	}))

	svc := newWarehouseTransferService()
	batch := "LOT-X"
	wt := &domain.WarehouseTransfer{
		SourceWarehouseID: source.Warehouse.ID,
		TargetWarehouseID: target.Warehouse.ID,
		Items: []*domain.WarehouseTransferItem{
			{
				ProductID:         source.Product.ID,
				RequestedQuantity: decimal.NewFromInt(6),
				FromBinID:         source.Bin.ID,
				ToBinID:           target.Bin.ID,
				BatchNumber:       &batch,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, wt))

	dispatched, err := svc.Dispatch(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDispatched, dispatched.Status)
	assert.NotNil(t, dispatched.DispatchedAt)

	// goods left the source and are nowhere yet
	assert.True(t, onHand(t, ctx, source.Product.ID, source.Bin.ID).Equal(decimal.NewFromInt(4)))
	_, err = newStore().Repos().Inventory.GetByProductAndBin(ctx, source.Product.ID, target.Bin.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// the batch dates travelled onto the document
	require.Len(t, dispatched.Items, 1)
	require.NotNil(t, dispatched.Items[0].ExpiryDate)
	assert.True(t, dispatched.Items[0].ExpiryDate.Equal(expiry))
	assert.True(t, dispatched.Items[0].DispatchedQuantity.Equal(decimal.NewFromInt(6)))

	received, err := svc.Receive(ctx, wt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, received.Status)

	assert.True(t, onHand(t, ctx, source.Product.ID, target.Bin.ID).Equal(decimal.NewFromInt(6)))

	// the batch was recreated at the target with its original expiry
	repos := newStore().Repos()
	targetBatch, err := repos.Batches.GetForUpdate(ctx, source.Product.ID, target.Bin.ID, "LOT-X")
	require.NoError(t, err)
	require.NotNil(t, targetBatch.ExpiryDate)
	assert.True(t, targetBatch.ExpiryDate.Equal(expiry))
	assert.True(t, targetBatch.Quantity.Equal(decimal.NewFromInt(6)))

	movements, err := repos.Movements.ListByReference(ctx, domain.RefWarehouseTransfer, wt.TransferNumber)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementDispatch, movements[0].MovementType)
	assert.Equal(t, domain.MovementReceive, movements[1].MovementType)
}

func TestWarehouseTransferService_TrackedUnitsTravelInTransit(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	source := seedTopology(t, ctx, testutil.WithTracking())
	target := seedTopology(t, ctx)

	seedStock(t, ctx, source.Product.ID, source.Bin.ID, 1)
	repos := newStore().Repos()
	require.NoError(t, repos.Serials.Register(ctx, &domain.SerialNumber{
		SerialNumber: "SN-T1",
		ProductID:    source.Product.ID,
		CurrentBinID: &source.Bin.ID,
		Status:       domain.SerialInStock,
	}))

	svc := newWarehouseTransferService()
	wt := &domain.WarehouseTransfer{
		SourceWarehouseID: source.Warehouse.ID,
		TargetWarehouseID: target.Warehouse.ID,
		Items: []*domain.WarehouseTransferItem{
			{
				ProductID:         source.Product.ID,
				RequestedQuantity: decimal.NewFromInt(1),
				FromBinID:         source.Bin.ID,
				ToBinID:           target.Bin.ID,
				SerialNumbers:     []string{"SN-T1"},
			},
		},
	}
	require.NoError(t, svc.Create(ctx, wt))

	_, err := svc.Dispatch(ctx, wt.ID)
	require.NoError(t, err)

	sn, err := repos.Serials.GetByProductAndSerial(ctx, source.Product.ID, "SN-T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInTransit, sn.Status)
	assert.Nil(t, sn.CurrentBinID)

	_, err = svc.Receive(ctx, wt.ID)
	require.NoError(t, err)

	sn, err = repos.Serials.GetByProductAndSerial(ctx, source.Product.ID, "SN-T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInStock, sn.Status)
	require.NotNil(t, sn.CurrentBinID)
	assert.Equal(t, target.Bin.ID, *sn.CurrentBinID)
}

func TestWarehouseTransferService_RejectsSameWarehouse(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	svc := newWarehouseTransferService()

	err := svc.Create(ctx, &domain.WarehouseTransfer{
		SourceWarehouseID: top.Warehouse.ID,
		TargetWarehouseID: top.Warehouse.ID,
		Items: []*domain.WarehouseTransferItem{
			{ProductID: top.Product.ID, RequestedQuantity: decimal.NewFromInt(1), FromBinID: top.Bin.ID, ToBinID: top.Bin.ID},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestWarehouseTransferService_ReceiveRequiresDispatch(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	source := seedTopology(t, ctx)
	target := seedTopology(t, ctx)
	seedStock(t, ctx, source.Product.ID, source.Bin.ID, 5)

	svc := newWarehouseTransferService()
	wt := &domain.WarehouseTransfer{
		SourceWarehouseID: source.Warehouse.ID,
		TargetWarehouseID: target.Warehouse.ID,
		Items: []*domain.WarehouseTransferItem{
			{ProductID: source.Product.ID, RequestedQuantity: decimal.NewFromInt(5), FromBinID: source.Bin.ID, ToBinID: target.Bin.ID},
		},
	}
	require.NoError(t, svc.Create(ctx, wt))

	_, err := svc.Receive(ctx, wt.ID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
}
