package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newReturnService() *service.ReturnService {
	return service.NewReturnService(newStore(), nil, suite.Logger)
}

// returnSetup is a warehouse with a regular storage bin, a repair-center
// bin holding the returned goods, and a product whose default bin is the
// storage bin.
type returnSetup struct {
	Product    testutil.ProductFixture
	Warehouse  testutil.WarehouseFixture
	Zone       testutil.ZoneFixture
	StorageBin testutil.BinFixture
	RepairBin  testutil.BinFixture
}

func seedReturnSetup(t *testing.T, ctx context.Context, opts ...func(*testutil.ProductFixture)) returnSetup {
	t.Helper()

	wh := suite.Fixtures.Warehouse()
	require.NoError(t, testutil.SeedWarehouse(ctx, suite.RawDB, wh))

	zone := suite.Fixtures.Zone(wh.ID)
	require.NoError(t, testutil.SeedZone(ctx, suite.RawDB, zone))

	storage := suite.Fixtures.Bin(zone.ID)
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, storage))

	repair := seedBinWithPurpose(t, ctx, wh.ID, "repair_center")

	opts = append(opts, testutil.WithDefaultBin(storage.ID))
	product := suite.Fixtures.Product(opts...)
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, product))

	return returnSetup{Product: product, Warehouse: wh, Zone: zone, StorageBin: storage, RepairBin: repair}
}

func createReturn(t *testing.T, ctx context.Context, svc *service.ReturnService, setup returnSetup, qty int64, serial *string) *domain.ReturnOrder {
	t.Helper()

	ro := &domain.ReturnOrder{
		SourceType: domain.SourceTechnician,
		Items: []*domain.ReturnOrderItem{
			{
				ProductID:    setup.Product.ID,
				Quantity:     decimal.NewFromInt(qty),
				TargetBinID:  setup.RepairBin.ID,
				SerialNumber: serial,
			},
		},
	}
	require.NoError(t, svc.Create(ctx, ro))
	return ro
}

func TestReturnService_ProcessRestock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	setup := seedReturnSetup(t, ctx)
	seedStock(t, ctx, setup.Product.ID, setup.RepairBin.ID, 4)

	svc := newReturnService()
	ro := createReturn(t, ctx, svc, setup, 4, nil)

	require.NoError(t, svc.SubmitForReview(ctx, ro.ID))
	require.NoError(t, svc.SetDecision(ctx, ro.ID, ro.Items[0].ID, domain.DecisionRestock))

	processed, err := svc.Process(ctx, ro.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, processed.Status)

	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.RepairBin.ID).IsZero())
	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.StorageBin.ID).Equal(decimal.NewFromInt(4)))

	movements, err := newStore().Repos().Movements.ListByReference(ctx, domain.RefReturnOrder, ro.OrderNumber)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementReturnRestock, movements[0].MovementType)
	assert.Equal(t, "restock", movements[0].Metadata.Reason)
}

func TestReturnService_ProcessScrap(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	setup := seedReturnSetup(t, ctx, testutil.WithTracking())
	seedStock(t, ctx, setup.Product.ID, setup.RepairBin.ID, 1)
	repos := newStore().Repos()
	require.NoError(t, repos.Serials.Register(ctx, &domain.SerialNumber{
		SerialNumber: "SN-SCRAP",
		ProductID:    setup.Product.ID,
		CurrentBinID: &setup.RepairBin.ID,
		Status:       domain.SerialInStock,
	}))

	svc := newReturnService()
	serial := "SN-SCRAP"
	ro := createReturn(t, ctx, svc, setup, 1, &serial)

	require.NoError(t, svc.SubmitForReview(ctx, ro.ID))
	require.NoError(t, svc.SetDecision(ctx, ro.ID, ro.Items[0].ID, domain.DecisionScrap))

	_, err := svc.Process(ctx, ro.ID)
	require.NoError(t, err)

	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.RepairBin.ID).IsZero())

	// a scrapped unit leaves the registry's active pool for good
	sn, err := repos.Serials.GetByProductAndSerial(ctx, setup.Product.ID, "SN-SCRAP")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialIssued, sn.Status)
	assert.Nil(t, sn.CurrentBinID)

	movements, err := repos.Movements.ListByReference(ctx, domain.RefReturnOrder, ro.OrderNumber)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementReturnScrap, movements[0].MovementType)
	assert.Equal(t, []string{"SN-SCRAP"}, []string(movements[0].Metadata.SerialNumbers))
}

func TestReturnService_ProcessRequiresDecisions(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	setup := seedReturnSetup(t, ctx)
	seedStock(t, ctx, setup.Product.ID, setup.RepairBin.ID, 2)

	svc := newReturnService()
	ro := createReturn(t, ctx, svc, setup, 2, nil)
	require.NoError(t, svc.SubmitForReview(ctx, ro.ID))

	_, err := svc.Process(ctx, ro.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no disposition decision")

	// nothing moved
	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.RepairBin.ID).Equal(decimal.NewFromInt(2)))
}

func TestReturnService_DecisionOnlyInReview(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	setup := seedReturnSetup(t, ctx)
	seedStock(t, ctx, setup.Product.ID, setup.RepairBin.ID, 1)

	svc := newReturnService()
	ro := createReturn(t, ctx, svc, setup, 1, nil)

	err := svc.SetDecision(ctx, ro.ID, ro.Items[0].ID, domain.DecisionRestock)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestReturnService_RepairRoundTrip(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	setup := seedReturnSetup(t, ctx, testutil.WithTracking())
	provider := seedBinWithPurpose(t, ctx, setup.Warehouse.ID, "external_provider")

	seedStock(t, ctx, setup.Product.ID, setup.RepairBin.ID, 1)
	repos := newStore().Repos()
	require.NoError(t, repos.Serials.Register(ctx, &domain.SerialNumber{
		SerialNumber: "SN-FIX",
		ProductID:    setup.Product.ID,
		CurrentBinID: &setup.RepairBin.ID,
		Status:       domain.SerialInStock,
	}))

	svc := newReturnService()
	serial := "SN-FIX"
	ro := createReturn(t, ctx, svc, setup, 1, &serial)

	require.NoError(t, svc.SubmitForReview(ctx, ro.ID))
	require.NoError(t, svc.SetDecision(ctx, ro.ID, ro.Items[0].ID, domain.DecisionRepair))

	processed, err := svc.Process(ctx, ro.ID)
	require.NoError(t, err)

	// a repair decision parks the stock, it does not move it
	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.RepairBin.ID).Equal(decimal.NewFromInt(1)))
	require.NotNil(t, processed.Items[0].RepairState)
	assert.Equal(t, domain.RepairWaitingProvider, *processed.Items[0].RepairState)

	itemID := processed.Items[0].ID
	require.NoError(t, svc.DispatchRepair(ctx, ro.ID, itemID))

	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.RepairBin.ID).IsZero())
	assert.True(t, onHand(t, ctx, setup.Product.ID, provider.ID).Equal(decimal.NewFromInt(1)))

	// dispatching twice finds the line already at the provider
	err = svc.DispatchRepair(ctx, ro.ID, itemID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)

	require.NoError(t, svc.ReceiveRepair(ctx, ro.ID, itemID))

	assert.True(t, onHand(t, ctx, setup.Product.ID, provider.ID).IsZero())
	assert.True(t, onHand(t, ctx, setup.Product.ID, setup.StorageBin.ID).Equal(decimal.NewFromInt(1)))

	sn, err := repos.Serials.GetByProductAndSerial(ctx, setup.Product.ID, "SN-FIX")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialReadyForUse, sn.Status)
	require.NotNil(t, sn.CurrentBinID)
	assert.Equal(t, setup.StorageBin.ID, *sn.CurrentBinID)

	final, err := svc.Get(ctx, ro.ID)
	require.NoError(t, err)
	require.NotNil(t, final.Items[0].RepairState)
	assert.Equal(t, domain.RepairReadyForUse, *final.Items[0].RepairState)

	movements, err := repos.Movements.ListByReference(ctx, domain.RefReturnOrder, ro.OrderNumber)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementRepairDispatch, movements[0].MovementType)
	assert.Equal(t, domain.MovementRepairReceive, movements[1].MovementType)
}
