package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newStocktakeService() *service.StocktakeService {
	return service.NewStocktakeService(newStore(), nil, suite.Logger)
}

func TestStocktakeService_CompletePostsAdjustments(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	short := suite.Fixtures.Product()
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, short))
	matching := suite.Fixtures.Product()
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, matching))

	seedStock(t, ctx, top.Product.ID, top.Bin.ID, 10) // counted higher
	seedStock(t, ctx, short.ID, top.Bin.ID, 8)        // counted lower
	seedStock(t, ctx, matching.ID, top.Bin.ID, 5)     // counted exactly

	svc := newStocktakeService()
	st := &domain.Stocktake{
		WarehouseID: top.Warehouse.ID,
		Items: []*domain.StocktakeItem{
			{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(12)},
			{ProductID: short.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(6)},
			{ProductID: matching.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(5)},
		},
	}
	require.NoError(t, svc.Create(ctx, st))
	require.NoError(t, svc.Start(ctx, st.ID))

	completed, err := svc.Complete(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	assert.True(t, onHand(t, ctx, top.Product.ID, top.Bin.ID).Equal(decimal.NewFromInt(12)))
	assert.True(t, onHand(t, ctx, short.ID, top.Bin.ID).Equal(decimal.NewFromInt(6)))
	assert.True(t, onHand(t, ctx, matching.ID, top.Bin.ID).Equal(decimal.NewFromInt(5)))

	// one adjustment per discrepancy, nothing for the matching line
	movements, err := newStore().Repos().Movements.ListByReference(ctx, domain.RefStocktake, st.StocktakeNumber)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, domain.MovementAdjustment, m.MovementType)
		assert.NotEmpty(t, m.Metadata.CountedQuantity)
		assert.NotEmpty(t, m.Metadata.ExpectedQuantity)
	}
}

func TestStocktakeService_CompleteRequiresCountingPhase(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	svc := newStocktakeService()

	st := &domain.Stocktake{
		WarehouseID: top.Warehouse.ID,
		Items: []*domain.StocktakeItem{
			{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(1)},
		},
	}
	require.NoError(t, svc.Create(ctx, st))

	// a draft stocktake cannot complete without being started
	_, err := svc.Complete(ctx, st.ID)
	assert.Error(t, err)
}

func TestStocktakeService_PreviewDiscrepancies(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	seedStock(t, ctx, top.Product.ID, top.Bin.ID, 10)

	// a product with no inventory row at all counts against zero
	uncounted := suite.Fixtures.Product()
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, uncounted))

	svc := newStocktakeService()
	st := &domain.Stocktake{
		WarehouseID: top.Warehouse.ID,
		Items: []*domain.StocktakeItem{
			{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(7)},
			{ProductID: uncounted.ID, BinLocationID: top.Bin.ID, CountedQuantity: decimal.NewFromInt(2)},
		},
	}
	require.NoError(t, svc.Create(ctx, st))

	preview, err := svc.PreviewDiscrepancies(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, preview, 2)

	assert.Equal(t, top.Product.ID, preview[0].ProductID)
	assert.True(t, preview[0].Difference.Equal(decimal.NewFromInt(-3)))
	assert.True(t, preview[1].BookedQuantity.IsZero())
	assert.True(t, preview[1].Difference.Equal(decimal.NewFromInt(2)))

	// previewing posts nothing
	assert.True(t, onHand(t, ctx, top.Product.ID, top.Bin.ID).Equal(decimal.NewFromInt(10)))
}

func TestStocktakeService_RejectsBinOutsideWarehouse(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	other := seedTopology(t, ctx)

	svc := newStocktakeService()
	st := &domain.Stocktake{
		WarehouseID: top.Warehouse.ID,
		Items: []*domain.StocktakeItem{
			{ProductID: top.Product.ID, BinLocationID: other.Bin.ID, CountedQuantity: decimal.NewFromInt(1)},
		},
	}
	err := svc.Create(ctx, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the stocktake's warehouse")
}
