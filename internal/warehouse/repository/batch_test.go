package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestBatchRepository_ListForPickOrdering(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)

	early := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for _, b := range []testutil.BatchFixture{
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-UNDATED", Quantity: decimal.NewFromInt(5)},
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-LATE", Quantity: decimal.NewFromInt(5), ExpiryDate: &late},
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-EARLY", Quantity: decimal.NewFromInt(5), ExpiryDate: &early},
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-EMPTY", Quantity: decimal.Zero, ExpiryDate: &early},
	} {
		require.NoError(t, testutil.SeedBatch(ctx, suite.RawDB, b))
	}

	store := repository.NewStore(suite.DB)
	require.NoError(t, store.RunInTx(ctx, func(r *repository.Repos) error {
		batches, err := r.Batches.ListForPick(ctx, top.Product.ID, top.Bin.ID)
		require.NoError(t, err)

		var numbers []string
		for _, b := range batches {
			numbers = append(numbers, b.BatchNumber)
		}
		// dated first by expiry, undated last, empty batches excluded
		assert.Equal(t, []string{"LOT-EARLY", "LOT-LATE", "LOT-UNDATED"}, numbers)
		return nil
	}))
}

func TestBatchRepository_GetOrCreateKeepsFirstDates(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	store := repository.NewStore(suite.DB)

	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	var batchID string
	require.NoError(t, store.RunInTx(ctx, func(r *repository.Repos) error {
		batch, err := r.Batches.GetOrCreateForUpdate(ctx, top.Product.ID, top.Bin.ID, "LOT-1", "piece", &first, nil)
		if err != nil {
			return err
		}
		batchID = batch.ID
		return r.Batches.Credit(ctx, batch.ID, decimal.NewFromInt(10))
	}))

	require.NoError(t, store.RunInTx(ctx, func(r *repository.Repos) error {
		batch, err := r.Batches.GetOrCreateForUpdate(ctx, top.Product.ID, top.Bin.ID, "LOT-1", "piece", &second, nil)
		if err != nil {
			return err
		}
		assert.Equal(t, batchID, batch.ID)
		require.NotNil(t, batch.ExpiryDate)
		assert.True(t, batch.ExpiryDate.Equal(first), "expiry = %s", batch.ExpiryDate)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(10)))
		return nil
	}))
}

func TestBatchRepository_ListExpiringWithin(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)

	soon := time.Now().UTC().AddDate(0, 0, 10)
	far := time.Now().UTC().AddDate(0, 6, 0)

	for _, b := range []testutil.BatchFixture{
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-SOON", Quantity: decimal.NewFromInt(4), ExpiryDate: &soon},
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-FAR", Quantity: decimal.NewFromInt(4), ExpiryDate: &far},
		{ProductID: top.Product.ID, BinLocationID: top.Bin.ID, BatchNumber: "LOT-SOON-EMPTY", Quantity: decimal.Zero, ExpiryDate: &soon},
	} {
		require.NoError(t, testutil.SeedBatch(ctx, suite.RawDB, b))
	}

	repos := repository.NewStore(suite.DB).Repos()
	cutoff := time.Now().UTC().AddDate(0, 0, 30)

	rows, err := repos.Batches.ListExpiringWithin(ctx, cutoff, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LOT-SOON", rows[0].BatchNumber)
	assert.Equal(t, top.Warehouse.ID, rows[0].WarehouseID)

	rows, err = repos.Batches.ListExpiringWithin(ctx, cutoff, nil, &top.Warehouse.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	otherWarehouse := seedTopology(t, ctx)
	rows, err = repos.Batches.ListExpiringWithin(ctx, cutoff, nil, &otherWarehouse.Warehouse.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
