package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestSerialRepository_RegisterRejectsDuplicates(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	repos := repository.NewStore(suite.DB).Repos()

	sn := &domain.SerialNumber{
		SerialNumber: "SN-0001",
		ProductID:    top.Product.ID,
		CurrentBinID: &top.Bin.ID,
		Status:       domain.SerialInStock,
	}
	require.NoError(t, repos.Serials.Register(ctx, sn))
	assert.NotEmpty(t, sn.ID)
	assert.False(t, sn.LastMovementAt.IsZero())

	dup := &domain.SerialNumber{
		SerialNumber: "SN-0001",
		ProductID:    top.Product.ID,
		CurrentBinID: &top.Bin.ID,
		Status:       domain.SerialInStock,
	}
	err := repos.Serials.Register(ctx, dup)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)

	// serial numbers are unique across products, not per product
	other := suite.Fixtures.Product(testutil.WithTracking())
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, other))
	err = repos.Serials.Register(ctx, &domain.SerialNumber{
		SerialNumber: "SN-0001",
		ProductID:    other.ID,
		CurrentBinID: &top.Bin.ID,
		Status:       domain.SerialInStock,
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestSerialRepository_ListForUpdate(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	store := repository.NewStore(suite.DB)

	repos := store.Repos()
	for _, serial := range []string{"SN-A", "SN-B", "SN-C"} {
		require.NoError(t, repos.Serials.Register(ctx, &domain.SerialNumber{
			SerialNumber: serial,
			ProductID:    top.Product.ID,
			CurrentBinID: &top.Bin.ID,
			Status:       domain.SerialInStock,
		}))
	}

	require.NoError(t, store.RunInTx(ctx, func(r *repository.Repos) error {
		rows, err := r.Serials.ListForUpdate(ctx, top.Product.ID, []string{"SN-B", "SN-A"})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "SN-A", rows[0].SerialNumber)
		assert.Equal(t, "SN-B", rows[1].SerialNumber)

		_, err = r.Serials.ListForUpdate(ctx, top.Product.ID, []string{"SN-A", "SN-MISSING"})
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		return nil
	}))
}

func TestSerialRepository_Move(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx, testutil.WithTracking())
	repos := repository.NewStore(suite.DB).Repos()

	sn := &domain.SerialNumber{
		SerialNumber: "SN-MOVE",
		ProductID:    top.Product.ID,
		CurrentBinID: &top.Bin.ID,
		Status:       domain.SerialInStock,
	}
	require.NoError(t, repos.Serials.Register(ctx, sn))

	// dispatch leaves the unit without a bin
	require.NoError(t, repos.Serials.Move(ctx, sn.ID, domain.SerialInTransit, nil))

	got, err := repos.Serials.GetByProductAndSerial(ctx, top.Product.ID, "SN-MOVE")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInTransit, got.Status)
	assert.Nil(t, got.CurrentBinID)

	target := seedExtraBin(t, ctx, top.Zone.ID)
	require.NoError(t, repos.Serials.Move(ctx, sn.ID, domain.SerialInStock, &target.ID))

	got, err = repos.Serials.GetByProductAndSerial(ctx, top.Product.ID, "SN-MOVE")
	require.NoError(t, err)
	assert.Equal(t, domain.SerialInStock, got.Status)
	require.NotNil(t, got.CurrentBinID)
	assert.Equal(t, target.ID, *got.CurrentBinID)
}
