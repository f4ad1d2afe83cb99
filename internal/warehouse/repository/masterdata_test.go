package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestMasterDataRepository_FindPurposeBin(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	wh := suite.Fixtures.Warehouse()
	require.NoError(t, testutil.SeedWarehouse(ctx, suite.RawDB, wh))

	// a repair-center bin inside a plain storage zone does not count
	storageZone := suite.Fixtures.Zone(wh.ID)
	require.NoError(t, testutil.SeedZone(ctx, suite.RawDB, storageZone))
	stray := suite.Fixtures.Bin(storageZone.ID, testutil.WithPurpose("repair_center"))
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, stray))

	repos := repository.NewStore(suite.DB).Repos()
	_, err := repos.MasterData.FindPurposeBin(ctx, wh.ID, repository.PurposeRepairCenter)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.StatusCode)
	assert.Contains(t, err.Error(), "returns zone")

	returnsZone := suite.Fixtures.Zone(wh.ID, testutil.WithZoneType("returns"))
	require.NoError(t, testutil.SeedZone(ctx, suite.RawDB, returnsZone))
	repair := suite.Fixtures.Bin(returnsZone.ID, testutil.WithPurpose("repair_center"))
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, repair))

	bin, err := repos.MasterData.FindPurposeBin(ctx, wh.ID, repository.PurposeRepairCenter)
	require.NoError(t, err)
	assert.Equal(t, repair.ID, bin.ID)
	assert.Equal(t, wh.ID, bin.WarehouseID)
}
