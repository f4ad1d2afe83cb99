package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	s, err := testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to set up integration suite: %v", err)
	}
	suite = s

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// topology is one seeded warehouse with a regular storage bin plus a
// product, the minimum a posting workflow needs.
type topology struct {
	Product   testutil.ProductFixture
	Warehouse testutil.WarehouseFixture
	Zone      testutil.ZoneFixture
	Bin       testutil.BinFixture
}

func newStore() *repository.Store {
	return repository.NewStore(suite.DB)
}

func seedTopology(t *testing.T, ctx context.Context, opts ...func(*testutil.ProductFixture)) topology {
	t.Helper()

	wh := suite.Fixtures.Warehouse()
	require.NoError(t, testutil.SeedWarehouse(ctx, suite.RawDB, wh))

	zone := suite.Fixtures.Zone(wh.ID)
	require.NoError(t, testutil.SeedZone(ctx, suite.RawDB, zone))

	bin := suite.Fixtures.Bin(zone.ID)
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, bin))

	product := suite.Fixtures.Product(opts...)
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, product))

	return topology{Product: product, Warehouse: wh, Zone: zone, Bin: bin}
}

// seedBinWithPurpose seeds a returns zone in the warehouse holding one
// bin with the given purpose; purpose bins only count inside an active
// returns zone.
func seedBinWithPurpose(t *testing.T, ctx context.Context, warehouseID, purpose string) testutil.BinFixture {
	t.Helper()
	zone := suite.Fixtures.Zone(warehouseID, testutil.WithZoneType("returns"))
	require.NoError(t, testutil.SeedZone(ctx, suite.RawDB, zone))
	bin := suite.Fixtures.Bin(zone.ID, testutil.WithPurpose(purpose))
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, bin))
	return bin
}

func seedStock(t *testing.T, ctx context.Context, productID, binID string, qty int64) {
	t.Helper()
	require.NoError(t, testutil.SeedStock(ctx, suite.RawDB, testutil.StockFixture{
		ProductID:     productID,
		BinLocationID: binID,
		Quantity:      decimal.NewFromInt(qty),
	}))
}

func onHand(t *testing.T, ctx context.Context, productID, binID string) decimal.Decimal {
	t.Helper()
	inv, err := newStore().Repos().Inventory.GetByProductAndBin(ctx, productID, binID)
	require.NoError(t, err)
	return inv.Quantity
}
