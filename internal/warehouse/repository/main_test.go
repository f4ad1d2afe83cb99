package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

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

// topology is one seeded warehouse/zone/bin chain plus a product, the
// minimum master data a stock operation needs.
type topology struct {
	Product   testutil.ProductFixture
	Warehouse testutil.WarehouseFixture
	Zone      testutil.ZoneFixture
	Bin       testutil.BinFixture
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

func seedExtraBin(t *testing.T, ctx context.Context, zoneID string) testutil.BinFixture {
	t.Helper()
	bin := suite.Fixtures.Bin(zoneID)
	require.NoError(t, testutil.SeedBin(ctx, suite.RawDB, bin))
	return bin
}
