package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func recordMovement(t *testing.T, ctx context.Context, repos *repository.Repos, m *domain.StockMovement) {
	t.Helper()
	if m.Unit == "" {
		m.Unit = "piece"
	}
	if m.PerformedBy == "" {
		m.PerformedBy = actor.SystemActor().ID
	}
	require.NoError(t, repos.Movements.Record(ctx, m))
}

func TestMovementRepository_RecordAndFilter(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	other := suite.Fixtures.Product()
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, other))

	repos := repository.NewStore(suite.DB).Repos()

	recordMovement(t, ctx, repos, &domain.StockMovement{
		MovementType:    domain.MovementGoodsReceipt,
		ReferenceType:   domain.RefGoodsReceipt,
		ReferenceNumber: "GR-2026-00001",
		ProductID:       top.Product.ID,
		ToBinID:         &top.Bin.ID,
		Quantity:        decimal.NewFromInt(10),
		Metadata:        domain.MovementMetadata{BatchNumber: "LOT-1"},
	})
	recordMovement(t, ctx, repos, &domain.StockMovement{
		MovementType:    domain.MovementGoodsIssue,
		ReferenceType:   domain.RefGoodsIssue,
		ReferenceNumber: "GI-2026-00001",
		ProductID:       top.Product.ID,
		FromBinID:       &top.Bin.ID,
		Quantity:        decimal.NewFromInt(4),
	})
	recordMovement(t, ctx, repos, &domain.StockMovement{
		MovementType:    domain.MovementGoodsReceipt,
		ReferenceType:   domain.RefGoodsReceipt,
		ReferenceNumber: "GR-2026-00002",
		ProductID:       other.ID,
		ToBinID:         &top.Bin.ID,
		Quantity:        decimal.NewFromInt(1),
	})

	rows, total, err := repos.Movements.List(ctx, repository.MovementFilter{ProductID: top.Product.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = repos.Movements.List(ctx, repository.MovementFilter{
		MovementType: domain.MovementGoodsIssue,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "GI-2026-00001", rows[0].ReferenceNumber)

	rows, total, err = repos.Movements.List(ctx, repository.MovementFilter{BinID: top.Bin.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, rows, 3)

	rows, err = repos.Movements.ListByReference(ctx, domain.RefGoodsReceipt, "GR-2026-00001")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LOT-1", rows[0].Metadata.BatchNumber)
	assert.Equal(t, actor.SystemActor().ID, rows[0].PerformedBy)
}

func TestMovementRepository_RejectsNonPositiveQuantity(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()

	err := repos.Movements.Record(ctx, &domain.StockMovement{
		MovementType:    domain.MovementAdjustment,
		ReferenceType:   domain.RefStocktake,
		ReferenceNumber: "SC-2026-00001",
		ProductID:       top.Product.ID,
		ToBinID:         &top.Bin.ID,
		Quantity:        decimal.Zero,
		Unit:            "piece",
		PerformedBy:     actor.SystemActor().ID,
	})
	assert.Error(t, err)
}
