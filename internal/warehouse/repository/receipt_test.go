package repository_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/actor"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func draftReceipt(top topology) *domain.GoodsReceipt {
	return &domain.GoodsReceipt{
		Source:    domain.SourceSupplier,
		CreatedBy: actor.SystemActor().ID,
		Items: []*domain.GoodsReceiptItem{
			{
				ProductID:        top.Product.ID,
				ReceivedQuantity: decimal.NewFromInt(5),
				Unit:             "piece",
				TargetBinID:      &top.Bin.ID,
			},
		},
	}
}

func TestReceiptRepository_CreateAssignsNumber(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()

	gr := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, gr))

	pattern := fmt.Sprintf(`^GR-%d-\d{5}$`, time.Now().UTC().Year())
	assert.Regexp(t, regexp.MustCompile(pattern), gr.ReceiptNumber)
	assert.Equal(t, domain.StatusDraft, gr.Status)

	second := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, second))
	assert.NotEqual(t, gr.ReceiptNumber, second.ReceiptNumber)

	got, err := repos.Receipts.GetByID(ctx, gr.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Items[0].Position)
	assert.Equal(t, domain.ConditionNew, got.Items[0].Condition)
}

func TestReceiptRepository_UpdateStatusGuard(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()

	gr := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, gr))

	actorID := actor.SystemActor().ID
	require.NoError(t, repos.Receipts.UpdateStatus(ctx, gr.ID, domain.StatusDraft, domain.StatusCompleted, actorID))

	got, err := repos.Receipts.GetByID(ctx, gr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedBy)
	assert.Equal(t, actorID, *got.CompletedBy)
	assert.NotNil(t, got.CompletedAt)

	// the from-status guard makes the second completion lose
	err = repos.Receipts.UpdateStatus(ctx, gr.ID, domain.StatusDraft, domain.StatusCompleted, actorID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestReceiptRepository_ReplaceItems(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()

	gr := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, gr))

	other := suite.Fixtures.Product()
	require.NoError(t, testutil.SeedProduct(ctx, suite.RawDB, other))

	notes := "recounted on the dock"
	gr.Notes = &notes
	gr.Items = []*domain.GoodsReceiptItem{
		{ProductID: other.ID, ReceivedQuantity: decimal.NewFromInt(2), Unit: "piece", TargetBinID: &top.Bin.ID},
		{ProductID: top.Product.ID, ReceivedQuantity: decimal.NewFromInt(3), Unit: "piece", TargetBinID: &top.Bin.ID},
	}
	require.NoError(t, repos.Receipts.ReplaceItems(ctx, gr))

	got, err := repos.Receipts.GetByID(ctx, gr.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, other.ID, got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[1].Position)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
}

func TestReceiptRepository_ListByStatus(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()

	first := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, first))
	second := draftReceipt(top)
	require.NoError(t, repos.Receipts.Create(ctx, second))
	require.NoError(t, repos.Receipts.UpdateStatus(ctx, second.ID, domain.StatusDraft, domain.StatusCancelled, actor.SystemActor().ID))

	rows, total, err := repos.Receipts.List(ctx, "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = repos.Receipts.List(ctx, domain.StatusDraft, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, first.ID, rows[0].ID)
}
