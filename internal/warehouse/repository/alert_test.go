package repository_test

import (
	"context"
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

func seedRule(t *testing.T, ctx context.Context, repos *repository.Repos, ruleType domain.AlertRuleType) *domain.AlertRule {
	t.Helper()
	threshold := decimal.NewFromInt(10)
	rule := &domain.AlertRule{
		RuleType:  ruleType,
		Threshold: &threshold,
		IsActive:  true,
	}
	require.NoError(t, repos.Alerts.CreateRule(ctx, rule))
	return rule
}

func TestAlertRepository_HasDuplicate(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()
	rule := seedRule(t, ctx, repos, domain.RuleLowStock)

	sourceKey := "product:" + top.Product.ID

	dup, err := repos.Alerts.HasDuplicate(ctx, rule.ID, domain.RuleLowStock, sourceKey, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, dup)

	alert := &domain.StockAlert{
		RuleID:    rule.ID,
		AlertType: domain.RuleLowStock,
		SourceKey: sourceKey,
		ProductID: top.Product.ID,
		Message:   "stock below threshold",
	}
	require.NoError(t, repos.Alerts.CreateAlert(ctx, alert))
	assert.Equal(t, domain.AlertOpen, alert.Status)

	// an open alert suppresses regardless of the window
	dup, err = repos.Alerts.HasDuplicate(ctx, rule.ID, domain.RuleLowStock, sourceKey, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, repos.Alerts.Resolve(ctx, alert.ID))

	// a resolved alert still suppresses within the window
	dup, err = repos.Alerts.HasDuplicate(ctx, rule.ID, domain.RuleLowStock, sourceKey, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, dup)

	// and stops suppressing once the window has passed it by
	dup, err = repos.Alerts.HasDuplicate(ctx, rule.ID, domain.RuleLowStock, sourceKey, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, dup)

	// a different source key is never a duplicate
	dup, err = repos.Alerts.HasDuplicate(ctx, rule.ID, domain.RuleLowStock, "product:other", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestAlertRepository_AcknowledgeAndResolve(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()
	rule := seedRule(t, ctx, repos, domain.RuleZeroStock)

	alert := &domain.StockAlert{
		RuleID:    rule.ID,
		AlertType: domain.RuleZeroStock,
		SourceKey: "product:" + top.Product.ID,
		ProductID: top.Product.ID,
		Message:   "stock depleted",
	}
	require.NoError(t, repos.Alerts.CreateAlert(ctx, alert))

	actorID := actor.SystemActor().ID
	require.NoError(t, repos.Alerts.Acknowledge(ctx, alert.ID, actorID))

	got, err := repos.Alerts.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertAcknowledged, got.Status)
	require.NotNil(t, got.AcknowledgedBy)
	assert.Equal(t, actorID, *got.AcknowledgedBy)

	// acknowledging twice conflicts
	err = repos.Alerts.Acknowledge(ctx, alert.ID, actorID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)

	require.NoError(t, repos.Alerts.Resolve(ctx, alert.ID))
	err = repos.Alerts.Resolve(ctx, alert.ID)
	assert.Error(t, err)
}

func TestAlertRepository_ListAlertsFilters(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	top := seedTopology(t, ctx)
	repos := repository.NewStore(suite.DB).Repos()
	rule := seedRule(t, ctx, repos, domain.RuleLowStock)

	for i, alertType := range []domain.AlertRuleType{domain.RuleLowStock, domain.RuleZeroStock} {
		alert := &domain.StockAlert{
			RuleID:    rule.ID,
			AlertType: alertType,
			SourceKey: "product:" + top.Product.ID,
			ProductID: top.Product.ID,
			Message:   "alert",
		}
		require.NoError(t, repos.Alerts.CreateAlert(ctx, alert))
		if i == 0 {
			require.NoError(t, repos.Alerts.Resolve(ctx, alert.ID))
		}
	}

	rows, total, err := repos.Alerts.ListAlerts(ctx, "", "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = repos.Alerts.ListAlerts(ctx, domain.AlertOpen, "", 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, domain.RuleZeroStock, rows[0].AlertType)

	_, total, err = repos.Alerts.ListAlerts(ctx, "", domain.RuleLowStock, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
