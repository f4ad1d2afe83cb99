package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestMovementRepository_RecordInsertsAndScansTimestamp(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	performedAt := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	toBin := "7b0d8f3a-90c1-4f6f-b1da-6a2f4f4c9e01"
	m := &domain.StockMovement{
		MovementType:    domain.MovementGoodsReceipt,
		ReferenceType:   domain.RefGoodsReceipt,
		ReferenceNumber: "GR-2026-00001",
		ProductID:       "0f7c5a42-1d2e-4c3b-9a8d-5e6f7a8b9c0d",
		ToBinID:         &toBin,
		Quantity:        decimal.NewFromInt(5),
		Unit:            "piece",
		PerformedBy:     "c1d2e3f4-a5b6-4789-8abc-def012345678",
	}

	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, "goods_receipt", "goods_receipt", "GR-2026-00001",
			m.ProductID, nil, toBin, "5", "piece", m.PerformedBy, sqlmock.AnyArg()).
		WillReturnRows(testutil.MockRows("performed_at").AddRow(performedAt))

	repo := repository.NewMovementRepository(mockDB.DB)
	require.NoError(t, repo.Record(context.Background(), m))

	assert.NotEmpty(t, m.ID)
	assert.True(t, m.PerformedAt.Equal(performedAt))
	mockDB.ExpectationsWereMet(t)
}
