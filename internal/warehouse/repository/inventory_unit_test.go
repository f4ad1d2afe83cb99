package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestInventoryRepository_GetOrCreateForUpdate(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	productID := "0f7c5a42-1d2e-4c3b-9a8d-5e6f7a8b9c0d"
	binID := "7b0d8f3a-90c1-4f6f-b1da-6a2f4f4c9e01"
	rowID := "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
	now := time.Now().UTC()

	// the insert is a no-op when the row already exists; the select still
	// takes the lock
	mockDB.ExpectExec("INSERT INTO inventory").
		WithArgs(testutil.AnyUUID{}, productID, binID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT * FROM inventory WHERE product_id = $1 AND bin_location_id = $2 FOR UPDATE").
		WithArgs(productID, binID).
		WillReturnRows(testutil.MockRows(
			"id", "product_id", "bin_location_id", "quantity", "reserved_quantity",
			"unit", "created_at", "updated_at",
		).AddRow(rowID, productID, binID, "12", "2", "piece", now, now))

	repo := repository.NewInventoryRepository(mockDB.DB)
	inv, err := repo.GetOrCreateForUpdate(context.Background(), productID, binID)
	require.NoError(t, err)

	assert.Equal(t, rowID, inv.ID)
	assert.True(t, inv.Quantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, inv.Available().Equal(decimal.NewFromInt(10)))
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_DebitOverdrawMapsToInsufficientStock(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	rowID := "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
	mockDB.ExpectExec("UPDATE inventory SET quantity = quantity - $2").
		WithArgs(rowID, "9").
		WillReturnError(&pq.Error{Code: "23514", Constraint: "inventory_quantity_non_negative"})

	repo := repository.NewInventoryRepository(mockDB.DB)
	err := repo.Debit(context.Background(), rowID, decimal.NewFromInt(9))

	require.True(t, errors.Is(err, errors.ErrInsufficientStock))
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
	mockDB.ExpectationsWereMet(t)
}
