package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
)

func TestInventoryAvailable(t *testing.T) {
	inv := &domain.Inventory{Quantity: dec("10"), ReservedQuantity: dec("4")}
	assert.True(t, inv.Available().Equal(dec("6")))
}

func batchAt(id string, expiry *time.Time) *domain.InventoryBatch {
	return &domain.InventoryBatch{ID: id, ExpiryDate: expiry}
}

func TestSortFEFO(t *testing.T) {
	early := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	batches := []*domain.InventoryBatch{
		batchAt("d", nil),
		batchAt("c", &late),
		batchAt("b", &early),
		batchAt("a", &early),
		batchAt("e", nil),
	}
	domain.SortFEFO(batches)

	var order []string
	for _, b := range batches {
		order = append(order, b.ID)
	}
	// dated before undated, earlier expiry first, id breaks ties
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
}

func TestFEFOLess(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	dated := batchAt("x", &expiry)
	undated := batchAt("a", nil)

	require.True(t, domain.FEFOLess(dated, undated))
	require.False(t, domain.FEFOLess(undated, dated))
	assert.False(t, domain.FEFOLess(dated, dated))
}
