package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		kind domain.DocumentKind
		from domain.DocumentStatus
		to   domain.DocumentStatus
		want bool
	}{
		{"receipt draft to completed", domain.KindGoodsReceipt, domain.StatusDraft, domain.StatusCompleted, true},
		{"receipt draft to cancelled", domain.KindGoodsReceipt, domain.StatusDraft, domain.StatusCancelled, true},
		{"receipt completed back to draft", domain.KindGoodsReceipt, domain.StatusCompleted, domain.StatusDraft, false},
		{"receipt cancelled to completed", domain.KindGoodsReceipt, domain.StatusCancelled, domain.StatusCompleted, false},
		{"issue draft to completed", domain.KindGoodsIssue, domain.StatusDraft, domain.StatusCompleted, true},
		{"transfer draft to dispatched", domain.KindStockTransfer, domain.StatusDraft, domain.StatusDispatched, false},
		{"warehouse transfer draft to dispatched", domain.KindWarehouseTransfer, domain.StatusDraft, domain.StatusDispatched, true},
		{"warehouse transfer dispatched to received", domain.KindWarehouseTransfer, domain.StatusDispatched, domain.StatusReceived, true},
		{"warehouse transfer draft to received", domain.KindWarehouseTransfer, domain.StatusDraft, domain.StatusReceived, false},
		{"warehouse transfer dispatched to cancelled", domain.KindWarehouseTransfer, domain.StatusDispatched, domain.StatusCancelled, false},
		{"return draft to in_review", domain.KindReturnOrder, domain.StatusDraft, domain.StatusInReview, true},
		{"return draft straight to processed", domain.KindReturnOrder, domain.StatusDraft, domain.StatusProcessed, true},
		{"return in_review to processed", domain.KindReturnOrder, domain.StatusInReview, domain.StatusProcessed, true},
		{"return processed to in_review", domain.KindReturnOrder, domain.StatusProcessed, domain.StatusInReview, false},
		{"stocktake draft to in_progress", domain.KindStocktake, domain.StatusDraft, domain.StatusInProgress, true},
		{"stocktake in_progress to completed", domain.KindStocktake, domain.StatusInProgress, domain.StatusCompleted, true},
		{"stocktake draft to completed", domain.KindStocktake, domain.StatusDraft, domain.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.kind, tt.from, tt.to))
		})
	}
}

func TestEnsureTransition_Conflict(t *testing.T) {
	err := domain.EnsureTransition(domain.KindGoodsReceipt, domain.StatusCompleted, domain.StatusCancelled)
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestIsEditable(t *testing.T) {
	assert.True(t, domain.IsEditable(domain.KindGoodsReceipt, domain.StatusDraft))
	assert.False(t, domain.IsEditable(domain.KindGoodsReceipt, domain.StatusCompleted))

	// Return orders stay editable while decisions are being recorded.
	assert.True(t, domain.IsEditable(domain.KindReturnOrder, domain.StatusInReview))
	assert.False(t, domain.IsEditable(domain.KindReturnOrder, domain.StatusProcessed))

	// Counts may be corrected while a stocktake is running.
	assert.True(t, domain.IsEditable(domain.KindStocktake, domain.StatusInProgress))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, domain.IsTerminal(domain.KindGoodsReceipt, domain.StatusCompleted))
	assert.True(t, domain.IsTerminal(domain.KindGoodsReceipt, domain.StatusCancelled))
	assert.False(t, domain.IsTerminal(domain.KindGoodsReceipt, domain.StatusDraft))

	assert.False(t, domain.IsTerminal(domain.KindWarehouseTransfer, domain.StatusDispatched))
	assert.True(t, domain.IsTerminal(domain.KindWarehouseTransfer, domain.StatusReceived))
}
