package domain

import (
	"fmt"

	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// DocumentKind identifies a workflow document type.
type DocumentKind string

const (
	KindGoodsReceipt      DocumentKind = "goods_receipt"
	KindGoodsIssue        DocumentKind = "goods_issue"
	KindStockTransfer     DocumentKind = "stock_transfer"
	KindWarehouseTransfer DocumentKind = "warehouse_transfer"
	KindReturnOrder       DocumentKind = "return_order"
	KindStocktake         DocumentKind = "stocktake"
)

// DocumentStatus is the workflow state of a document.
type DocumentStatus string

const (
	StatusDraft      DocumentStatus = "draft"
	StatusInProgress DocumentStatus = "in_progress"
	StatusInReview   DocumentStatus = "in_review"
	StatusDispatched DocumentStatus = "dispatched"
	StatusReceived   DocumentStatus = "received"
	StatusProcessed  DocumentStatus = "processed"
	StatusCompleted  DocumentStatus = "completed"
	StatusCancelled  DocumentStatus = "cancelled"
)

// transitions holds the allowed status edges per document kind. Anything
// not listed here is rejected; there is no way back out of a terminal
// status or into draft.
var transitions = map[DocumentKind]map[DocumentStatus][]DocumentStatus{
	KindGoodsReceipt: {
		StatusDraft: {StatusCompleted, StatusCancelled},
	},
	KindGoodsIssue: {
		StatusDraft: {StatusCompleted, StatusCancelled},
	},
	KindStockTransfer: {
		StatusDraft: {StatusCompleted, StatusCancelled},
	},
	KindWarehouseTransfer: {
		StatusDraft:      {StatusDispatched, StatusCancelled},
		StatusDispatched: {StatusReceived},
	},
	KindReturnOrder: {
		StatusDraft:    {StatusInReview, StatusProcessed, StatusCancelled},
		StatusInReview: {StatusProcessed, StatusCancelled},
	},
	KindStocktake: {
		StatusDraft:      {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
	},
}

// editable lists the statuses in which a document and its items may still
// be modified.
var editable = map[DocumentKind][]DocumentStatus{
	KindGoodsReceipt:      {StatusDraft},
	KindGoodsIssue:        {StatusDraft},
	KindStockTransfer:     {StatusDraft},
	KindWarehouseTransfer: {StatusDraft},
	KindReturnOrder:       {StatusDraft, StatusInReview},
	KindStocktake:         {StatusDraft, StatusInProgress},
}

// CanTransition reports whether a document of the given kind may move from
// one status to another.
func CanTransition(kind DocumentKind, from, to DocumentStatus) bool {
	for _, allowed := range transitions[kind][from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EnsureTransition returns a Conflict error when the requested status
// change is not an allowed edge for the document kind.
func EnsureTransition(kind DocumentKind, from, to DocumentStatus) error {
	if !CanTransition(kind, from, to) {
		return errors.Conflict(fmt.Sprintf("%s cannot move from %s to %s", kind, from, to))
	}
	return nil
}

// IsEditable reports whether documents of this kind may be modified in the
// given status.
func IsEditable(kind DocumentKind, status DocumentStatus) bool {
	for _, s := range editable[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// EnsureEditable returns a Conflict error when the document is no longer
// in a status that allows modification.
func EnsureEditable(kind DocumentKind, status DocumentStatus) error {
	if !IsEditable(kind, status) {
		return errors.Conflict(fmt.Sprintf("%s in status %s can no longer be modified", kind, status))
	}
	return nil
}

// IsTerminal reports whether the status has no outgoing edges for the kind.
func IsTerminal(kind DocumentKind, status DocumentStatus) bool {
	return len(transitions[kind][status]) == 0
}
