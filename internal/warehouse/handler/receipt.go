package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ReceiptHandler handles goods receipt endpoints.
type ReceiptHandler struct {
	service *service.ReceiptService
	logger  *logger.Logger
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(svc *service.ReceiptService, log *logger.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		service: svc,
		logger:  log,
	}
}

type receiptItemRequest struct {
	ProductID           string           `json:"product_id" validate:"required,uuid"`
	ExpectedQuantity    *decimal.Decimal `json:"expected_quantity,omitempty"`
	ReceivedQuantity    decimal.Decimal  `json:"received_quantity" validate:"required"`
	Unit                string           `json:"unit"`
	TargetBinID         *string          `json:"target_bin_id,omitempty" validate:"omitempty,uuid"`
	BatchNumber         *string          `json:"batch_number,omitempty"`
	ExpiryDate          *time.Time       `json:"expiry_date,omitempty"`
	ManufacturedAt      *time.Time       `json:"manufactured_at,omitempty"`
	SerialNumbers       []string         `json:"serial_numbers,omitempty"`
	Condition           string           `json:"condition,omitempty" validate:"omitempty,oneof=new used damaged defective"`
	PurchaseOrderItemID *string          `json:"purchase_order_item_id,omitempty" validate:"omitempty,uuid"`
}

type createReceiptRequest struct {
	Source string               `json:"source" validate:"required,oneof=supplier technician other"`
	Notes  *string              `json:"notes,omitempty"`
	Items  []receiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createReceiptRequest) toDomain() *domain.GoodsReceipt {
	gr := &domain.GoodsReceipt{
		Source: domain.ReceiptSource(req.Source),
		Notes:  req.Notes,
	}
	for _, it := range req.Items {
		gr.Items = append(gr.Items, &domain.GoodsReceiptItem{
			ProductID:           it.ProductID,
			ExpectedQuantity:    it.ExpectedQuantity,
			ReceivedQuantity:    it.ReceivedQuantity,
			Unit:                it.Unit,
			TargetBinID:         it.TargetBinID,
			BatchNumber:         it.BatchNumber,
			ExpiryDate:          it.ExpiryDate,
			ManufacturedAt:      it.ManufacturedAt,
			SerialNumbers:       it.SerialNumbers,
			Condition:           domain.ItemCondition(it.Condition),
			PurchaseOrderItemID: it.PurchaseOrderItemID,
		})
	}
	return gr
}

// Create creates a draft receipt.
func (h *ReceiptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	gr := req.toDomain()
	if err := h.service.Create(r.Context(), gr); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, gr)
}

// Get gets a receipt by ID.
func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	gr, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gr)
}

// List lists receipts.
func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))

	receipts, total, err := h.service.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, receipts, listMeta(total, page, perPage))
}

// Update replaces a draft receipt's lines.
func (h *ReceiptHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	gr := req.toDomain()
	gr.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateDraft(r.Context(), gr); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gr)
}

// Complete posts the receipt.
func (h *ReceiptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	gr, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gr)
}

// Cancel voids a draft receipt.
func (h *ReceiptHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
