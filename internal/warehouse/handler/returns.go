package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ReturnHandler handles return order endpoints.
type ReturnHandler struct {
	service *service.ReturnService
	logger  *logger.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(svc *service.ReturnService, log *logger.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: svc,
		logger:  log,
	}
}

type returnItemRequest struct {
	ProductID    string          `json:"product_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	Unit         string          `json:"unit"`
	TargetBinID  string          `json:"target_bin_id" validate:"required,uuid"`
	SerialNumber *string         `json:"serial_number,omitempty"`
	BatchNumber  *string         `json:"batch_number,omitempty"`
}

type createReturnRequest struct {
	SourceType string              `json:"source_type" validate:"required,oneof=supplier technician other"`
	Notes      *string             `json:"notes,omitempty"`
	Items      []returnItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createReturnRequest) toDomain() *domain.ReturnOrder {
	ro := &domain.ReturnOrder{
		SourceType: domain.ReceiptSource(req.SourceType),
		Notes:      req.Notes,
	}
	for _, it := range req.Items {
		ro.Items = append(ro.Items, &domain.ReturnOrderItem{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			Unit:         it.Unit,
			TargetBinID:  it.TargetBinID,
			SerialNumber: it.SerialNumber,
			BatchNumber:  it.BatchNumber,
		})
	}
	return ro
}

// Create creates a draft return order.
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReturnRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	ro := req.toDomain()
	if err := h.service.Create(r.Context(), ro); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, ro)
}

// Get gets a return order by ID.
func (h *ReturnHandler) Get(w http.ResponseWriter, r *http.Request) {
	ro, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ro)
}

// List lists return orders.
func (h *ReturnHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))

	orders, total, err := h.service.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, orders, listMeta(total, page, perPage))
}

// SubmitForReview moves a draft return order into review.
func (h *ReturnHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SubmitForReview(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// SetDecision records the disposition for one line of an order in review.
func (h *ReturnHandler) SetDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision" validate:"required,oneof=repair restock scrap"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	err := h.service.SetDecision(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), domain.ReturnDecision(req.Decision))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Process executes the recorded dispositions.
func (h *ReturnHandler) Process(w http.ResponseWriter, r *http.Request) {
	ro, err := h.service.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ro)
}

// DispatchRepair sends a repair line to the external provider.
func (h *ReturnHandler) DispatchRepair(w http.ResponseWriter, r *http.Request) {
	err := h.service.DispatchRepair(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// ReceiveRepair books a repaired line back from the external provider.
func (h *ReturnHandler) ReceiveRepair(w http.ResponseWriter, r *http.Request) {
	err := h.service.ReceiveRepair(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Cancel voids a draft return order.
func (h *ReturnHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
