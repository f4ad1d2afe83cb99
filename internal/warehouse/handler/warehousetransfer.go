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

// WarehouseTransferHandler handles inter-warehouse transfer endpoints.
type WarehouseTransferHandler struct {
	service *service.WarehouseTransferService
	logger  *logger.Logger
}

// NewWarehouseTransferHandler creates a new warehouse transfer handler.
func NewWarehouseTransferHandler(svc *service.WarehouseTransferService, log *logger.Logger) *WarehouseTransferHandler {
	return &WarehouseTransferHandler{
		service: svc,
		logger:  log,
	}
}

type warehouseTransferItemRequest struct {
	ProductID         string          `json:"product_id" validate:"required,uuid"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity" validate:"required"`
	Unit              string          `json:"unit"`
	FromBinID         string          `json:"from_bin_id" validate:"required,uuid"`
	ToBinID           string          `json:"to_bin_id" validate:"required,uuid"`
	BatchNumber       *string         `json:"batch_number,omitempty"`
	SerialNumbers     []string        `json:"serial_numbers,omitempty"`
}

type createWarehouseTransferRequest struct {
	SourceWarehouseID string                         `json:"source_warehouse_id" validate:"required,uuid"`
	TargetWarehouseID string                         `json:"target_warehouse_id" validate:"required,uuid"`
	Notes             *string                        `json:"notes,omitempty"`
	Items             []warehouseTransferItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createWarehouseTransferRequest) toDomain() *domain.WarehouseTransfer {
	wt := &domain.WarehouseTransfer{
		SourceWarehouseID: req.SourceWarehouseID,
		TargetWarehouseID: req.TargetWarehouseID,
		Notes:             req.Notes,
	}
	for _, it := range req.Items {
		wt.Items = append(wt.Items, &domain.WarehouseTransferItem{
			ProductID:         it.ProductID,
			RequestedQuantity: it.RequestedQuantity,
			Unit:              it.Unit,
			FromBinID:         it.FromBinID,
			ToBinID:           it.ToBinID,
			BatchNumber:       it.BatchNumber,
			SerialNumbers:     it.SerialNumbers,
		})
	}
	return wt
}

// Create creates a draft warehouse transfer.
func (h *WarehouseTransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	wt := req.toDomain()
	if err := h.service.Create(r.Context(), wt); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, wt)
}

// Get gets a warehouse transfer by ID.
func (h *WarehouseTransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	wt, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, wt)
}

// List lists warehouse transfers, optionally filtered by warehouse.
func (h *WarehouseTransferHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))
	warehouseID := r.URL.Query().Get("warehouse_id")

	transfers, total, err := h.service.List(r.Context(), status, warehouseID, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, transfers, listMeta(total, page, perPage))
}

// Dispatch books the goods out of the source warehouse.
func (h *WarehouseTransferHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	wt, err := h.service.Dispatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, wt)
}

// Receive books the goods into the target warehouse.
func (h *WarehouseTransferHandler) Receive(w http.ResponseWriter, r *http.Request) {
	wt, err := h.service.Receive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, wt)
}

// Cancel voids a draft warehouse transfer.
func (h *WarehouseTransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
