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

// TransferHandler handles intra-warehouse stock transfer endpoints.
type TransferHandler struct {
	service *service.TransferService
	logger  *logger.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(svc *service.TransferService, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		service: svc,
		logger:  log,
	}
}

type transferItemRequest struct {
	ProductID     string          `json:"product_id" validate:"required,uuid"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	Unit          string          `json:"unit"`
	FromBinID     string          `json:"from_bin_id" validate:"required,uuid"`
	ToBinID       string          `json:"to_bin_id" validate:"required,uuid"`
	BatchNumber   *string         `json:"batch_number,omitempty"`
	UseFEFO       bool            `json:"use_fefo"`
	SerialNumbers []string        `json:"serial_numbers,omitempty"`
}

type createTransferRequest struct {
	Notes *string               `json:"notes,omitempty"`
	Items []transferItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createTransferRequest) toDomain() *domain.StockTransfer {
	st := &domain.StockTransfer{Notes: req.Notes}
	for _, it := range req.Items {
		st.Items = append(st.Items, &domain.StockTransferItem{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			FromBinID:     it.FromBinID,
			ToBinID:       it.ToBinID,
			BatchNumber:   it.BatchNumber,
			UseFEFO:       it.UseFEFO,
			SerialNumbers: it.SerialNumbers,
		})
	}
	return st
}

// Create creates a draft transfer.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	st := req.toDomain()
	if err := h.service.Create(r.Context(), st); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, st)
}

// Get gets a transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// List lists transfers.
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))

	transfers, total, err := h.service.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, transfers, listMeta(total, page, perPage))
}

// Update replaces a draft transfer's lines.
func (h *TransferHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	st := req.toDomain()
	st.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateDraft(r.Context(), st); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// Complete posts the transfer.
func (h *TransferHandler) Complete(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// Cancel voids a draft transfer.
func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
