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

// StocktakeHandler handles stocktake endpoints.
type StocktakeHandler struct {
	service *service.StocktakeService
	logger  *logger.Logger
}

// NewStocktakeHandler creates a new stocktake handler.
func NewStocktakeHandler(svc *service.StocktakeService, log *logger.Logger) *StocktakeHandler {
	return &StocktakeHandler{
		service: svc,
		logger:  log,
	}
}

type stocktakeItemRequest struct {
	ProductID       string          `json:"product_id" validate:"required,uuid"`
	BinLocationID   string          `json:"bin_location_id" validate:"required,uuid"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	Unit            string          `json:"unit"`
}

type createStocktakeRequest struct {
	WarehouseID string                 `json:"warehouse_id" validate:"required,uuid"`
	Notes       *string                `json:"notes,omitempty"`
	Items       []stocktakeItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createStocktakeRequest) toDomain() *domain.Stocktake {
	st := &domain.Stocktake{
		WarehouseID: req.WarehouseID,
		Notes:       req.Notes,
	}
	for _, it := range req.Items {
		st.Items = append(st.Items, &domain.StocktakeItem{
			ProductID:       it.ProductID,
			BinLocationID:   it.BinLocationID,
			CountedQuantity: it.CountedQuantity,
			Unit:            it.Unit,
		})
	}
	return st
}

// Create creates a draft stocktake.
func (h *StocktakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStocktakeRequest
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

// Get gets a stocktake by ID.
func (h *StocktakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// List lists stocktakes, optionally filtered by warehouse.
func (h *StocktakeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))
	warehouseID := r.URL.Query().Get("warehouse_id")

	stocktakes, total, err := h.service.List(r.Context(), status, warehouseID, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, stocktakes, listMeta(total, page, perPage))
}

// Start moves a draft stocktake into counting.
func (h *StocktakeHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// UpdateCounts replaces the counted lines.
func (h *StocktakeHandler) UpdateCounts(w http.ResponseWriter, r *http.Request) {
	var req createStocktakeRequest
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
	if err := h.service.UpdateCounts(r.Context(), st); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// Discrepancies previews count differences without posting.
func (h *StocktakeHandler) Discrepancies(w http.ResponseWriter, r *http.Request) {
	diffs, err := h.service.PreviewDiscrepancies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, diffs)
}

// Complete posts one adjustment per discrepancy.
func (h *StocktakeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

// Cancel voids a stocktake.
func (h *StocktakeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
