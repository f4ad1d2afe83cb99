package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// InventoryHandler serves read-only stock, serial and movement queries.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(svc *service.InventoryService, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  log,
	}
}

// ProductStock returns per-bin stock with batches for one product.
func (h *InventoryHandler) ProductStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.GetProductStock(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stock)
}

// BinStock returns all stock rows at one bin.
func (h *InventoryHandler) BinStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetBinStock(r.Context(), chi.URLParam(r, "binID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// LookupSerial returns one serial with its current state and bin.
func (h *InventoryHandler) LookupSerial(w http.ResponseWriter, r *http.Request) {
	sn, err := h.service.LookupSerial(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "serial"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sn)
}

// ListSerials returns all serials of one product.
func (h *InventoryHandler) ListSerials(w http.ResponseWriter, r *http.Request) {
	serials, err := h.service.ListSerialsByProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, serials)
}

// ListMovements returns a filtered page of the movement log, newest first.
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	q := r.URL.Query()

	f := repository.MovementFilter{
		ProductID:     q.Get("product_id"),
		BinID:         q.Get("bin_id"),
		MovementType:  domain.MovementType(q.Get("type")),
		ReferenceType: domain.ReferenceType(q.Get("reference_type")),
		Reference:     q.Get("reference"),
		Limit:         perPage,
		Offset:        (page - 1) * perPage,
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.Error(w, errInvalidTime("from"))
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.Error(w, errInvalidTime("to"))
			return
		}
		f.To = &t
	}

	movements, total, err := h.service.ListMovements(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, movements, listMeta(total, page, perPage))
}

// MovementsByReference returns every movement one document produced,
// oldest first.
func (h *InventoryHandler) MovementsByReference(w http.ResponseWriter, r *http.Request) {
	refType := domain.ReferenceType(chi.URLParam(r, "refType"))
	number := chi.URLParam(r, "number")

	movements, err := h.service.ListMovementsByReference(r.Context(), refType, number)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, movements)
}
