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

// IssueHandler handles goods issue endpoints.
type IssueHandler struct {
	service *service.IssueService
	logger  *logger.Logger
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(svc *service.IssueService, log *logger.Logger) *IssueHandler {
	return &IssueHandler{
		service: svc,
		logger:  log,
	}
}

type issueItemRequest struct {
	ProductID         string           `json:"product_id" validate:"required,uuid"`
	RequestedQuantity decimal.Decimal  `json:"requested_quantity" validate:"required"`
	IssuedQuantity    *decimal.Decimal `json:"issued_quantity,omitempty"`
	Unit              string           `json:"unit"`
	SourceBinID       string           `json:"source_bin_id" validate:"required,uuid"`
	BatchNumber       *string          `json:"batch_number,omitempty"`
	UseFEFO           bool             `json:"use_fefo"`
	SerialNumbers     []string         `json:"serial_numbers,omitempty"`
}

type createIssueRequest struct {
	Reason *string            `json:"reason,omitempty"`
	Items  []issueItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req *createIssueRequest) toDomain() *domain.GoodsIssue {
	gi := &domain.GoodsIssue{Reason: req.Reason}
	for _, it := range req.Items {
		gi.Items = append(gi.Items, &domain.GoodsIssueItem{
			ProductID:         it.ProductID,
			RequestedQuantity: it.RequestedQuantity,
			IssuedQuantity:    it.IssuedQuantity,
			Unit:              it.Unit,
			SourceBinID:       it.SourceBinID,
			BatchNumber:       it.BatchNumber,
			UseFEFO:           it.UseFEFO,
			SerialNumbers:     it.SerialNumbers,
		})
	}
	return gi
}

// Create creates a draft issue.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	gi := req.toDomain()
	if err := h.service.Create(r.Context(), gi); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, gi)
}

// Get gets an issue by ID.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	gi, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gi)
}

// List lists issues.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.DocumentStatus(r.URL.Query().Get("status"))

	issues, total, err := h.service.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, issues, listMeta(total, page, perPage))
}

// Update replaces a draft issue's lines.
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	gi := req.toDomain()
	gi.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateDraft(r.Context(), gi); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gi)
}

// Complete posts the issue.
func (h *IssueHandler) Complete(w http.ResponseWriter, r *http.Request) {
	gi, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, gi)
}

// Cancel voids a draft issue.
func (h *IssueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
