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

// AlertHandler handles alert rule and stock alert endpoints.
type AlertHandler struct {
	service *service.AlertService
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(svc *service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		logger:  log,
	}
}

type alertRuleRequest struct {
	RuleType        string           `json:"rule_type" validate:"required,oneof=low_stock zero_stock expiry_window"`
	ProductID       *string          `json:"product_id,omitempty" validate:"omitempty,uuid"`
	WarehouseID     *string          `json:"warehouse_id,omitempty" validate:"omitempty,uuid"`
	Threshold       *decimal.Decimal `json:"threshold,omitempty"`
	WindowDays      *int             `json:"window_days,omitempty" validate:"omitempty,min=1"`
	DedupeWindowSec *int             `json:"dedupe_window_sec,omitempty" validate:"omitempty,min=1"`
	AutoDraftPO     bool             `json:"auto_draft_po"`
	IsActive        bool             `json:"is_active"`
}

func (req *alertRuleRequest) toDomain() *domain.AlertRule {
	return &domain.AlertRule{
		RuleType:        domain.AlertRuleType(req.RuleType),
		ProductID:       req.ProductID,
		WarehouseID:     req.WarehouseID,
		Threshold:       req.Threshold,
		WindowDays:      req.WindowDays,
		DedupeWindowSec: req.DedupeWindowSec,
		AutoDraftPO:     req.AutoDraftPO,
		IsActive:        req.IsActive,
	}
}

// CreateRule creates an alert rule.
func (h *AlertHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req alertRuleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rule := req.toDomain()
	if err := h.service.CreateRule(r.Context(), rule); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, rule)
}

// GetRule gets an alert rule by ID.
func (h *AlertHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.service.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rule)
}

// UpdateRule replaces an alert rule.
func (h *AlertHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req alertRuleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rule := req.toDomain()
	rule.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateRule(r.Context(), rule); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rule)
}

// ListAlerts lists stock alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	status := domain.AlertStatus(r.URL.Query().Get("status"))
	alertType := domain.AlertRuleType(r.URL.Query().Get("type"))

	alerts, total, err := h.service.ListAlerts(r.Context(), status, alertType, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, alerts, listMeta(total, page, perPage))
}

// GetAlert gets a stock alert by ID.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alert)
}

// Acknowledge marks an open alert as seen.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Acknowledge(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Resolve closes an alert.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Resolve(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
