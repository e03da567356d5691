package health

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"health-compass/internal/platform/httpx"
	"health-compass/internal/platform/logger"
)

type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("component", "health_api")}
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(r.URL.Query().Get("user_id"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	var req ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}
	p, err := h.svc.CreateProfile(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "create profile", err)
		return
	}
	httpx.OK(w, "profile", p)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	p, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	var req ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	httpx.OK(w, "profile", p)
}

func (h *Handler) AddCondition(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	var req ConditionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}
	p, err := h.svc.AddCondition(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "add condition", err)
		return
	}
	httpx.OK(w, "profile", p)
}

func (h *Handler) AddMetric(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(r.URL.Query().Get("user_id"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	var req MetricInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}
	m, err := h.svc.AddMetric(r.Context(), userID, req)
	if err != nil {
		h.fail(w, "add metric", err)
		return
	}
	httpx.OK(w, "metric", m)
}

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	limit := DefaultMetricsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	metrics, err := h.svc.Metrics(r.Context(), userID, r.URL.Query().Get("metric_type"), limit)
	if err != nil {
		h.fail(w, "get metrics", err)
		return
	}
	httpx.OK(w, "metrics", metrics)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	sum, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, "get summary", err)
		return
	}
	httpx.OK(w, "summary", sum)
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	metricType := r.URL.Query().Get("metric_type")
	if metricType == "" {
		httpx.Error(w, http.StatusBadRequest, "metric_type is required")
		return
	}
	trend, err := h.svc.Trend(r.Context(), userID, metricType)
	if err != nil {
		h.fail(w, "get trend", err)
		return
	}
	httpx.OK(w, "trend", trend)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case IsValidation(err):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case IsNotFound(err):
		httpx.Error(w, http.StatusNotFound, "Profile not found")
	default:
		h.log.Error("health api failure", "op", op, "error", err)
		httpx.Error(w, http.StatusInternalServerError, err.Error())
	}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/profile", h.CreateProfile)
	r.Get("/profile/{userID}", h.GetProfile)
	r.Patch("/profile/{userID}", h.UpdateProfile)
	r.Post("/profile/{userID}/conditions", h.AddCondition)
	r.Post("/health-metrics", h.AddMetric)
	r.Get("/health-metrics/{userID}", h.GetMetrics)
	r.Get("/health-summary/{userID}", h.GetSummary)
	r.Get("/health-trends/{userID}", h.GetTrend)
}
