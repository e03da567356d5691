package report

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"health-compass/internal/health"
	"health-compass/internal/platform/httpx"
	"health-compass/internal/platform/logger"
	"health-compass/internal/screening"
)

type HealthData interface {
	GetProfile(ctx context.Context, userID int64) (*health.UserProfile, error)
	Metrics(ctx context.Context, userID int64, metricType string, limit int) ([]health.HealthMetric, error)
}

type Handler struct {
	svc       *Service
	data      HealthData
	scheduler *screening.Scheduler
	log       *logger.Logger
}

func NewHandler(svc *Service, data HealthData, scheduler *screening.Scheduler, log *logger.Logger) *Handler {
	return &Handler{svc: svc, data: data, scheduler: scheduler, log: log.With("component", "report_api")}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	p, err := h.data.GetProfile(r.Context(), userID)
	if err != nil {
		if health.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.log.Error("load profile failed", "user_id", userID, "error", err)
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics, err := h.data.Metrics(r.Context(), userID, "", health.DefaultMetricsLimit)
	if err != nil {
		h.log.Error("load metrics failed", "user_id", userID, "error", err)
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	pdf, err := h.svc.Build(p, h.scheduler.Schedule(p), metrics)
	if err != nil {
		h.log.Error("build report failed", "user_id", userID, "error", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="health_report_%d.pdf"`, userID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/health-report/{userID}", h.GetReport)
}
