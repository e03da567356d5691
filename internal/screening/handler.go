package screening

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"health-compass/internal/health"
	"health-compass/internal/platform/httpx"
	"health-compass/internal/platform/logger"
)

type ProfileSource interface {
	GetProfile(ctx context.Context, userID int64) (*health.UserProfile, error)
}

type Handler struct {
	scheduler *Scheduler
	profiles  ProfileSource
	log       *logger.Logger
}

func NewHandler(scheduler *Scheduler, profiles ProfileSource, log *logger.Logger) *Handler {
	return &Handler{scheduler: scheduler, profiles: profiles, log: log.With("component", "screening_api")}
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.Int64Param(chi.URLParam(r, "userID"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	p, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if health.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.log.Error("load profile failed", "user_id", userID, "error", err)
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.OK(w, "schedule", h.scheduler.Schedule(p))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/screening-schedule/{userID}", h.GetSchedule)
}
