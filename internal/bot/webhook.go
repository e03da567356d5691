package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"health-compass/internal/platform/httpx"
	"health-compass/internal/platform/logger"
	"health-compass/internal/platform/maxapi"
)

// SecretHeader carries the secret registered with the webhook subscription.
const SecretHeader = "X-Max-Bot-Api-Secret"

type WebhookHandler struct {
	bot    *Bot
	secret string
	log    *logger.Logger
}

// NewWebhookHandler serves POST /webhook. A nil bot means the bot is not
// configured and every update is answered with 503.
func NewWebhookHandler(bot *Bot, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{bot: bot, secret: secret, log: log.With("component", "webhook")}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.bot == nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "Bot component not configured"})
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid webhook secret"})
		return
	}

	var u maxapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		httpx.JSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid update"})
		return
	}
	h.log.Debug("webhook update", "update_type", u.UpdateType)

	if err := h.bot.HandleUpdate(r.Context(), u); err != nil {
		h.log.Error("webhook processing failed", "update_type", u.UpdateType, "error", err)
		httpx.JSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "handled": true})
}
