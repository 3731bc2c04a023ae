package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"remindbot/internal/bot"
	"remindbot/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
	enqueueTimeout    = 5 * time.Second
)

// WebhookHandler accepts Telegram updates pushed to the bot. A non-2xx reply
// makes Telegram redeliver, so only a full queue is answered with 503.
func WebhookHandler(dispatcher *bot.Dispatcher, secret string, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretTokenHeader)), []byte(secret)) != 1 {
			logger.Warn("Rejected webhook call with bad secret token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var update models.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
			logger.WithError(err).Error("Error parsing request")
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
		defer cancel()

		if err := dispatcher.Dispatch(ctx, update); err != nil {
			logger.WithError(err).WithField("update_id", update.UpdateId).Warn("Ingestion queue busy, asking Telegram to retry")
			http.Error(w, "Busy", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
