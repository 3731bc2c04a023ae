package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"remindbot/internal/bot"
	"remindbot/internal/cache"
	"remindbot/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const updateJSON = `{"update_id":11,"message":{"message_id":8,"date":1700000000,"text":"@bot in 2 hours",` +
	`"chat":{"id":-100,"type":"group"},"from":{"id":42,"is_bot":false,"first_name":"Ann"},` +
	`"reply_to_message":{"message_id":3,"date":1699990000,"text":"ship it","chat":{"id":-100,"type":"group"}}}}`

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func postUpdate(handler http.Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_Accepts(t *testing.T) {
	out := make(chan models.InboundMessage, 1)
	handler := WebhookHandler(bot.NewDispatcher(out, cache.NewMemoryDeduper(8), newTestLogger()), "s3cret", newTestLogger())

	rec := postUpdate(handler, updateJSON, "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out, 1)
	msg := <-out
	assert.Equal(t, "-100:3", msg.ReplyToID)
	assert.Equal(t, "42", msg.AuthorID)
	assert.Equal(t, "@bot in 2 hours", msg.Content)
}

func TestWebhookHandler_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		secret string
		status int
	}{
		{name: "wrong method", method: http.MethodGet, secret: "s3cret", status: http.StatusMethodNotAllowed},
		{name: "missing secret", method: http.MethodPost, body: updateJSON, status: http.StatusUnauthorized},
		{name: "wrong secret", method: http.MethodPost, body: updateJSON, secret: "guess", status: http.StatusUnauthorized},
		{name: "bad json", method: http.MethodPost, body: "{not json", secret: "s3cret", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make(chan models.InboundMessage, 1)
			handler := WebhookHandler(bot.NewDispatcher(out, nil, newTestLogger()), "s3cret", newTestLogger())

			req := httptest.NewRequest(tt.method, "/webhook", strings.NewReader(tt.body))
			if tt.secret != "" {
				req.Header.Set(secretTokenHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, out)
		})
	}
}

func TestWebhookHandler_RedeliveryIgnored(t *testing.T) {
	out := make(chan models.InboundMessage, 2)
	handler := WebhookHandler(bot.NewDispatcher(out, cache.NewMemoryDeduper(8), newTestLogger()), "", newTestLogger())

	assert.Equal(t, http.StatusOK, postUpdate(handler, updateJSON, "").Code)
	assert.Equal(t, http.StatusOK, postUpdate(handler, updateJSON, "").Code)
	assert.Len(t, out, 1)
}

func TestWebhookHandler_BusyQueue(t *testing.T) {
	out := make(chan models.InboundMessage)
	handler := WebhookHandler(bot.NewDispatcher(out, cache.NewMemoryDeduper(8), newTestLogger()), "", newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(updateJSON))
	ctx, cancel := context.WithTimeout(req.Context(), 20*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
