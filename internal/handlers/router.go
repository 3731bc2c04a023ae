package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter serves /health always and the webhook when one is given.
func NewRouter(webhookPath string, webhook http.Handler, health http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", health).Methods(http.MethodGet)
	if webhook != nil && webhookPath != "" {
		r.Handle(webhookPath, webhook).Methods(http.MethodPost)
	}
	return r
}
