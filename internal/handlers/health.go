package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

func HealthHandler(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	}
}
