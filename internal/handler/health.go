package handler

import (
	"net/http"

	"syncactivity/internal/httputil"
)

// Root handles GET /
func Root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Welcome to the Sync Activity API",
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
