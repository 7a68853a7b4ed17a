package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"syncactivity/internal/httputil"
	"syncactivity/internal/transport/http/middleware"
)

// callerID returns the authenticated user's id or writes 401.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the named URL parameter. Malformed ids cannot reference an
// existing record, so they are reported as notFound.
func pathID(w http.ResponseWriter, r *http.Request, name string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteDomainError(w, r, notFound)
		return uuid.Nil, false
	}
	return id, true
}
