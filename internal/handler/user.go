package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
)

// ProfileService is the part of the credential store behind the profile and
// search endpoints.
type ProfileService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error)
	UpdateProfilePicture(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.User, error)
	Search(ctx context.Context, query string) ([]model.UserSummary, error)
}

type UserHandler struct {
	users ProfileService
}

func NewUserHandler(users ProfileService) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile handles GET /profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /profile. Only username and full_name are editable.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfilePicture handles PUT /profile/picture (multipart field "picture").
func (h *UserHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxProfilePictureSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &tooLarge):
			httputil.WriteDomainError(w, r, model.ErrFileTooLarge)
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}

	file, header, err := r.FormFile("picture")
	if err != nil {
		httputil.WriteBadRequest(w, "picture file is required")
		return
	}
	defer file.Close()

	user, err := h.users.UpdateProfilePicture(r.Context(), userID, file, header)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Search handles GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}

	users, err := h.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, users)
}
