package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncactivity/internal/model"
)

func TestUserHandler_GetProfile(t *testing.T) {
	me := &model.User{ID: uuid.New(), Username: "ana", PasswordHashed: "hash"}
	h := NewUserHandler(&mockProfiles{
		getProfileFn: func(ctx context.Context, id uuid.UUID) (*model.ProfileResponse, error) {
			return &model.ProfileResponse{User: me, Friends: []model.UserSummary{}}, nil
		},
	})

	rec := serve(t, http.MethodGet, "/profile", "/profile", nil, h.GetProfile, asUser(me.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ana", body["username"])
	assert.Equal(t, []interface{}{}, body["friends"])
	assert.NotContains(t, body, "password_hashed")
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	me := uuid.New()
	h := NewUserHandler(&mockProfiles{
		updateProfileFn: func(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error) {
			if req.Username == "taken" {
				return nil, model.ErrUsernameExists
			}
			return &model.ProfileResponse{User: &model.User{ID: id, Username: req.Username}}, nil
		},
	})

	rec := serve(t, http.MethodPut, "/profile", "/profile", jsonBody(`{"username":"ana2"}`), h.UpdateProfile, asUser(me))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.MethodPut, "/profile", "/profile", jsonBody(`{"username":"taken"}`), h.UpdateProfile, asUser(me))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "USERNAME_EXISTS", errorCode(t, rec))
}

func TestUserHandler_Search(t *testing.T) {
	h := NewUserHandler(&mockProfiles{
		searchFn: func(ctx context.Context, query string) ([]model.UserSummary, error) {
			if query == "" {
				return nil, model.ErrEmptySearchQuery
			}
			return []model.UserSummary{{Username: "ana"}}, nil
		},
	})

	rec := serve(t, http.MethodGet, "/users/search", "/users/search?q=an", nil, h.Search, asUser(uuid.New()))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.MethodGet, "/users/search", "/users/search", nil, h.Search, asUser(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartPicture(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "pic.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUserHandler_UpdateProfilePicture(t *testing.T) {
	me := uuid.New()
	url := "https://cdn.test/profile-pictures/x.jpg"

	tests := []struct {
		name       string
		field      string
		serviceErr error
		wantStatus int
	}{
		{name: "uploaded", field: "picture", wantStatus: http.StatusOK},
		{name: "wrong field", field: "avatar", wantStatus: http.StatusBadRequest},
		{name: "storage disabled", field: "picture", serviceErr: model.ErrFeatureDisabled, wantStatus: http.StatusServiceUnavailable},
		{name: "invalid type", field: "picture", serviceErr: model.ErrInvalidImageType, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received []byte
			h := NewUserHandler(&mockProfiles{
				updatePictureFn: func(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.User, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					received, _ = io.ReadAll(file)
					return &model.User{ID: id, ProfilePicture: &url}, nil
				},
			})

			body, contentType := multipartPicture(t, tt.field, []byte("png-bytes"))
			req := httptest.NewRequest(http.MethodPut, "/profile/picture", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			asUser(me)(http.HandlerFunc(h.UpdateProfilePicture)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, []byte("png-bytes"), received)
			}
		})
	}
}

func TestUserHandler_UpdateProfilePicture_NotMultipart(t *testing.T) {
	h := NewUserHandler(&mockProfiles{})

	rec := serve(t, http.MethodPut, "/profile/picture", "/profile/picture", jsonBody(`{}`), h.UpdateProfilePicture, asUser(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	rec := serve(t, http.MethodGet, "/", "/", nil, Root)
	assert.JSONEq(t, `{"status":"OK","message":"Welcome to the Sync Activity API"}`, rec.Body.String())

	rec = serve(t, http.MethodGet, "/health", "/health", nil, Health)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
