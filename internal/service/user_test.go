package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"syncactivity/internal/model"
)

const strongPassword = "Tr41l-Runner!"

func validRegisterRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:    "ana@example.com",
		Password: strongPassword,
		Username: "ana",
		FullName: "Ana Lima",
	}
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestUserService_Register_Success(t *testing.T) {
	// ARRANGE: provider creates the remote account
	repo := newUserDirectory()
	provisioner := &stubProvisioner{externalID: "auth0|abc"}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, provisioner, nil)

	req := validRegisterRequest()

	// ACT
	user, err := svc.Register(context.Background(), req)

	// ASSERT
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "auth0|abc", user.ExternalID)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, "Ana Lima", user.FullName)

	// Password is stored as a bcrypt hash, never in plain text
	assert.NotEqual(t, req.Password, user.PasswordHashed)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)))

	assert.Len(t, repo.createCalls, 1)
	assert.Equal(t, 1, provisioner.calls)
}

func TestUserService_Register_ProviderFailureFallsBackToLocalIdentity(t *testing.T) {
	repo := newUserDirectory()
	provisioner := &stubProvisioner{err: model.ErrProviderUnavailable}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, provisioner, nil)

	user, err := svc.Register(context.Background(), validRegisterRequest())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.ExternalID, model.LocalIdentityPrefix))
	assert.Len(t, user.ExternalID, len(model.LocalIdentityPrefix)+32)
	assert.Len(t, repo.createCalls, 1)
}

func TestUserService_Register_WithoutProviderUsesLocalIdentity(t *testing.T) {
	repo := newUserDirectory()
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	first, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	second := validRegisterRequest()
	second.Username, second.Email = "bo", "bo@example.com"
	other, err := svc.Register(context.Background(), second)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.ExternalID, model.LocalIdentityPrefix))
	assert.NotEqual(t, first.ExternalID, other.ExternalID)
}

func TestUserService_Register_UsernameCheckedBeforeEmail(t *testing.T) {
	emailChecked := false
	repo := newUserDirectory()
	repo.existsByUsernameFn = func(ctx context.Context, username string) (bool, error) {
		return true, nil
	}
	repo.existsByEmailFn = func(ctx context.Context, email string) (bool, error) {
		emailChecked = true
		return true, nil
	}
	provisioner := &stubProvisioner{externalID: "auth0|x"}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, provisioner, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())

	assert.ErrorIs(t, err, model.ErrUsernameExists)
	assert.False(t, emailChecked)
	assert.Empty(t, repo.createCalls)
	assert.Zero(t, provisioner.calls, "no remote account for a rejected registration")
}

func TestUserService_Register_EmailExists(t *testing.T) {
	repo := newUserDirectory()
	repo.existsByEmailFn = func(ctx context.Context, email string) (bool, error) {
		return true, nil
	}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())

	assert.ErrorIs(t, err, model.ErrEmailExists)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
	assert.Empty(t, repo.createCalls)
}

func TestUserService_Register_RacingInsertKeepsConflict(t *testing.T) {
	repo := newUserDirectory()
	repo.createFn = func(ctx context.Context, user *model.User) error {
		return model.ErrUsernameExists
	}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())

	assert.ErrorIs(t, err, model.ErrUsernameExists)
}

func TestUserService_Register_WrapsStorageErrors(t *testing.T) {
	dbError := errors.New("database connection failed")
	repo := newUserDirectory()
	repo.existsByUsernameFn = func(ctx context.Context, username string) (bool, error) {
		return false, dbError
	}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, dbError)
	assert.Empty(t, model.KindOf(err))
}

func TestUserService_Register_Validation(t *testing.T) {
	age := -1
	badGender := "X"

	tests := []struct {
		name   string
		mutate func(r *model.RegisterRequest)
	}{
		{name: "missing email", mutate: func(r *model.RegisterRequest) { r.Email = "" }},
		{name: "malformed email", mutate: func(r *model.RegisterRequest) { r.Email = "ana-at-example" }},
		{name: "short password", mutate: func(r *model.RegisterRequest) { r.Password = "Ab1!" }},
		{name: "weak password", mutate: func(r *model.RegisterRequest) { r.Password = "aaaaaaaa" }},
		{name: "missing username", mutate: func(r *model.RegisterRequest) { r.Username = "  " }},
		{name: "long username", mutate: func(r *model.RegisterRequest) { r.Username = strings.Repeat("u", model.MaxUsernameLength+1) }},
		{name: "long full name", mutate: func(r *model.RegisterRequest) { r.FullName = strings.Repeat("n", model.MaxFullNameLength+1) }},
		{name: "negative age", mutate: func(r *model.RegisterRequest) { r.Age = &age }},
		{name: "unknown gender", mutate: func(r *model.RegisterRequest) { r.Gender = &badGender }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newUserDirectory()
			svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)
			req := validRegisterRequest()
			tt.mutate(req)

			_, err := svc.Register(context.Background(), req)

			assert.Equal(t, model.KindValidation, model.KindOf(err))
			assert.Empty(t, repo.createCalls)
		})
	}
}

// =============================================================================
// LOGIN TESTS - Table-Driven
// =============================================================================

var errLoginStorage = errors.New("connection refused")

func TestUserService_Login(t *testing.T) {
	validHash, _ := bcrypt.GenerateFromPassword([]byte(strongPassword), bcrypt.MinCost)
	testUser := &model.User{
		ID:             uuid.New(),
		Email:          "ana@example.com",
		PasswordHashed: string(validHash),
	}

	tests := []struct {
		name       string
		email      string
		password   string
		getByEmail func(ctx context.Context, email string) (*model.User, error)
		wantErr    error
	}{
		{
			name:     "successful login",
			email:    "ana@example.com",
			password: strongPassword,
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return testUser, nil
			},
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: strongPassword,
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr: model.ErrInvalidCredentials, // Don't reveal the email is unknown
		},
		{
			name:     "wrong password",
			email:    "ana@example.com",
			password: "wrong-password",
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return testUser, nil
			},
			wantErr: model.ErrInvalidCredentials,
		},
		{
			name:     "database error",
			email:    "ana@example.com",
			password: strongPassword,
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return nil, errLoginStorage
			},
			wantErr: errLoginStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newUserDirectory()
			repo.getByEmailFn = tt.getByEmail
			svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

			user, err := svc.Login(context.Background(), &model.LoginRequest{Email: tt.email, Password: tt.password})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantErr != model.ErrInvalidCredentials {
					assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
				}
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testUser.ID, user.ID)
		})
	}
}

// =============================================================================
// RESOLVE / PROFILE TESTS
// =============================================================================

func TestUserService_ResolveUser(t *testing.T) {
	ana := &model.User{ID: uuid.New(), Username: "ana"}
	repo := newUserDirectory(ana)
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	user, err := svc.ResolveUser(context.Background(), ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)

	_, err = svc.ResolveUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserService_GetProfile_ResolvesFriends(t *testing.T) {
	ana := &model.User{ID: uuid.New(), Username: "ana"}
	bo := &model.User{ID: uuid.New(), Username: "bo"}
	repo := newUserDirectory(ana, bo)
	friends := memFriendships{newMemGraph(repo)}
	require.NoError(t, friends.Add(context.Background(), nil, ana.ID, bo.ID))
	svc := NewUserService(repo, friends, nil, nil)

	profile, err := svc.GetProfile(context.Background(), ana.ID)

	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)
	require.Len(t, profile.Friends, 1)
	assert.Equal(t, "bo", profile.Friends[0].Username)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ana := &model.User{ID: uuid.New(), Username: "ana", FullName: "Ana"}

	tests := []struct {
		name         string
		req          *model.UpdateProfileRequest
		taken        bool
		wantErr      error
		wantKind     model.ErrorKind
		wantUsername string
		wantFullName string
	}{
		{
			name:         "both fields",
			req:          &model.UpdateProfileRequest{Username: "ana2", FullName: "Ana Lima"},
			wantUsername: "ana2",
			wantFullName: "Ana Lima",
		},
		{
			name:         "empty fields keep values",
			req:          &model.UpdateProfileRequest{},
			wantUsername: "ana",
			wantFullName: "Ana",
		},
		{
			name:         "same username is not a conflict",
			req:          &model.UpdateProfileRequest{Username: "ana"},
			taken:        true,
			wantUsername: "ana",
			wantFullName: "Ana",
		},
		{
			name:     "username taken by someone else",
			req:      &model.UpdateProfileRequest{Username: "bo"},
			taken:    true,
			wantErr:  model.ErrUsernameExists,
			wantKind: model.KindConflict,
		},
		{
			name:     "username too long",
			req:      &model.UpdateProfileRequest{Username: strings.Repeat("x", model.MaxUsernameLength+1)},
			wantKind: model.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newUserDirectory(ana)
			repo.existsByUsernameFn = func(ctx context.Context, username string) (bool, error) {
				return tt.taken, nil
			}
			svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

			profile, err := svc.UpdateProfile(context.Background(), ana.ID, tt.req)

			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, model.KindOf(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsername, profile.Username)
			assert.Equal(t, tt.wantFullName, profile.FullName)
		})
	}
}

// =============================================================================
// PICTURE + SEARCH TESTS
// =============================================================================

func TestUserService_UpdateProfilePicture(t *testing.T) {
	oldKey := "profile-pictures/old.jpg"
	ana := &model.User{ID: uuid.New(), Username: "ana", ProfilePictureKey: &oldKey}
	repo := newUserDirectory(ana)
	var storedURL string
	repo.updateProfilePictureFn = func(ctx context.Context, id uuid.UUID, url, key string) error {
		storedURL = url
		return nil
	}
	store := &stubPictureStore{result: &model.UploadResult{URL: "https://cdn/new.jpg", Key: "profile-pictures/new.jpg"}}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, store)

	user, err := svc.UpdateProfilePicture(context.Background(), ana.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.jpg", storedURL)
	assert.Equal(t, "https://cdn/new.jpg", *user.ProfilePicture)
	assert.Equal(t, []string{oldKey}, store.deleted)
}

func TestUserService_UpdateProfilePicture_Disabled(t *testing.T) {
	repo := newUserDirectory()
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	_, err := svc.UpdateProfilePicture(context.Background(), uuid.New(), nil, nil)

	assert.ErrorIs(t, err, model.ErrFeatureDisabled)
}

func TestUserService_Search(t *testing.T) {
	var gotQuery string
	var gotLimit int
	repo := newUserDirectory()
	repo.searchFn = func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
		gotQuery, gotLimit = query, limit
		return []model.UserSummary{{Username: "ana"}}, nil
	}
	svc := NewUserService(repo, memFriendships{newMemGraph(repo)}, nil, nil)

	users, err := svc.Search(context.Background(), "  an ")

	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "an", gotQuery)
	assert.Equal(t, model.SearchLimit, gotLimit)

	_, err = svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrEmptySearchQuery)
}
