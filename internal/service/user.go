package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"syncactivity/internal/model"
	"syncactivity/internal/repository"
)

// PasswordMinEntropyBits is the minimum estimated password strength.
const PasswordMinEntropyBits = 30

// IdentityProvisioner creates the remote account backing a local user and
// returns its identity reference.
type IdentityProvisioner interface {
	CreateUser(ctx context.Context, email, password, username string) (string, error)
}

// PictureStore persists normalized profile pictures.
type PictureStore interface {
	UploadProfilePicture(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// UserService is the credential store: accounts, password checks and profile
// edits.
type UserService struct {
	repo        repository.UserRepository
	friendRepo  repository.FriendshipRepository
	provisioner IdentityProvisioner
	pictures    PictureStore
}

// NewUserService wires the store. provisioner and pictures are optional; pass
// nil when the backing service is not configured.
func NewUserService(
	repo repository.UserRepository,
	friendRepo repository.FriendshipRepository,
	provisioner IdentityProvisioner,
	pictures PictureStore,
) *UserService {
	return &UserService{
		repo:        repo,
		friendRepo:  friendRepo,
		provisioner: provisioner,
		pictures:    pictures,
	}
}

// Register validates the request, checks username then email uniqueness and
// persists the account. If the identity provider cannot create the remote
// account, a synthetic local reference is used instead.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	externalID := s.provisionIdentity(ctx, req)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.New(),
		ExternalID:     externalID,
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
		FullName:       req.FullName,
		Age:            req.Age,
		Gender:         req.Gender,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if model.KindOf(err) == model.KindConflict {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User registered", "user_id", user.ID, "external_id", user.ExternalID)
	return user, nil
}

func (s *UserService) provisionIdentity(ctx context.Context, req *model.RegisterRequest) string {
	if s.provisioner != nil {
		externalID, err := s.provisioner.CreateUser(ctx, req.Email, req.Password, req.Username)
		if err == nil && externalID != "" {
			return externalID
		}
		slog.Warn("Identity provider account creation failed, using local identity",
			"username", req.Username, "error", err)
	}
	return model.LocalIdentityPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validateRegistration(req *model.RegisterRequest) error {
	if req.Email == "" {
		return model.NewValidationError("email is required")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return model.NewValidationError("Enter a valid email address")
	}

	if utf8.RuneCountInString(req.Password) < model.MinPasswordLength {
		return model.NewValidationError(fmt.Sprintf("password must be at least %d characters", model.MinPasswordLength))
	}
	if err := passwordvalidator.Validate(req.Password, PasswordMinEntropyBits); err != nil {
		return model.NewValidationError("password is not strong enough")
	}

	if err := validateUsername(req.Username); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.FullName) > model.MaxFullNameLength {
		return model.NewValidationError(fmt.Sprintf("full_name must be at most %d characters", model.MaxFullNameLength))
	}

	if req.Age != nil && *req.Age < 0 {
		return model.NewValidationError("age must be a positive number")
	}
	if req.Gender != nil {
		switch *req.Gender {
		case model.GenderMale, model.GenderFemale, model.GenderOther:
		default:
			return model.NewValidationError("gender must be one of M, F, Other")
		}
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return model.NewValidationError("username is required")
	}
	if utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return model.NewValidationError(fmt.Sprintf("username must be at most %d characters", model.MaxUsernameLength))
	}
	return nil
}

// Login authenticates a user with email and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		// Don't reveal whether the email exists
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// ResolveUser maps a verified token subject to a live account. It fails with
// ErrUserNotFound when the account was removed after the token was issued.
func (s *UserService) ResolveUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns the self-view of an account with friends resolved.
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	friends, err := s.friendRepo.ListFriends(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.ProfileResponse{User: user, Friends: friends}, nil
}

// UpdateProfile edits username and full name. Empty fields keep their value.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	username := user.Username
	if u := strings.TrimSpace(req.Username); u != "" && u != user.Username {
		if err := validateUsername(u); err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByUsername(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return nil, model.ErrUsernameExists
		}
		username = u
	}

	fullName := user.FullName
	if n := strings.TrimSpace(req.FullName); n != "" {
		if utf8.RuneCountInString(n) > model.MaxFullNameLength {
			return nil, model.NewValidationError(fmt.Sprintf("full_name must be at most %d characters", model.MaxFullNameLength))
		}
		fullName = n
	}

	updated, err := s.repo.UpdateProfile(ctx, id, username, fullName)
	if err != nil {
		return nil, err
	}

	friends, err := s.friendRepo.ListFriends(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.ProfileResponse{User: updated, Friends: friends}, nil
}

// UpdateProfilePicture stores a new picture and removes the previous object.
func (s *UserService) UpdateProfilePicture(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.User, error) {
	if s.pictures == nil {
		return nil, model.ErrFeatureDisabled
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.pictures.UploadProfilePicture(ctx, file, header)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfilePicture(ctx, id, result.URL, result.Key); err != nil {
		if delErr := s.pictures.DeleteObject(ctx, result.Key); delErr != nil {
			slog.Warn("Failed to clean up uploaded picture", "key", result.Key, "error", delErr)
		}
		return nil, err
	}

	if user.ProfilePictureKey != nil && *user.ProfilePictureKey != "" {
		if err := s.pictures.DeleteObject(ctx, *user.ProfilePictureKey); err != nil {
			slog.Warn("Failed to delete previous picture", "key", *user.ProfilePictureKey, "error", err)
		}
	}

	user.ProfilePicture = &result.URL
	user.ProfilePictureKey = &result.Key
	return user, nil
}

// Search matches an exact id first, else a substring of username, email or
// full name.
func (s *UserService) Search(ctx context.Context, query string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptySearchQuery
	}

	users, err := s.repo.Search(ctx, query, model.SearchLimit)
	if err != nil {
		return nil, err
	}
	return users, nil
}
