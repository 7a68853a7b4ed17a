package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
	"syncactivity/internal/transport/http/middleware"
)

// =============================================================================
// SERVICE MOCKS
// =============================================================================
//
// Function-field mocks: each test sets only what it exercises. Calling an unset
// function panics, which surfaces an unexpected call as a test failure.

type mockAccounts struct {
	registerFn func(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	loginFn    func(ctx context.Context, req *model.LoginRequest) (*model.User, error)
}

func (m *mockAccounts) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	return m.registerFn(ctx, req)
}

func (m *mockAccounts) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	return m.loginFn(ctx, req)
}

type mockTokens struct {
	issued []uuid.UUID
}

func (m *mockTokens) Issue(userID uuid.UUID, email string) (string, error) {
	m.issued = append(m.issued, userID)
	return "token-for-" + userID.String(), nil
}

type mockIdentity struct {
	attempt    *model.LoginAttempt
	completeFn func(ctx context.Context, attempt *model.LoginAttempt, code, state string) (*model.ProviderTokens, error)
}

func (m *mockIdentity) BeginLogin() (*model.LoginAttempt, string) {
	return m.attempt, "https://provider.test/authorize?state=" + m.attempt.State
}

func (m *mockIdentity) CompleteLogin(ctx context.Context, attempt *model.LoginAttempt, code, state string) (*model.ProviderTokens, error) {
	return m.completeFn(ctx, attempt, code, state)
}

func (m *mockIdentity) LogoutURL() string {
	return "https://provider.test/v2/logout"
}

// memAttempts is an in-memory LoginAttemptStore with the same one-shot
// semantics as the Redis store.
type memAttempts struct {
	mu    sync.Mutex
	items map[string]*model.LoginAttempt
}

func newMemAttempts() *memAttempts {
	return &memAttempts{items: make(map[string]*model.LoginAttempt)}
}

func (m *memAttempts) Save(ctx context.Context, id string, attempt *model.LoginAttempt, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = attempt
	return nil
}

func (m *memAttempts) Take(ctx context.Context, id string) (*model.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	delete(m.items, id)
	return a, nil
}

func (m *memAttempts) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type mockProfiles struct {
	getProfileFn    func(ctx context.Context, id uuid.UUID) (*model.ProfileResponse, error)
	updateProfileFn func(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error)
	updatePictureFn func(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.User, error)
	searchFn        func(ctx context.Context, query string) ([]model.UserSummary, error)
}

func (m *mockProfiles) GetProfile(ctx context.Context, id uuid.UUID) (*model.ProfileResponse, error) {
	return m.getProfileFn(ctx, id)
}

func (m *mockProfiles) UpdateProfile(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error) {
	return m.updateProfileFn(ctx, id, req)
}

func (m *mockProfiles) UpdateProfilePicture(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.User, error) {
	return m.updatePictureFn(ctx, id, file, header)
}

func (m *mockProfiles) Search(ctx context.Context, query string) ([]model.UserSummary, error) {
	return m.searchFn(ctx, query)
}

type mockRelationships struct {
	sendFn        func(ctx context.Context, senderID, receiverID uuid.UUID) (*model.FriendRequestView, error)
	acceptFn      func(ctx context.Context, requestID, actorID uuid.UUID) (*model.FriendRequestView, error)
	rejectFn      func(ctx context.Context, requestID, actorID uuid.UUID) error
	unfriendFn    func(ctx context.Context, actorID, friendID uuid.UUID) error
	listPendingFn func(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error)
	listFriendsFn func(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error)
}

func (m *mockRelationships) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*model.FriendRequestView, error) {
	return m.sendFn(ctx, senderID, receiverID)
}

func (m *mockRelationships) Accept(ctx context.Context, requestID, actorID uuid.UUID) (*model.FriendRequestView, error) {
	return m.acceptFn(ctx, requestID, actorID)
}

func (m *mockRelationships) Reject(ctx context.Context, requestID, actorID uuid.UUID) error {
	return m.rejectFn(ctx, requestID, actorID)
}

func (m *mockRelationships) Unfriend(ctx context.Context, actorID, friendID uuid.UUID) error {
	return m.unfriendFn(ctx, actorID, friendID)
}

func (m *mockRelationships) ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error) {
	return m.listPendingFn(ctx, userID)
}

func (m *mockRelationships) ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error) {
	return m.listFriendsFn(ctx, userID)
}

type mockLedger struct {
	createFn   func(ctx context.Context, ownerID uuid.UUID, req *model.CreateActivityRequest) (*model.ActivityView, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*model.ActivityView, error)
	updateFn   func(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateActivityRequest) (*model.ActivityView, error)
	deleteFn   func(ctx context.Context, actorID, id uuid.UUID) error
	listOwnFn  func(ctx context.Context, ownerID uuid.UUID) ([]model.ActivityView, error)
	listFeedFn func(ctx context.Context, userID uuid.UUID) ([]model.ActivityView, error)
}

func (m *mockLedger) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateActivityRequest) (*model.ActivityView, error) {
	return m.createFn(ctx, ownerID, req)
}

func (m *mockLedger) Get(ctx context.Context, id uuid.UUID) (*model.ActivityView, error) {
	return m.getFn(ctx, id)
}

func (m *mockLedger) Update(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateActivityRequest) (*model.ActivityView, error) {
	return m.updateFn(ctx, actorID, id, req)
}

func (m *mockLedger) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	return m.deleteFn(ctx, actorID, id)
}

func (m *mockLedger) ListOwn(ctx context.Context, ownerID uuid.UUID) ([]model.ActivityView, error) {
	return m.listOwnFn(ctx, ownerID)
}

func (m *mockLedger) ListFriendsFeed(ctx context.Context, userID uuid.UUID) ([]model.ActivityView, error) {
	return m.listFeedFn(ctx, userID)
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// asUser attaches an account principal the way AuthMiddleware does.
func asUser(id uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithPrincipal(r.Context(), model.Principal{Kind: model.PrincipalAccount, UserID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// serve routes a single request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target string, body io.Reader, h http.HandlerFunc, mw ...func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(mw...)
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}
