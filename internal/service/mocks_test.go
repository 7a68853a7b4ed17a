package service

import (
	"context"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"syncactivity/internal/model"
)

// =============================================================================
// USER REPOSITORY MOCK
// =============================================================================
//
// Each test sets only the functions it cares about. Unset functions fall back
// to the users map, so relationship tests can seed a directory and go.

type mockUserRepository struct {
	users map[uuid.UUID]*model.User

	createFn               func(ctx context.Context, user *model.User) error
	getByIDFn              func(ctx context.Context, id uuid.UUID) (*model.User, error)
	getByEmailFn           func(ctx context.Context, email string) (*model.User, error)
	existsByUsernameFn     func(ctx context.Context, username string) (bool, error)
	existsByEmailFn        func(ctx context.Context, email string) (bool, error)
	updateProfileFn        func(ctx context.Context, id uuid.UUID, username, fullName string) (*model.User, error)
	updateProfilePictureFn func(ctx context.Context, id uuid.UUID, url, key string) error
	searchFn               func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)

	createCalls []*model.User
}

func newUserDirectory(users ...*model.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, fullName string) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, username, fullName)
	}
	return &model.User{ID: id, Username: username, FullName: fullName}, nil
}

func (m *mockUserRepository) UpdateProfilePicture(ctx context.Context, id uuid.UUID, url, key string) error {
	if m.updateProfilePictureFn != nil {
		return m.updateProfilePictureFn(ctx, id, url, key)
	}
	return nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []model.UserSummary{}, nil
}

func (m *mockUserRepository) GetSummaries(ctx context.Context, ids []uuid.UUID) ([]model.UserSummary, error) {
	out := []model.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

func (m *mockUserRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// =============================================================================
// IN-MEMORY RELATIONSHIP STORE
// =============================================================================
//
// memGraph backs both FriendshipRepository and FriendRequestRepository so the
// state machine can be exercised end to end. Create enforces the same
// one-pending-per-pair rule as the database index.

type memGraph struct {
	mu       sync.Mutex
	users    *mockUserRepository
	friends  map[[2]uuid.UUID]bool
	requests map[uuid.UUID]*model.FriendRequest
	seq      int
}

func newMemGraph(users *mockUserRepository) *memGraph {
	return &memGraph{
		users:    users,
		friends:  make(map[[2]uuid.UUID]bool),
		requests: make(map[uuid.UUID]*model.FriendRequest),
	}
}

func samePair(r *model.FriendRequest, a, b uuid.UUID) bool {
	return (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
}

// friendsOf lists the stored friend set of userID.
func (g *memGraph) friendsOf(userID uuid.UUID) []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []uuid.UUID
	for k := range g.friends {
		if k[0] == userID {
			out = append(out, k[1])
		}
	}
	return out
}

func (g *memGraph) pendingCount(a, b uuid.UUID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.IsPending() && samePair(r, a, b) {
			n++
		}
	}
	return n
}

// friendship side

type memFriendships struct{ *memGraph }

func (f memFriendships) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.friends[[2]uuid.UUID{userID, otherID}], nil
}

func (f memFriendships) Add(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends[[2]uuid.UUID{userID, otherID}] = true
	f.friends[[2]uuid.UUID{otherID, userID}] = true
	return nil
}

func (f memFriendships) Remove(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.friends, [2]uuid.UUID{userID, otherID})
	delete(f.friends, [2]uuid.UUID{otherID, userID})
	return nil
}

func (f memFriendships) ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error) {
	ids := f.friendsOf(userID)
	return f.users.GetSummaries(ctx, ids)
}

// request side

type memRequests struct{ *memGraph }

func (r memRequests) Create(ctx context.Context, req *model.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.IsPending() && samePair(existing, req.SenderID, req.ReceiverID) {
			return model.ErrDuplicatePending
		}
	}
	r.seq++
	ts := time.Date(2025, 1, 1, 0, 0, r.seq, 0, time.UTC)
	req.CreatedAt, req.UpdatedAt = ts, ts
	stored := *req
	r.requests[req.ID] = &stored
	return nil
}

func (r memRequests) GetByID(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, model.ErrFriendRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r memRequests) PendingExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	return r.pendingCount(userID, otherID) > 0, nil
}

func (r memRequests) MarkAccepted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || !req.IsPending() {
		return false, nil
	}
	req.Status = model.FriendRequestAccepted
	req.UpdatedAt = at
	return true, nil
}

func (r memRequests) DeletePending(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || !req.IsPending() {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}

func (r memRequests) DeleteBetween(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, req := range r.requests {
		if samePair(req, userID, otherID) {
			delete(r.requests, id)
			n++
		}
	}
	return n, nil
}

func (r memRequests) ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error) {
	r.mu.Lock()
	var views []model.FriendRequestView
	for _, req := range r.requests {
		if req.IsPending() && (req.SenderID == userID || req.ReceiverID == userID) {
			views = append(views, model.FriendRequestView{FriendRequest: *req})
		}
	}
	r.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// =============================================================================
// TRANSACTION RUNNER
// =============================================================================

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	f.calls++
	return fn(ctx, nil)
}

// =============================================================================
// IDENTITY + PICTURE FAKES
// =============================================================================

type stubProvisioner struct {
	externalID string
	err        error
	calls      int
}

func (p *stubProvisioner) CreateUser(ctx context.Context, email, password, username string) (string, error) {
	p.calls++
	return p.externalID, p.err
}

type stubPictureStore struct {
	result  *model.UploadResult
	err     error
	deleted []string
}

func (p *stubPictureStore) UploadProfilePicture(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	return p.result, p.err
}

func (p *stubPictureStore) DeleteObject(ctx context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return nil
}
