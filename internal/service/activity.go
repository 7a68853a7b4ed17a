package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"

	"syncactivity/internal/model"
	"syncactivity/internal/repository"
)

// ActivityService records activities and their telemetry. Only the owner may
// modify or delete an activity.
type ActivityService struct {
	activities repository.ActivityRepository
	users      repository.UserRepository
	clock      clockwork.Clock
}

func NewActivityService(activities repository.ActivityRepository, users repository.UserRepository, clock clockwork.Clock) *ActivityService {
	return &ActivityService{
		activities: activities,
		users:      users,
		clock:      clock,
	}
}

// Create starts an in-progress activity. Participant ids that do not reference
// a user are skipped.
func (s *ActivityService) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateActivityRequest) (*model.ActivityView, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateActivityName(name); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("invalid activity type %q", req.Type))
	}

	participants, err := s.knownParticipants(ctx, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	if req.StartTime != nil {
		start = *req.StartTime
	}

	activity := &model.Activity{
		ID:             uuid.New(),
		UserID:         ownerID,
		Name:           name,
		Type:           req.Type,
		Status:         model.ActivityInProgress,
		StartTime:      &start,
		LiveData:       model.LiveData{},
		ParticipantIDs: participants,
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}

	views, err := s.views(ctx, []model.Activity{*activity})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// knownParticipants parses and deduplicates ids and keeps those that exist,
// in request order.
func (s *ActivityService) knownParticipants(ctx context.Context, raw []string) (pq.StringArray, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	candidates := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	existing, err := s.users.ExistingIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}

	out := pq.StringArray{}
	for _, id := range candidates {
		if _, ok := found[id]; ok {
			out = append(out, id.String())
		}
	}
	return out, nil
}

// Get returns a single activity.
func (s *ActivityService) Get(ctx context.Context, id uuid.UUID) (*model.ActivityView, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []model.Activity{*activity})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update applies the set fields of req. Live data replaces the stored
// sequence rather than appending to it.
func (s *ActivityService) Update(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateActivityRequest) (*model.ActivityView, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.UserID != actorID {
		return nil, model.ErrNotActivityOwner
	}

	if !req.IsEmpty() {
		if err := applyActivityUpdate(activity, req); err != nil {
			return nil, err
		}
		if err := s.activities.Update(ctx, activity); err != nil {
			return nil, err
		}
	}

	views, err := s.views(ctx, []model.Activity{*activity})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func applyActivityUpdate(a *model.Activity, req *model.UpdateActivityRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateActivityName(name); err != nil {
			return err
		}
		a.Name = name
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return model.NewValidationError(fmt.Sprintf("invalid activity status %q", *req.Status))
		}
		a.Status = *req.Status
	}
	if req.EndTime != nil {
		a.EndTime = req.EndTime
	}
	if req.Distance != nil {
		if *req.Distance < 0 {
			return model.NewValidationError("distance must not be negative")
		}
		a.Distance = *req.Distance
	}
	if req.Calories != nil {
		if *req.Calories < 0 {
			return model.NewValidationError("calories must not be negative")
		}
		a.Calories = *req.Calories
	}
	if req.AvgTime != nil {
		if *req.AvgTime < 0 {
			return model.NewValidationError("avg_time must not be negative")
		}
		a.AvgTime = *req.AvgTime
	}
	if req.LiveData != nil {
		for i, p := range *req.LiveData {
			if p.Timestamp.IsZero() {
				return model.NewValidationError(fmt.Sprintf("live_data[%d].timestamp is required", i))
			}
		}
		a.LiveData = append(model.LiveData{}, (*req.LiveData)...)
	}
	return nil
}

func validateActivityName(name string) error {
	if name == "" {
		return model.NewValidationError("activity_name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxActivityNameLength {
		return model.NewValidationError(fmt.Sprintf("activity_name must be at most %d characters", model.MaxActivityNameLength))
	}
	return nil
}

// Delete removes an activity owned by actorID.
func (s *ActivityService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if activity.UserID != actorID {
		return model.ErrNotActivityOwner
	}
	return s.activities.Delete(ctx, id)
}

// ListOwn returns the caller's activities, newest first.
func (s *ActivityService) ListOwn(ctx context.Context, ownerID uuid.UUID) ([]model.ActivityView, error) {
	activities, err := s.activities.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, activities)
}

// ListFriendsFeed returns the newest activities of the caller's friends.
func (s *ActivityService) ListFriendsFeed(ctx context.Context, userID uuid.UUID) ([]model.ActivityView, error) {
	activities, err := s.activities.ListByFriendsOf(ctx, userID, model.FriendsFeedLimit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, activities)
}

// views resolves owners and participants with one lookup for the whole batch.
func (s *ActivityService) views(ctx context.Context, activities []model.Activity) ([]model.ActivityView, error) {
	idSet := make(map[uuid.UUID]struct{})
	for _, a := range activities {
		idSet[a.UserID] = struct{}{}
		for _, p := range a.ParticipantIDs {
			if id, err := uuid.Parse(p); err == nil {
				idSet[id] = struct{}{}
			}
		}
	}
	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.UserSummary, len(summaries))
	for _, u := range summaries {
		byID[u.ID] = u
	}

	views := make([]model.ActivityView, 0, len(activities))
	for _, a := range activities {
		view := model.ActivityView{
			ID:           a.ID,
			Name:         a.Name,
			Calories:     a.Calories,
			Status:       a.Status,
			StartTime:    a.StartTime,
			EndTime:      a.EndTime,
			Distance:     a.Distance,
			Type:         a.Type,
			AvgTime:      a.AvgTime,
			LiveData:     a.LiveData,
			Participants: []model.UserSummary{},
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.UpdatedAt,
		}
		if view.LiveData == nil {
			view.LiveData = model.LiveData{}
		}
		if owner, ok := byID[a.UserID]; ok {
			view.Owner = &model.ActivityOwner{ID: owner.ID, Username: owner.Username, FullName: owner.FullName}
		}
		for _, p := range a.ParticipantIDs {
			id, err := uuid.Parse(p)
			if err != nil {
				continue
			}
			if u, ok := byID[id]; ok {
				view.Participants = append(view.Participants, u)
			}
		}
		views = append(views, view)
	}
	return views, nil
}
