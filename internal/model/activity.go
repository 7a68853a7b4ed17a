package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ActivityType string

const (
	ActivityRunning  ActivityType = "running"
	ActivityCycling  ActivityType = "cycling"
	ActivityWalking  ActivityType = "walking"
	ActivityHiking   ActivityType = "hiking"
	ActivitySwimming ActivityType = "swimming"
	ActivityGym      ActivityType = "gym"
	ActivityOther    ActivityType = "other"
)

var activityTypes = map[ActivityType]struct{}{
	ActivityRunning:  {},
	ActivityCycling:  {},
	ActivityWalking:  {},
	ActivityHiking:   {},
	ActivitySwimming: {},
	ActivityGym:      {},
	ActivityOther:    {},
}

func (t ActivityType) Valid() bool {
	_, ok := activityTypes[t]
	return ok
}

type ActivityStatus string

const (
	ActivityPlanned    ActivityStatus = "planned"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityCancelled  ActivityStatus = "cancelled"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPlanned, ActivityInProgress, ActivityCompleted, ActivityCancelled:
		return true
	}
	return false
}

const (
	MaxActivityNameLength = 200

	// FriendsFeedLimit bounds the friends activity feed.
	FriendsFeedLimit = 50
)

// LiveDataPoint is one telemetry sample. Points are immutable once stored.
type LiveDataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	HeartRate *int      `json:"heart_rate,omitempty"`
	Calories  *float64  `json:"calories,omitempty"`
}

// LiveData is the ordered telemetry of an activity, stored as a JSONB column.
type LiveData []LiveDataPoint

func (d LiveData) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *LiveData) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = LiveData{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported live_data type %T", src)
	}
	return json.Unmarshal(data, d)
}

// Activity is owned by UserID. Participants are references to other users.
type Activity struct {
	ID             uuid.UUID      `db:"id"`
	UserID         uuid.UUID      `db:"user_id"`
	Name           string         `db:"activity_name"`
	Type           ActivityType   `db:"type"`
	Status         ActivityStatus `db:"status"`
	StartTime      *time.Time     `db:"start_time"`
	EndTime        *time.Time     `db:"end_time"`
	Distance       float64        `db:"distance"`
	Calories       float64        `db:"calories"`
	AvgTime        float64        `db:"avg_time"`
	LiveData       LiveData       `db:"live_data"`
	ParticipantIDs pq.StringArray `db:"participant_ids"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// ActivityOwner is the reduced owner view embedded in activity responses.
type ActivityOwner struct {
	ID       uuid.UUID `json:"_id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
}

// ActivityView is the response shape with owner and participants resolved.
type ActivityView struct {
	ID           uuid.UUID      `json:"_id"`
	Name         string         `json:"activity_name"`
	Owner        *ActivityOwner `json:"user_id"`
	Calories     float64        `json:"calories"`
	Status       ActivityStatus `json:"status"`
	StartTime    *time.Time     `json:"start_time"`
	EndTime      *time.Time     `json:"end_time"`
	Distance     float64        `json:"distance"`
	Type         ActivityType   `json:"type"`
	AvgTime      float64        `json:"avg_time"`
	LiveData     LiveData       `json:"live_data"`
	Participants []UserSummary  `json:"participants"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateActivityRequest is the body for POST /activities
type CreateActivityRequest struct {
	Name           string       `json:"activity_name"`
	Type           ActivityType `json:"type"`
	StartTime      *time.Time   `json:"start_time"`
	ParticipantIDs []string     `json:"participant_ids"`
}

// UpdateActivityRequest is the body for PATCH /activities/{id}. Nil fields are
// left untouched; LiveData replaces the stored telemetry wholesale.
type UpdateActivityRequest struct {
	Name     *string         `json:"activity_name"`
	Status   *ActivityStatus `json:"status"`
	EndTime  *time.Time      `json:"end_time"`
	Distance *float64        `json:"distance"`
	Calories *float64        `json:"calories"`
	AvgTime  *float64        `json:"avg_time"`
	LiveData *LiveData       `json:"live_data"`
}

// IsEmpty reports whether the patch sets nothing.
func (r *UpdateActivityRequest) IsEmpty() bool {
	return r.Name == nil && r.Status == nil && r.EndTime == nil && r.Distance == nil &&
		r.Calories == nil && r.AvgTime == nil && r.LiveData == nil
}

var (
	ErrActivityNotFound = newError(KindNotFound, "ACTIVITY_NOT_FOUND", "Activity not found")
	ErrNotActivityOwner = newError(KindForbidden, "FORBIDDEN", "Only the owner can modify this activity")
)
