// Package requests is the modification path for daily shuttle requests:
// users create or change a request for a date until the nightly lock, and
// default-schedule requests are auto-created before the run.
package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/models"
	"ms-shuttle/internal/utils"
)

// ErrDateLocked is returned when a write arrives after the date's lock is
// set. The lock check and the write are one statement, so this is exact:
// the edit either landed entirely before the lock or not at all.
var ErrDateLocked = errors.New("requests are locked for this service date")

// ErrUnknownUser is returned when the request references no known user.
var ErrUnknownUser = errors.New("unknown user")

type DBLayer interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	UserIDsWithRequest(ctx context.Context, date string) (map[string]bool, error)
	UpsertIfUnlocked(ctx context.Context, req *models.Request) (*models.Request, error)
	CreateRequests(ctx context.Context, reqs []*models.Request) (int, error)
	IsLocked(ctx context.Context, date string) (bool, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// SubmitRequest creates or replaces the user's request for a date. The
// priority flags are derived here: touching a default day by hand makes it
// MEDIUM, adding a day outside the defaults makes it LOW.
func (s *Service) SubmitRequest(ctx context.Context, payload models.SubmitRequestPayload) (*models.Request, error) {
	day, err := utils.ParseServiceDate(payload.ServiceDate)
	if err != nil {
		return nil, err
	}

	user, err := s.DB.GetUser(ctx, payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, payload.UserID)
	}

	isDefaultDay := hasDay(user.DefaultDays, utils.DayAbbreviation(day))
	req := &models.Request{
		ID:           uuid.NewString(),
		UserID:       payload.UserID,
		ServiceDate:  payload.ServiceDate,
		RequestLat:   payload.RequestLat,
		RequestLng:   payload.RequestLng,
		IsDefaultDay: isDefaultDay,
		// A manual submission on a default day counts as a modification.
		IsModified: isDefaultDay,
		GroupID:    payload.GroupID,
		Status:     models.RequestPending,
		CreatedAt:  time.Now().UTC(),
	}

	// When the write replaces an existing request, the stored row keeps its
	// original request_id and created_at. Return what the database holds.
	stored, err := s.DB.UpsertIfUnlocked(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("UPSERT", "daily_requests",
		fmt.Sprintf("request for user %s on %s", stored.UserID, stored.ServiceDate))
	return stored, nil
}

// AutoCreateDefaults creates PENDING requests for every user whose default
// days include the date's weekday and who has no request yet. A manual
// request always takes precedence. Returns the number created.
func (s *Service) AutoCreateDefaults(ctx context.Context, date string) (int, error) {
	day, err := utils.ParseServiceDate(date)
	if err != nil {
		return 0, err
	}
	abbr := utils.DayAbbreviation(day)

	users, err := s.DB.Users(ctx)
	if err != nil {
		return 0, err
	}
	existing, err := s.DB.UserIDsWithRequest(ctx, date)
	if err != nil {
		return 0, err
	}

	var created []*models.Request
	for _, user := range users {
		if !hasDay(user.DefaultDays, abbr) || existing[user.ID] {
			continue
		}
		created = append(created, &models.Request{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			ServiceDate:  date,
			RequestLat:   user.HomeLat,
			RequestLng:   user.HomeLng,
			IsDefaultDay: true,
			IsModified:   false,
			Status:       models.RequestPending,
			CreatedAt:    time.Now().UTC(),
		})
	}
	if len(created) == 0 {
		return 0, nil
	}
	// The insert re-checks the lock per row, so a date locked between the
	// reads above and this write gets zero new requests.
	inserted, err := s.DB.CreateRequests(ctx, created)
	if err != nil {
		return 0, err
	}
	s.Logger.LogProcess("AUTO_CREATE", fmt.Sprintf("created %d default requests for %s", inserted, date))
	return inserted, nil
}

// GetRequest returns one request with its allocation status.
func (s *Service) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	return s.DB.GetRequest(ctx, id)
}

// IsLocked reports whether the date is frozen for modification.
func (s *Service) IsLocked(ctx context.Context, date string) (bool, error) {
	return s.DB.IsLocked(ctx, date)
}

func hasDay(days []string, abbr string) bool {
	for _, d := range days {
		if d == abbr {
			return true
		}
	}
	return false
}
