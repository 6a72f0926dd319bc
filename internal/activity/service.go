package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for activities.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, a Activity) error
	List(ctx context.Context, leadID string) ([]Activity, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock replaces the time source; used by tests and the seed loader.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var (
	ErrInvalidActivity = errors.New("activity: invalid activity")
	ErrDuplicate       = errors.New("activity: duplicate activity id")
)

func (s *Service) Append(ctx context.Context, leadID string, typ Type, message string) (Activity, error) {
	return s.Record(ctx, Activity{LeadID: leadID, Type: typ, Message: message})
}

// Record appends a, filling ID and Timestamp when empty.
func (s *Service) Record(ctx context.Context, a Activity) (Activity, error) {
	if s.repo == nil {
		return Activity{}, errors.New("activity: repository not configured")
	}
	if a.LeadID == "" || !a.Type.Valid() {
		return Activity{}, ErrInvalidActivity
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.clock().UTC()
	}
	if err := s.repo.Append(ctx, a); err != nil {
		return Activity{}, fmt.Errorf("append activity: %w", err)
	}
	return a, nil
}

func (s *Service) ListForLead(ctx context.Context, leadID string) ([]Activity, error) {
	if leadID == "" {
		return nil, ErrInvalidActivity
	}
	return s.repo.List(ctx, leadID)
}

func (s *Service) ListAll(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx, "")
}
