package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for leads.
// Update succeeds only when the stored version equals prevVersion.
type Repository interface {
	Insert(ctx context.Context, batch ...Lead) error
	Get(ctx context.Context, id string) (Lead, error)
	Update(ctx context.Context, l Lead, prevVersion int64) error
	Put(ctx context.Context, l Lead) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Lead, error)
}

// statusRetries bounds the read-modify-write loop of last-write-wins updates.
const statusRetries = 5

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) now() time.Time { return s.clock().UTC() }

func (s *Service) Create(ctx context.Context, in CreateInput) (Lead, error) {
	l, err := s.build(in.Name, in.ContactHandle, in.Email, in.Status, in.Tags)
	if err != nil {
		return Lead{}, err
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return l, nil
}

// BulkImport validates every row before writing any of them.
func (s *Service) BulkImport(ctx context.Context, rows []ImportRow) ([]Lead, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to import", ErrValidation)
	}
	batch := make([]Lead, 0, len(rows))
	for i, row := range rows {
		l, err := s.build(row.Name, row.ContactHandle, row.Email, FirstStage(), withImportedTag(row.Tags))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		batch = append(batch, l)
	}
	if err := s.repo.Insert(ctx, batch...); err != nil {
		return nil, fmt.Errorf("insert imported leads: %w", err)
	}
	return batch, nil
}

// Change is one applied write: the stored lead just before it and the result.
type Change struct {
	Before Lead
	After  Lead
}

func (s *Service) UpdateStatus(ctx context.Context, id string, stage Stage) (Lead, error) {
	ch, err := s.ChangeStatus(ctx, id, stage)
	return ch.After, err
}

// ChangeStatus is UpdateStatus that also returns the pre-image it replaced.
func (s *Service) ChangeStatus(ctx context.Context, id string, stage Stage) (Change, error) {
	if !stage.Valid() {
		return Change{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, stage)
	}
	return s.mutate(ctx, id, 0, func(l *Lead, now time.Time) {
		l.Status = stage
		l.LastInteractionAt = now
	})
}

func (s *Service) UpdateFields(ctx context.Context, id string, p Patch) (Lead, error) {
	ch, err := s.ChangeFields(ctx, id, p)
	return ch.After, err
}

// ChangeFields is UpdateFields that also returns the pre-image it replaced.
func (s *Service) ChangeFields(ctx context.Context, id string, p Patch) (Change, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Change{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.ContactHandle != nil && strings.TrimSpace(*p.ContactHandle) == "" {
		return Change{}, fmt.Errorf("%w: contact handle is required", ErrValidation)
	}
	return s.mutate(ctx, id, p.ExpectedVersion, func(l *Lead, now time.Time) {
		if p.Name != nil {
			l.Name = strings.TrimSpace(*p.Name)
		}
		if p.ContactHandle != nil {
			l.ContactHandle = strings.TrimSpace(*p.ContactHandle)
		}
		if p.Email != nil {
			l.Email = strings.TrimSpace(*p.Email)
		}
		if p.Tags != nil {
			l.Tags = cleanTags(*p.Tags)
		}
	})
}

// Touch marks an interaction without changing any field.
func (s *Service) Touch(ctx context.Context, id string) (Lead, error) {
	ch, err := s.mutate(ctx, id, 0, func(l *Lead, now time.Time) {
		l.LastInteractionAt = now
	})
	return ch.After, err
}

// Revert puts ch.Before back as a new version, but only while ch.After is
// still the stored version. A newer write wins and Revert reports ErrConflict.
func (s *Service) Revert(ctx context.Context, ch Change) error {
	l := ch.Before.Clone()
	l.Version = ch.After.Version + 1
	l.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, l, ch.After.Version); err != nil {
		return fmt.Errorf("revert lead %s: %w", l.ID, err)
	}
	return nil
}

// mutate applies fn and writes the result. With expected == 0 a concurrent
// writer is retried so the last caller wins; otherwise a mismatch is ErrConflict.
func (s *Service) mutate(ctx context.Context, id string, expected int64, fn func(*Lead, time.Time)) (Change, error) {
	for attempt := 0; attempt < statusRetries; attempt++ {
		cur, err := s.repo.Get(ctx, id)
		if err != nil {
			return Change{}, err
		}
		if expected != 0 && cur.Version != expected {
			return Change{}, fmt.Errorf("%w: have version %d, expected %d", ErrConflict, cur.Version, expected)
		}

		next := cur.Clone()
		now := s.now()
		fn(&next, now)
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = now
		next.Version = cur.Version + 1

		err = s.repo.Update(ctx, next, cur.Version)
		if err == nil {
			return Change{Before: cur, After: next}, nil
		}
		if !errors.Is(err, ErrConflict) || expected != 0 {
			return Change{}, err
		}
	}
	return Change{}, fmt.Errorf("%w: lead %s kept changing", ErrConflict, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Restore puts a snapshot back, e.g. to undo a tentative write.
func (s *Service) Restore(ctx context.Context, l Lead) error {
	if l.ID == "" {
		return fmt.Errorf("%w: snapshot has no id", ErrValidation)
	}
	return s.repo.Put(ctx, l)
}

func (s *Service) Get(ctx context.Context, id string) (Lead, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Lead, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrValidation, f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) build(name, contact, email string, status Stage, tags []string) (Lead, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" {
		return Lead{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if contact == "" {
		return Lead{}, fmt.Errorf("%w: contact handle is required", ErrValidation)
	}
	if status == "" {
		status = FirstStage()
	}
	if !status.Valid() {
		return Lead{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, status)
	}

	now := s.now()
	return Lead{
		ID:                uuid.NewString(),
		Name:              name,
		ContactHandle:     contact,
		Email:             strings.TrimSpace(email),
		Status:            status,
		Tags:              cleanTags(tags),
		LastInteractionAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           1,
	}, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func withImportedTag(tags []string) []string {
	for _, t := range tags {
		if strings.TrimSpace(t) == ImportedTag {
			return tags
		}
	}
	return append(append([]string(nil), tags...), ImportedTag)
}
