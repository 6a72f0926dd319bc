package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, rule Rule) error
	Get(ctx context.Context, id string) (Rule, error)
	Toggle(ctx context.Context, id string) (Rule, error)
	List(ctx context.Context) ([]Rule, error)
}

// TemplateCatalog reports whether a message template exists.
type TemplateCatalog interface {
	HasTemplate(id string) bool
}

type Service struct {
	repo      Repository
	templates TemplateCatalog
	clock     func() time.Time
}

func NewService(repo Repository, templates TemplateCatalog) *Service {
	return &Service{repo: repo, templates: templates, clock: time.Now}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Create stores a new rule. New rules always start active.
func (s *Service) Create(ctx context.Context, in CreateInput) (Rule, error) {
	rule, err := s.build(in)
	if err != nil {
		return Rule{}, err
	}
	rule.ID = uuid.NewString()
	if err := s.repo.Save(ctx, rule); err != nil {
		return Rule{}, fmt.Errorf("save rule: %w", err)
	}
	return rule, nil
}

// Put stores a fully formed rule as-is, keeping its ID and IsActive.
func (s *Service) Put(ctx context.Context, rule Rule) (Rule, error) {
	if rule.ID == "" {
		return Rule{}, fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	active := rule.IsActive
	built, err := s.build(CreateInput{
		TriggerName: rule.TriggerName,
		ActionName:  rule.ActionName,
		Description: rule.Description,
		TemplateID:  rule.TemplateID,
		Icon:        rule.Icon,
		Trigger:     rule.Trigger,
		Stage:       rule.Stage,
		IdleAfter:   rule.IdleAfter,
	})
	if err != nil {
		return Rule{}, err
	}
	built.ID = rule.ID
	built.IsActive = active
	if err := s.repo.Save(ctx, built); err != nil {
		return Rule{}, fmt.Errorf("save rule: %w", err)
	}
	return built, nil
}

func (s *Service) Toggle(ctx context.Context, id string) (Rule, error) {
	return s.repo.Toggle(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (Rule, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Rule, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]Rule, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Rule, 0, len(all))
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) build(in CreateInput) (Rule, error) {
	in.TriggerName = strings.TrimSpace(in.TriggerName)
	in.ActionName = strings.TrimSpace(in.ActionName)
	if in.TriggerName == "" || in.ActionName == "" {
		return Rule{}, fmt.Errorf("%w: trigger and action names are required", ErrInvalidRule)
	}
	if in.TemplateID == "" {
		return Rule{}, fmt.Errorf("%w: template is required", ErrInvalidRule)
	}
	if s.templates != nil && !s.templates.HasTemplate(in.TemplateID) {
		return Rule{}, fmt.Errorf("%w: unknown template %q", ErrInvalidRule, in.TemplateID)
	}
	if in.Icon != "" && !in.Icon.Valid() {
		return Rule{}, fmt.Errorf("%w: unknown icon %q", ErrInvalidRule, in.Icon)
	}

	trigger := in.Trigger
	if trigger == "" {
		trigger = in.Icon.Trigger()
	}
	if !trigger.Valid() {
		return Rule{}, fmt.Errorf("%w: trigger category is required", ErrInvalidRule)
	}

	rule := Rule{
		TriggerName: in.TriggerName,
		ActionName:  in.ActionName,
		Description: strings.TrimSpace(in.Description),
		TemplateID:  in.TemplateID,
		IsActive:    true,
		Icon:        in.Icon,
		Trigger:     trigger,
		CreatedAt:   s.clock().UTC(),
	}

	switch trigger {
	case TriggerStatusChange:
		rule.Stage = in.Stage
		if rule.Stage == "" {
			rule.Stage = DefaultStage
		}
		if !rule.Stage.Valid() {
			return Rule{}, fmt.Errorf("%w: unknown stage %q", ErrInvalidRule, rule.Stage)
		}
	case TriggerFollowUp:
		rule.IdleAfter = in.IdleAfter
		if rule.IdleAfter <= 0 {
			rule.IdleAfter = DefaultIdleAfter
		}
	}
	return rule, nil
}
