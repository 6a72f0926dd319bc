package automation

import (
	"errors"
	"time"

	"leadpipe/internal/leads"
)

var (
	ErrNotFound    = errors.New("automation: rule not found")
	ErrInvalidRule = errors.New("automation: invalid rule")
)

// TriggerCategory is the event class a rule responds to.
type TriggerCategory string

const (
	TriggerNewLead      TriggerCategory = "new_lead"
	TriggerStatusChange TriggerCategory = "status_change"
	TriggerFollowUp     TriggerCategory = "follow_up"
)

func (t TriggerCategory) Valid() bool {
	switch t {
	case TriggerNewLead, TriggerStatusChange, TriggerFollowUp:
		return true
	default:
		return false
	}
}

// Icon is a display tag. It only seeds Trigger when none is given.
type Icon string

const (
	IconUserPlus Icon = "user-plus"
	IconFileText Icon = "file-text"
	IconClock    Icon = "clock"
)

func (i Icon) Valid() bool {
	switch i {
	case IconUserPlus, IconFileText, IconClock:
		return true
	default:
		return false
	}
}

func (i Icon) Trigger() TriggerCategory {
	switch i {
	case IconUserPlus:
		return TriggerNewLead
	case IconFileText:
		return TriggerStatusChange
	case IconClock:
		return TriggerFollowUp
	default:
		return ""
	}
}

const (
	DefaultStage     = leads.StageDocsPending
	DefaultIdleAfter = 72 * time.Hour
)

// Rule is a trigger -> action pair. Rules are never deleted.
type Rule struct {
	ID          string          `json:"id"`
	TriggerName string          `json:"trigger_name"`
	ActionName  string          `json:"action_name"`
	Description string          `json:"description"`
	TemplateID  string          `json:"template_id"`
	IsActive    bool            `json:"is_active"`
	Icon        Icon            `json:"icon"`
	Trigger     TriggerCategory `json:"trigger"`
	// Stage is the target stage of status_change rules.
	Stage leads.Stage `json:"stage,omitempty"`
	// IdleAfter is the quiet period of follow_up rules. It travels as a
	// duration string such as "72h0m0s"; see json.go.
	IdleAfter time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

type CreateInput struct {
	TriggerName string          `json:"trigger_name"`
	ActionName  string          `json:"action_name"`
	Description string          `json:"description"`
	TemplateID  string          `json:"template_id"`
	Icon        Icon            `json:"icon"`
	Trigger     TriggerCategory `json:"trigger"`
	Stage       leads.Stage     `json:"stage"`
	IdleAfter   time.Duration   `json:"-"`
}
