package automation

import (
	"fmt"
	"time"

	"leadpipe/internal/leads"
)

// Event is a domain event the evaluator reacts to.
type Event interface {
	category() TriggerCategory
	lead() string
}

// LeadCreated is raised for manually created and imported leads.
type LeadCreated struct{ LeadID string }

type StatusChanged struct {
	LeadID string
	Stage  leads.Stage
}

type LeadIdle struct {
	LeadID  string
	IdleFor time.Duration
}

func (e LeadCreated) category() TriggerCategory   { return TriggerNewLead }
func (e StatusChanged) category() TriggerCategory { return TriggerStatusChange }
func (e LeadIdle) category() TriggerCategory      { return TriggerFollowUp }

func (e LeadCreated) lead() string   { return e.LeadID }
func (e StatusChanged) lead() string { return e.LeadID }
func (e LeadIdle) lead() string      { return e.LeadID }

// Firing is one rule that matched, with the message_sent activity text to record.
type Firing struct {
	Rule    Rule
	LeadID  string
	Message string
}

// Outcome carries at most one success notification.
type Outcome struct {
	Fired        []Firing
	Notification string
}

func (o Outcome) Empty() bool { return len(o.Fired) == 0 }

// Evaluate matches an event against the active rules. It has no side effects.
// Inactive rules in activeRules are ignored.
func Evaluate(ev Event, activeRules []Rule) Outcome {
	if ev == nil || ev.lead() == "" {
		return Outcome{}
	}

	var out Outcome
	for _, r := range activeRules {
		if !r.IsActive || r.Trigger != ev.category() {
			continue
		}
		switch e := ev.(type) {
		case StatusChanged:
			if r.Stage != e.Stage {
				continue
			}
		case LeadIdle:
			if e.IdleFor < r.IdleAfter {
				continue
			}
		}
		out.Fired = append(out.Fired, Firing{
			Rule:    r,
			LeadID:  ev.lead(),
			Message: activityMessage(ev, r),
		})
	}

	switch n := len(out.Fired); {
	case n == 0:
	case n == 1:
		out.Notification = "Automation fired: " + out.Fired[0].Rule.ActionName
	case ev.category() == TriggerNewLead:
		out.Notification = fmt.Sprintf("Automation fired: %d rule(s) executed", n)
	default:
		out.Notification = fmt.Sprintf("Automation fired: %s (+%d more)", out.Fired[0].Rule.ActionName, n-1)
	}
	return out
}

func activityMessage(ev Event, r Rule) string {
	switch ev.(type) {
	case LeadCreated:
		return fmt.Sprintf("Automation (%s) sent a message.", r.TriggerName)
	case LeadIdle:
		return fmt.Sprintf("Automation sent follow-up: %s", r.ActionName)
	default:
		return "Automation ran: " + r.ActionName
	}
}
