package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadpipe/internal/activity"
	"leadpipe/internal/automation"
	"leadpipe/internal/leads"
)

// Seed loads the demo board: five leads, three rules and four activities,
// dated relative to now. Leads and activities are only loaded into an empty
// board and rules that already exist are left alone, so running it again
// after a restart keeps whatever users changed since.
func (a *App) Seed(ctx context.Context, now time.Time) error {
	now = now.UTC()
	existing, err := a.leads.List(ctx, leads.Filter{})
	if err != nil {
		return fmt.Errorf("seed: list leads: %w", err)
	}
	boardEmpty := len(existing) == 0
	day := 24 * time.Hour

	seedLeads := []leads.Lead{
		{ID: "1", Name: "Roberto Silva", ContactHandle: "5511999991111", Email: "roberto@email.com",
			Status: leads.StageProspect, Tags: []string{"High End"}, LastInteractionAt: now, CreatedAt: now},
		{ID: "2", Name: "Ana Souza", ContactHandle: "5511999992222", Email: "ana@email.com",
			Status: leads.StageDocsPending, Tags: []string{"Investor"},
			LastInteractionAt: now.Add(-day), CreatedAt: now.Add(-100000000 * time.Millisecond)},
		{ID: "3", Name: "Carlos Ferreira", ContactHandle: "5511999993333", Email: "carlos@email.com",
			Status: leads.StageProposal, Tags: []string{"First Home"},
			LastInteractionAt: now.Add(-2 * day), CreatedAt: now.Add(-200000000 * time.Millisecond)},
		{ID: "4", Name: "Mariana Lima", ContactHandle: "5511999994444", Email: "mari@email.com",
			Status: leads.StageProspect, Tags: []string{}, LastInteractionAt: now, CreatedAt: now},
		{ID: "5", Name: "João Santos", ContactHandle: "5511999995555", Email: "joao@email.com",
			Status: leads.StageClosed, Tags: []string{"VIP"}, LastInteractionAt: now, CreatedAt: now},
	}
	if boardEmpty {
		for _, l := range seedLeads {
			l.UpdatedAt = l.LastInteractionAt
			l.Version = 1
			if err := a.leads.Restore(ctx, l); err != nil {
				return fmt.Errorf("seed lead %s: %w", l.ID, err)
			}
		}
	}

	seedRules := []automation.Rule{
		{
			ID:          "auto_1",
			TriggerName: "New Lead Arrived",
			ActionName:  `Send "Hi, how are you?"`,
			Description: "Sends a welcome message as soon as you register or import a client.",
			TemplateID:  "welcome_1",
			IsActive:    true,
			Icon:        automation.IconUserPlus,
			Trigger:     automation.TriggerNewLead,
		},
		{
			ID:          "auto_2",
			TriggerName: `Move to "Docs Pending"`,
			ActionName:  "Ask for ID documents",
			Description: "When a card is dragged to the Docs Pending column, the client is asked for documents.",
			TemplateID:  "docs_req",
			IsActive:    false,
			Icon:        automation.IconFileText,
			Trigger:     automation.TriggerStatusChange,
			Stage:       leads.StageDocsPending,
		},
		{
			ID:          "auto_3",
			TriggerName: "3 Days in Prospecting",
			ActionName:  "Chase a reply (Follow-up)",
			Description: "If the client does not answer within 3 days, a short follow-up is sent.",
			TemplateID:  "follow_up",
			IsActive:    true,
			Icon:        automation.IconClock,
			Trigger:     automation.TriggerFollowUp,
			IdleAfter:   automation.DefaultIdleAfter,
		},
	}
	for _, r := range seedRules {
		_, err := a.rules.Get(ctx, r.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, automation.ErrNotFound) {
			return fmt.Errorf("seed rule %s: %w", r.ID, err)
		}
		if _, err := a.rules.Put(ctx, r); err != nil {
			return fmt.Errorf("seed rule %s: %w", r.ID, err)
		}
	}

	seedActivities := []activity.Activity{
		{ID: "act_1", LeadID: "1", Type: activity.TypeLeadImported,
			Message: "Lead registered via initial import.", Timestamp: now.Add(-100 * time.Second)},
		{ID: "act_2", LeadID: "1", Type: activity.TypeMessageSent,
			Message: "Automation: welcome message sent.", Timestamp: now.Add(-90 * time.Second)},
		{ID: "act_3", LeadID: "2", Type: activity.TypeStatusChanged,
			Message: "Status moved to Docs Pending.", Timestamp: now.Add(-day)},
		{ID: "act_4", LeadID: "5", Type: activity.TypeStatusChanged,
			Message: "Sale closed! Congratulations.", Timestamp: now},
	}
	if !boardEmpty {
		return nil
	}
	for _, act := range seedActivities {
		_, err := a.activities.Record(ctx, act)
		if errors.Is(err, activity.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed activity %s: %w", act.ID, err)
		}
	}
	return nil
}
