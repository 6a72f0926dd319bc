package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadpipe/internal/leads"
)

type catalog map[string]bool

func (c catalog) HasTemplate(id string) bool { return c[id] }

var testTemplates = catalog{"welcome_1": true, "docs_req": true, "follow_up": true}

func TestCreate_ForcesActiveAndDerivesTrigger(t *testing.T) {
	svc := NewService(NewMemoryRepo(), testTemplates)
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateInput{
		TriggerName: "Move to Docs Pending",
		ActionName:  "Ask for ID documents",
		TemplateID:  "docs_req",
		Icon:        IconFileText,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.IsActive {
		t.Fatalf("new rules must start active")
	}
	if r.Trigger != TriggerStatusChange || r.Stage != leads.StageDocsPending {
		t.Fatalf("unexpected trigger/stage: %s %s", r.Trigger, r.Stage)
	}

	f, err := svc.Create(ctx, CreateInput{TriggerName: "Idle", ActionName: "Ping", TemplateID: "follow_up", Trigger: TriggerFollowUp})
	if err != nil {
		t.Fatalf("create follow-up: %v", err)
	}
	if f.IdleAfter != DefaultIdleAfter {
		t.Fatalf("expected default idle period, got %v", f.IdleAfter)
	}
}

func TestCreate_Rejects(t *testing.T) {
	svc := NewService(NewMemoryRepo(), testTemplates)
	ctx := context.Background()

	cases := []CreateInput{
		{ActionName: "a", TemplateID: "welcome_1", Icon: IconUserPlus},
		{TriggerName: "t", ActionName: "a", TemplateID: "nope", Icon: IconUserPlus},
		{TriggerName: "t", ActionName: "a", TemplateID: "welcome_1"},
		{TriggerName: "t", ActionName: "a", TemplateID: "welcome_1", Icon: "star"},
		{TriggerName: "t", ActionName: "a", TemplateID: "docs_req", Trigger: TriggerStatusChange, Stage: "won"},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, in); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("case %d: expected ErrInvalidRule, got %v", i, err)
		}
	}
}

func TestToggle_TwiceRestores(t *testing.T) {
	svc := NewService(NewMemoryRepo(), testTemplates)
	ctx := context.Background()

	r, _ := svc.Create(ctx, CreateInput{TriggerName: "New lead", ActionName: "Say hi", TemplateID: "welcome_1", Icon: IconUserPlus})

	off, err := svc.Toggle(ctx, r.ID)
	if err != nil || off.IsActive {
		t.Fatalf("expected inactive after first toggle, got %+v, %v", off, err)
	}
	on, err := svc.Toggle(ctx, r.ID)
	if err != nil || !on.IsActive {
		t.Fatalf("expected active after second toggle, got %+v, %v", on, err)
	}
	if _, err := svc.Toggle(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActive_FiltersAndKeepsOrder(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryRepo(), testTemplates).WithClock(func() time.Time { return now })
	ctx := context.Background()

	a, _ := svc.Put(ctx, Rule{ID: "auto_1", TriggerName: "New", ActionName: "Hi", TemplateID: "welcome_1", Icon: IconUserPlus, IsActive: true})
	_, _ = svc.Put(ctx, Rule{ID: "auto_2", TriggerName: "Docs", ActionName: "Docs", TemplateID: "docs_req", Icon: IconFileText})
	c, _ := svc.Put(ctx, Rule{ID: "auto_3", TriggerName: "Idle", ActionName: "Ping", TemplateID: "follow_up", Icon: IconClock, IsActive: true})

	all, _ := svc.List(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(all))
	}
	active, _ := svc.ListActive(ctx)
	if len(active) != 2 || active[0].ID != a.ID || active[1].ID != c.ID {
		t.Fatalf("unexpected active rules: %+v", active)
	}
}
