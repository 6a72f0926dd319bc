package automation

import (
	"testing"
	"time"

	"leadpipe/internal/leads"
)

func rule(id string, trigger TriggerCategory, active bool) Rule {
	r := Rule{ID: id, TriggerName: "trigger " + id, ActionName: "action " + id, TemplateID: "welcome_1", IsActive: active, Trigger: trigger}
	switch trigger {
	case TriggerStatusChange:
		r.Stage = leads.StageDocsPending
	case TriggerFollowUp:
		r.IdleAfter = 72 * time.Hour
	}
	return r
}

func TestEvaluate_StatusChangeMatchesTargetStage(t *testing.T) {
	rules := []Rule{rule("s", TriggerStatusChange, true), rule("n", TriggerNewLead, true)}

	out := Evaluate(StatusChanged{LeadID: "l1", Stage: leads.StageDocsPending}, rules)
	if len(out.Fired) != 1 || out.Fired[0].Rule.ID != "s" {
		t.Fatalf("expected status rule to fire, got %+v", out.Fired)
	}
	if out.Notification != "Automation fired: action s" {
		t.Fatalf("unexpected notification %q", out.Notification)
	}

	none := Evaluate(StatusChanged{LeadID: "l1", Stage: leads.StageProposal}, rules)
	if !none.Empty() || none.Notification != "" {
		t.Fatalf("expected no firing for other stages")
	}
}

func TestEvaluate_NewLeadCountsRules(t *testing.T) {
	rules := []Rule{
		rule("a", TriggerNewLead, true),
		rule("b", TriggerNewLead, true),
		rule("c", TriggerNewLead, false),
	}
	out := Evaluate(LeadCreated{LeadID: "l1"}, rules)
	if len(out.Fired) != 2 {
		t.Fatalf("expected 2 firings, got %d", len(out.Fired))
	}
	if out.Notification != "Automation fired: 2 rule(s) executed" {
		t.Fatalf("unexpected notification %q", out.Notification)
	}
	for _, f := range out.Fired {
		if f.LeadID != "l1" || f.Message == "" {
			t.Fatalf("unexpected firing %+v", f)
		}
	}

	single := Evaluate(LeadCreated{LeadID: "l1"}, rules[:1])
	if single.Notification != "Automation fired: action a" {
		t.Fatalf("unexpected single notification %q", single.Notification)
	}
}

func TestEvaluate_MatchesByCategoryNotID(t *testing.T) {
	r := rule("custom-id", TriggerNewLead, true)
	r.Icon = IconClock
	out := Evaluate(LeadCreated{LeadID: "l1"}, []Rule{r})
	if len(out.Fired) != 1 {
		t.Fatalf("expected rule to fire by category regardless of id or icon")
	}
}

func TestEvaluate_LeadIdleRespectsIdlePeriod(t *testing.T) {
	rules := []Rule{rule("f", TriggerFollowUp, true)}
	if out := Evaluate(LeadIdle{LeadID: "l1", IdleFor: 24 * time.Hour}, rules); !out.Empty() {
		t.Fatalf("expected no follow-up before idle period")
	}
	if out := Evaluate(LeadIdle{LeadID: "l1", IdleFor: 80 * time.Hour}, rules); len(out.Fired) != 1 {
		t.Fatalf("expected follow-up to fire")
	}
}

func TestEvaluate_EmptyInputs(t *testing.T) {
	if out := Evaluate(LeadCreated{}, []Rule{rule("a", TriggerNewLead, true)}); !out.Empty() {
		t.Fatalf("expected no firing without lead id")
	}
	if out := Evaluate(LeadCreated{LeadID: "x"}, nil); !out.Empty() {
		t.Fatalf("expected no firing without rules")
	}
}
