package crm

import (
	"context"
	"fmt"
	"io"

	"leadpipe/internal/activity"
	"leadpipe/internal/automation"
	"leadpipe/internal/leads"
	"leadpipe/internal/messaging"
	"leadpipe/internal/metrics"
	"leadpipe/internal/notify"
	"leadpipe/internal/reporting"
	"leadpipe/pkg/logger"
)

// Deps are the stores and collaborators the App is built from.
type Deps struct {
	Leads      *leads.Service
	Rules      *automation.Service
	Activities *activity.Service
	Bulk       *messaging.BulkSender
	Sender     messaging.Sender
	Catalog    *messaging.Catalog
	Notifier   *notify.Notifier
	Reports    *reporting.Service
	Backend    Backend
}

// App is the application layer. Every user write is applied locally,
// confirmed with the backend and compensated when the backend rejects it.
type App struct {
	leads      *leads.Service
	rules      *automation.Service
	activities *activity.Service
	bulk       *messaging.BulkSender
	sender     messaging.Sender
	catalog    *messaging.Catalog
	notifier   *notify.Notifier
	reports    *reporting.Service
	backend    Backend
}

func New(d Deps) *App {
	if d.Catalog == nil {
		d.Catalog = messaging.DefaultCatalog()
	}
	if d.Notifier == nil {
		d.Notifier = notify.New(notify.DefaultTTL)
	}
	if d.Backend == nil {
		d.Backend = NewSimulatedBackend(0)
	}
	if d.Reports == nil {
		d.Reports = reporting.NewService(d.Leads, d.Activities)
	}
	return &App{
		leads:      d.Leads,
		rules:      d.Rules,
		activities: d.Activities,
		bulk:       d.Bulk,
		sender:     d.Sender,
		catalog:    d.Catalog,
		notifier:   d.Notifier,
		reports:    d.Reports,
		backend:    d.Backend,
	}
}

/* ===================== LEADS ===================== */

func (a *App) CreateLead(ctx context.Context, in leads.CreateInput) (leads.Lead, error) {
	l, err := a.leads.Create(ctx, in)
	if err != nil {
		return leads.Lead{}, err
	}
	t := Tentative{
		Op:   Op{Kind: OpCreateLead, LeadIDs: []string{l.ID}},
		Undo: func(ctx context.Context) error { return a.leads.Delete(ctx, l.ID) },
	}
	if err := a.commit(ctx, t, "Could not register the lead."); err != nil {
		return leads.Lead{}, err
	}

	metrics.RecordLeadCreated("manual")
	a.record(ctx, l.ID, activity.TypeLeadImported, "New lead registered manually.")
	a.notifier.Show("New lead registered.", notify.KindSuccess)
	a.trigger(ctx, automation.LeadCreated{LeadID: l.ID}, true)
	return l, nil
}

// MoveLead changes the pipeline stage. A status_changed activity is recorded
// only when the stage title actually changes.
func (a *App) MoveLead(ctx context.Context, id string, stage leads.Stage) (leads.Lead, error) {
	ch, err := a.leads.ChangeStatus(ctx, id, stage)
	if err != nil {
		return leads.Lead{}, err
	}
	t := Tentative{
		Op:   Op{Kind: OpMoveLead, LeadIDs: []string{id}},
		Undo: func(ctx context.Context) error { return a.leads.Revert(ctx, ch) },
	}
	if err := a.commit(ctx, t, "Could not move the lead."); err != nil {
		return leads.Lead{}, err
	}

	after := ch.After
	oldTitle, newTitle := ch.Before.Status.Title(), after.Status.Title()
	if oldTitle != newTitle {
		metrics.RecordStageChange(string(after.Status))
		a.record(ctx, id, activity.TypeStatusChanged, fmt.Sprintf("Status changed to %q (was %q)", newTitle, oldTitle))
		a.trigger(ctx, automation.StatusChanged{LeadID: id, Stage: after.Status}, true)
	}
	return after, nil
}

func (a *App) EditLead(ctx context.Context, id string, p leads.Patch) (leads.Lead, error) {
	if p.Empty() {
		return leads.Lead{}, fmt.Errorf("%w: nothing to update", leads.ErrValidation)
	}
	ch, err := a.leads.ChangeFields(ctx, id, p)
	if err != nil {
		return leads.Lead{}, err
	}
	t := Tentative{
		Op:   Op{Kind: OpEditLead, LeadIDs: []string{id}},
		Undo: func(ctx context.Context) error { return a.leads.Revert(ctx, ch) },
	}
	if err := a.commit(ctx, t, "Could not update the lead."); err != nil {
		return leads.Lead{}, err
	}

	a.record(ctx, id, activity.TypeDataEdited, "Contact details updated manually.")
	a.notifier.Show("Lead updated.", notify.KindSuccess)
	return ch.After, nil
}

// DeleteLead removes the lead. Its activities stay in the log.
func (a *App) DeleteLead(ctx context.Context, id string) error {
	before, err := a.leads.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.leads.Delete(ctx, id); err != nil {
		return err
	}
	t := Tentative{
		Op:   Op{Kind: OpDeleteLead, LeadIDs: []string{id}},
		Undo: func(ctx context.Context) error { return a.leads.Restore(ctx, before) },
	}
	if err := a.commit(ctx, t, "Could not remove the lead."); err != nil {
		return err
	}
	a.notifier.Show("Lead removed.", notify.KindInfo)
	return nil
}

func (a *App) ImportLeads(ctx context.Context, rows []leads.ImportRow) ([]leads.Lead, error) {
	batch, err := a.leads.BulkImport(ctx, rows)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(batch))
	for i, l := range batch {
		ids[i] = l.ID
	}
	t := Tentative{
		Op: Op{Kind: OpImport, LeadIDs: ids},
		Undo: func(ctx context.Context) error {
			var firstErr error
			for _, id := range ids {
				if err := a.leads.Delete(ctx, id); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
	if err := a.commit(ctx, t, "Could not import the spreadsheet."); err != nil {
		return nil, err
	}

	a.notifier.Show(fmt.Sprintf("%d leads imported.", len(batch)), notify.KindSuccess)
	var last automation.Outcome
	for _, l := range batch {
		metrics.RecordLeadCreated("import")
		a.record(ctx, l.ID, activity.TypeLeadImported, "Lead imported via spreadsheet.")
		if out := a.trigger(ctx, automation.LeadCreated{LeadID: l.ID}, false); !out.Empty() {
			last = out
		}
	}
	if last.Notification != "" {
		a.notifier.Show(last.Notification, notify.KindSuccess)
	}
	return batch, nil
}

// ImportSummary reports a CSV upload: what was created and what was skipped.
type ImportSummary struct {
	Leads   []leads.Lead `json:"leads"`
	Added   int          `json:"added"`
	Skipped int          `json:"skipped"`
	Errors  []string     `json:"errors,omitempty"`
}

func (a *App) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	parsed, err := leads.ParseCSV(r)
	if err != nil {
		return ImportSummary{}, err
	}
	if len(parsed.Rows) == 0 {
		return ImportSummary{Skipped: parsed.Skipped, Errors: parsed.Errors},
			fmt.Errorf("%w: no valid rows in file", leads.ErrValidation)
	}
	batch, err := a.ImportLeads(ctx, parsed.Rows)
	if err != nil {
		return ImportSummary{}, err
	}
	return ImportSummary{Leads: batch, Added: len(batch), Skipped: parsed.Skipped, Errors: parsed.Errors}, nil
}

/* ===================== RULES ===================== */

// CreateRule is confirmed with the backend before it is stored: rules are
// never deleted, so there is nothing to compensate with.
func (a *App) CreateRule(ctx context.Context, in automation.CreateInput) (automation.Rule, error) {
	if err := a.commit(ctx, Tentative{Op: Op{Kind: OpCreateRule}}, "Could not create the automation."); err != nil {
		return automation.Rule{}, err
	}
	r, err := a.rules.Create(ctx, in)
	if err != nil {
		return automation.Rule{}, err
	}
	a.notifier.Show("New automation created and activated.", notify.KindSuccess)
	return r, nil
}

func (a *App) ToggleRule(ctx context.Context, id string) (automation.Rule, error) {
	r, err := a.rules.Toggle(ctx, id)
	if err != nil {
		return automation.Rule{}, err
	}
	t := Tentative{
		Op: Op{Kind: OpToggleRule, RuleID: id},
		Undo: func(ctx context.Context) error {
			_, err := a.rules.Toggle(ctx, id)
			return err
		},
	}
	if err := a.commit(ctx, t, "Could not change the automation status."); err != nil {
		return automation.Rule{}, err
	}
	if r.IsActive {
		a.notifier.Show("Automation activated.", notify.KindSuccess)
	} else {
		a.notifier.Show("Automation deactivated.", notify.KindInfo)
	}
	return r, nil
}

/* ===================== MESSAGING ===================== */

// BulkSend messages every lead and records one activity per delivered message.
// Sent leads count as an interaction for the follow-up sweep.
func (a *App) BulkSend(ctx context.Context, leadIDs []string, templateID string) (messaging.Report, error) {
	if !a.catalog.HasTemplate(templateID) {
		return messaging.Report{}, fmt.Errorf("%w: %q", messaging.ErrTemplateNotFound, templateID)
	}
	if len(leadIDs) == 0 {
		return messaging.Report{}, fmt.Errorf("%w: no leads selected", leads.ErrValidation)
	}
	a.notifier.Show(fmt.Sprintf("Sending messages to %d leads...", len(leadIDs)), notify.KindInfo)

	rep, err := a.bulk.SendToMany(ctx, leadIDs, templateID)
	if err != nil {
		a.notifier.Show("Bulk send failed.", notify.KindError)
		return messaging.Report{}, err
	}
	for _, id := range rep.SentIDs {
		if _, err := a.leads.Touch(ctx, id); err != nil {
			logger.From(ctx).Warn("touch lead after send", "lead_id", id, "err", err)
		}
	}

	if len(rep.Failed) == 0 {
		a.notifier.Show(fmt.Sprintf("%d messages sent and recorded.", rep.Sent), notify.KindSuccess)
	} else {
		a.notifier.Show(fmt.Sprintf("%d messages sent, %d failed.", rep.Sent, len(rep.Failed)), notify.KindError)
	}
	return rep, nil
}

/* ===================== READS ===================== */

func (a *App) Leads(ctx context.Context, f leads.Filter) ([]leads.Lead, error) {
	return a.leads.List(ctx, f)
}

func (a *App) Lead(ctx context.Context, id string) (leads.Lead, error) {
	return a.leads.Get(ctx, id)
}

func (a *App) Rules(ctx context.Context) ([]automation.Rule, error) {
	return a.rules.List(ctx)
}

// Activities lists the log for one lead, or all of it when leadID is empty.
func (a *App) Activities(ctx context.Context, leadID string) ([]activity.Activity, error) {
	if leadID == "" {
		return a.activities.ListAll(ctx)
	}
	return a.activities.ListForLead(ctx, leadID)
}

func (a *App) Notification() (notify.Notification, bool) {
	return a.notifier.Current()
}

func (a *App) Pipeline(ctx context.Context) (reporting.PipelineSummary, error) {
	return a.reports.PipelineSummary(ctx)
}

func (a *App) ActivitySummary(ctx context.Context, req reporting.ActivitySummaryRequest) (reporting.ActivitySummary, error) {
	return a.reports.ActivitySummary(ctx, req)
}

func (a *App) Columns() []leads.Column {
	return leads.Pipeline()
}

func (a *App) Templates() []messaging.Template {
	return a.catalog.List()
}

/* ===================== AUTOMATION ===================== */

// trigger evaluates ev against the active rules, delivers and records each
// firing and, when show is set, shows the outcome notification.
func (a *App) trigger(ctx context.Context, ev automation.Event, show bool) automation.Outcome {
	log := logger.From(ctx)
	active, err := a.rules.ListActive(ctx)
	if err != nil {
		log.Error("list active rules", "err", err)
		return automation.Outcome{}
	}

	out := automation.Evaluate(ev, active)
	delivered := out.Fired[:0:0]
	for _, f := range out.Fired {
		if err := a.deliver(ctx, f); err != nil {
			log.Warn("automation delivery failed", "rule_id", f.Rule.ID, "lead_id", f.LeadID, "err", err)
			metrics.RecordMessage("failed")
			continue
		}
		metrics.RecordAutomationFired(string(f.Rule.Trigger))
		a.record(ctx, f.LeadID, activity.TypeMessageSent, f.Message)
		delivered = append(delivered, f)
	}
	if len(delivered) == 0 {
		return automation.Outcome{}
	}
	if len(delivered) != len(out.Fired) {
		out = automation.Evaluate(ev, rulesOf(delivered))
	}
	if show && out.Notification != "" {
		a.notifier.Show(out.Notification, notify.KindSuccess)
	}
	return out
}

func (a *App) deliver(ctx context.Context, f automation.Firing) error {
	if a.sender == nil {
		return nil
	}
	tpl, err := a.catalog.Lookup(f.Rule.TemplateID)
	if err != nil {
		return err
	}
	l, err := a.leads.Get(ctx, f.LeadID)
	if err != nil {
		return err
	}
	if _, err := a.sender.Send(ctx, messaging.Message{LeadID: l.ID, To: l.ContactHandle, Template: tpl, Params: []string{l.Name}}); err != nil {
		return err
	}
	metrics.RecordMessage("sent")
	return nil
}

// record appends to the activity log. The write it describes is already
// confirmed, so a logging failure is reported but never returned.
func (a *App) record(ctx context.Context, leadID string, typ activity.Type, msg string) {
	if _, err := a.activities.Append(ctx, leadID, typ, msg); err != nil {
		logger.From(ctx).Error("append activity", "lead_id", leadID, "type", typ, "err", err)
	}
}

func rulesOf(fs []automation.Firing) []automation.Rule {
	out := make([]automation.Rule, len(fs))
	for i, f := range fs {
		out[i] = f.Rule
	}
	return out
}
