package messaging

import (
	"context"
	"errors"
	"fmt"

	"leadpipe/internal/activity"
	"leadpipe/internal/leads"
	"leadpipe/internal/metrics"
	"leadpipe/pkg/logger"
)

// LeadReader resolves recipients.
type LeadReader interface {
	Get(ctx context.Context, id string) (leads.Lead, error)
}

// ActivityWriter records one message_sent entry per delivered message.
type ActivityWriter interface {
	Append(ctx context.Context, leadID string, typ activity.Type, message string) (activity.Activity, error)
}

// Failure is one lead the bulk run could not message.
type Failure struct {
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
}

// Report accounts for every requested lead. Sent is the delivered count.
// Unrecorded lists delivered leads whose activity entry could not be written.
type Report struct {
	TemplateID string    `json:"template_id"`
	Sent       int       `json:"sent"`
	SentIDs    []string  `json:"sent_ids"`
	Failed     []Failure `json:"failed"`
	Unrecorded []string  `json:"unrecorded,omitempty"`
}

type BulkSender struct {
	leads      LeadReader
	activities ActivityWriter
	sender     Sender
	catalog    *Catalog
	limiter    Limiter
}

func NewBulkSender(l LeadReader, a ActivityWriter, sender Sender, catalog *Catalog) *BulkSender {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &BulkSender{leads: l, activities: a, sender: sender, catalog: catalog}
}

// WithLimiter caps concurrent runs.
func (b *BulkSender) WithLimiter(l Limiter) *BulkSender {
	b.limiter = l
	return b
}

// SendToMany messages each lead in order. A failed lead is reported and
// skipped; it never aborts the run. Duplicate ids are sent once.
func (b *BulkSender) SendToMany(ctx context.Context, leadIDs []string, templateID string) (Report, error) {
	tpl, err := b.catalog.Lookup(templateID)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %q", err, templateID)
	}
	if b.limiter != nil {
		release, err := b.limiter.Acquire(ctx)
		if err != nil {
			return Report{}, err
		}
		defer release()
	}

	log := logger.From(ctx)
	rep := Report{TemplateID: tpl.ID, SentIDs: []string{}, Failed: []Failure{}}
	seen := make(map[string]struct{}, len(leadIDs))

	for _, id := range leadIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			rep.Failed = append(rep.Failed, Failure{LeadID: id, Reason: err.Error()})
			metrics.RecordMessage("failed")
			continue
		}
		if err := b.sendOne(ctx, id, tpl); err != nil {
			log.Warn("bulk send failed", "lead_id", id, "template_id", tpl.ID, "err", err)
			rep.Failed = append(rep.Failed, Failure{LeadID: id, Reason: failureReason(err)})
			metrics.RecordMessage("failed")
			continue
		}
		rep.Sent++
		rep.SentIDs = append(rep.SentIDs, id)
		metrics.RecordMessage("sent")

		// Delivered stays delivered even when the entry cannot be written.
		msg := fmt.Sprintf("Bulk message sent: %q", tpl.Name)
		if _, err := b.activities.Append(ctx, id, activity.TypeMessageSent, msg); err != nil {
			log.Error("bulk send: record activity", "lead_id", id, "template_id", tpl.ID, "err", err)
			rep.Unrecorded = append(rep.Unrecorded, id)
		}
	}

	log.Info("bulk send finished", "template_id", tpl.ID, "sent", rep.Sent, "failed", len(rep.Failed),
		"unrecorded", len(rep.Unrecorded))
	return rep, nil
}

func (b *BulkSender) sendOne(ctx context.Context, leadID string, tpl Template) error {
	lead, err := b.leads.Get(ctx, leadID)
	if err != nil {
		return err
	}
	_, err = b.sender.Send(ctx, Message{
		LeadID:   lead.ID,
		To:       lead.ContactHandle,
		Template: tpl,
		Params:   []string{lead.Name},
	})
	return err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, leads.ErrNotFound):
		return "lead not found"
	case errors.Is(err, ErrNoRecipient):
		return "lead has no contact handle"
	default:
		return err.Error()
	}
}
