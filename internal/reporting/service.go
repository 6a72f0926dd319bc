package reporting

import (
	"context"
	"errors"

	"leadpipe/internal/activity"
	"leadpipe/internal/leads"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

type LeadSource interface {
	List(ctx context.Context, f leads.Filter) ([]leads.Lead, error)
}

type ActivitySource interface {
	ListAll(ctx context.Context) ([]activity.Activity, error)
}

// Service computes read-only aggregates over the lead and activity stores.
type Service struct {
	leads      LeadSource
	activities ActivitySource
}

func NewService(l LeadSource, a ActivitySource) *Service {
	return &Service{leads: l, activities: a}
}

func (s *Service) PipelineSummary(ctx context.Context) (PipelineSummary, error) {
	if s.leads == nil {
		return PipelineSummary{}, errors.New("reporting: lead source not configured")
	}
	rows, err := s.leads.List(ctx, leads.Filter{})
	if err != nil {
		return PipelineSummary{}, err
	}

	counts := make(map[leads.Stage]int, len(rows))
	for _, l := range rows {
		counts[l.Status]++
	}

	out := PipelineSummary{Total: len(rows)}
	for _, col := range leads.Pipeline() {
		out.Stages = append(out.Stages, StageCount{Stage: col.Stage, Title: col.Title, Count: counts[col.Stage]})
	}
	out.Hot = counts[leads.StageProposal]
	out.Closed = counts[leads.StageClosed]
	out.Lost = counts[leads.StageLost]
	if out.Total > 0 {
		out.ConversionRate = float64(out.Closed) / float64(out.Total)
	}
	return out, nil
}

func (s *Service) ActivitySummary(ctx context.Context, req ActivitySummaryRequest) (ActivitySummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return ActivitySummary{}, ErrInvalidRequest
	}
	if s.activities == nil {
		return ActivitySummary{}, errors.New("reporting: activity source not configured")
	}
	rows, err := s.activities.ListAll(ctx)
	if err != nil {
		return ActivitySummary{}, err
	}

	out := ActivitySummary{Range: req.Range}
	touched := map[string]struct{}{}
	for _, a := range rows {
		if a.Timestamp.Before(req.Range.From) || !a.Timestamp.Before(req.Range.To) {
			continue
		}
		out.Total++
		touched[a.LeadID] = struct{}{}
		switch a.Type {
		case activity.TypeStatusChanged:
			out.StatusChanges++
		case activity.TypeMessageSent:
			out.MessagesSent++
		case activity.TypeLeadImported:
			out.LeadsImported++
		case activity.TypeDataEdited:
			out.DataEdits++
		}
	}
	out.LeadsTouched = len(touched)
	return out, nil
}
