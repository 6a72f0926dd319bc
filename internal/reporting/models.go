package reporting

import (
	"time"

	"leadpipe/internal/leads"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type StageCount struct {
	Stage leads.Stage `json:"stage"`
	Title string      `json:"title"`
	Count int         `json:"count"`
}

// PipelineSummary is the dashboard headline. Stages follow pipeline order.
type PipelineSummary struct {
	Total  int          `json:"total"`
	Stages []StageCount `json:"stages"`

	// Hot counts leads with a proposal out.
	Hot    int `json:"hot"`
	Closed int `json:"closed"`
	Lost   int `json:"lost"`

	// ConversionRate is closed / total, 0 for an empty pipeline.
	ConversionRate float64 `json:"conversion_rate"`
}

type ActivitySummaryRequest struct {
	Range TimeRange `json:"range"`
}

// ActivitySummary counts log entries in a half-open time range [From, To).
type ActivitySummary struct {
	Range         TimeRange `json:"range"`
	Total         int       `json:"total"`
	StatusChanges int       `json:"status_changes"`
	MessagesSent  int       `json:"messages_sent"`
	LeadsImported int       `json:"leads_imported"`
	DataEdits     int       `json:"data_edits"`
	LeadsTouched  int       `json:"leads_touched"`
}
