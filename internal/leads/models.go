package leads

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("leads: lead not found")
	ErrValidation = errors.New("leads: validation failed")
	ErrConflict   = errors.New("leads: version conflict")
)

// Stage is a pipeline column. Any stage may move to any other stage.
type Stage string

const (
	StageProspect    Stage = "prospect"
	StageDocsPending Stage = "docs_pending"
	StageProposal    Stage = "proposal"
	StageClosed      Stage = "closed"
	StageLost        Stage = "lost"
)

// Column is a stage with its display title.
type Column struct {
	Stage Stage  `json:"id"`
	Title string `json:"title"`
}

var columns = []Column{
	{Stage: StageProspect, Title: "Prospecting"},
	{Stage: StageDocsPending, Title: "Docs Pending"},
	{Stage: StageProposal, Title: "Proposal Sent"},
	{Stage: StageClosed, Title: "Closed/Won"},
	{Stage: StageLost, Title: "Lost"},
}

// Pipeline returns the stages in display order.
func Pipeline() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

func FirstStage() Stage { return columns[0].Stage }

func (s Stage) Valid() bool {
	for _, c := range columns {
		if c.Stage == s {
			return true
		}
	}
	return false
}

// Title returns the display title, or the raw value for unknown stages.
func (s Stage) Title() string {
	for _, c := range columns {
		if c.Stage == s {
			return c.Title
		}
	}
	return string(s)
}

const ImportedTag = "Imported"

type Lead struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	ContactHandle     string    `json:"whatsapp" db:"contact_handle"`
	Email             string    `json:"email" db:"email"`
	Status            Stage     `json:"status" db:"status"`
	Tags              []string  `json:"tags" db:"tags"`
	LastInteractionAt time.Time `json:"last_interaction_at" db:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
	Version           int64     `json:"version" db:"version"`
}

// Clone returns a copy that shares no slices with l.
func (l Lead) Clone() Lead {
	out := l
	out.Tags = append([]string(nil), l.Tags...)
	return out
}

type CreateInput struct {
	Name          string   `json:"name"`
	ContactHandle string   `json:"whatsapp"`
	Email         string   `json:"email"`
	Status        Stage    `json:"status"`
	Tags          []string `json:"tags"`
}

// Patch is a partial update. Nil fields are left untouched.
// A non-zero ExpectedVersion turns on optimistic concurrency.
type Patch struct {
	Name            *string   `json:"name"`
	ContactHandle   *string   `json:"whatsapp"`
	Email           *string   `json:"email"`
	Tags            *[]string `json:"tags"`
	ExpectedVersion int64     `json:"expected_version"`
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.ContactHandle == nil && p.Email == nil && p.Tags == nil
}

// ImportRow is one parsed spreadsheet row.
type ImportRow struct {
	Name          string   `json:"name"`
	ContactHandle string   `json:"whatsapp"`
	Email         string   `json:"email"`
	Tags          []string `json:"tags"`
}

type Filter struct {
	// Query matches name case-insensitively or contact handle by substring.
	Query  string
	Status Stage
}
