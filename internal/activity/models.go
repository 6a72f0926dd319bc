package activity

import "time"

// Activity is an immutable record of a domain event concerning one lead.
//
// Invariants:
// - Activities are never updated or deleted.
// - LeadID is a plain reference; deleting a lead leaves its activities in place.
type Activity struct {
	ID        string    `json:"id" db:"id"`
	LeadID    string    `json:"lead_id" db:"lead_id"`
	Type      Type      `json:"type" db:"type"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

type Type string

const (
	TypeStatusChanged Type = "status_changed"
	TypeMessageSent   Type = "message_sent"
	TypeLeadImported  Type = "lead_imported"
	TypeDataEdited    Type = "data_edited"
)

func (t Type) Valid() bool {
	switch t {
	case TypeStatusChanged, TypeMessageSent, TypeLeadImported, TypeDataEdited:
		return true
	default:
		return false
	}
}
