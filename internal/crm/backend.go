package crm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Op describes one write being confirmed with the backend.
type Op struct {
	Kind    string
	LeadIDs []string
	RuleID  string
}

const (
	OpCreateLead = "create_lead"
	OpMoveLead   = "move_lead"
	OpEditLead   = "edit_lead"
	OpDeleteLead = "delete_lead"
	OpImport     = "import_leads"
	OpCreateRule = "create_rule"
	OpToggleRule = "toggle_rule"
)

// Backend confirms or rejects a tentative write.
type Backend interface {
	Sync(ctx context.Context, op Op) error
}

var ErrRejected = errors.New("crm: backend rejected the operation")

// SimulatedBackend waits a fixed latency and accepts everything unless a
// rejection has been queued with RejectNext.
type SimulatedBackend struct {
	latency time.Duration

	mu      sync.Mutex
	pending []error
}

func NewSimulatedBackend(latency time.Duration) *SimulatedBackend {
	return &SimulatedBackend{latency: latency}
}

// RejectNext makes the next Sync fail with err (ErrRejected when nil).
func (b *SimulatedBackend) RejectNext(err error) {
	if err == nil {
		err = ErrRejected
	}
	b.mu.Lock()
	b.pending = append(b.pending, err)
	b.mu.Unlock()
}

func (b *SimulatedBackend) Sync(ctx context.Context, op Op) error {
	if b.latency > 0 {
		t := time.NewTimer(b.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	err := b.pending[0]
	b.pending = b.pending[1:]
	return err
}
