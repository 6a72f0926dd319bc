package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sender delivers one templated message to one recipient.
// Implementations must honour ctx cancellation.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

type Message struct {
	LeadID   string
	To       string
	Template Template
	// Params fill the template body placeholders in order.
	Params []string
}

type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

type Receipt struct {
	ProviderMessageID string         `json:"provider_message_id"`
	Status            DeliveryStatus `json:"status"`
	Provider          string         `json:"provider"`
}

var ErrNoRecipient = errors.New("messaging: recipient is required")

// SimulatedSender waits a fixed delay and always succeeds.
type SimulatedSender struct {
	Delay time.Duration
}

func NewSimulatedSender(delay time.Duration) *SimulatedSender {
	return &SimulatedSender{Delay: delay}
}

func (s *SimulatedSender) Name() string { return "simulated" }

func (s *SimulatedSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if msg.To == "" {
		return Receipt{}, ErrNoRecipient
	}
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-t.C:
		}
	}
	return Receipt{ProviderMessageID: "sim-" + uuid.NewString(), Status: DeliverySent, Provider: s.Name()}, nil
}

// ModeFunc reports whether sends should be simulated.
type ModeFunc func(ctx context.Context) (simulated bool, err error)

// SenderSwitch routes each send to the simulated or live sender
// according to the current settings.
type SenderSwitch struct {
	simulated Sender
	live      Sender
	mode      ModeFunc
}

func NewSenderSwitch(simulated, live Sender, mode ModeFunc) *SenderSwitch {
	return &SenderSwitch{simulated: simulated, live: live, mode: mode}
}

func (s *SenderSwitch) Name() string { return "switch" }

func (s *SenderSwitch) Send(ctx context.Context, msg Message) (Receipt, error) {
	target, err := s.pick(ctx)
	if err != nil {
		return Receipt{}, err
	}
	return target.Send(ctx, msg)
}

func (s *SenderSwitch) pick(ctx context.Context) (Sender, error) {
	simulated := true
	if s.mode != nil {
		v, err := s.mode(ctx)
		if err != nil {
			return nil, fmt.Errorf("read simulation mode: %w", err)
		}
		simulated = v
	}
	if simulated {
		return s.simulated, nil
	}
	if s.live == nil {
		return nil, errors.New("messaging: live sender not configured")
	}
	return s.live, nil
}
