package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

const DefaultTTL = 4 * time.Second

type Notification struct {
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier holds a single transient notification. A new Show replaces
// whatever is pending; nothing is queued.
type Notifier struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock func() time.Time
	cur   *Notification
}

func New(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, clock: time.Now}
}

func (n *Notifier) WithClock(clock func() time.Time) *Notifier {
	n.clock = clock
	return n
}

func (n *Notifier) Show(message string, kind Kind) Notification {
	now := n.clock().UTC()
	v := Notification{Message: message, Kind: kind, ShownAt: now, ExpiresAt: now.Add(n.ttl)}

	n.mu.Lock()
	n.cur = &v
	n.mu.Unlock()
	return v
}

// Current returns the pending notification, or false once it has expired.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cur == nil {
		return Notification{}, false
	}
	if !n.clock().UTC().Before(n.cur.ExpiresAt) {
		n.cur = nil
		return Notification{}, false
	}
	return *n.cur, true
}

func (n *Notifier) Clear() {
	n.mu.Lock()
	n.cur = nil
	n.mu.Unlock()
}
