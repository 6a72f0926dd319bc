package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory append-only repository.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Activity
	ids    map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{ids: map[string]struct{}{}} }

func (r *MemoryRepo) Append(ctx context.Context, a Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ids[a.ID]; dup {
		return ErrDuplicate
	}
	r.ids[a.ID] = struct{}{}
	r.events = append(r.events, a)
	return nil
}

// List returns activities for leadID (all when empty), newest first.
// Equal timestamps come out in reverse append order.
func (r *MemoryRepo) List(ctx context.Context, leadID string) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Activity, 0, len(r.events))
	for i := len(r.events) - 1; i >= 0; i-- {
		a := r.events[i]
		if leadID != "" && a.LeadID != leadID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
