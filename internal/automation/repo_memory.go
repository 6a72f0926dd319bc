package automation

import (
	"context"
	"sync"
)

// MemoryRepo keeps rules in creation order.
type MemoryRepo struct {
	mu    sync.Mutex
	order []string
	rules map[string]Rule
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rules: map[string]Rule{}}
}

func (r *MemoryRepo) Save(ctx context.Context, rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		r.order = append(r.order, rule.ID)
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

// Toggle flips IsActive under the lock so concurrent toggles never lose an update.
func (r *MemoryRepo) Toggle(ctx context.Context, id string) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	rule.IsActive = !rule.IsActive
	r.rules[id] = rule
	return rule, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out, nil
}
