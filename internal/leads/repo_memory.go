package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type MemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	leads map[string]memEntry
}

type memEntry struct {
	lead Lead
	seq  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: map[string]memEntry{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, batch ...Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range batch {
		if _, ok := r.leads[l.ID]; ok {
			return ErrConflict
		}
	}
	for _, l := range batch {
		r.seq++
		r.leads[l.ID] = memEntry{lead: l.Clone(), seq: r.seq}
	}
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return e.lead.Clone(), nil
}

func (r *MemoryRepo) Update(ctx context.Context, l Lead, prevVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.leads[l.ID]
	if !ok {
		return ErrNotFound
	}
	if e.lead.Version != prevVersion {
		return ErrConflict
	}
	e.lead = l.Clone()
	r.leads[l.ID] = e
	return nil
}

// Put replaces or re-inserts l as-is. Restored leads keep their list position.
func (r *MemoryRepo) Put(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.leads[l.ID]
	if !ok {
		r.seq++
		e.seq = r.seq
	}
	e.lead = l.Clone()
	r.leads[l.ID] = e
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return ErrNotFound
	}
	delete(r.leads, id)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Lead, error) {
	r.mu.Lock()
	entries := make([]memEntry, 0, len(r.leads))
	for _, e := range r.leads {
		if matches(e.lead, f) {
			entries = append(entries, memEntry{lead: e.lead.Clone(), seq: e.seq})
		}
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.lead.CreatedAt.Equal(b.lead.CreatedAt) {
			return a.lead.CreatedAt.After(b.lead.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]Lead, len(entries))
	for i, e := range entries {
		out[i] = e.lead
	}
	return out, nil
}

func matches(l Lead, f Filter) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), strings.ToLower(q)) ||
		strings.Contains(l.ContactHandle, q)
}
