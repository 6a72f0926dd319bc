package leads

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService() (*Service, *fixedClock) {
	clk := &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(NewMemoryRepo()).WithClock(clk.Now), clk
}

func TestCreate_DefaultsAndValidation(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{ContactHandle: "5511"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing name, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "Ana"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing contact, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "1", Status: "won"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown stage, got %v", err)
	}

	l, err := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "5511999992222"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Status != StageProspect {
		t.Fatalf("expected first stage, got %q", l.Status)
	}
	if l.Tags == nil || len(l.Tags) != 0 {
		t.Fatalf("expected empty tags, got %#v", l.Tags)
	}
	if !l.CreatedAt.Equal(clk.Now()) || !l.LastInteractionAt.Equal(clk.Now()) {
		t.Fatalf("expected timestamps set to now")
	}
	if l.Version != 1 {
		t.Fatalf("expected version 1, got %d", l.Version)
	}
}

func TestCreate_UniqueIDs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		l, err := svc.Create(ctx, CreateInput{Name: "Lead", ContactHandle: "55"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[l.ID] {
			t.Fatalf("duplicate id %q", l.ID)
		}
		seen[l.ID] = true
	}
}

func TestUpdateStatus_AnyToAny(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()

	l, err := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created := l.CreatedAt

	for _, from := range Pipeline() {
		for _, to := range Pipeline() {
			if _, err := svc.UpdateStatus(ctx, l.ID, from.Stage); err != nil {
				t.Fatalf("move to %s: %v", from.Stage, err)
			}
			clk.Advance(time.Second)
			got, err := svc.UpdateStatus(ctx, l.ID, to.Stage)
			if err != nil {
				t.Fatalf("move %s -> %s: %v", from.Stage, to.Stage, err)
			}
			if got.Status != to.Stage {
				t.Fatalf("expected %s, got %s", to.Stage, got.Status)
			}
			if !got.CreatedAt.Equal(created) {
				t.Fatalf("created_at changed")
			}
		}
	}
}

func TestUpdateStatus_NotFoundAndUnknownStage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, "missing", StageClosed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})
	if _, err := svc.UpdateStatus(ctx, l.ID, "archived"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateFields_PatchAndVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55", Email: "a@x.com"})

	email := "ana@y.com"
	tags := []string{"VIP", " "}
	got, err := svc.UpdateFields(ctx, l.ID, Patch{Email: &email, Tags: &tags, ExpectedVersion: l.Version})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Ana" || got.Email != email {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "VIP" {
		t.Fatalf("unexpected tags: %#v", got.Tags)
	}
	if got.Version != l.Version+1 {
		t.Fatalf("expected version bump, got %d", got.Version)
	}

	name := "Ana Souza"
	if _, err := svc.UpdateFields(ctx, l.ID, Patch{Name: &name, ExpectedVersion: l.Version}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}

	empty := ""
	if _, err := svc.UpdateFields(ctx, l.ID, Patch{Name: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty name, got %v", err)
	}
	if _, err := svc.UpdateFields(ctx, "missing", Patch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_ConcurrentWritersLastWins(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stage := Pipeline()[i%len(Pipeline())].Stage
			_, _ = svc.UpdateStatus(ctx, l.ID, stage)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Status.Valid() {
		t.Fatalf("status left invalid: %q", got.Status)
	}
	if got.Version < 2 {
		t.Fatalf("expected version to advance, got %d", got.Version)
	}
}

func TestDelete_Strict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})

	if err := svc.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRestore_PutsSnapshotBack(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})

	if _, err := svc.UpdateStatus(ctx, l.ID, StageLost); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Restore(ctx, l); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := svc.Get(ctx, l.ID)
	if got.Status != StageProspect || got.Version != l.Version {
		t.Fatalf("expected snapshot restored, got %+v", got)
	}

	if err := svc.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Restore(ctx, l); err != nil {
		t.Fatalf("restore deleted: %v", err)
	}
	if _, err := svc.Get(ctx, l.ID); err != nil {
		t.Fatalf("expected restored lead, got %v", err)
	}
}

func TestRevert_UndoesOnlyTheLatestWrite(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	l, _ := svc.Create(ctx, CreateInput{Name: "Ana", ContactHandle: "55"})

	ch, err := svc.ChangeStatus(ctx, l.ID, StageLost)
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if ch.Before.Status != StageProspect || ch.After.Status != StageLost {
		t.Fatalf("unexpected change %+v", ch)
	}
	if err := svc.Revert(ctx, ch); err != nil {
		t.Fatalf("revert: %v", err)
	}
	got, _ := svc.Get(ctx, l.ID)
	if got.Status != StageProspect || got.Version != ch.After.Version+1 {
		t.Fatalf("expected reverted lead at a new version, got %+v", got)
	}

	ch, _ = svc.ChangeStatus(ctx, l.ID, StageClosed)
	name := "Ana Souza"
	if _, err := svc.UpdateFields(ctx, l.ID, Patch{Name: &name}); err != nil {
		t.Fatalf("concurrent edit: %v", err)
	}
	if err := svc.Revert(ctx, ch); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict over a newer write, got %v", err)
	}
	got, _ = svc.Get(ctx, l.ID)
	if got.Name != name || got.Status != StageClosed {
		t.Fatalf("newer write was overwritten: %+v", got)
	}
}

func TestBulkImport_AllOrNothing(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rows := []ImportRow{
		{Name: "A", ContactHandle: "1"},
		{Name: "B", ContactHandle: "2", Tags: []string{"Imported"}},
		{Name: "C", ContactHandle: "3", Tags: []string{"Investor"}},
	}
	got, err := svc.BulkImport(ctx, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(got))
	}
	ids := map[string]bool{}
	for _, l := range got {
		ids[l.ID] = true
		if l.Status != FirstStage() {
			t.Fatalf("expected first stage, got %s", l.Status)
		}
		n := 0
		for _, tag := range l.Tags {
			if tag == ImportedTag {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("expected exactly one Imported tag, got %v", l.Tags)
		}
	}
	if len(ids) != 3 {
		t.Fatalf("expected distinct ids")
	}

	bad := []ImportRow{{Name: "D", ContactHandle: "4"}, {Name: "", ContactHandle: "5"}}
	if _, err := svc.BulkImport(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	all, _ := svc.List(ctx, Filter{})
	if len(all) != 3 {
		t.Fatalf("expected rejected batch to write nothing, have %d leads", len(all))
	}
}

func TestList_SearchFilterAndOrder(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()

	roberto, _ := svc.Create(ctx, CreateInput{Name: "Roberto Silva", ContactHandle: "5511999991111"})
	clk.Advance(time.Minute)
	ana, _ := svc.Create(ctx, CreateInput{Name: "Ana Souza", ContactHandle: "5511999992222", Status: StageDocsPending})
	clk.Advance(time.Minute)
	mariana, _ := svc.Create(ctx, CreateInput{Name: "Mariana Lima", ContactHandle: "5511999994444"})

	all, _ := svc.List(ctx, Filter{})
	if len(all) != 3 || all[0].ID != mariana.ID || all[2].ID != roberto.ID {
		t.Fatalf("expected newest first")
	}

	byName, _ := svc.List(ctx, Filter{Query: "SOUZA"})
	if len(byName) != 1 || byName[0].ID != ana.ID {
		t.Fatalf("expected case-insensitive name match, got %d", len(byName))
	}
	byPhone, _ := svc.List(ctx, Filter{Query: "4444"})
	if len(byPhone) != 1 || byPhone[0].ID != mariana.ID {
		t.Fatalf("expected phone substring match")
	}
	byStage, _ := svc.List(ctx, Filter{Status: StageProspect})
	if len(byStage) != 2 {
		t.Fatalf("expected 2 prospects, got %d", len(byStage))
	}
	if _, err := svc.List(ctx, Filter{Status: "nope"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status filter")
	}
}

func TestPipeline_OrderAndTitles(t *testing.T) {
	cols := Pipeline()
	want := []string{"Prospecting", "Docs Pending", "Proposal Sent", "Closed/Won", "Lost"}
	if len(cols) != len(want) {
		t.Fatalf("expected %d columns", len(want))
	}
	for i, c := range cols {
		if c.Title != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], c.Title)
		}
	}
	if FirstStage() != StageProspect {
		t.Fatalf("expected prospect first")
	}
	if !strings.EqualFold(Stage("unknown").Title(), "unknown") {
		t.Fatalf("unknown stage title should fall back to raw value")
	}
}
