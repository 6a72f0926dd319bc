package crm

import (
	"context"
	"time"

	"leadpipe/internal/automation"
	"leadpipe/internal/leads"
	"leadpipe/pkg/logger"
)

// SweepIdle runs follow_up rules against every first-stage lead that has been
// quiet long enough. A lead that got a follow-up is touched, so each rule
// fires at most once per idle period. It returns the number of leads chased.
func (a *App) SweepIdle(ctx context.Context, now time.Time) (int, error) {
	candidates, err := a.leads.List(ctx, leads.Filter{Status: leads.FirstStage()})
	if err != nil {
		return 0, err
	}

	chased := 0
	for _, l := range candidates {
		if err := ctx.Err(); err != nil {
			return chased, err
		}
		idle := now.Sub(l.LastInteractionAt)
		if idle <= 0 {
			continue
		}
		out := a.trigger(ctx, automation.LeadIdle{LeadID: l.ID, IdleFor: idle}, false)
		if out.Empty() {
			continue
		}
		chased++
		if _, err := a.leads.Touch(ctx, l.ID); err != nil {
			logger.From(ctx).Warn("touch lead after follow-up", "lead_id", l.ID, "err", err)
		}
	}
	return chased, nil
}

// FollowUpWorker sweeps idle leads on a fixed interval.
type FollowUpWorker struct {
	app      *App
	interval time.Duration
	clock    func() time.Time
}

func NewFollowUpWorker(app *App, interval time.Duration) *FollowUpWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &FollowUpWorker{app: app, interval: interval, clock: time.Now}
}

// Run blocks until ctx is cancelled.
func (w *FollowUpWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log := logger.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.app.SweepIdle(ctx, w.clock())
			if err != nil && ctx.Err() == nil {
				log.Error("follow-up sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("follow-up sweep", "chased", n)
			}
		}
	}
}
