package crm

import (
	"context"
	"errors"
	"fmt"

	"leadpipe/internal/metrics"
	"leadpipe/internal/notify"
	"leadpipe/pkg/logger"
)

var ErrOperationFailed = errors.New("crm: operation failed")

// Compensation undoes a tentative write.
type Compensation func(ctx context.Context) error

// Tentative is a write that has been applied locally but not yet confirmed.
type Tentative struct {
	Op   Op
	Undo Compensation
}

// commit confirms t with the backend. On rejection it runs the compensation,
// shows failMsg as an error notification and returns ErrOperationFailed.
func (a *App) commit(ctx context.Context, t Tentative, failMsg string) error {
	err := a.backend.Sync(ctx, t.Op)
	if err == nil {
		return nil
	}

	log := logger.From(ctx)
	log.Warn("backend sync rejected", "op", t.Op.Kind, "err", err)
	metrics.RecordSyncFailure()

	if t.Undo != nil {
		// The caller's context may already be done; the undo must still run.
		if cerr := t.Undo(context.WithoutCancel(ctx)); cerr != nil {
			log.Error("compensation failed", "op", t.Op.Kind, "err", cerr)
		}
	}
	a.notifier.Show(failMsg, notify.KindError)
	return fmt.Errorf("%w: %s: %w", ErrOperationFailed, t.Op.Kind, err)
}
