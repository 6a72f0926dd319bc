package crm

import (
	"context"
	"testing"
	"time"

	"leadpipe/internal/activity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepIdle_ChasesQuietProspectsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.app.Seed(ctx, h.now))

	n, err := h.app.SweepIdle(ctx, h.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	h.now = h.now.Add(73 * time.Hour)
	n, err = h.app.SweepIdle(ctx, h.now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"1", "4"} {
		sent := h.activitiesOf(t, id, activity.TypeMessageSent)
		require.NotEmpty(t, sent)
		assert.Equal(t, "Automation sent follow-up: Chase a reply (Follow-up)", sent[0].Message)
	}
	assert.Len(t, h.activitiesOf(t, "2", activity.TypeMessageSent), 0)

	n, err = h.app.SweepIdle(ctx, h.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepIdle_InactiveRuleDoesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.app.Seed(ctx, h.now))
	_, err := h.app.ToggleRule(ctx, "auto_3")
	require.NoError(t, err)

	h.now = h.now.Add(100 * time.Hour)
	n, err := h.app.SweepIdle(ctx, h.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFollowUpWorker_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewFollowUpWorker(h.app, time.Millisecond).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
