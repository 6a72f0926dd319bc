package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_LastWriteWinsAndExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := New(0).WithClock(func() time.Time { return now })

	_, ok := n.Current()
	assert.False(t, ok)

	n.Show("first", KindInfo)
	n.Show("second", KindSuccess)

	cur, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, "second", cur.Message)
	assert.Equal(t, KindSuccess, cur.Kind)
	assert.Equal(t, now.Add(DefaultTTL), cur.ExpiresAt)

	now = now.Add(3999 * time.Millisecond)
	_, ok = n.Current()
	assert.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok = n.Current()
	assert.False(t, ok)
}

func TestNotifier_ReplacementRestartsTimer(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := New(time.Second).WithClock(func() time.Time { return now })

	n.Show("a", KindInfo)
	now = now.Add(900 * time.Millisecond)
	n.Show("b", KindError)
	now = now.Add(900 * time.Millisecond)

	cur, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.Message)
}

func TestNotifier_Clear(t *testing.T) {
	n := New(time.Minute)
	n.Show("x", KindInfo)
	n.Clear()
	_, ok := n.Current()
	assert.False(t, ok)
}
