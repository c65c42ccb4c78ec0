package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
)

func TestShowReplacesCurrent(t *testing.T) {
	q := NewQueue(time.Minute, nil)

	first := q.Show("X", "Y", notification.KindError)
	second := q.Show("X", "Y", notification.KindError)

	current, ok := q.Current()
	require.True(t, ok)
	require.Equal(t, second.ID, current.ID)
	require.NotEqual(t, first.ID, current.ID)
}

func TestSupersededTimerHasNoEffect(t *testing.T) {
	q := NewQueue(60*time.Millisecond, nil)

	q.Show("X", "Y", notification.KindError)
	time.Sleep(40 * time.Millisecond)
	second := q.Show("X", "Y", notification.KindError)

	// the first timer would have fired by now
	time.Sleep(35 * time.Millisecond)
	current, ok := q.Current()
	require.True(t, ok, "second notification must still be visible")
	require.Equal(t, second.ID, current.ID)

	require.Eventually(t, func() bool {
		_, ok := q.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestDismissClearsImmediately(t *testing.T) {
	broker := events.NewBroker()
	ch, cancel := broker.Subscribe()
	defer cancel()

	q := NewQueue(time.Minute, broker)
	q.Show("Error", "boom", notification.KindError)
	q.Dismiss()

	_, ok := q.Current()
	require.False(t, ok)

	require.Equal(t, events.NotificationShown, (<-ch).Type)
	require.Equal(t, events.NotificationDismissed, (<-ch).Type)

	// dismissing an empty queue publishes nothing
	q.Dismiss()
	require.Len(t, ch, 0)
}

func TestDefaultDuration(t *testing.T) {
	q := NewQueue(0, nil)
	require.Equal(t, DefaultDuration, q.Duration())

	n := q.Show("Info", "hello", notification.KindInfo)
	require.Equal(t, DefaultDuration, n.ExpiresAt.Sub(n.ShownAt))
}
