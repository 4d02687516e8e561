package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_NotifyDelivers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Notify("schedules", "schedule_days")

	select {
	case change := <-ch:
		require.Equal(t, []string{"schedules", "schedule_days"}, change.Tables)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	require.Equal(t, 2, bus.SubscriberCount())

	bus.Notify("images")

	for _, ch := range []<-chan Change{first, second} {
		select {
		case change := <-ch:
			require.True(t, change.Touches("images"))
		case <-time.After(time.Second):
			t.Fatal("expected a change notification")
		}
	}
}

func TestBus_CancelReleases(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()

	require.Equal(t, 0, bus.SubscriberCount())

	// Channel is closed after cancel.
	_, open := <-ch
	require.False(t, open)

	// Cancel is safe to call twice.
	cancel()
}

func TestBus_NotifyEmptyIsNoop(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Notify()

	select {
	case <-ch:
		t.Fatal("empty notify must not deliver")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe()
	defer cancel()

	// Overflow the buffer; Notify must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Notify("components")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
}

func TestChange_Touches(t *testing.T) {
	change := Change{Tables: []string{"schedules", "global"}}
	require.True(t, change.Touches("global"))
	require.True(t, change.Touches("missing", "schedules"))
	require.False(t, change.Touches("images"))
	require.False(t, change.Touches())
}
