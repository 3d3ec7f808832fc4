package streams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe(8)
	defer unsubscribe()

	for i := 1; i <= 3; i++ {
		b.Publish(Event{StreamID: uint(i)})
	}

	for i := 1; i <= 3; i++ {
		select {
		case ev := <-ch:
			assert.Equal(t, uint(i), ev.StreamID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBroadcasterDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	b.Publish(Event{StreamID: 1})
	b.Publish(Event{StreamID: 2}) // dropped, buffer is full

	ev := <-ch
	assert.Equal(t, uint(1), ev.StreamID)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %d", ev.StreamID)
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, unsubscribe := b.Subscribe(1)
	unsubscribe()

	_, open := <-ch
	require.False(t, open)

	// publishing after unsubscribe must not panic
	b.Publish(Event{StreamID: 1})
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster()
	ch, _ := b.Subscribe(1)
	b.Close()

	_, open := <-ch
	assert.False(t, open)

	// subscribing after close yields a closed channel
	ch2, _ := b.Subscribe(1)
	_, open = <-ch2
	assert.False(t, open)
}
