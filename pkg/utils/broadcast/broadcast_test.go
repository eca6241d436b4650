package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("nothing received")
	}
	var zero T
	return zero
}

func TestBroadcast(t *testing.T) {
	src := make(chan int)
	b := NewBroadcastServer("test", src, WithBufferSize[int](4))
	defer b.Close()

	l1 := b.Subscribe()
	l2 := b.Subscribe()
	src <- 1
	src <- 2
	assert.Equal(t, 1, receive(t, l1))
	assert.Equal(t, 2, receive(t, l1))
	assert.Equal(t, 1, receive(t, l2))
	assert.Equal(t, 2, receive(t, l2))

	b.CancelSubscription(l1)
	_, ok := <-l1
	assert.False(t, ok)

	src <- 3
	assert.Equal(t, 3, receive(t, l2))
}

func TestSlowListenerIsSkipped(t *testing.T) {
	src := make(chan int)
	b := NewBroadcastServer("test", src, WithSkipTimeout[int](time.Millisecond))
	defer b.Close()

	_ = b.Subscribe() // never read
	fast := b.Subscribe()
	got := make(chan int, 2)
	go func() {
		for v := range fast {
			got <- v
		}
	}()
	src <- 1
	src <- 2
	assert.Equal(t, 1, receive[int](t, got))
	assert.Equal(t, 2, receive[int](t, got))
}

func TestCloseClosesListeners(t *testing.T) {
	src := make(chan string)
	b := NewBroadcastServer("test", src)
	l := b.Subscribe()
	b.Close()
	_, ok := <-l
	assert.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
