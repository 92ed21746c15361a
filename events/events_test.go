package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/events"
)

func TestChannelFIFO(t *testing.T) {
	c := events.NewChannel()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Push(events.Send{Payload: string(rune('a' + i))}))
	}
	assert.Equal(t, 3, c.Len())
	for _, want := range []string{"a", "b", "c"} {
		ev, ok := c.Recv()
		require.True(t, ok)
		assert.Equal(t, events.Send{Payload: want}, ev)
	}
}

func TestChannelCloseDrains(t *testing.T) {
	c := events.NewChannel()
	require.NoError(t, c.Push(events.Send{Payload: "last"}))
	c.Close()

	assert.ErrorIs(t, c.Push(events.Send{}), events.ErrClosed)
	ev, ok := c.Recv()
	require.True(t, ok)
	assert.Equal(t, events.Send{Payload: "last"}, ev)
	_, ok = c.Recv()
	assert.False(t, ok)
}

func TestChannelManyProducers(t *testing.T) {
	c := events.NewChannel()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = c.Push(events.Received{Message: events.Other{Name: "Greetings"}})
			}
		}()
	}
	done := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := c.Recv(); !ok {
				done <- n
				return
			}
			n++
		}
	}()
	wg.Wait()
	c.Close()
	select {
	case n := <-done:
		assert.Equal(t, 400, n)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestEmitterRecoversPanics(t *testing.T) {
	e := events.NewEmitter(logrus.NewEntry(logrus.New()))
	var got []string
	e.Subscribe(events.EventTxConfirmed, func(events.Notification) { panic("boom") })
	e.Subscribe(events.EventTxConfirmed, func(n events.Notification) { got = append(got, n.TxID) })
	e.Subscribe(events.EventTxPending, func(n events.Notification) { got = append(got, "pending") })

	e.Emit(events.Notification{Type: events.EventTxConfirmed, TxID: "abc"})
	assert.Equal(t, []string{"abc"}, got)
}
