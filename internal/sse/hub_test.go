package sse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a := NewClient("ana")
	b := NewClient("bruno")
	hub.Register(a)
	hub.Register(b)
	require.Equal(t, 2, hub.Count())

	hub.Broadcast(NewEvent(EventOrdersChanged, map[string]string{"order_id": "o1"}))

	for _, c := range []*Client{a, b} {
		ev := <-c.Events
		assert.Equal(t, EventOrdersChanged, ev.EventType)
		assert.JSONEq(t, `{"order_id":"o1"}`, ev.Data)
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	c := NewClient("ana")
	hub.Register(c)

	hub.Unregister(c.ID)
	hub.Unregister(c.ID)

	_, ok := <-c.Events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "slow", Events: make(chan Event, 1)}
	hub.Register(c)

	hub.Broadcast(Event{EventType: EventOrdersChanged, Data: "{}"})
	hub.Broadcast(Event{EventType: EventProductsChanged, Data: "{}"})

	assert.Len(t, c.Events, 1)
	assert.Equal(t, EventOrdersChanged, (<-c.Events).EventType)
}

func TestHub_ConcurrentReaders(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	received := make([]int, 4)

	for i := range received {
		c := NewClient("user")
		hub.Register(c)

		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			for range c.Events {
				received[i]++
			}
		}(i, c)
	}

	for i := 0; i < 10; i++ {
		hub.Broadcast(Event{EventType: EventOrdersChanged, Data: "{}"})
	}
	hub.Close()
	wg.Wait()

	for _, n := range received {
		assert.Equal(t, 10, n)
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub()
	hub.Close()

	c := NewClient("late")
	hub.Register(c)

	_, ok := <-c.Events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}

func TestEvent_Format(t *testing.T) {
	ev := Event{EventType: EventOrdersChanged, Data: `{"a":1}`}
	assert.Equal(t, "event: orders:changed\ndata: {\"a\":1}\n\n", ev.Format())
}
