package notify

import (
	"testing"
	"time"

	"vizninja/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRecentKeepsNewest(t *testing.T) {
	h := NewHub(2)
	h.Notify(ports.Notification{Level: ports.NotifyInfo, Message: "one"})
	h.Notify(ports.Notification{Level: ports.NotifyInfo, Message: "two"})
	h.Notify(ports.Notification{Level: ports.NotifyError, Message: "three"})

	recent := h.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
	assert.Equal(t, ports.NotifyError, recent[1].Level)
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(5)
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	h.Notify(ports.Notification{Level: ports.NotifySuccess, Message: "done"})
	select {
	case ev := <-ch:
		assert.Equal(t, "done", ev.Message)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, h.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestHubDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub(5)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Notify(ports.Notification{Level: ports.NotifyInfo, Message: "tick"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked")
	}
}

func TestMulti(t *testing.T) {
	var got []string
	rec := Func(func(n ports.Notification) { got = append(got, n.Message) })
	Multi{rec, nil, rec}.Notify(ports.Notification{Message: "x"})
	assert.Equal(t, []string{"x", "x"}, got)
}
