package connectivity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vizninja/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type switchChecker struct {
	mu    sync.Mutex
	down  bool
	calls int
}

func (c *switchChecker) Health(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.down {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func (c *switchChecker) set(down bool) {
	c.mu.Lock()
	c.down = down
	c.mu.Unlock()
}

func (c *switchChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recorder struct {
	mu  sync.Mutex
	got []ports.Notification
}

func (r *recorder) Notify(n ports.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) all() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.got...)
}

func TestTransitionsNotifyOnce(t *testing.T) {
	ctx := context.Background()
	checker := &switchChecker{}
	rec := &recorder{}
	m := NewMonitor(checker, rec, time.Minute)

	assert.Equal(t, Unknown, m.State())
	assert.Equal(t, Connected, m.Refresh(ctx))
	assert.Empty(t, rec.all())

	checker.set(true)
	for i := 0; i < 3; i++ {
		assert.Equal(t, Disconnected, m.Refresh(ctx))
	}
	require.Len(t, rec.all(), 1)
	assert.Equal(t, ports.NotifyError, rec.all()[0].Level)

	_, err := m.LastCheck()
	assert.Error(t, err)

	checker.set(false)
	assert.Equal(t, Connected, m.Refresh(ctx))
	assert.Equal(t, Connected, m.Refresh(ctx))
	notes := rec.all()
	require.Len(t, notes, 2)
	assert.Equal(t, "Backend connection restored", notes[1].Message)
}

func TestFirstCheckDisconnected(t *testing.T) {
	checker := &switchChecker{down: true}
	rec := &recorder{}
	m := NewMonitor(checker, rec, time.Minute)

	assert.Equal(t, Disconnected, m.Refresh(context.Background()))
	assert.Len(t, rec.all(), 1)
}

func TestRunChecksAtStartAndPolls(t *testing.T) {
	checker := &switchChecker{}
	m := NewMonitor(checker, nil, 10*time.Millisecond)
	states, cancelSub := m.Subscribe()
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case s := <-states:
		assert.Equal(t, Connected, s)
	case <-time.After(time.Second):
		t.Fatal("no initial state")
	}

	checker.set(true)
	select {
	case s := <-states:
		assert.Equal(t, Disconnected, s)
	case <-time.After(time.Second):
		t.Fatal("poll did not detect outage")
	}

	cancel()
	<-done
	assert.GreaterOrEqual(t, checker.count(), 2)
	assert.NotEqual(t, Unknown, m.State())
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	m := NewMonitor(&switchChecker{}, nil, time.Minute)
	ch, cancel := m.Subscribe()
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	m.Refresh(context.Background())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "disconnected", Disconnected.String())
}
