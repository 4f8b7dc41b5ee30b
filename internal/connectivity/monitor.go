// Package connectivity tracks whether the dashboard's backend is reachable.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"

	"vizninja/ports"
)

// State is the last known reachability of the backend.
type State int

const (
	Unknown State = iota
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// HealthChecker is the part of the backend the monitor needs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// DefaultTimeout bounds a single health check.
const DefaultTimeout = 5 * time.Second

// Monitor polls a HealthChecker and notifies on state transitions only.
// Once a check has completed the state never returns to Unknown.
type Monitor struct {
	checker  HealthChecker
	notifier ports.Notifier
	interval time.Duration
	Timeout  time.Duration

	checkMu sync.Mutex

	mu    sync.RWMutex
	state State
	last  time.Time
	err   error
	subs  map[chan State]struct{}
}

// NewMonitor creates a monitor polling checker every interval.
func NewMonitor(checker HealthChecker, notifier ports.Notifier, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		checker:  checker,
		notifier: notifier,
		interval: interval,
		Timeout:  DefaultTimeout,
		subs:     make(map[chan State]struct{}),
	}
}

// Run checks once immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// Refresh runs a health check now and returns the resulting state.
func (m *Monitor) Refresh(ctx context.Context) State {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, m.Timeout)
	err := m.checker.Health(checkCtx)
	cancel()
	if ctx.Err() != nil {
		// shutting down; keep the last state
		return m.State()
	}

	next := Connected
	if err != nil {
		next = Disconnected
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.last = time.Now()
	m.err = err
	if prev != next {
		for ch := range m.subs {
			select {
			case ch <- next:
			default:
			}
		}
	}
	m.mu.Unlock()

	if prev == next {
		return next
	}
	log.Printf("[Connectivity] Backend %s -> %s", prev, next)

	switch {
	case next == Disconnected:
		log.Printf("[Connectivity] Health check failed: %v", err)
		m.notify(ports.NotifyError, "Backend is unreachable. Please check if the server is running.")
	case prev == Disconnected:
		m.notify(ports.NotifySuccess, "Backend connection restored")
	}
	return next
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastCheck returns when the last check completed and its error, if any.
func (m *Monitor) LastCheck() (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.err
}

// Subscribe returns a channel receiving every state transition and a
// function that cancels the subscription.
func (m *Monitor) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 4)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			close(ch)
			m.mu.Unlock()
		})
	}
}

func (m *Monitor) notify(level ports.NotificationLevel, msg string) {
	if m.notifier != nil {
		m.notifier.Notify(ports.Notification{Level: level, Message: msg})
	}
}
