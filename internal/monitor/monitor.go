// Package monitor tracks whether the board's serial port can be opened.
package monitor

import (
	"context"
	"sync"
	"time"

	"ampyfm/internal/log"
)

// State of the connection
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Target names the port to probe and how
type Target func() (port string, baud int)

// Prober opens and closes a port
type Prober func(port string, baud int) error

// Listener is told about every state transition together with the probe
// error that caused a disconnect.
type Listener func(state State, err error)

// Monitor holds the connected flag. It starts Disconnected, moves to Connected
// on a successful probe and back on a failed one.
type Monitor struct {
	probe  Prober
	target Target

	mu        sync.Mutex
	state     State
	listeners []Listener
}

// New creates a disconnected monitor
func New(probe Prober, target Target) *Monitor {
	return &Monitor{probe: probe, target: target}
}

// State returns the current state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the last probe succeeded
func (m *Monitor) Connected() bool {
	return m.State() == Connected
}

// OnChange registers a listener for state transitions
func (m *Monitor) OnChange(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Check probes the port now and returns the probe error.
func (m *Monitor) Check() error {
	port, baud := m.target()
	err := m.probe(port, baud)

	next := Connected
	if err != nil {
		next = Disconnected
	}

	m.mu.Lock()
	changed := m.state != next
	m.state = next
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if changed {
		log.LogWithFields(log.F("port", port), log.F("state", next.String())).Info("connection state changed")
		for _, l := range listeners {
			l(next, err)
		}
	}
	return err
}

// MarkDisconnected forces the Disconnected state without probing, e.g. after
// the port settings changed.
func (m *Monitor) MarkDisconnected() {
	m.mu.Lock()
	changed := m.state != Disconnected
	m.state = Disconnected
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(Disconnected, nil)
		}
	}
}

// Tick re-probes only while connected; a disconnected monitor stays so until
// Check is called explicitly. It reports whether a probe ran and its error.
func (m *Monitor) Tick() (bool, error) {
	if !m.Connected() {
		return false, nil
	}
	return true, m.Check()
}

// Start calls tick every interval until ctx is done. tick is usually Tick,
// wrapped by the caller to serialise with other device access.
func Start(ctx context.Context, interval time.Duration, tick func()) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}
