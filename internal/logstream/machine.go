package logstream

import (
	"fmt"
	"time"
)

// DefaultReconnectDelay is the wait before reopening a dropped stream.
const DefaultReconnectDelay = 3 * time.Second

// State is the connection state of the log stream.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Effect lists the I/O a transition asks its owner to perform, in field
// order: disconnect the live connection, open a new one tagged with
// Generation, or schedule ReconnectDue(Generation, ...) after Delay.
type Effect struct {
	Disconnect        bool
	Connect           bool
	ScheduleReconnect bool
	Delay             time.Duration
	Generation        uint64
}

// None reports whether the transition requires no I/O.
func (e Effect) None() bool {
	return !e.Disconnect && !e.Connect && !e.ScheduleReconnect
}

// Machine is the pure state machine behind the reconnecting log stream.
// Every connection attempt gets a new generation; inputs carrying an older
// generation are ignored, which voids late errors and pending reconnect
// timers. Machine is not safe for concurrent use; one goroutine owns it.
type Machine struct {
	state State
	gen   uint64
	delay time.Duration
}

// NewMachine returns a closed machine. A non-positive delay uses
// DefaultReconnectDelay.
func NewMachine(delay time.Duration) *Machine {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Machine{delay: delay}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Generation returns the generation of the current (or last) connection.
func (m *Machine) Generation() uint64 { return m.gen }

// Accepts reports whether data from a connection of generation gen should
// be delivered.
func (m *Machine) Accepts(gen uint64) bool {
	return m.state == StateOpen && gen == m.gen
}

// Start opens a fresh connection, closing any open one first.
func (m *Machine) Start() Effect {
	eff := Effect{Disconnect: m.state == StateOpen}
	m.gen++
	m.state = StateOpen
	eff.Connect = true
	eff.Generation = m.gen
	return eff
}

// TransportError handles a failed or ended connection. While the daemon is
// running a reconnect is scheduled; otherwise the stream closes.
func (m *Machine) TransportError(gen uint64, running bool) Effect {
	if m.state != StateOpen || gen != m.gen {
		return Effect{}
	}
	if !running {
		m.state = StateClosed
		return Effect{}
	}
	m.state = StateReconnecting
	return Effect{ScheduleReconnect: true, Delay: m.delay, Generation: m.gen}
}

// ReconnectDue handles an elapsed reconnect timer. Running is re-checked at
// fire time.
func (m *Machine) ReconnectDue(gen uint64, running bool) Effect {
	if m.state != StateReconnecting || gen != m.gen {
		return Effect{}
	}
	if !running {
		m.state = StateClosed
		return Effect{}
	}
	m.gen++
	m.state = StateOpen
	return Effect{Connect: true, Generation: m.gen}
}

// Stop closes the stream from any state and voids pending timers. Calling it
// again is a no-op.
func (m *Machine) Stop() Effect {
	if m.state == StateClosed {
		return Effect{}
	}
	eff := Effect{Disconnect: m.state == StateOpen}
	m.state = StateClosed
	m.gen++
	return eff
}
