package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/tokenwatch/internal/indexing/recovery"
)

// Phase is the supervisor's position in the reconnect loop.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttempting
	PhaseBackoff
	PhaseFatal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttempting:
		return "attempting"
	case PhaseBackoff:
		return "backoff"
	case PhaseFatal:
		return "fatal"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseIdle; candidate <= PhaseFatal; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Event drives the machine.
type Event int

const (
	// EventAttempt starts a session.
	EventAttempt Event = iota
	// EventLive reports that the subscription request was written.
	EventLive
	// EventClean reports a graceful end or close.
	EventClean
	// EventFault reports a failed session.
	EventFault
	// EventWake ends a backoff sleep.
	EventWake
	// EventStop parks the machine on shutdown.
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventAttempt:
		return "attempt"
	case EventLive:
		return "live"
	case EventClean:
		return "clean"
	case EventFault:
		return "fault"
	case EventWake:
		return "wake"
	case EventStop:
		return "stop"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrInvalidTransition is returned for an event the current phase does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes the effect of one event.
type Transition struct {
	From    Phase
	To      Phase
	Retries int
	// Delay is set when To is PhaseBackoff.
	Delay time.Duration
}

// Machine is the reconnect state machine. The retry counter counts
// consecutive failed sessions; it returns to zero whenever a session goes
// live. The ceiling is checked after the increment and before any sleep, so
// the failure that reaches the maximum moves straight to PhaseFatal. It is
// not safe for concurrent use.
type Machine struct {
	phase   Phase
	retries int
	policy  recovery.RetryStrategy
}

// NewMachine creates an idle machine.
func NewMachine(policy recovery.RetryStrategy) *Machine {
	return &Machine{phase: PhaseIdle, policy: policy}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Retries returns the consecutive failure count.
func (m *Machine) Retries() int { return m.retries }

// Fire applies ev and returns the resulting transition.
func (m *Machine) Fire(ev Event) (Transition, error) {
	t := Transition{From: m.phase}

	switch {
	case m.phase == PhaseFatal:
		return t, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, m.phase)

	case ev == EventStop:
		m.phase = PhaseIdle

	case m.phase == PhaseIdle && ev == EventAttempt:
		m.phase = PhaseAttempting

	case m.phase == PhaseAttempting && ev == EventLive:
		m.retries = 0

	case m.phase == PhaseAttempting && ev == EventClean:
		m.phase = PhaseIdle

	case m.phase == PhaseAttempting && ev == EventFault:
		m.retries++
		if !m.policy.ShouldRetry(m.retries) {
			m.phase = PhaseFatal
			break
		}
		m.phase = PhaseBackoff
		t.Delay = m.policy.GetDelay(m.retries)

	case m.phase == PhaseBackoff && ev == EventWake:
		m.phase = PhaseIdle

	default:
		return t, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, m.phase)
	}

	t.To = m.phase
	t.Retries = m.retries
	return t, nil
}
