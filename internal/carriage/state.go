package carriage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/brctl/internal/protocol"
)

var ErrIllegalTransition = errors.New("carriage: illegal transition")

// State is the carriage operating state.
type State int

const (
	StateStarted State = iota
	StateConnected
	StateStopped
	StateFullSpeed
	StateMaintainingPace
	StateSlowForward
	StateSlowBackward
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateConnected:
		return "CONNECTED"
	case StateStopped:
		return "STOPPED"
	case StateFullSpeed:
		return "FULL_SPEED"
	case StateMaintainingPace:
		return "MAINTAINING_PACE"
	case StateSlowForward:
		return "SLOW_FORWARD"
	case StateSlowBackward:
		return "SLOW_BACKWARD"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Outcome reports what one Apply call changed.
type Outcome struct {
	From         State
	To           State
	DoorsChanged bool
	// NotifyActuator is set when the actuator must confirm the new state.
	NotifyActuator bool
}

func (o Outcome) Changed() bool {
	return o.From != o.To
}

// StateMachine holds carriage state, door state and the sensor flags.
// It is not safe for concurrent use.
type StateMachine struct {
	state     State
	doorsOpen bool
	aligned   bool
	irLED     bool

	indicator IndicatorDriver
	observe   func(State)
}

func NewStateMachine(indicator IndicatorDriver) *StateMachine {
	if indicator == nil {
		indicator = NopIndicator{}
	}
	m := &StateMachine{indicator: indicator}
	m.set(StateStarted)
	return m
}

// OnTransition registers a hook called after every state assignment.
func (m *StateMachine) OnTransition(fn func(State)) {
	m.observe = fn
}

func (m *StateMachine) State() State    { return m.state }
func (m *StateMachine) DoorsOpen() bool { return m.doorsOpen }
func (m *StateMachine) Aligned() bool   { return m.aligned }
func (m *StateMachine) IRLED() bool     { return m.irLED }

// SetAligned records the alignment photodiode reading.
func (m *StateMachine) SetAligned(aligned bool) {
	m.aligned = aligned
}

// CanConnect reports whether Connect would succeed.
func (m *StateMachine) CanConnect() error {
	if m.state != StateStarted {
		return fmt.Errorf("%w: connect from %s", ErrIllegalTransition, m.state)
	}
	return nil
}

// Connect moves Started -> Connected.
func (m *StateMachine) Connect() error {
	if err := m.CanConnect(); err != nil {
		return err
	}
	m.set(StateConnected)
	return nil
}

// SetRegime applies a speed regime chosen by the neighbor coordinator.
func (m *StateMachine) SetRegime(s State) {
	m.set(s)
}

// Apply runs the transition for one command. status is only read by IRLD.
func (m *StateMachine) Apply(action protocol.Action, status string) Outcome {
	out := Outcome{From: m.state}
	switch action {
	case protocol.ActionStopClose:
		out.DoorsChanged = m.stopAndClose()
	case protocol.ActionStopOpen:
		out.DoorsChanged = m.stopAndOpen()
	case protocol.ActionForwardSlow:
		if m.aligned {
			out.DoorsChanged = m.stopAndClose()
		} else {
			m.set(StateSlowForward)
		}
	case protocol.ActionForwardFast:
		m.set(StateFullSpeed)
	case protocol.ActionReverseSlow:
		if m.aligned {
			out.DoorsChanged = m.stopAndClose()
		} else {
			m.set(StateSlowBackward)
		}
	case protocol.ActionDisconnect, protocol.ActionFlashLED:
		m.indicator.Flash()
	case protocol.ActionHazard:
		m.set(StateStopped)
		m.indicator.StopFlashing()
		out.NotifyActuator = true
	case protocol.ActionIRLED:
		switch {
		case strings.EqualFold(status, protocol.IRStatusOn):
			m.irLED = true
			m.indicator.SetIRLED(true)
		case strings.EqualFold(status, protocol.IRStatusOff):
			m.irLED = false
			m.indicator.SetIRLED(false)
		}
	}
	out.To = m.state
	return out
}

// stopAndClose is a no-op when the doors are already closed.
func (m *StateMachine) stopAndClose() bool {
	if !m.doorsOpen {
		return false
	}
	if m.state != StateStopped {
		m.set(StateStopped)
	}
	m.doorsOpen = false
	return true
}

// stopAndOpen is a no-op when the doors are already open.
func (m *StateMachine) stopAndOpen() bool {
	if m.doorsOpen {
		return false
	}
	if m.state != StateStopped {
		m.set(StateStopped)
	}
	m.doorsOpen = true
	return true
}

func (m *StateMachine) set(s State) {
	m.state = s
	m.indicator.ShowPattern(s, PatternFor(s))
	if m.observe != nil {
		m.observe(s)
	}
}
