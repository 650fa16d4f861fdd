package protocol

import (
	"fmt"
	"strings"
)

// ClientType identifies the role of the peer that produced a record.
type ClientType string

const (
	ClientCCP        ClientType = "ccp"
	ClientController ClientType = "CCP"
	ClientESP        ClientType = "esp"
)

func (c ClientType) Valid() bool {
	switch c {
	case ClientCCP, ClientController, ClientESP:
		return true
	default:
		return false
	}
}

// MessageType is the closed vocabulary carried in the "message" field.
type MessageType string

const (
	MsgCarriageInit MessageType = "CCIN"
	MsgAckInit      MessageType = "AKIN"
	MsgStatusReq    MessageType = "STRQ"
	MsgStatus       MessageType = "STAT"
	MsgAckStatus    MessageType = "AKST"
	MsgNoInterpret  MessageType = "NOIP"
	MsgExec         MessageType = "EXEC"
)

func (t MessageType) Known() bool {
	switch t {
	case MsgCarriageInit, MsgAckInit, MsgStatusReq, MsgStatus, MsgAckStatus, MsgNoInterpret, MsgExec:
		return true
	default:
		return false
	}
}

// Validate wraps ErrUnrecognizedMessageType for types outside the vocabulary.
func (t MessageType) Validate() error {
	if t.Known() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnrecognizedMessageType, string(t))
}

// Action is an EXEC command code.
type Action string

const (
	ActionStopClose   Action = "STOPC"
	ActionStopOpen    Action = "STOPO"
	ActionForwardSlow Action = "FSLOWC"
	ActionForwardFast Action = "FFASTC"
	ActionReverseSlow Action = "RSLOWC"
	ActionDisconnect  Action = "DISCONNECT"
	ActionHazard      Action = "HAZARD_DETECTED"
	ActionFlashLED    Action = "FLASH_LED"
	ActionIRLED       Action = "IRLD"
)

var actions = []Action{
	ActionStopClose,
	ActionStopOpen,
	ActionForwardSlow,
	ActionForwardFast,
	ActionReverseSlow,
	ActionDisconnect,
	ActionHazard,
	ActionFlashLED,
	ActionIRLED,
}

// Actions returns the command vocabulary in table order.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ParseAction maps a raw action field onto the command vocabulary.
func ParseAction(raw string) (Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: missing action", ErrUnrecognizedAction)
	}
	for _, a := range actions {
		if string(a) == raw {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedAction, raw)
}

// IRLD status values.
const (
	IRStatusOn  = "ON"
	IRStatusOff = "OFF"
)

// AckToken is the literal acknowledgment the actuator sends back.
const AckToken = "ACK"

// Actuator-side vocabulary. HazardStopped is the status a carriage sends the
// actuator to confirm a hazard stop; the report actions come from the
// alignment photodiode.
const (
	StatusHazardStopped = "HAZARD_STOPPED"

	ReportAligned    = "ALIGNED"
	ReportMisaligned = "MISALIGNED"
)

// Initial cached status reported before any command has been handled.
const DefaultStatus = string(ActionStopClose)
