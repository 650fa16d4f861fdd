package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is local time without zone, matching the controller's format.
const TimestampLayout = "2006-01-02T15:04:05.000"

var now = time.Now

// Encode builds one wire record and stamps the current time.
func Encode(role ClientType, typ MessageType, carriageID string, extra Fields) ([]byte, error) {
	if strings.TrimSpace(string(typ)) == "" {
		return nil, fmt.Errorf("%w: missing message type", ErrEncode)
	}
	if strings.TrimSpace(carriageID) == "" {
		return nil, fmt.Errorf("%w: missing client_id", ErrEncode)
	}
	msg := Message{
		ClientType: role,
		Type:       typ,
		ClientID:   carriageID,
		Sequence:   extra.Sequence,
		Action:     extra.Action,
		Status:     extra.Status,
		Timestamp:  now().Format(TimestampLayout),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return payload, nil
}

// Decode parses one wire record. Only structure is checked here.
func Decode(payload []byte) (Message, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Message{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if trimmed[0] != '{' {
		return Message{}, fmt.Errorf("%w: payload is not a record", ErrDecode)
	}
	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if strings.TrimSpace(string(msg.Type)) == "" {
		return Message{}, fmt.Errorf("%w: missing message", ErrDecode)
	}
	if strings.TrimSpace(msg.ClientID) == "" {
		return Message{}, fmt.Errorf("%w: missing client_id", ErrDecode)
	}
	msg.Raw = append([]byte(nil), payload...)
	return msg, nil
}

// IsAckToken reports whether payload is the actuator acknowledgment, either
// the bare token or a record whose message field is the token.
func IsAckToken(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	if string(trimmed) == AckToken {
		return true
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return probe.Message == AckToken
}
