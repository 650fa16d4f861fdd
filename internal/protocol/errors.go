package protocol

import "errors"

var (
	ErrDecode                  = errors.New("protocol: decode failed")
	ErrEncode                  = errors.New("protocol: encode failed")
	ErrUnrecognizedMessageType = errors.New("protocol: unrecognized message type")
	ErrUnrecognizedAction      = errors.New("protocol: unrecognized action")
	ErrMalformedIdentity       = errors.New("protocol: malformed identity")
)
