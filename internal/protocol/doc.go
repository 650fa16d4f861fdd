// Package protocol owns the carriage wire contract and parsing primitives.
//
// Ownership boundary:
// - message, action and client-role vocabulary
// - JSON record encode/decode
// - carriage identity ordinals
//
// Records travel one per datagram. Decode performs structural checks only;
// whether an action or status value is meaningful is decided by the receiver.
package protocol
