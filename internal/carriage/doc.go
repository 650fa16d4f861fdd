// Package carriage owns the carriage control proxy.
//
// Ownership boundary:
// - carriage state machine and indicator patterns
// - command dispatch and status replies
// - startup handshake with the controller
// - neighbor-driven speed regime
// - actuator forwarding and ack waits
//
// Lifecycle order:
// - bootstrap -> connect (first CCIN) -> handshake retries until AKIN
//
// All carriage state is owned by the Service event loop. Receive loops and the
// handshake ticker only post events; the actuator ack path is the one exception
// and never touches carriage state.
package carriage
