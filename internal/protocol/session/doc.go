// Package session owns per-peer session primitives shared by carriage,
// controller and actuator runtimes.
//
// Ownership boundary:
// - outbound sequence counters
// - handshake/ack timing defaults
// - pending acknowledgment bookkeeping
package session
