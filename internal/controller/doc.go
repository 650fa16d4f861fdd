// Package controller is the reference controller peer.
//
// It registers carriages from their CCIN handshakes, acknowledges status
// reports, and issues EXEC and STRQ requests on behalf of an operator or the
// periodic heartbeat. It keeps no carriage state beyond the registry.
package controller
