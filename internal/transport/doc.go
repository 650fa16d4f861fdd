// Package transport is the datagram boundary for every runtime: send bytes to
// an address, deliver bytes received on a bound port. It knows nothing about
// the records it carries.
package transport
