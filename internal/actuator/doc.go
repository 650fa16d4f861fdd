// Package actuator simulates the actuator node that sits behind a carriage.
//
// It acknowledges every carriage record, keeps a short history of what it
// received, and can raise hazard, alignment and status reports towards the
// carriage the way the onboard sensors would.
package actuator
