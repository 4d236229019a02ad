// Package common contains shared constants, sentinel errors and small helpers
// used across deadswitch components.
package common

const (
	// HeartbeatPath is the HTTP route that accepts reset signals.
	HeartbeatPath = "/heartbeat"

	// TokenParam is the query parameter carrying the reset token.
	TokenParam = "token"

	// HeartbeatSuccess and HeartbeatFailure are the only bodies the
	// heartbeat endpoint ever returns.
	HeartbeatSuccess = "Heartbeat success."
	HeartbeatFailure = "Heartbeat failure."

	// SenderDisplayName is attached to the sender mailbox when the
	// command line does not provide one.
	SenderDisplayName = "Dead Man's Switch"

	// TokenSize is the number of random bytes in the reset token.
	TokenSize = 16
)
