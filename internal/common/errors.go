// Package common defines shared constants and sentinel errors used across
// deadswitch packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Startup configuration errors. All of them are fatal.
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingArgs    = errors.New("not enough arguments")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrEmptyPayload   = errors.New("payload cannot be empty")
	ErrMissingSecret  = errors.New("sender password is not set")

	// Delivery errors. Recovered locally by the owning loop.
	ErrDelivery = errors.New("delivery failed")

	// Payload sealing errors.
	ErrPayloadSealed = errors.New("payload cannot be opened")
)
