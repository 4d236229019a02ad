// Package metrics exposes switch activity as Prometheus metrics.
package metrics

import "time"

// Recorder receives switch events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	HeartbeatReceived(accepted bool)
	LastHeartbeat(at time.Time)
	Armed(armed bool)
	WatchdogTick()
	CheckinSent(err error)
	ActivationDelivery(err error)
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) HeartbeatReceived(bool)   {}
func (Nop) LastHeartbeat(time.Time)  {}
func (Nop) Armed(bool)               {}
func (Nop) WatchdogTick()            {}
func (Nop) CheckinSent(error)        {}
func (Nop) ActivationDelivery(error) {}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
