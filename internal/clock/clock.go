// Package clock is the time source shared by the switch's loops. Production
// code runs on Real; tests drive a Fake and wait on its timers.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type (
	Clock = clockwork.Clock
	Timer = clockwork.Timer
	Fake  = clockwork.FakeClock
)

// Real returns a Clock backed by package time.
func Real() Clock { return clockwork.NewRealClock() }

// NewFake returns a Fake frozen at start. Time only moves through Advance.
func NewFake(start time.Time) *Fake { return clockwork.NewFakeClockAt(start) }
