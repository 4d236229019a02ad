// Package notifytest provides an in-memory Notifier for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/deadswitch/internal/notify"
)

// Recorder captures every message passed to Send. FailFor makes Send fail for
// messages addressed to the given address.
type Recorder struct {
	mu      sync.Mutex
	sent    []notify.Message
	failFor map[string]error
	calls   int
}

var _ notify.Notifier = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{failFor: map[string]error{}}
}

// FailFor registers err as the result for messages whose first recipient is addr.
func (r *Recorder) FailFor(addr string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[addr] = err
	return r
}

func (r *Recorder) Send(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) > 0 {
		if err, ok := r.failFor[msg.To[0].Address()]; ok {
			return err
		}
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns the successfully delivered messages.
func (r *Recorder) Sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Calls returns the number of Send attempts, failed ones included.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
