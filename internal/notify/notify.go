// Package notify defines the outbound email capability the switch depends on
// and an SMTP implementation of it.
package notify

import (
	"context"

	"github.com/dmitrijs2005/deadswitch/internal/mailbox"
)

// Message is a single HTML email.
type Message struct {
	From     mailbox.Mailbox
	To       []mailbox.Mailbox
	Subject  string
	HTMLBody string
}

// Notifier delivers messages. Implementations must honour ctx cancellation
// and must bound every attempt with a timeout; callers treat any error as
// non-fatal.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
