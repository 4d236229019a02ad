// Package activator performs the terminal action of the switch: it discloses
// the payload to every recipient.
//
// Delivery is best-effort: every recipient is attempted even if earlier ones
// fail, and failures are aggregated into the returned error.
package activator

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/cryptox"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/mailbox"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/notify"
	"github.com/google/uuid"
)

// Subject of every activation email.
const Subject = "Dead Man's Switch ACTIVATED"

// Result is the outcome for one recipient.
type Result struct {
	Recipient string
	Err       error
}

// Report lists the outcome of every delivery attempt in recipient order.
type Report struct {
	ID      string
	Results []Result
}

// Delivered returns the recipients that accepted the message.
func (r Report) Delivered() []string {
	var out []string
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Recipient)
		}
	}
	return out
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

type Activator struct {
	notifier   notify.Notifier
	sender     mailbox.Mailbox
	recipients []mailbox.Mailbox
	payload    *cryptox.Sealed
	logger     logging.Logger
	metrics    metrics.Recorder
}

func New(n notify.Notifier, sender mailbox.Mailbox, recipients []mailbox.Mailbox, payload *cryptox.Sealed, l logging.Logger, m metrics.Recorder) *Activator {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Activator{
		notifier:   n,
		sender:     sender,
		recipients: recipients,
		payload:    payload,
		logger:     l.With("module", "activator"),
		metrics:    m,
	}
}

// Activate sends one message per recipient. It is not cancelled by ctx:
// once activation starts every recipient is attempted, each bounded by the
// notifier's own timeout.
func (a *Activator) Activate(ctx context.Context) (Report, error) {
	ctx = context.WithoutCancel(ctx)
	report := Report{ID: uuid.NewString()}
	log := a.logger.With("activation_id", report.ID)

	data, err := a.payload.Open()
	if err != nil {
		log.Error(ctx, "cannot open payload", "error", err)
		return report, err
	}
	body := renderBody(data)
	common.WipeByteArray(data)

	log.Warn(ctx, "Dead man's switch activated", "recipients", len(a.recipients))

	var errs []error
	for _, rcpt := range a.recipients {
		err := a.notifier.Send(ctx, notify.Message{
			From:     a.sender,
			To:       []mailbox.Mailbox{rcpt},
			Subject:  Subject,
			HTMLBody: body,
		})
		a.metrics.ActivationDelivery(err)
		report.Results = append(report.Results, Result{Recipient: rcpt.Address(), Err: err})

		if err != nil {
			log.Error(ctx, "activation email failed", "recipient", rcpt.Address(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", rcpt.Address(), err))
			continue
		}
		log.Info(ctx, "activation email sent", "recipient", rcpt.Address())
	}

	return report, errors.Join(errs...)
}

func renderBody(data []byte) string {
	return "<html><pre>" + html.EscapeString(string(data)) + "</pre></html>"
}
