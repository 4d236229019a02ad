// Package checkin mails the operator a liveness prompt on a fixed schedule.
// The email embeds the reset link, so opening it (image beacon) or clicking
// it records a heartbeat. A failed check-in is reported and otherwise
// ignored: only a received heartbeat moves the switch.
package checkin

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/clock"
	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/logging"
	"github.com/dmitrijs2005/deadswitch/internal/mailbox"
	"github.com/dmitrijs2005/deadswitch/internal/metrics"
	"github.com/dmitrijs2005/deadswitch/internal/notify"
	"github.com/dmitrijs2005/deadswitch/internal/switchstate"
	"github.com/robfig/cron/v3"
)

// Subject of every check-in email.
const Subject = "Dead Man's Switch Check In"

// DefaultSchedule is daily at 08:00 local time.
const DefaultSchedule = "0 8 * * *"

type Config struct {
	// Schedule is a standard five-field cron expression.
	Schedule string
	// PublicURL is the externally reachable base URL of the heartbeat server.
	PublicURL string
}

type Emailer struct {
	schedule cron.Schedule
	link     string
	operator mailbox.Mailbox
	notifier notify.Notifier
	clock    clock.Clock
	logger   logging.Logger
	metrics  metrics.Recorder
}

func New(cfg Config, st *switchstate.State, n notify.Notifier, operator mailbox.Mailbox, c clock.Clock, l logging.Logger, m metrics.Recorder) (*Emailer, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: check-in schedule %q: %v", common.ErrInvalidConfig, expr, err)
	}

	link, err := HeartbeatURL(cfg.PublicURL, st.Token())
	if err != nil {
		return nil, err
	}

	if m == nil {
		m = metrics.Nop{}
	}
	return &Emailer{
		schedule: sched,
		link:     link,
		operator: operator,
		notifier: n,
		clock:    c,
		logger:   l.With("module", "checkin"),
		metrics:  m,
	}, nil
}

// HeartbeatURL builds <base>/heartbeat?token=<token>.
func HeartbeatURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: public url %q", common.ErrInvalidConfig, base)
	}
	u = u.JoinPath(common.HeartbeatPath)
	u.RawQuery = url.Values{common.TokenParam: {token}}.Encode()
	return u.String(), nil
}

// Next returns the first scheduled send strictly after t.
func (e *Emailer) Next(t time.Time) time.Time {
	return e.schedule.Next(t)
}

// Send composes and delivers one check-in email to the operator.
func (e *Emailer) Send(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check-in panicked: %v", r)
		}
	}()

	return e.notifier.Send(ctx, notify.Message{
		From:     e.operator,
		To:       []mailbox.Mailbox{e.operator},
		Subject:  Subject,
		HTMLBody: e.body(),
	})
}

func (e *Emailer) body() string {
	link := html.EscapeString(e.link)
	return "<html>" +
		"<img src='" + link + "' width='1' height='1' alt=''>" +
		"<h1>Checking in.</h1>" +
		"<p><a href='" + link + "'>I am still here</a></p>" +
		"</html>"
}

// Run sends a check-in at every scheduled time until ctx is done.
func (e *Emailer) Run(ctx context.Context) {
	e.logger.Info(ctx, "Starting check-in scheduler", "next", e.Next(e.clock.Now()).Format(time.RFC3339))

	for {
		now := e.clock.Now()
		t := e.clock.NewTimer(e.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			t.Stop()
			e.logger.Info(ctx, "Stopping check-in scheduler...")
			return
		case <-t.Chan():
			e.logger.Info(ctx, "Sending check in email")
			err := e.Send(ctx)
			e.metrics.CheckinSent(err)
			if err != nil {
				e.logger.Error(ctx, "check-in email failed", "error", err)
			}
		}
	}
}
