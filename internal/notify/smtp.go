package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/wneessen/go-mail"
)

// DefaultTimeout bounds a single SMTP delivery when SMTPConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// SMTPConfig holds relay settings. Username defaults to the sender address.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// dialer is the part of *mail.Client used here; swapped in tests.
type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTP sends messages through an authenticated STARTTLS relay.
type SMTP struct {
	cfg       SMTPConfig
	newDialer func(cfg SMTPConfig) (dialer, error)
}

// NewSMTP validates cfg and returns a Notifier backed by it.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: smtp host is empty", common.ErrInvalidConfig)
	}
	if cfg.Password == "" {
		return nil, common.ErrMissingSecret
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SMTP{cfg: cfg, newDialer: newMailClient}, nil
}

func newMailClient(cfg SMTPConfig) (dialer, error) {
	return mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	)
}

// Send delivers msg in one synchronous attempt bounded by the configured timeout.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", common.ErrDelivery, err)
	}

	cfg := s.cfg
	if cfg.Username == "" {
		cfg.Username = msg.From.Address()
	}

	c, err := s.newDialer(cfg)
	if err != nil {
		return fmt.Errorf("%w: setup smtp relay: %v", common.ErrDelivery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDelivery, err)
	}
	return nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("no recipients")
	}

	m := mail.NewMsg()
	if err := m.FromFormat(msg.From.Name(), msg.From.Address()); err != nil {
		return nil, err
	}
	if err := m.ReplyTo(msg.From.Address()); err != nil {
		return nil, err
	}
	for _, to := range msg.To {
		if err := m.AddToFormat(to.Name(), to.Address()); err != nil {
			return nil, err
		}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	return m, nil
}
