// Package mailbox parses and validates the email identities given on the
// command line. Parsing happens once at startup; a Mailbox is immutable.
package mailbox

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/deadswitch/internal/common"
)

// Mailbox is a validated RFC 5322 address with an optional display name.
type Mailbox struct {
	name    string
	address string
}

// Parse validates raw, which may be a bare address or "Name <addr>".
func Parse(raw string) (Mailbox, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Mailbox{}, fmt.Errorf("%w: empty", common.ErrInvalidAddress)
	}

	a, err := mail.ParseAddress(raw)
	if err != nil {
		return Mailbox{}, fmt.Errorf("%w: %s", common.ErrInvalidAddress, raw)
	}

	return Mailbox{name: a.Name, address: a.Address}, nil
}

// ParseSender parses the sender mailbox and gives it the default display
// name when raw has none.
func ParseSender(raw string) (Mailbox, error) {
	m, err := Parse(raw)
	if err != nil {
		return Mailbox{}, fmt.Errorf("sender: %w", err)
	}
	if m.name == "" {
		m.name = common.SenderDisplayName
	}
	return m, nil
}

// ParseAll parses every recipient. The first invalid entry aborts the parse.
func ParseAll(raws []string) ([]Mailbox, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no recipients", common.ErrMissingArgs)
	}

	out := make([]Mailbox, 0, len(raws))
	for _, raw := range raws {
		m, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (m Mailbox) Name() string    { return m.name }
func (m Mailbox) Address() string { return m.address }

// String renders the mailbox as a header value.
func (m Mailbox) String() string {
	a := mail.Address{Name: m.name, Address: m.address}
	return a.String()
}

// Addresses returns the bare addresses of ms.
func Addresses(ms []Mailbox) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.address
	}
	return out
}
