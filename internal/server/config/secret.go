package config

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"golang.org/x/term"
)

// Replaced in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// ResolvePassword prompts for the sender password on the terminal fd when
// it was not provided through the environment. Input is not echoed.
func (c *Config) ResolvePassword(fd int, prompt io.Writer) error {
	if c.SenderPassword != "" {
		return nil
	}
	if !isTerminal(fd) {
		return fmt.Errorf("%w: set %s", common.ErrMissingSecret, EnvSenderPassword)
	}

	fmt.Fprint(prompt, "Sender email password: ")
	b, err := readPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return common.ErrMissingSecret
	}

	c.SenderPassword = string(b)
	common.WipeByteArray(b)
	return nil
}
