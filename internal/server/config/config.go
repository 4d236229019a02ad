// Package config handles configuration for the switch, layering defaults,
// an optional JSON file, environment variables and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/flagx"
)

// Config holds runtime settings for the switch.
//
// SenderPassword is only ever read from the environment or a terminal
// prompt; it has no flag and no JSON key.
type Config struct {
	ListenAddr       string
	GRPCAddr         string
	PublicURL        string
	ThresholdDays    int
	WatchdogInterval time.Duration
	CheckinSchedule  string

	SMTPHost       string
	SMTPPort       int
	SMTPTimeout    time.Duration
	SenderPassword string

	LogFile  string
	LogLevel string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates Config with the built-in defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "0.0.0.0:6969"
	c.GRPCAddr = ":50051"
	c.PublicURL = "http://localhost:6969"
	c.ThresholdDays = 7
	c.WatchdogInterval = time.Hour
	c.CheckinSchedule = "0 8 * * *"
	c.SMTPHost = "smtp.gmail.com"
	c.SMTPPort = 587
	c.SMTPTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// the environment (read through lookup), then flags, and validates the result.
// args are the command-line arguments without the program name.
func LoadConfig(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting. The password is checked
// separately by ResolvePassword since it may still be prompted for.
func (c *Config) Validate() error {
	switch {
	case c.ThresholdDays < 1:
		return invalid("activation threshold must be at least 1 day, got %d", c.ThresholdDays)
	case c.WatchdogInterval <= 0:
		return invalid("watchdog interval must be positive, got %s", c.WatchdogInterval)
	case c.ListenAddr == "":
		return invalid("listen address is empty")
	case c.SMTPHost == "":
		return invalid("smtp host is empty")
	case c.SMTPPort < 1 || c.SMTPPort > 65535:
		return invalid("smtp port %d out of range", c.SMTPPort)
	case c.SMTPTimeout <= 0:
		return invalid("smtp timeout must be positive, got %s", c.SMTPTimeout)
	case c.CheckinSchedule == "":
		return invalid("check-in schedule is empty")
	}

	u, err := url.Parse(c.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("public url %q must be an absolute http(s) url", c.PublicURL)
	}
	return nil
}

// PositionalArgs returns the non-flag arguments: payload, sender and
// recipients, in that order.
func PositionalArgs(args []string) []string {
	return flagx.PositionalArgs(args, valueFlags)
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidConfig, fmt.Sprintf(format, a...))
}
