package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/flagx"
)

// valueFlags lists every flag that takes a value, including the config file
// flags consumed by parseJson.
var valueFlags = []string{"-c", "-config", "-a", "-g", "-u", "-t", "-w", "-k", "-s", "-p", "-l", "-v"}

// parseFlags overlays values from command-line flags:
//
//	-a string     HTTP listen address
//	-g string     gRPC health listen address, empty disables
//	-u string     public base URL used in check-in links
//	-t int        activation threshold in days
//	-w duration   watchdog interval
//	-k string     check-in cron schedule
//	-s string     SMTP host
//	-p int        SMTP port
//	-l string     log file, empty means stdout
//	-v string     log level
func parseFlags(config *Config, args []string) error {
	fs := newFlagSet(config, io.Discard)
	if err := fs.Parse(flagx.FilterArgs(args, valueFlags[2:])); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

func newFlagSet(config *Config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("deadswitch", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.String("c", "", "path to JSON config file")
	fs.String("config", "", "path to JSON config file")
	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health listen address, empty disables")
	fs.StringVar(&config.PublicURL, "u", config.PublicURL, "public base URL used in check-in links")
	fs.IntVar(&config.ThresholdDays, "t", config.ThresholdDays, "activation threshold in days")
	fs.DurationVar(&config.WatchdogInterval, "w", config.WatchdogInterval, "watchdog interval")
	fs.StringVar(&config.CheckinSchedule, "k", config.CheckinSchedule, "check-in cron schedule")
	fs.StringVar(&config.SMTPHost, "s", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file, empty means stdout")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level: debug, info, warn, error")

	return fs
}

// PrintDefaults writes the flag reference with built-in defaults to w.
func PrintDefaults(w io.Writer) {
	c := &Config{}
	c.LoadDefaults()
	newFlagSet(c, w).PrintDefaults()
}
