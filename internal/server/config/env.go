package config

import (
	"fmt"
	"strconv"
	"time"
)

// Environment variable names.
const (
	EnvSenderPassword   = "RS_SENDER_EMAIL_PASSWORD"
	EnvThreshold        = "RS_ACTIVATION_THRESHOLD"
	EnvListenAddr       = "RS_LISTEN_ADDR"
	EnvGRPCAddr         = "RS_GRPC_ADDR"
	EnvPublicURL        = "RS_PUBLIC_URL"
	EnvSMTPHost         = "RS_SMTP_HOST"
	EnvSMTPPort         = "RS_SMTP_PORT"
	EnvSMTPTimeout      = "RS_SMTP_TIMEOUT"
	EnvCheckinSchedule  = "RS_CHECKIN_SCHEDULE"
	EnvWatchdogInterval = "RS_WATCHDOG_INTERVAL"
	EnvLogFile          = "RS_LOG_FILE"
	EnvLogLevel         = "RS_LOG_LEVEL"
	EnvS3Region         = "RS_S3_REGION"
	EnvS3Endpoint       = "RS_S3_ENDPOINT"
	EnvS3User           = "RS_S3_USER"
	EnvS3Password       = "RS_S3_PASSWORD"
)

// parseEnv overlays values from the environment. A variable that is set,
// even to an empty string, overrides the current value; RS_GRPC_ADDR=""
// disables the gRPC listener this way.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	strs := map[string]*string{
		EnvSenderPassword:  &config.SenderPassword,
		EnvListenAddr:      &config.ListenAddr,
		EnvGRPCAddr:        &config.GRPCAddr,
		EnvPublicURL:       &config.PublicURL,
		EnvSMTPHost:        &config.SMTPHost,
		EnvCheckinSchedule: &config.CheckinSchedule,
		EnvLogFile:         &config.LogFile,
		EnvLogLevel:        &config.LogLevel,
		EnvS3Region:        &config.S3Region,
		EnvS3Endpoint:      &config.S3Endpoint,
		EnvS3User:          &config.S3AccessKey,
		EnvS3Password:      &config.S3SecretKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvThreshold, &config.ThresholdDays},
		{EnvSMTPPort, &config.SMTPPort},
	}
	for _, e := range ints {
		v, ok := lookup(e.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("%s=%q is not an integer", e.name, v)
		}
		*e.dst = n
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{EnvWatchdogInterval, &config.WatchdogInterval},
		{EnvSMTPTimeout, &config.SMTPTimeout},
	}
	for _, e := range durations {
		v, ok := lookup(e.name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return invalid("%s=%q: %s", e.name, v, fmt.Sprint(err))
		}
		*e.dst = d
	}

	return nil
}
