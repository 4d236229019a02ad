package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/flagx"
	"github.com/dmitrijs2005/deadswitch/internal/timex"
	"gopkg.in/yaml.v3"
)

// JsonConfig is the on-disk shape of the optional config file, JSON or YAML
// by extension. Durations accept both "1h" strings and integer nanoseconds.
// Absent keys leave the current value untouched.
type JsonConfig struct {
	ListenAddr       *string         `json:"listen_addr" yaml:"listen_addr"`
	GRPCAddr         *string         `json:"grpc_addr" yaml:"grpc_addr"`
	PublicURL        *string         `json:"public_url" yaml:"public_url"`
	ThresholdDays    *int            `json:"activation_threshold_days" yaml:"activation_threshold_days"`
	WatchdogInterval *timex.Duration `json:"watchdog_interval" yaml:"watchdog_interval"`
	CheckinSchedule  *string         `json:"checkin_schedule" yaml:"checkin_schedule"`
	SMTPHost         *string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort         *int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPTimeout      *timex.Duration `json:"smtp_timeout" yaml:"smtp_timeout"`
	LogFile          *string         `json:"log_file" yaml:"log_file"`
	LogLevel         *string         `json:"log_level" yaml:"log_level"`
	S3Region         *string         `json:"s3_region" yaml:"s3_region"`
	S3Endpoint       *string         `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey      *string         `json:"s3_user" yaml:"s3_user"`
	S3SecretKey      *string         `json:"s3_password" yaml:"s3_password"`
}

// parseJson overlays values from the file named by -c or -config. Files
// ending in .yaml or .yml are read as YAML. Without either flag it does
// nothing.
func parseJson(config *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file: %w", common.ErrInvalidConfig, err)
	}

	c := &JsonConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, c)
	default:
		err = json.Unmarshal(file, c)
	}
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", common.ErrInvalidConfig, path, err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.PublicURL, c.PublicURL)
	setString(&config.CheckinSchedule, c.CheckinSchedule)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)

	if c.ThresholdDays != nil {
		config.ThresholdDays = *c.ThresholdDays
	}
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	if c.WatchdogInterval != nil {
		config.WatchdogInterval = c.WatchdogInterval.Duration
	}
	if c.SMTPTimeout != nil {
		config.SMTPTimeout = c.SMTPTimeout.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
