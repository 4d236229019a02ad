package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "0.0.0.0:6969", c.ListenAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, "http://localhost:6969", c.PublicURL)
	assert.Equal(t, 7, c.ThresholdDays)
	assert.Equal(t, time.Hour, c.WatchdogInterval)
	assert.Equal(t, "0 8 * * *", c.CheckinSchedule)
	assert.Equal(t, "smtp.gmail.com", c.SMTPHost)
	assert.Equal(t, 587, c.SMTPPort)
	assert.Equal(t, 30*time.Second, c.SMTPTimeout)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Empty(t, c.SenderPassword)
	assert.Empty(t, c.LogFile)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_Layering(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"listen_addr":               "127.0.0.1:7000",
		"activation_threshold_days": 3,
		"watchdog_interval":         "10m",
		"smtp_host":                 "json.example.com",
		"smtp_timeout":              5000000000,
	})

	args := []string{"-c", path, "-t", "5", "secret.txt", "me@example.com", "a@example.com"}
	vars := env(map[string]string{
		EnvSenderPassword: "hunter2",
		EnvThreshold:      "4",
		EnvSMTPHost:       "env.example.com",
		EnvGRPCAddr:       "",
	})

	cfg, err := LoadConfig(args, vars)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr, "json over default")
	assert.Equal(t, 10*time.Minute, cfg.WatchdogInterval)
	assert.Equal(t, 5*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, "env.example.com", cfg.SMTPHost, "env over json")
	assert.Equal(t, 5, cfg.ThresholdDays, "flag over env")
	assert.Empty(t, cfg.GRPCAddr, "empty env value disables grpc")
	assert.Equal(t, "hunter2", cfg.SenderPassword)
	assert.Equal(t, 587, cfg.SMTPPort, "default kept")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "non-integer threshold env", env: map[string]string{EnvThreshold: "seven"}},
		{name: "zero threshold env", env: map[string]string{EnvThreshold: "0"}},
		{name: "negative threshold flag", args: []string{"-t=-2"}},
		{name: "non-integer threshold flag", args: []string{"-t", "x"}},
		{name: "bad watchdog interval", env: map[string]string{EnvWatchdogInterval: "hourly"}},
		{name: "zero watchdog interval", args: []string{"-w", "0s"}},
		{name: "bad smtp port", env: map[string]string{EnvSMTPPort: "70000"}},
		{name: "relative public url", args: []string{"-u", "localhost:6969"}},
		{name: "missing config file", args: []string{"-config", "/does/not/exist.json"}},
		{name: "empty listen addr", env: map[string]string{EnvListenAddr: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args, env(tt.env))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestParseJson_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	cfg := &Config{}
	err := parseJson(cfg, []string{"-c", path})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestParseJson_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deadswitch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"activation_threshold_days: 14\nwatchdog_interval: 30m\ngrpc_addr: \"\"\npublic_url: https://switch.example.com\n",
	), 0o600))

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJson(cfg, []string{"-c", path}))

	assert.Equal(t, 14, cfg.ThresholdDays)
	assert.Equal(t, 30*time.Minute, cfg.WatchdogInterval)
	assert.Empty(t, cfg.GRPCAddr)
	assert.Equal(t, "https://switch.example.com", cfg.PublicURL)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestParseJson_AbsentKeysKeepValues(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"smtp_port": 2525})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJson(cfg, []string{"-config=" + path}))

	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 7, cfg.ThresholdDays)
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := []string{
		"secret.txt",
		"-a", "127.0.0.1:9090", "-g", ":6000", "-u", "https://switch.example.com",
		"-t", "2", "-w", "15m", "-k", "30 9 * * 1", "-s", "mail.example.com",
		"-p", "465", "-l", "/var/log/deadswitch.log", "-v", "debug",
		"me@example.com", "a@example.com",
	}
	require.NoError(t, parseFlags(cfg, args))

	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, ":6000", cfg.GRPCAddr)
	assert.Equal(t, "https://switch.example.com", cfg.PublicURL)
	assert.Equal(t, 2, cfg.ThresholdDays)
	assert.Equal(t, 15*time.Minute, cfg.WatchdogInterval)
	assert.Equal(t, "30 9 * * 1", cfg.CheckinSchedule)
	assert.Equal(t, "mail.example.com", cfg.SMTPHost)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, "/var/log/deadswitch.log", cfg.LogFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, env(map[string]string{
		EnvSMTPTimeout: "45s",
		EnvS3Region:    "eu-west-1",
		EnvS3Endpoint:  "http://127.0.0.1:9000",
		EnvS3User:      "minio",
		EnvS3Password:  "minio123",
		EnvLogFile:     "switch.log",
	}))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.S3Endpoint)
	assert.Equal(t, "minio", cfg.S3AccessKey)
	assert.Equal(t, "minio123", cfg.S3SecretKey)
	assert.Equal(t, "switch.log", cfg.LogFile)

	assert.NoError(t, parseEnv(cfg, nil))
}

func TestPositionalArgs(t *testing.T) {
	args := []string{"-c", "cfg.json", "-t", "3", "s3://bucket/secret.txt", "Me <me@example.com>", "-v", "debug", "a@example.com"}
	assert.Equal(t,
		[]string{"s3://bucket/secret.txt", "Me <me@example.com>", "a@example.com"},
		PositionalArgs(args))
}

func TestPrintDefaults(t *testing.T) {
	var sb strings.Builder
	PrintDefaults(&sb)
	out := sb.String()

	assert.Contains(t, out, "-t int")
	assert.Contains(t, out, "(default 7)")
	assert.Contains(t, out, "0.0.0.0:6969")
}
