package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestNewJSON_LevelsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "switch holding", "elapsed", "1h0m0s")
	log.Info(ctx, "heartbeat accepted", "request_id", "r1")
	log.Warn(ctx, "activation threshold reached", "threshold_days", 7)
	log.Error(ctx, "activation email failed", "recipient", "a@example.com")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 4)

	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "1h0m0s", recs[0]["elapsed"])
	assert.Equal(t, "INFO", recs[1]["level"])
	assert.Equal(t, "r1", recs[1]["request_id"])
	assert.Equal(t, "WARN", recs[2]["level"])
	assert.EqualValues(t, 7, recs[2]["threshold_days"])
	assert.Equal(t, "ERROR", recs[3]["level"])
	assert.Equal(t, "activation email failed", recs[3]["msg"])
}

func TestNewJSON_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, ParseLevel("warn"))
	ctx := context.Background()

	log.Debug(ctx, "tick")
	log.Info(ctx, "check-in sent")
	log.Warn(ctx, "fired")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "fired", recs[0]["msg"])
}

func TestWith_ChildKeepsParentUntouched(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSON(&buf, slog.LevelInfo)
	ctx := context.Background()

	child := root.With("module", "watchdog").With("activation_id", "abc")
	child.Info(ctx, "activation finished", "delivered", 2)
	root.Info(ctx, "App stopped")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "watchdog", recs[0]["module"])
	assert.Equal(t, "abc", recs[0]["activation_id"])
	assert.EqualValues(t, 2, recs[0]["delivered"])
	assert.NotContains(t, recs[1], "module")
}

func TestDiscard(t *testing.T) {
	log := Discard()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		log.Debug(ctx, "a")
		log.Info(ctx, "b")
		log.With("k", "v").Error(ctx, "c")
	})
}
