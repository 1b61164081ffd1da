package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetTimestamps(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestVerboseLevels(t *testing.T) {
	buf := capture(t, true)

	Debug("fetching %s", "https://example.nl/vacatures/")
	Info("queued %d urls", 12)
	Warn("skipping %s", "/privacy/")
	Section("Crawl batch")

	assert.Equal(t,
		"[DEBUG] fetching https://example.nl/vacatures/\n"+
			"[INFO] queued 12 urls\n"+
			"[WARN] skipping /privacy/\n"+
			"\n=== Crawl batch ===\n",
		buf.String())
}

func TestQuietMode(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")
	assert.Empty(t, buf.String())

	Error("embedding failed: %v", "timeout")
	assert.Equal(t, "[ERROR] embedding failed: timeout\n", buf.String())
}

func TestTimestamps(t *testing.T) {
	buf := capture(t, true)
	now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	SetTimestamps(true)

	Info("batch done")

	assert.Equal(t, "2025-03-01T08:30:00Z [INFO] batch done\n", buf.String())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}
