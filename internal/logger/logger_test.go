package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restore() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestDebugSuppressedByDefault(t *testing.T) {
	defer restore()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("processing %s", "item")
	Info("fetched %d pages", 3)

	assert.Empty(t, buf.String())
}

func TestVerboseEnablesDebugAndInfo(t *testing.T) {
	defer restore()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("processing %s", "item")
	Info("fetched %d pages", 3)

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] processing item")
	assert.Contains(t, out, "[INFO] fetched 3 pages")
	assert.True(t, IsVerbose())
}

func TestWarnAndErrorAlwaysPrint(t *testing.T) {
	defer restore()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("page %d skipped", 2)
	Error("upsert failed: %s", "locked")

	out := buf.String()
	assert.Contains(t, out, "[WARN] page 2 skipped")
	assert.Contains(t, out, "[ERROR] upsert failed: locked")
}
