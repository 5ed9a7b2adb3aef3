package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFiltersByLevelAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "leavebot-api", "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"service":"leavebot-api"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "leavebotctl", "", "text").Info("imported", "files", 3)
	if !strings.Contains(buf.String(), "msg=imported service=leavebotctl files=3") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}
