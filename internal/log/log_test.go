package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	defer Init("info", nil)

	var buf bytes.Buffer
	Init("warn", &buf)
	Info("hidden")
	Warn("shown", "step", "keyframe")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "keyframe") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	defer Init("info", nil)

	var buf bytes.Buffer
	Init("chatty", &buf)
	Debug("hidden")
	Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != Logger() {
		t.Error("expected process logger for empty context")
	}
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := IntoContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected logger from context")
	}
}
