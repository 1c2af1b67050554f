package vfsarchive

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSplitLevelHandlerRoutesBySeverity(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	h := &splitLevelHandler{
		stdout: slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		stderr: slog.NewJSONHandler(&errOut, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h)

	logger.Info("archive mounted", "name", "app.war")
	logger.Warn("nested mount failed", "name", "util.jar")
	logger.Error("backing store unreadable", "name", "app.war")

	if !strings.Contains(out.String(), "archive mounted") {
		t.Fatalf("stdout missing info record: %q", out.String())
	}
	if !strings.Contains(out.String(), "nested mount failed") {
		t.Fatalf("stdout missing warn record: %q", out.String())
	}
	if strings.Contains(out.String(), "backing store unreadable") {
		t.Fatalf("stdout unexpectedly contains an error record: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "backing store unreadable") {
		t.Fatalf("stderr missing error record: %q", errOut.String())
	}
	if strings.Contains(errOut.String(), "archive mounted") {
		t.Fatalf("stderr unexpectedly contains an info record: %q", errOut.String())
	}
}

func TestSplitLevelHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := &splitLevelHandler{
		stdout: slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
		stderr: slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}),
	}

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Enabled(Debug) = true, want false (stdout handler configured at Info)")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Enabled(Info) = false, want true")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("Enabled(Error) = false, want true")
	}
}

func TestSplitLevelHandlerWithAttrsPropagatesToBothSides(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	h := &splitLevelHandler{
		stdout: slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		stderr: slog.NewJSONHandler(&errOut, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("component", "vfsarchive")

	logger.Info("hello")
	logger.Error("boom")

	if !strings.Contains(out.String(), `"component":"vfsarchive"`) {
		t.Fatalf("stdout record missing propagated attr: %q", out.String())
	}
	if !strings.Contains(errOut.String(), `"component":"vfsarchive"`) {
		t.Fatalf("stderr record missing propagated attr: %q", errOut.String())
	}
}

func TestNewLoggerDebugFlagRaisesStdoutLevel(t *testing.T) {
	t.Parallel()

	quiet := NewLogger(LoggerOptions{Debug: false})
	verbose := NewLogger(LoggerOptions{Debug: true})

	if quiet.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("default logger Enabled(Debug) = true, want false")
	}
	if !verbose.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug logger Enabled(Debug) = false, want true")
	}
}
