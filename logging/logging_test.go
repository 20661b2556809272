package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)
	logger.SetLevel(DebugLevel)

	logger.Debug("debug message")
	logger.Info("info message", Fields{"cues": 3})
	logger.Warn("warn message")
	logger.Error(errors.New("boom"), "error message")

	out := stdout.String()
	if !strings.Contains(out, "[DEBUG] debug message") {
		t.Fatalf("expected debug line on stdout, got %q", out)
	}
	if !strings.Contains(out, "[INFO] info message cues=3") {
		t.Fatalf("expected info line with fields on stdout, got %q", out)
	}

	errOut := stderr.String()
	if !strings.Contains(errOut, "[WARN] warn message") {
		t.Fatalf("expected warn line on stderr, got %q", errOut)
	}
	if !strings.Contains(errOut, "[ERROR] error message: boom") {
		t.Fatalf("expected error line on stderr, got %q", errOut)
	}
}

func TestDefaultLoggerFiltersBelowLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	if stdout.Len() != 0 {
		t.Fatalf("expected no output below level, got %q", stdout.String())
	}
}

func TestWithFieldsAndContext(t *testing.T) {
	var stdout, stderr bytes.Buffer
	base := NewWriterLogger(&stdout, &stderr)

	ctx := ContextWithFields(context.Background(), Fields{"run_id": "abc"})
	ctx = ContextWithFields(ctx, Fields{"stage": "resolve"})

	base.WithFields(Fields{"component": "cue_resolver"}).WithContext(ctx).Info("resolved")

	line := stdout.String()
	for _, want := range []string{"component=cue_resolver", "run_id=abc", "stage=resolve"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"unknown": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
