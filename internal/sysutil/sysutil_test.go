package sysutil

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func restoreLogging(t *testing.T) {
	t.Helper()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	prevCtx := zerolog.DefaultContextLogger
	prevFmt := zerolog.TimeFieldFormat
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		zerolog.DefaultContextLogger = prevCtx
		zerolog.TimeFieldFormat = prevFmt
	})
}

func TestConfigureLogger_JSON(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	ConfigureLogger("warn", false, &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("contact_id", "7").Msg("mail notify failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want 1 line at warn level, got %d: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if m["level"] != "warn" || m["contact_id"] != "7" || m["time"] == nil {
		t.Fatalf("unexpected fields: %v", m)
	}
}

func TestConfigureLogger_ContextFallback(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	ConfigureLogger("info", false, &buf)

	log.Ctx(context.Background()).Info().Msg("from job")
	if !strings.Contains(buf.String(), "from job") {
		t.Fatalf("log.Ctx without a logger should fall back to the global one, got %q", buf.String())
	}
}

func TestConfigureLogger_Pretty(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	ConfigureLogger("debug", true, &buf)

	log.Debug().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got %q", out)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(empties) = %q; want \"\"", got)
	}
	if got := FirstNonEmpty("   ", "  owner@example.com  ", "x@example.com"); got != "  owner@example.com  " {
		t.Fatalf("FirstNonEmpty(...) = %q", got)
	}
}
