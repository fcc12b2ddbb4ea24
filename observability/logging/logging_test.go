package logging

import (
	"log/slog"
	"testing"
	"time"
)

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for value, want := range cases {
		t.Setenv(levelEnv, value)
		if got := levelFromEnv(); got != want {
			t.Fatalf("level for %q = %v, want %v", value, got, want)
		}
	}
}

func TestRenameCoreAttrs(t *testing.T) {
	attr := renameCoreAttrs(nil, slog.String(slog.MessageKey, "hello"))
	if attr.Key != "message" {
		t.Fatalf("message key = %q, want %q", attr.Key, "message")
	}
	attr = renameCoreAttrs(nil, slog.Any(slog.LevelKey, slog.LevelWarn))
	if attr.Key != "severity" || attr.Value.String() != "WARN" {
		t.Fatalf("severity attr = %q=%q", attr.Key, attr.Value.String())
	}
	attr = renameCoreAttrs(nil, slog.Time(slog.TimeKey, time.Unix(1_700_000_000, 0)))
	if attr.Key != "timestamp" {
		t.Fatalf("time key = %q, want %q", attr.Key, "timestamp")
	}
	attr = renameCoreAttrs(nil, slog.String("module", "stake"))
	if attr.Key != "module" || attr.Value.String() != "stake" {
		t.Fatalf("passthrough attr mangled: %q=%q", attr.Key, attr.Value.String())
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("address", "0xabc"); got.Value.String() != RedactedValue {
		t.Fatalf("address not redacted: %q", got.Value.String())
	}
	if got := MaskField("module", "stake"); got.Value.String() != "stake" {
		t.Fatalf("allowlisted key redacted: %q", got.Value.String())
	}
	if got := MaskField("address", ""); got.Value.String() != "" {
		t.Fatalf("empty value rewritten: %q", got.Value.String())
	}
}
