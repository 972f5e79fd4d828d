package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return newLogger(&Config{Level: level, Format: FormatJSON}, "transcriber", buf)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a JSON line %q: %v", buf.String(), err)
	}
	return line
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "debug").WithComponent("reaper").Info("swept", Fields("deleted", 2))

	line := decode(t, &buf)
	want := map[string]any{
		"message":      "swept",
		"level":        "info",
		FieldComponent: "reaper",
		"service":      "transcriber",
		"deleted":      float64(2),
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		logs  bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
		{"nonsense", false},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		l := jsonLogger(&buf, tc.level)
		l.Debug("probe")
		if got := buf.Len() > 0; got != tc.logs {
			t.Errorf("level %q: debug written = %v, want %v", tc.level, got, tc.logs)
		}
		if l.DebugEnabled() != tc.logs {
			t.Errorf("level %q: DebugEnabled() = %v", tc.level, l.DebugEnabled())
		}
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "transcriber", &buf)
	l.WithComponent("reaper").Warn("sweep failed", Fields(FieldRunID, "r1"))

	out := buf.String()
	for _, want := range []string{"WRN", "reaper", "sweep failed", "run_id=r1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "service=") {
		t.Errorf("service should not be repeated on console lines: %q", out)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-42")
	jsonLogger(&buf, "info").WithContext(ctx).With(Fields(FieldRunID, "r1")).Error("failed", ErrorFields("save", errors.New("disk full")))

	line := decode(t, &buf)
	if line[FieldRequestID] != "req-42" || line[FieldRunID] != "r1" || line[FieldError] != "disk full" {
		t.Errorf("line = %v", line)
	}
	if _, ok := line[FieldTraceID]; ok {
		t.Error("trace id without an active span")
	}

	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	if l.DebugEnabled() {
		t.Error("nop logger reports debug")
	}
	l.Info("dropped")
	l.WithComponent("x").With(Fields("a", 1)).Error("dropped")
}

func TestGlobalLogger(t *testing.T) {
	t.Cleanup(func() { SetGlobalLogger(nil) })

	SetGlobalLogger(nil)
	first := GetGlobalLogger()
	if first == nil || GetGlobalLogger() != first {
		t.Fatal("default global logger should be created once")
	}

	custom := NewNop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("SetGlobalLogger ignored")
	}

	cfg := &Config{Format: FormatJSON, Output: "stderr"}
	Init(cfg, "transcriber")
	if GetGlobalLogger() == custom {
		t.Error("Init did not replace the global logger")
	}
	if cfg.Level != "info" || !cfg.Timestamp {
		t.Errorf("Init should apply defaults, got %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"json debug", Config{Level: "debug", Format: FormatJSON}, ""},
		{"pretty to stderr", Config{Level: "warn", Format: FormatPretty, Output: "stderr"}, ""},
		{"bad level", Config{Level: "loud", Format: FormatJSON}, "logging.level"},
		{"empty level", Config{Format: FormatJSON}, "logging.level"},
		{"bad format", Config{Level: "info", Format: "xml"}, "logging.format"},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "syslog"}, "logging.output"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tc.wantErr)
			}
		})
	}

	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults: %v", err)
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, 7, "seven", "dangling")
	if len(f) != 2 || f["a"] != 1 || f["7"] != "seven" {
		t.Errorf("Fields = %v", f)
	}
	if df := DurationFields("sweep", 1500*time.Millisecond); df[FieldDuration] != int64(1500) || df[FieldOperation] != "sweep" {
		t.Errorf("DurationFields = %v", df)
	}
}
