package logx

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestFormatFieldsOrder(t *testing.T) {
	out := formatFields(map[string]any{
		"error_code": "not_found",
		"type":       "people",
		"errors":     1,
		"request_id": "req_1",
		"empty":      " ",
		"ratio":      0.25,
	})
	want := "ratio=0.25 request_id=req_1 type=people errors=1 error_code=not_found"
	if out != want {
		t.Fatalf("unexpected fields: got %q want %q", out, want)
	}
}

func TestFormatRequestLineWithColor(t *testing.T) {
	ts := time.Date(2026, 1, 26, 17, 44, 22, 0, time.UTC)
	line := FormatRequestLineWithColor(ts, 404, 1500*time.Microsecond, " 127.0.0.1 ", "GET", "/people/7", map[string]any{"type": "people"}, false)
	want := `[ORA] 2026/01/26 - 17:44:22 | 404 | 1.5ms | 127.0.0.1 | GET "/people/7" | type=people`
	if line != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", line, want)
	}
	colored := FormatRequestLineWithColor(ts, 500, time.Millisecond, "", "GET", "/", nil, true)
	if !strings.Contains(colored, "\x1b[31m500\x1b[0m") {
		t.Fatalf("expected red status, got %q", colored)
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	defer SetLevel(LevelInfo)

	l, err := ParseLevel("WARN")
	if err != nil || l != LevelWarn {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	SetLevel(l)
	Infof("hidden")
	Warnf("shown %d", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "warn: shown 1") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}
