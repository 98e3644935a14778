package app

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandler_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)

	r := slog.NewRecord(time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC), slog.LevelInfo, "http.request", 0)
	r.AddAttrs(
		slog.String("method", "get"),
		slog.String("path", "/auth/login"),
		slog.Int("status", 200),
		slog.String("note", "two words"),
	)

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"lvl=[INFO]",
		"msg=http.request",
		"method=GET",
		"path=/auth/login",
		"status=200",
		`note="two words"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color disabled but output has ANSI escapes: %q", out)
	}
}

func TestPrettyHandler_GroupsFlatten(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	h := newPrettyHandler(&buf, nil, false)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "db.query", 0)
	r.AddAttrs(slog.Group("conn", slog.String("host", "localhost"), slog.Int("port", 5432)))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "conn.host=localhost") || !strings.Contains(out, "conn.port=5432") {
		t.Fatalf("group not flattened: %q", out)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := newPrettyHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestColorizeStatusCode(t *testing.T) {
	t.Parallel()

	if got := colorizeStatusCode(500, false); got != "500" {
		t.Fatalf("plain colorize: %q", got)
	}
	if got := colorizeStatusCode(500, true); !strings.Contains(got, ansiRed) {
		t.Fatalf("500 should be red: %q", got)
	}
	if got := colorizeStatusCode(201, true); !strings.Contains(got, ansiGreen) {
		t.Fatalf("201 should be green: %q", got)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "", want: `""`},
		{in: "two words", want: `"two words"`},
		{in: `a"b`, want: `"a\"b"`},
		{in: "k=v", want: `"k=v"`},
	}

	for _, tc := range cases {
		if got := quoteIfNeeded(tc.in); got != tc.want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
