package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewCommandID(t *testing.T) {
	a := NewCommandID()
	b := NewCommandID()
	if len(a) != 8 {
		t.Errorf("expected 8 chars, got %q", a)
	}
	if a == b {
		t.Errorf("expected distinct ids, got %s twice", a)
	}
}

func TestCommandIDContext(t *testing.T) {
	ctx := context.Background()
	if got := CommandIDFromContext(ctx); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	ctx = WithCommandID(ctx, "abc12345")
	if got := CommandIDFromContext(ctx); got != "abc12345" {
		t.Errorf("expected abc12345, got %q", got)
	}
}

func TestLogBodyTruncates(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(prev)

	LogBody(l, "response", []byte(strings.Repeat("x", 1500)))
	out := buf.String()
	if !strings.Contains(out, `"truncated":true`) {
		t.Errorf("expected truncated flag, got %s", out)
	}
	if strings.Count(out, "x") != 1000 {
		t.Errorf("expected 1000 body chars, got %d", strings.Count(out, "x"))
	}

	buf.Reset()
	LogBody(l, "response", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty body, got %s", buf.String())
	}
}
