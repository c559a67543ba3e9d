package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type captured struct {
	msg, cat string
	lvl      zerolog.Level
}

func TestFromSinkForwardsTriples(t *testing.T) {
	var got []captured
	l := FromSink(SinkFunc(func(m, c string, lvl zerolog.Level) {
		got = append(got, captured{m, c, lvl})
	}))
	l.Warn().Str(CategoryField, "resolver").Str("backend", "cpu").Int("n", 2).Msg("backend degraded")
	l.Info().Msg("plain")
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].cat != "resolver" || got[0].lvl != zerolog.WarnLevel {
		t.Fatalf("unexpected first line: %+v", got[0])
	}
	if got[0].msg != "backend degraded backend=cpu n=2" {
		t.Fatalf("msg=%q", got[0].msg)
	}
	if got[1].msg != "plain" || got[1].cat != "" || got[1].lvl != zerolog.InfoLevel {
		t.Fatalf("unexpected second line: %+v", got[1])
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "json", &buf)
	l.Info().Msg("hidden")
	l.Error().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{"debug": zerolog.DebugLevel, "WARN": zerolog.WarnLevel, "error": zerolog.ErrorLevel, "": zerolog.InfoLevel, "bogus": zerolog.InfoLevel} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
