package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMulti_Broadcast(t *testing.T) {
	var a, b []Event
	m := Multi{
		Func(func(e Event) { a = append(a, e) }),
		nil,
		Func(func(e Event) { b = append(b, e) }),
	}
	Infof(m, "http://h/", "connect to %s", "h:80")

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("got %d and %d events, want 1 each", len(a), len(b))
	}
	if a[0].Message != "connect to h:80" || a[0].Level != Info || a[0].URL != "http://h/" {
		t.Errorf("unexpected event %+v", a[0])
	}
}

func TestNilObserver(t *testing.T) {
	// Must not panic.
	Infof(nil, "", "hello")
	Errorf(nil, "", errors.New("x"), "boom")
	var m Multi
	m.Observe(Event{})
}

func TestZerolog(t *testing.T) {
	var buf bytes.Buffer
	obs := Zerolog(zerolog.New(&buf))
	Errorf(obs, "http://h/", errors.New("refused"), "unable to connect")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if rec["level"] != "error" {
		t.Errorf("level = %v, want error", rec["level"])
	}
	if rec["url"] != "http://h/" {
		t.Errorf("url = %v", rec["url"])
	}
	if rec["error"] != "refused" {
		t.Errorf("error = %v", rec["error"])
	}
	if !strings.Contains(buf.String(), "unable to connect") {
		t.Errorf("message missing from %q", buf.String())
	}

	buf.Reset()
	obs.Observe(Event{Level: Info, Message: "status", Status: 302})
	if !strings.Contains(buf.String(), `"status":302`) || !strings.Contains(buf.String(), `"level":"info"`) {
		t.Errorf("unexpected info record %q", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	if Info.String() != "INFO" || Error.String() != "ERROR" || Level(9).String() != "UNKNOWN" {
		t.Error("unexpected level names")
	}
}
