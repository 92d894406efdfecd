// Package event carries informational and error notifications out of the
// fetch pipeline. Core packages never format or persist log lines; they
// hand Events to an Observer supplied by the caller.
package event

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Level is an event's severity.
type Level int

const (
	Info Level = iota
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is a single notification. URL, Status and Err are optional.
type Event struct {
	Level   Level
	Message string
	URL     string
	Status  int
	Err     error
}

// Observer receives events. Implementations must not block for long and
// must be safe for concurrent use if the observer is shared between
// concurrent fetches.
type Observer interface {
	Observe(Event)
}

// Func adapts a plain function to Observer.
type Func func(Event)

func (f Func) Observe(e Event) { f(e) }

// Nop discards all events.
type Nop struct{}

func (Nop) Observe(Event) {}

// Multi broadcasts each event to every observer in order. A nil or empty
// Multi is valid and discards events.
type Multi []Observer

func (m Multi) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Or returns o, or Nop if o is nil.
func Or(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Infof emits an informational event built from a format string.
func Infof(o Observer, url, format string, args ...any) {
	Or(o).Observe(Event{Level: Info, URL: url, Message: fmt.Sprintf(format, args...)})
}

// Errorf emits an error event carrying err.
func Errorf(o Observer, url string, err error, format string, args ...any) {
	Or(o).Observe(Event{Level: Error, URL: url, Err: err, Message: fmt.Sprintf(format, args...)})
}

type zerologObserver struct {
	log zerolog.Logger
}

// Zerolog returns an Observer that writes events to log.
func Zerolog(log zerolog.Logger) Observer {
	return zerologObserver{log: log}
}

func (z zerologObserver) Observe(e Event) {
	var ev *zerolog.Event
	if e.Level == Error {
		ev = z.log.Error()
	} else {
		ev = z.log.Info()
	}
	if e.URL != "" {
		ev = ev.Str("url", e.URL)
	}
	if e.Status != 0 {
		ev = ev.Int("status", e.Status)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Message)
}
