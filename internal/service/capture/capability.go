// Package capture turns microphone sessions into text appended to the
// conversation input.
package capture

import (
	"context"
	"errors"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

var ErrCaptureUnsupported = errors.New("speech capture is not supported on this host")

// ErrorCode classifies recognition failures.
type ErrorCode string

const (
	ErrorNoSpeech     ErrorCode = "no-speech"
	ErrorAudioCapture ErrorCode = "audio-capture"
	ErrorNotAllowed   ErrorCode = "not-allowed"
	ErrorNetwork      ErrorCode = "network"
	ErrorAborted      ErrorCode = "aborted"
)

// EventKind is the kind of terminal session event.
type EventKind string

const (
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// Event is delivered by a Session. Each session delivers at most one Result
// or Error, always followed by an End, after which the channel closes.
type Event struct {
	Kind EventKind
	Text string
	Code ErrorCode
}

// Session is one running recognition.
type Session interface {
	Events() <-chan Event
	// Stop ends recording and lets the session produce its result.
	Stop()
	// Abort ends recording and discards any result.
	Abort()
}

// Capability starts recognition sessions.
type Capability interface {
	Available() bool
	Start(ctx context.Context, lang language.Tag) (Session, error)
}

// Unsupported is selected when no capture device is configured.
type Unsupported struct{}

var _ Capability = Unsupported{}

func (Unsupported) Available() bool { return false }

func (Unsupported) Start(context.Context, language.Tag) (Session, error) {
	return nil, ErrCaptureUnsupported
}
