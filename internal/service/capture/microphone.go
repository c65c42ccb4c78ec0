package capture

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

// DefaultMaxDuration caps one recording when the user never presses stop.
const DefaultMaxDuration = 15 * time.Second

// Transcriber turns PCM (s16le, mono) into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang language.Tag) (string, error)
}

// Microphone records through ffmpeg and transcribes on stop.
type Microphone struct {
	recorder    RecorderConfig
	transcriber Transcriber
	maxDuration time.Duration
	available   bool
}

var _ Capability = (*Microphone)(nil)

// NewMicrophone probes the ffmpeg binary once.
func NewMicrophone(recorder RecorderConfig, transcriber Transcriber, maxDuration time.Duration) *Microphone {
	recorder = recorder.withDefaults()
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}

	available := transcriber != nil
	if available {
		if _, err := exec.LookPath(recorder.Command); err != nil {
			log.Printf("[capture] %s not found, capture disabled: %v", recorder.Command, err)
			available = false
		}
	}

	return &Microphone{
		recorder:    recorder,
		transcriber: transcriber,
		maxDuration: maxDuration,
		available:   available,
	}
}

func (m *Microphone) Available() bool {
	return m.available
}

// Start launches ffmpeg. A device that cannot be opened yields a session
// carrying only the error event.
func (m *Microphone) Start(ctx context.Context, lang language.Tag) (Session, error) {
	if !m.available {
		return nil, ErrCaptureUnsupported
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rec, err := startRecording(sessionCtx, m.recorder)
	if err != nil {
		cancel()
		var early *earlyExitError
		if errors.As(err, &early) {
			log.Printf("[capture] %v", err)
			return failedSession(classifyDeviceError(early.stderr)), nil
		}
		return nil, err
	}

	s := &micSession{
		ctx:         sessionCtx,
		cancel:      cancel,
		rec:         rec,
		transcriber: m.transcriber,
		sampleRate:  m.recorder.SampleRate,
		lang:        lang,
		events:      make(chan Event, 2),
		done:        make(chan struct{}),
	}
	go s.watchExit()
	go s.watchdog(m.maxDuration)

	log.Printf("[capture] recording started (%s)", lang.Locale())
	return s, nil
}

type micSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	rec         *recording
	transcriber Transcriber
	sampleRate  int
	lang        language.Tag

	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *micSession) Events() <-chan Event { return s.events }

func (s *micSession) Stop() { s.finish(false) }

func (s *micSession) Abort() { s.finish(true) }

// watchExit ends the session when ffmpeg quits on its own, e.g. the device
// disappears mid-recording. That is treated the same way as Stop.
func (s *micSession) watchExit() {
	select {
	case <-s.rec.Exited():
		s.finish(false)
	case <-s.done:
	}
}

func (s *micSession) watchdog(limit time.Duration) {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-timer.C:
		log.Printf("[capture] recording reached %s, stopping", limit)
		s.Stop()
	case <-s.done:
	}
}

func (s *micSession) finish(discard bool) {
	s.once.Do(func() {
		go s.complete(discard)
	})
}

func (s *micSession) complete(discard bool) {
	defer close(s.events)
	defer close(s.done)
	defer s.cancel()

	stopErr := s.rec.stop()
	pcm := s.rec.PCM()

	if discard {
		s.events <- Event{Kind: EventEnd}
		return
	}

	if len(pcm) == 0 {
		code := ErrorNoSpeech
		if stopErr != nil {
			code = classifyDeviceError(stopErr.Error() + " " + s.rec.Diagnostics())
		}
		s.events <- Event{Kind: EventError, Code: code}
		s.events <- Event{Kind: EventEnd}
		return
	}

	text, err := s.transcriber.Transcribe(s.ctx, pcm, s.sampleRate, s.lang)
	switch {
	case err != nil:
		log.Printf("[capture] transcribe %d bytes failed: %v", len(pcm), err)
		s.events <- Event{Kind: EventError, Code: ErrorNetwork}
	case strings.TrimSpace(text) == "":
		s.events <- Event{Kind: EventError, Code: ErrorNoSpeech}
	default:
		s.events <- Event{Kind: EventResult, Text: strings.TrimSpace(text)}
	}
	s.events <- Event{Kind: EventEnd}
}

// failedSession reports a device failure without ever listening.
func failedSession(code ErrorCode) Session {
	events := make(chan Event, 2)
	events <- Event{Kind: EventError, Code: code}
	events <- Event{Kind: EventEnd}
	close(events)
	return closedSession{events: events}
}

type closedSession struct {
	events chan Event
}

func (s closedSession) Events() <-chan Event { return s.events }

func (closedSession) Stop() {}

func (closedSession) Abort() {}
