package capture

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
)

// InputSink receives recognized text.
type InputSink interface {
	AppendInput(text string)
}

// Status is the observable controller state.
type Status struct {
	State           State        `json:"state"`
	Language        language.Tag `json:"language"`
	PendingLanguage language.Tag `json:"pendingLanguage,omitempty"`
	Available       bool         `json:"available"`
}

// Controller owns at most one recognition session and feeds every
// transition through Transition.
type Controller struct {
	capability Capability
	input      InputSink
	notifier   notification.Notifier
	events     events.Publisher

	mu        sync.Mutex
	state     State
	lang      language.Tag
	pending   language.Tag
	session   Session
	sessionID uint64
}

// NewController builds the capture controller.
func NewController(capability Capability, input InputSink, notifier notification.Notifier, publisher events.Publisher, lang language.Tag) *Controller {
	if capability == nil {
		capability = Unsupported{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if lang == "" {
		lang = language.Primary
	}
	return &Controller{
		capability: capability,
		input:      input,
		notifier:   notifier,
		events:     publisher,
		state:      StateIdle,
		lang:       lang,
	}
}

// Start begins listening. Starting while already listening does nothing.
func (c *Controller) Start(ctx context.Context) error {
	if !c.capability.Available() {
		c.notify(i18n.MsgUnsupportedTtl, i18n.MsgUnsupported)
		return ErrCaptureUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next, effects := Transition(c.state, Trigger{Input: InputStart})
	if !hasEffect(effects, EffectBeginSession) {
		return nil
	}

	if c.pending != "" {
		c.lang, c.pending = c.pending, ""
	}

	session, err := c.capability.Start(ctx, c.lang)
	if err != nil {
		log.Printf("[capture] start failed: %v", err)
		c.notify(i18n.MsgRecogErrTitle, i18n.MsgStartFailed)
		return fmt.Errorf("start capture: %w", err)
	}

	c.sessionID++
	c.session = session
	c.state = next
	go c.watch(c.sessionID, session)

	c.publishLocked()
	return nil
}

// Stop ends recording; the session's result is still applied when it lands.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(Trigger{Input: InputStop}, Event{})
}

// SetLanguage rebinds the recognition language. While listening the change
// is held until the next session.
func (c *Controller) SetLanguage(tag language.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, effects := Transition(c.state, Trigger{Input: InputLanguage})
	c.state = next
	for _, e := range effects {
		switch e {
		case EffectRebindLanguage:
			c.lang, c.pending = tag, ""
		case EffectHoldLanguage:
			c.pending = tag
		}
	}
	c.publishLocked()
}

// Language returns the language the next or current session uses.
func (c *Controller) Language() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Close aborts any session and discards its events.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(Trigger{Input: InputTeardown}, Event{})
	c.sessionID++
	c.session = nil
}

func (c *Controller) watch(id uint64, session Session) {
	for ev := range session.Events() {
		c.handle(id, ev)
	}
}

func (c *Controller) handle(id uint64, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var input Input
	switch ev.Kind {
	case EventResult:
		input = InputResult
	case EventError:
		input = InputError
	default:
		input = InputEnd
	}

	stale := id != c.sessionID
	if stale {
		log.Printf("[capture] dropping %s from superseded session %d", ev.Kind, id)
	}
	c.applyLocked(Trigger{Input: input, Stale: stale}, ev)
}

func (c *Controller) applyLocked(t Trigger, ev Event) {
	prev := c.state
	next, effects := Transition(c.state, t)
	c.state = next

	for _, e := range effects {
		switch e {
		case EffectEndSession:
			if c.session == nil {
				continue
			}
			if t.Input == InputTeardown {
				c.session.Abort()
			} else {
				c.session.Stop()
			}
		case EffectAppendInput:
			if c.input != nil {
				c.input.AppendInput(ev.Text)
			}
		case EffectNotify:
			c.notify(i18n.MsgRecogErrTitle, MessageFor(ev.Code))
		}
	}

	if prev != next || len(effects) > 0 {
		c.publishLocked()
	}
}

// MessageFor returns the message id shown for a recognition error code.
func MessageFor(code ErrorCode) string {
	switch code {
	case ErrorNoSpeech:
		return i18n.MsgNoSpeech
	case ErrorAudioCapture:
		return i18n.MsgAudioCapture
	case ErrorNotAllowed:
		return i18n.MsgNotAllowed
	default:
		return i18n.MsgRecogGeneric
	}
}

func (c *Controller) notify(titleID, descriptionID string) {
	if c.notifier == nil {
		return
	}
	ui := i18n.UI()
	c.notifier.Show(ui.T(titleID), ui.T(descriptionID), notification.KindError)
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:           c.state,
		Language:        c.lang,
		PendingLanguage: c.pending,
		Available:       c.capability.Available(),
	}
}

func (c *Controller) publishLocked() {
	c.events.Publish(events.CaptureState, c.statusLocked())
}

func hasEffect(effects []Effect, want Effect) bool {
	for _, e := range effects {
		if e == want {
			return true
		}
	}
	return false
}
