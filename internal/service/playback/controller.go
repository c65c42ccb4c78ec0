// Package playback reads bot answers aloud, one message at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
)

var (
	ErrNoSuchMessage = errors.New("no such message")
	ErrEmptyText     = errors.New("message has no text to speak")
)

// Messages is the part of the conversation history playback needs.
type Messages interface {
	Get(index int) (chat.Message, error)
	SetSpeaking(index int) error
	ClearSpeaking(index int)
	ClearAllSpeaking()
}

// handle is one playback; cancel releases synthesis and the player.
type handle struct {
	index  int
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller owns at most one playback handle. Starting a new one cancels
// the previous handle first.
type Controller struct {
	messages Messages
	synth    Synthesizer
	player   Player
	notifier notification.Notifier

	mu      sync.Mutex
	current *handle
}

// NewController builds the controller. A nil player discards audio.
func NewController(messages Messages, synth Synthesizer, player Player, notifier notification.Notifier) *Controller {
	if player == nil {
		player = DiscardPlayer{}
	}
	return &Controller{
		messages: messages,
		synth:    synth,
		player:   player,
		notifier: notifier,
	}
}

// Speak marks index as speaking and starts synthesis and playback in the
// background. The request context only scopes validation; playback outlives it.
func (c *Controller) Speak(ctx context.Context, index int) error {
	msg, err := c.messages.Get(index)
	if err != nil {
		return fmt.Errorf("%w: index %d", ErrNoSuchMessage, index)
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ErrEmptyText
	}

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	if err := c.messages.SetSpeaking(index); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrNoSuchMessage, index)
	}
	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &handle{index: index, cancel: cancel, done: make(chan struct{})}
	c.current = h
	c.mu.Unlock()

	log.Printf("[playback] speaking message %d (%s)", index, msg.Language)
	go c.run(playCtx, h, text, msg)
	return nil
}

func (c *Controller) run(ctx context.Context, h *handle, text string, msg chat.Message) {
	defer close(h.done)
	defer h.cancel()

	audio, err := c.synth.Synthesize(ctx, text, msg.Language)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[playback] synthesis for message %d failed: %v", h.index, err)
		c.fail(h, synthesisDetail(err))
		return
	}

	if err := c.player.Play(ctx, audio); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		log.Printf("[playback] playing message %d failed: %v", h.index, err)
		c.fail(h, i18n.UI().T(i18n.MsgPlaybackFailed))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == h {
		c.current = nil
		c.messages.ClearSpeaking(h.index)
	}
}

// fail clears and notifies only while h is still the current handle.
func (c *Controller) fail(h *handle, detail string) {
	c.mu.Lock()
	if c.current != h {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.messages.ClearAllSpeaking()
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Show(i18n.UI().T(i18n.MsgSpeechErrTitle), detail, notification.KindError)
	}
}

func synthesisDetail(err error) string {
	var se *SynthesisError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return i18n.UI().T(i18n.MsgSynthesisFailed)
}

// Speaking reports the index of the message being read aloud.
func (c *Controller) Speaking() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0, false
	}
	return c.current.index, true
}

// Close cancels playback in progress and clears its speaking flag.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.current.cancel()
	c.messages.ClearSpeaking(c.current.index)
	c.current = nil
}
