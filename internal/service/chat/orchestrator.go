// Package chat owns the conversation: history, input buffer and the
// ask-translate-append pipeline.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
)

var (
	ErrEmptyInput = errors.New("question is empty")
	ErrBusy       = errors.New("a question is already being answered")
)

// State is the orchestrator lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateSubmitting  State = "submitting"
	StateTranslating State = "translating"
)

// Translator never fails; see translate.Chain.
type Translator interface {
	Translate(ctx context.Context, text string, source, target language.Tag) string
}

// activityTracker is implemented by translators that report when they run.
type activityTracker interface {
	Track(a translate.Activity)
}

// Outcome describes one accepted submission.
type Outcome struct {
	User   chat.Message `json:"user"`
	Bot    chat.Message `json:"bot"`
	Failed bool         `json:"failed"`
	Err    error        `json:"-"`
}

// Snapshot is the observable orchestrator state.
type Snapshot struct {
	State State  `json:"state"`
	Input string `json:"input"`
}

// Orchestrator accepts one submission at a time and appends exactly one user
// and one bot message for each.
type Orchestrator struct {
	mu          sync.Mutex
	state       State
	submitting  bool
	translating int
	input       string

	history    *History
	translator Translator
	answerer   answer.Answerer
	notifier   notification.Notifier
	events     events.Publisher
}

var _ translate.Activity = (*Orchestrator)(nil)

// NewOrchestrator wires the collaborators. When translator reports activity
// the orchestrator registers itself to observe it.
func NewOrchestrator(history *History, translator Translator, answerer answer.Answerer, notifier notification.Notifier, publisher events.Publisher) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	o := &Orchestrator{
		state:      StateIdle,
		history:    history,
		translator: translator,
		answerer:   answerer,
		notifier:   notifier,
		events:     publisher,
	}
	if tracker, ok := translator.(activityTracker); ok {
		tracker.Track(o)
	}
	return o
}

// History returns the conversation log.
func (o *Orchestrator) History() *History {
	return o.history
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns state and input together.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{State: o.state, Input: o.input}
}

// Input returns the input buffer.
func (o *Orchestrator) Input() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input
}

// SetInput replaces the input buffer.
func (o *Orchestrator) SetInput(text string) {
	o.mu.Lock()
	o.input = text
	o.mu.Unlock()
	o.events.Publish(events.InputChanged, text)
}

// AppendInput appends text, separated by a space when the buffer is not empty.
func (o *Orchestrator) AppendInput(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	o.mu.Lock()
	if o.input != "" {
		o.input += " "
	}
	o.input += text
	current := o.input
	o.mu.Unlock()
	o.events.Publish(events.InputChanged, current)
}

// SubmitInput submits the current input buffer.
func (o *Orchestrator) SubmitInput(ctx context.Context) (Outcome, error) {
	return o.Submit(ctx, o.Input())
}

// BeginTranslating is called by the translation chain.
func (o *Orchestrator) BeginTranslating() {
	o.mu.Lock()
	o.translating++
	o.state = StateTranslating
	o.mu.Unlock()
	o.publishState()
}

// EndTranslating is called by the translation chain on every exit path.
func (o *Orchestrator) EndTranslating() {
	o.mu.Lock()
	if o.translating > 0 {
		o.translating--
	}
	if o.translating == 0 {
		o.state = o.restingStateLocked()
	}
	o.mu.Unlock()
	o.publishState()
}

func (o *Orchestrator) restingStateLocked() State {
	if o.submitting {
		return StateSubmitting
	}
	return StateIdle
}

// Submit asks raw. It returns ErrEmptyInput or ErrBusy without touching any
// state when the submission is not accepted. An accepted submission always
// returns a nil error; answer failures are reported through Outcome.
func (o *Orchestrator) Submit(ctx context.Context, raw string) (out Outcome, err error) {
	if strings.TrimSpace(raw) == "" {
		return Outcome{}, ErrEmptyInput
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	o.submitting = true
	o.state = StateSubmitting
	o.mu.Unlock()
	o.publishState()
	defer o.finish()

	userLang := language.Detect(raw)
	target := userLang.Other()

	_, userMsg := o.history.Append(chat.Message{
		Role:     chat.RoleUser,
		Text:     raw,
		Language: userLang,
	})

	var translated string
	defer func() {
		if r := recover(); r != nil {
			out = o.fail(ctx, raw, userLang, translated, userMsg, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	translated = o.translator.Translate(ctx, raw, userLang, target)

	question := raw
	if !userLang.IsPrimary() {
		question = translated
	}

	resp, askErr := o.answerer.Ask(ctx, answer.Request{
		Question:         question,
		Language:         target,
		OriginalLanguage: userLang,
	})
	if askErr != nil {
		return o.fail(ctx, raw, userLang, translated, userMsg, askErr), nil
	}

	text := strings.TrimSpace(resp.Answer)
	if text == "" {
		text = i18n.For(language.Primary).T(i18n.MsgDefaultAnswer)
	}
	if target == language.Bengali && userLang == language.English {
		text = o.translator.Translate(ctx, text, language.English, language.Bengali)
	}

	_, botMsg := o.history.Append(chat.Message{
		Role:               chat.RoleBot,
		Text:               text,
		Language:           target,
		OriginalQuestion:   raw,
		TranslatedQuestion: translated,
		QuestionLanguage:   userLang,
	})

	log.Printf("[chat] answered %s question in %s (score=%.2f)", userLang, target, resp.Score)
	return Outcome{User: userMsg, Bot: botMsg}, nil
}

// fail appends the localized apology and raises the error notification.
func (o *Orchestrator) fail(ctx context.Context, raw string, userLang language.Tag, translated string, userMsg chat.Message, cause error) Outcome {
	target := userLang.Other()
	log.Printf("[chat] answer failed for %s question: %v", userLang, cause)

	if translated == "" {
		translated = o.translator.Translate(ctx, raw, userLang, target)
	}

	_, botMsg := o.history.Append(chat.Message{
		Role:               chat.RoleBot,
		Text:               i18n.For(target).T(i18n.MsgApology),
		Language:           target,
		OriginalQuestion:   raw,
		TranslatedQuestion: translated,
		QuestionLanguage:   userLang,
	})

	if o.notifier != nil {
		ui := i18n.UI()
		o.notifier.Show(ui.T(i18n.MsgErrorTitle), ui.T(i18n.MsgAnswerFailed), notification.KindError)
	}

	return Outcome{User: userMsg, Bot: botMsg, Failed: true, Err: cause}
}

// finish runs on every exit path of an accepted submission.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.submitting = false
	if o.translating == 0 {
		o.state = StateIdle
	}
	o.input = ""
	o.mu.Unlock()

	o.publishState()
	o.events.Publish(events.InputChanged, "")
}

func (o *Orchestrator) publishState() {
	o.events.Publish(events.ConversationState, o.Snapshot())
}
