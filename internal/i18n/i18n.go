// Package i18n provides the localized fixed strings the assistant shows:
// apologies, fallback answers and notification texts.
//
// Catalogs are gettext PO files embedded in the binary and read through
// gotext. Message ids are the English strings, so a missing translation
// falls back to English.
package i18n

import (
	"embed"
	"sync"

	"github.com/leonelquinteros/gotext"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

// Directory structure: locales/{lang}/LC_MESSAGES/assistant.po
//
//go:embed all:locales
var locales embed.FS

const domain = "assistant"

// Message ids used across the assistant.
const (
	MsgApology         = "I'm sorry, I couldn't process your question at the moment. Please try again later."
	MsgDefaultAnswer   = "I'm sorry, I couldn't process your question."
	MsgNotFound        = "Sorry, I couldn't find an answer to this question. Please try another."
	MsgErrorTitle      = "Error"
	MsgAnswerFailed    = "Failed to get response. Please try again."
	MsgSpeechErrTitle  = "Speech Error"
	MsgPlaybackFailed  = "Failed to play the synthesized audio."
	MsgSynthesisFailed = "Failed to fetch audio from the speech service."
	MsgRecogErrTitle   = "Speech Recognition Error"
	MsgNoSpeech        = "No speech detected. Please try again."
	MsgAudioCapture    = "Microphone not available. Check permissions."
	MsgNotAllowed      = "Permission to use microphone was denied."
	MsgRecogGeneric    = "An error occurred during speech recognition."
	MsgStartFailed     = "Failed to start voice recognition."
	MsgUnsupportedTtl  = "Unsupported Feature"
	MsgUnsupported     = "Speech recognition is not supported in your browser."
)

// Catalog translates message ids into one language.
type Catalog struct {
	tag    language.Tag
	locale *gotext.Locale
}

var (
	mu       sync.Mutex
	catalogs = map[language.Tag]*Catalog{}
	ui       = language.English
)

// For returns the catalog for tag, loading it on first use.
func For(tag language.Tag) *Catalog {
	mu.Lock()
	defer mu.Unlock()

	if c, ok := catalogs[tag]; ok {
		return c
	}

	l := gotext.NewLocaleFSWithPath(string(tag), locales, "locales")
	l.AddDomain(domain)
	l.SetDomain(domain)

	c := &Catalog{tag: tag, locale: l}
	catalogs[tag] = c
	return c
}

// SetUILanguage selects the language of notification texts.
func SetUILanguage(tag language.Tag) {
	mu.Lock()
	ui = tag
	mu.Unlock()
}

// UI returns the catalog of the interface language.
func UI() *Catalog {
	mu.Lock()
	tag := ui
	mu.Unlock()
	return For(tag)
}

// T translates msgid, returning it unchanged when no translation exists.
func (c *Catalog) T(msgid string) string {
	if c == nil || c.locale == nil {
		return msgid
	}
	if out := c.locale.Get(msgid); out != "" {
		return out
	}
	return msgid
}

// Language reports the catalog language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}
