// Package translate implements the ordered translation fallback chain:
// primary provider, secondary provider, medical dictionary, failure marker.
package translate

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

// Failure markers prefixed to the untranslated text.
const (
	MarkerUnavailable = "[Translation unavailable]"
	MarkerFailed      = "[Translation failed]"
	MarkerBengali     = "[অনুবাদ প্রয়োজন]"
)

// DefaultProviderTimeout bounds each provider call.
const DefaultProviderTimeout = 10 * time.Second

// Activity is notified around every chain run. EndTranslating is always
// called, including when a provider panics.
type Activity interface {
	BeginTranslating()
	EndTranslating()
}

type nopActivity struct{}

func (nopActivity) BeginTranslating() {}
func (nopActivity) EndTranslating()   {}

// Chain never fails: every call yields some non-empty string.
type Chain struct {
	primary    Provider
	secondary  Provider
	dictionary *Dictionary
	timeout    time.Duration

	mu       sync.RWMutex
	activity Activity
}

// Option configures a Chain.
type Option func(*Chain)

// WithDictionary replaces the built-in medical dictionary.
func WithDictionary(d *Dictionary) Option {
	return func(c *Chain) { c.dictionary = d }
}

// WithProviderTimeout bounds each provider call; zero keeps the default.
func WithProviderTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChain builds the chain. Either provider may be nil to skip its tier.
func NewChain(primary, secondary Provider, opts ...Option) *Chain {
	c := &Chain{
		primary:    primary,
		secondary:  secondary,
		dictionary: MedicalDictionary(),
		timeout:    DefaultProviderTimeout,
		activity:   nopActivity{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Track sets the activity observer; nil restores the no-op observer.
func (c *Chain) Track(a Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil {
		a = nopActivity{}
	}
	c.activity = a
}

func (c *Chain) currentActivity() Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activity
}

// Translate runs the tiers in order and returns the first accepted result,
// otherwise the original text wrapped in a failure marker.
func (c *Chain) Translate(ctx context.Context, text string, source, target language.Tag) (result string) {
	activity := c.currentActivity()
	activity.BeginTranslating()
	defer activity.EndTranslating()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[translate] provider panicked: %v", r)
			result = mark(MarkerUnavailable, text)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return mark(MarkerUnavailable, text)
	}

	if c.primary != nil {
		out, err := c.call(ctx, c.primary, text, source, target)
		if err == nil {
			return out
		}
		log.Printf("[translate] %s tier failed (%s->%s): %v", c.primary.Name(), source, target, err)
	}

	var secondaryErr error
	if c.secondary != nil {
		out, err := c.call(ctx, c.secondary, text, source, target)
		if err == nil && strings.EqualFold(strings.TrimSpace(out), strings.TrimSpace(text)) {
			err = &RejectionError{Provider: c.secondary.Name(), Reason: "output identical to input"}
		}
		if err == nil {
			return out
		}
		secondaryErr = err
		log.Printf("[translate] %s tier failed (%s->%s): %v", c.secondary.Name(), source, target, err)
	}

	if target == language.Bengali {
		if out, ok := c.dictionary.Apply(text); ok {
			log.Printf("[translate] dictionary tier applied (%s->%s)", source, target)
			return out
		}
		return mark(MarkerBengali, text)
	}

	if secondaryErr != nil && IsRejection(secondaryErr) {
		return mark(MarkerFailed, text)
	}
	return mark(MarkerUnavailable, text)
}

func (c *Chain) call(ctx context.Context, p Provider, text string, source, target language.Tag) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := p.Translate(callCtx, text, source, target)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}

func mark(marker, text string) string {
	return marker + " " + text
}

// IsMarked reports whether text carries one of the failure markers.
func IsMarked(text string) bool {
	for _, m := range []string{MarkerUnavailable, MarkerFailed, MarkerBengali} {
		if strings.HasPrefix(text, m) {
			return true
		}
	}
	return false
}
