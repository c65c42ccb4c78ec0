// Package language classifies text into one of the two supported languages.
package language

import (
	"fmt"
	"strings"
)

// Tag identifies a supported language.
type Tag string

const (
	// English is the primary language; the answer service always receives English.
	English Tag = "en"
	// Bengali is the secondary, low-resource language.
	Bengali Tag = "bn"
)

// Primary is the canonical language sent to the answer service.
const Primary = English

const (
	bengaliBlockStart = 'ঀ'
	bengaliBlockEnd   = '৿'
)

// Detect reports Bengali when any rune falls in the Bengali Unicode block and
// English otherwise. It is a script heuristic, not language identification.
func Detect(text string) Tag {
	for _, r := range text {
		if r >= bengaliBlockStart && r <= bengaliBlockEnd {
			return Bengali
		}
	}
	return English
}

// Other returns the opposite language.
func (t Tag) Other() Tag {
	if t == Bengali {
		return English
	}
	return Bengali
}

// Locale returns the capture locale bound to the language.
func (t Tag) Locale() string {
	if t == Bengali {
		return "bn-IN"
	}
	return "en-IN"
}

// IsPrimary reports whether t is the canonical language.
func (t Tag) IsPrimary() bool {
	return t == Primary
}

func (t Tag) String() string {
	return string(t)
}

// ParseTag accepts short codes, capture locales and language names.
func ParseTag(raw string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "en", "en-in", "en_in", "english":
		return English, nil
	case "bn", "bn-in", "bn_in", "bengali", "bangla":
		return Bengali, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}
