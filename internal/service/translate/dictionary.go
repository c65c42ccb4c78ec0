package translate

import (
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"
)

// medicalTerms English to Bengali substitutions for common screening terms.
var medicalTerms = map[string]string{
	"pap smear":                       "প্যাপ স্মিয়ার",
	"cancer":                          "ক্যান্সার",
	"screening":                       "স্ক্রিনিং",
	"breast":                          "স্তন",
	"cervical":                        "জরায়ুর",
	"doctor":                          "ডাক্তার",
	"hospital":                        "হাসপাতাল",
	"treatment":                       "চিকিৎসা",
	"symptoms":                        "লক্ষণ",
	"diagnosis":                       "নির্ণয়",
	"prevention":                      "প্রতিরোধ",
	"health":                          "স্বাস্থ্য",
	"years":                           "বছর",
	"age":                             "বয়স",
	"too late":                        "খুব দেরি",
	"Is 25 too late for a Pap smear?": "২৫ বছর বয়সে প্যাপ স্মিয়ার করা কি খুব দেরি?",
}

type dictionaryEntry struct {
	pattern     *regexp.Regexp
	replacement string
}

// Dictionary performs case-insensitive whole-word term substitution.
type Dictionary struct {
	entries []dictionaryEntry
}

// NewDictionary compiles terms, longest first so phrases win over the words
// they contain.
func NewDictionary(terms map[string]string) *Dictionary {
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	d := &Dictionary{entries: make([]dictionaryEntry, 0, len(keys))}
	for _, k := range keys {
		d.entries = append(d.entries, dictionaryEntry{
			pattern:     termPattern(k),
			replacement: terms[k],
		})
	}
	return d
}

// MedicalDictionary returns the built-in screening term dictionary.
func MedicalDictionary() *Dictionary {
	return NewDictionary(medicalTerms)
}

// Apply substitutes every known term. ok is false when nothing changed.
func (d *Dictionary) Apply(text string) (string, bool) {
	if d == nil {
		return text, false
	}
	out := text
	for _, e := range d.entries {
		out = e.pattern.ReplaceAllLiteralString(out, e.replacement)
	}
	return out, out != text
}

// termPattern anchors word boundaries only at edges that are word characters,
// so terms ending in punctuation still match.
func termPattern(term string) *regexp.Regexp {
	expr := regexp.QuoteMeta(term)
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	if isWordRune(first) {
		expr = `\b` + expr
	}
	if isWordRune(last) {
		expr += `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
