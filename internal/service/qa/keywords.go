package qa

import (
	"strings"
	"unicode"
)

// englishStopwords NLTK english stopword list
var englishStopwords = toSet(strings.Fields(`
i me my myself we our ours ourselves you you're you've you'll you'd your yours
yourself yourselves he him his himself she she's her hers herself it it's its
itself they them their theirs themselves what which who whom this that that'll
these those am is are was were be been being have has had having do does did
doing a an the and but if or because as until while of at by for with about
against between into through during before after above below to from up down
in out on off over under again further then once here there when where why how
all any both each few more most other some such no nor not only own same so
than too very s t can will just don don't should should've now d ll m o re ve
y ain aren aren't couldn couldn't didn didn't doesn doesn't hadn hadn't hasn
hasn't haven haven't isn isn't ma mightn mightn't mustn mustn't needn needn't
shan shan't shouldn shouldn't wasn wasn't weren weren't won won't wouldn
wouldn't
`))

type keywordSet map[string]struct{}

func toSet(words []string) keywordSet {
	set := make(keywordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokenize splits on whitespace, punctuation and symbols. Combining marks stay
// inside the token so Bengali vowel signs are not split off.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// englishKeywords lowercases, tokenizes and drops stopwords.
func englishKeywords(text string) keywordSet {
	set := keywordSet{}
	for _, tok := range tokenize(strings.ToLower(text)) {
		if _, stop := englishStopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// bengaliKeywords keeps every non-punctuation token.
func bengaliKeywords(text string) keywordSet {
	set := keywordSet{}
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b keywordSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
