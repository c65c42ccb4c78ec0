// Package qa answers health questions by keyword overlap against a curated
// bilingual dataset.
package qa

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
)

//go:embed data/women_cancer_qa.yaml
var datasetFS embed.FS

const datasetPath = "data/women_cancer_qa.yaml"

var (
	ErrEmptyDataset  = errors.New("qa dataset has no usable entries")
	ErrEmptyQuestion = errors.New("question is required")
)

// Entry is one bilingual dataset row.
type Entry struct {
	QueryEN  string `yaml:"query_en"`
	AnswerEN string `yaml:"answer_en"`
	QueryBN  string `yaml:"query_bn"`
	AnswerBN string `yaml:"answer_bn"`
}

type dataset struct {
	Entries []Entry `yaml:"entries"`
}

type indexedEntry struct {
	Entry
	en keywordSet
	bn keywordSet
}

// Result is the best match for a question.
type Result struct {
	Answer   string       `json:"answer"`
	Score    float64      `json:"score"`
	Language language.Tag `json:"language"`
	Matched  bool         `json:"-"`
}

// Service answers by keyword Jaccard similarity.
type Service struct {
	entries  []indexedEntry
	minScore float64
}

var _ answer.Answerer = (*Service)(nil)

// LoadEntries decodes a YAML dataset and drops rows missing any column.
func LoadEntries(r io.Reader) ([]Entry, error) {
	var ds dataset
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode qa dataset: %w", err)
	}

	kept := ds.Entries[:0]
	for _, e := range ds.Entries {
		if strings.TrimSpace(e.QueryEN) == "" || strings.TrimSpace(e.AnswerEN) == "" ||
			strings.TrimSpace(e.QueryBN) == "" || strings.TrimSpace(e.AnswerBN) == "" {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

// NewService indexes entries. Matches scoring below minScore yield the
// localized not-found answer.
func NewService(entries []Entry, minScore float64) (*Service, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyDataset
	}

	indexed := make([]indexedEntry, 0, len(entries))
	for _, e := range entries {
		indexed = append(indexed, indexedEntry{
			Entry: e,
			en:    englishKeywords(e.QueryEN),
			bn:    bengaliKeywords(e.QueryBN),
		})
	}

	return &Service{entries: indexed, minScore: minScore}, nil
}

// NewDefaultService loads the embedded dataset.
func NewDefaultService(minScore float64) (*Service, error) {
	f, err := datasetFS.Open(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("open embedded dataset: %w", err)
	}
	defer f.Close()

	entries, err := LoadEntries(f)
	if err != nil {
		return nil, err
	}
	log.Printf("[qa] loaded %d entries", len(entries))
	return NewService(entries, minScore)
}

// Size returns the number of indexed entries.
func (s *Service) Size() int {
	return len(s.entries)
}

// Answer matches the question against the side of the dataset in the
// question's own script and answers in that language.
func (s *Service) Answer(question string) Result {
	lang := language.Detect(question)

	var input keywordSet
	if lang == language.Bengali {
		input = bengaliKeywords(question)
	} else {
		input = englishKeywords(question)
	}

	bestIdx, bestScore := 0, -1.0
	for i, e := range s.entries {
		candidate := e.en
		if lang == language.Bengali {
			candidate = e.bn
		}
		if score := jaccard(input, candidate); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	if bestScore < s.minScore {
		return Result{
			Answer:   i18n.For(lang).T(i18n.MsgNotFound),
			Score:    bestScore,
			Language: lang,
		}
	}

	best := s.entries[bestIdx]
	text := best.AnswerEN
	if lang == language.Bengali {
		text = best.AnswerBN
	}
	return Result{Answer: text, Score: bestScore, Language: lang, Matched: true}
}

// Ask implements answer.Answerer for in-process use.
func (s *Service) Ask(_ context.Context, req answer.Request) (answer.Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return answer.Response{}, ErrEmptyQuestion
	}
	res := s.Answer(req.Question)
	return answer.Response{Answer: res.Answer, Score: res.Score, Language: res.Language}, nil
}
