// Package ai hosts the LLM-backed translator served at /api/translate.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
)

var ErrUnsupportedPair = errors.New("unsupported language pair")

const translateSystemPrompt = `You are a professional medical translator working between English and Bengali (Bangla).
Translate the user's text from {source} to {target}.
Rules:
- Output only the translation, without quotes, notes or explanations.
- Keep medical terms accurate; when Bengali has no common word for a term, keep the English term.
- Preserve numbers, units and punctuation.
- If the text is already in {target}, return it unchanged.`

var languageNames = map[language.Tag]string{
	language.English: "English",
	language.Bengali: "Bengali",
}

// Translator translates between English and Bengali with the Ark chat model.
type Translator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

var _ translate.Provider = (*Translator)(nil)

// NewTranslator compiles the prompt chain around chatModel.
func NewTranslator(ctx context.Context, chatModel model.ChatModel) (*Translator, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(translateSystemPrompt),
		schema.UserMessage("{text}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile translation chain: %w", err)
	}
	return &Translator{chain: runnable}, nil
}

func (t *Translator) Name() string { return "llm" }

// Translate returns the model output with wrapping quotes removed.
func (t *Translator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	sourceName, okSource := languageNames[source]
	targetName, okTarget := languageNames[target]
	if !okSource || !okTarget || source == target {
		return "", fmt.Errorf("%w: %s->%s", ErrUnsupportedPair, source, target)
	}
	if strings.TrimSpace(text) == "" {
		return "", translate.ErrEmptyTranslation
	}

	msg, err := t.chain.Invoke(ctx, map[string]any{
		"source": sourceName,
		"target": targetName,
		"text":   text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run translation chain: %w", err)
	}
	if msg == nil {
		return "", translate.ErrEmptyTranslation
	}

	out := cleanOutput(msg.Content)
	if out == "" {
		return "", translate.ErrEmptyTranslation
	}
	log.Printf("[ai] translated %s->%s, length=%d", source, target, len(out))
	return out, nil
}

func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}
