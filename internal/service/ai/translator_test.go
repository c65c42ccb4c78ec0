package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
)

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestTranslatorBuildsPromptAndCleansOutput(t *testing.T) {
	fake := &fakeChatModel{reply: "  \"স্তন ক্যান্সার কী?\"  "}
	tr, err := NewTranslator(context.Background(), fake)
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}

	got, err := tr.Translate(context.Background(), "What is breast cancer?", language.English, language.Bengali)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "স্তন ক্যান্সার কী?" {
		t.Fatalf("unexpected translation %q", got)
	}

	if len(fake.input) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(fake.input))
	}
	system := fake.input[0].Content
	if !strings.Contains(system, "from English to Bengali") {
		t.Fatalf("system prompt missing language pair: %q", system)
	}
	if fake.input[1].Role != schema.User || fake.input[1].Content != "What is breast cancer?" {
		t.Fatalf("unexpected user message: %+v", fake.input[1])
	}
}

func TestTranslatorErrors(t *testing.T) {
	tests := []struct {
		name    string
		model   *fakeChatModel
		text    string
		source  language.Tag
		target  language.Tag
		wantErr error
	}{
		{"same language", &fakeChatModel{reply: "x"}, "hello", language.English, language.English, ErrUnsupportedPair},
		{"unknown language", &fakeChatModel{reply: "x"}, "hello", "fr", language.Bengali, ErrUnsupportedPair},
		{"blank input", &fakeChatModel{reply: "x"}, "   ", language.English, language.Bengali, translate.ErrEmptyTranslation},
		{"blank output", &fakeChatModel{reply: " \"\" "}, "hello", language.English, language.Bengali, translate.ErrEmptyTranslation},
	}
	for _, tt := range tests {
		tr, err := NewTranslator(context.Background(), tt.model)
		if err != nil {
			t.Fatalf("%s: NewTranslator: %v", tt.name, err)
		}
		if _, err := tr.Translate(context.Background(), tt.text, tt.source, tt.target); !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: got %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestTranslatorPropagatesModelFailure(t *testing.T) {
	tr, err := NewTranslator(context.Background(), &fakeChatModel{err: errors.New("rate limited")})
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	_, err = tr.Translate(context.Background(), "hello", language.English, language.Bengali)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTranslatorRequiresModel(t *testing.T) {
	if _, err := NewTranslator(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
