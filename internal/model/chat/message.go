package chat

import (
	"time"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one conversation turn. Only IsSpeaking changes after append.
type Message struct {
	ID       string       `json:"id"`
	Role     Role         `json:"role"`
	Text     string       `json:"text"`
	Language language.Tag `json:"language"`

	// Bot messages only: the question as asked and as translated.
	OriginalQuestion   string       `json:"originalQuestion,omitempty"`
	TranslatedQuestion string       `json:"translatedQuestion,omitempty"`
	QuestionLanguage   language.Tag `json:"questionLanguage,omitempty"`

	IsSpeaking bool      `json:"isSpeaking"`
	CreatedAt  time.Time `json:"createdAt"`
}
