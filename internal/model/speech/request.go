package speech

import "github.com/zhouzirui/health-assistant/backend/internal/language"

// TranscriptionRequest 语音识别请求
type TranscriptionRequest struct {
	SessionID  string       `json:"sessionId"`
	Audio      []byte       `json:"-"`
	Format     string       `json:"format"` // pcm, wav
	SampleRate int          `json:"sampleRate"`
	Language   language.Tag `json:"language"`
}

// SynthesisRequest 语音合成请求
type SynthesisRequest struct {
	SessionID string       `json:"sessionId,omitempty"`
	Text      string       `json:"text"`
	Language  language.Tag `json:"language"`
	Voice     string       `json:"voice,omitempty"`  // 为空时按语言选择
	Format    string       `json:"format,omitempty"` // 默认 mp3
}
