// Package speech 封装火山引擎语音 websocket 接口：合成用于朗读回答，识别用于麦克风采集
package speech

import (
	"context"
	"strings"
	"time"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
)

// Status 语音服务健康状态
type Status struct {
	Configured bool              `json:"configured"`
	Voices     map[string]string `json:"voices"`
}

// Service 语音服务核心业务逻辑
type Service struct {
	config  *speechmodel.Config
	tts     *TTSClient
	asr     *ASRClient
	timeout time.Duration
}

// NewService 创建语音服务实例
func NewService(cfg *speechmodel.Config) *Service {
	if cfg == nil {
		cfg = &speechmodel.Config{}
	}
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &Service{
		config:  cfg,
		tts:     NewTTSClient(cfg),
		asr:     NewASRClient(cfg),
		timeout: timeout,
	}
}

// Configured 是否已配置凭证
func (s *Service) Configured() bool {
	_, err := resolveCredentials(s.config)
	return err == nil
}

// Status 返回配置概况
func (s *Service) Status() Status {
	return Status{
		Configured: s.Configured(),
		Voices: map[string]string{
			string(language.English): s.config.VoiceFor(language.English),
			string(language.Bengali): s.config.VoiceFor(language.Bengali),
		},
	}
}

// SynthesizeSpeech 文字转语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req speechmodel.SynthesisRequest) (*speechmodel.Synthesis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.tts.Synthesize(ctx, req)
}

// Synthesize 返回以 lang 朗读 text 的 mp3 音频
func (s *Service) Synthesize(ctx context.Context, text string, lang language.Tag) ([]byte, error) {
	out, err := s.SynthesizeSpeech(ctx, speechmodel.SynthesisRequest{Text: text, Language: lang})
	if err != nil {
		return nil, err
	}
	return out.Audio, nil
}

// TranscribeAudio 语音转文字
func (s *Service) TranscribeAudio(ctx context.Context, req speechmodel.TranscriptionRequest) (*speechmodel.Transcription, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.asr.Transcribe(ctx, req)
}

// Transcribe 识别麦克风采集的 s16le 单声道 PCM
func (s *Service) Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang language.Tag) (string, error) {
	out, err := s.TranscribeAudio(ctx, speechmodel.TranscriptionRequest{
		Audio:      pcm,
		Format:     "pcm",
		SampleRate: sampleRate,
		Language:   lang,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}
