package speech

import "github.com/zhouzirui/health-assistant/backend/internal/language"

// Config 火山引擎语音服务配置
type Config struct {
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置
	ConcurrentMode bool   `json:"concurrentMode"`   // ASR 并发版（false 为小时版）

	// 端点，留空使用官方地址；测试时指向本地服务
	TTSEndpoint string `json:"ttsEndpoint,omitempty"`
	ASREndpoint string `json:"asrEndpoint,omitempty"`

	// 每种语言的音色，缺失时回退到 TTSVoice
	TTSVoices map[language.Tag]string `json:"ttsVoices,omitempty"`
	TTSVoice  string                  `json:"ttsVoice"`
	TTSSpeed  float32                 `json:"ttsSpeed"`
	TTSVolume float32                 `json:"ttsVolume"`

	Timeout int `json:"timeout"` // seconds
}

// VoiceFor 返回语言对应的音色，未配置时回退到 TTSVoice
func (c *Config) VoiceFor(lang language.Tag) string {
	if c == nil {
		return ""
	}
	if v, ok := c.TTSVoices[lang]; ok && v != "" {
		return v
	}
	return c.TTSVoice
}
