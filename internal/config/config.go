package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Speech    SpeechConfig
	Assistant AssistantConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig(server)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Speech: speech, Assistant: assistant}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LocalBaseURL 返回本机访问自身 HTTP 服务的地址。
func (c ServerConfig) LocalBaseURL() string {
	addr := c.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	// 翻译需要稳定输出，未配置时使用低温度
	if temperature == nil {
		low := 0.1
		temperature = &low
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	APIKey         string
	TTSEndpoint    string
	ASREndpoint    string
	TTSVoice       string
	TTSVoiceEN     string
	TTSVoiceBN     string
	TTSSpeed       float32
	TTSVolume      float32
	ConcurrentMode bool
	Timeout        int
	Enabled        bool
}

// ModelConfig 转换为语音客户端使用的配置
func (c SpeechConfig) ModelConfig() *speechmodel.Config {
	voices := map[language.Tag]string{}
	if c.TTSVoiceEN != "" {
		voices[language.English] = c.TTSVoiceEN
	}
	if c.TTSVoiceBN != "" {
		voices[language.Bengali] = c.TTSVoiceBN
	}
	return &speechmodel.Config{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		APIKey:         c.APIKey,
		ConcurrentMode: c.ConcurrentMode,
		TTSEndpoint:    c.TTSEndpoint,
		ASREndpoint:    c.ASREndpoint,
		TTSVoices:      voices,
		TTSVoice:       c.TTSVoice,
		TTSSpeed:       c.TTSSpeed,
		TTSVolume:      c.TTSVolume,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	// 解析TTS速度和音量
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0) // 默认1.0音量
	if volume != nil {
		ttsVolume = *volume
	}

	concurrent, err := parseBoolEnv("SPEECH_ASR_CONCURRENT", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	enabled := appID != "" && accessToken != ""

	return SpeechConfig{
		AppID:          appID,
		AccessToken:    accessToken,
		APIKey:         apiKey,
		TTSEndpoint:    getEnvOrDefault("SPEECH_TTS_ENDPOINT", ""),
		ASREndpoint:    getEnvOrDefault("SPEECH_ASR_ENDPOINT", ""),
		TTSVoice:       getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		TTSVoiceEN:     getEnvOrDefault("SPEECH_TTS_VOICE_EN", ""),
		TTSVoiceBN:     getEnvOrDefault("SPEECH_TTS_VOICE_BN", ""),
		TTSSpeed:       ttsSpeed,
		TTSVolume:      ttsVolume,
		ConcurrentMode: concurrent,
		Timeout:        timeoutSeconds,
		Enabled:        enabled,
	}, nil
}

// AssistantConfig 描述对话编排、采集与播放相关配置
type AssistantConfig struct {
	TranslateURL   string
	MyMemoryURL    string
	MyMemoryEmail  string
	AskURL         string // 为空时使用进程内问答服务
	SpeechSynthURL string // 为空时直接调用语音服务

	CaptureEnabled     bool
	CaptureCommand     string
	CaptureInputFormat string
	CaptureInputDevice string
	CaptureMaxDuration time.Duration
	CaptureLanguage    language.Tag

	PlaybackCommand string // 为空时丢弃音频

	NotifyDuration time.Duration
	HTTPTimeout    time.Duration
	QAMinScore     float64
	UILanguage     language.Tag
}

func loadAssistantConfig(server ServerConfig) (AssistantConfig, error) {
	captureEnabled, err := parseBoolEnv("CAPTURE_ENABLED", true)
	if err != nil {
		return AssistantConfig{}, err
	}

	maxSeconds, err := parseOptionalIntEnv("CAPTURE_MAX_SECONDS")
	if err != nil {
		return AssistantConfig{}, err
	}
	captureMax := 15 * time.Second
	if maxSeconds != nil && *maxSeconds > 0 {
		captureMax = time.Duration(*maxSeconds) * time.Second
	}

	notifyMS, err := parseOptionalIntEnv("NOTIFY_DURATION_MS")
	if err != nil {
		return AssistantConfig{}, err
	}
	notifyDuration := 5 * time.Second
	if notifyMS != nil && *notifyMS > 0 {
		notifyDuration = time.Duration(*notifyMS) * time.Millisecond
	}

	timeoutSeconds, err := parseOptionalIntEnv("HTTP_TIMEOUT_SECONDS")
	if err != nil {
		return AssistantConfig{}, err
	}
	httpTimeout := 15 * time.Second
	if timeoutSeconds != nil && *timeoutSeconds > 0 {
		httpTimeout = time.Duration(*timeoutSeconds) * time.Second
	}

	minScore, err := parseOptionalFloatEnv("QA_MIN_SCORE")
	if err != nil {
		return AssistantConfig{}, err
	}
	qaMinScore := 0.1
	if minScore != nil {
		qaMinScore = *minScore
	}

	captureLang, err := language.ParseTag(getEnvOrDefault("CAPTURE_LANGUAGE", "en-IN"))
	if err != nil {
		return AssistantConfig{}, fmt.Errorf("invalid CAPTURE_LANGUAGE: %w", err)
	}

	uiLang, err := language.ParseTag(getEnvOrDefault("UI_LANGUAGE", "en"))
	if err != nil {
		return AssistantConfig{}, fmt.Errorf("invalid UI_LANGUAGE: %w", err)
	}

	return AssistantConfig{
		TranslateURL:       strings.TrimRight(getEnvOrDefault("TRANSLATE_URL", server.LocalBaseURL()), "/"),
		MyMemoryURL:        getEnvOrDefault("MYMEMORY_URL", "https://api.mymemory.translated.net"),
		MyMemoryEmail:      getEnvOrDefault("MYMEMORY_EMAIL", ""),
		AskURL:             getEnvOrDefault("ASK_URL", ""),
		SpeechSynthURL:     getEnvOrDefault("SPEECH_SYNTH_URL", ""),
		CaptureEnabled:     captureEnabled,
		CaptureCommand:     getEnvOrDefault("CAPTURE_COMMAND", "ffmpeg"),
		CaptureInputFormat: getEnvOrDefault("CAPTURE_INPUT_FORMAT", "pulse"),
		CaptureInputDevice: getEnvOrDefault("CAPTURE_INPUT_DEVICE", "default"),
		CaptureMaxDuration: captureMax,
		CaptureLanguage:    captureLang,
		PlaybackCommand:    getEnvOrDefault("PLAYBACK_COMMAND", ""),
		NotifyDuration:     notifyDuration,
		HTTPTimeout:        httpTimeout,
		QAMinScore:         qaMinScore,
		UILanguage:         uiLang,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
