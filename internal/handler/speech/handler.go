package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/health-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	TranscribeAudio(ctx context.Context, req speechmodel.TranscriptionRequest) (*speechmodel.Transcription, error)
	SynthesizeSpeech(ctx context.Context, req speechmodel.SynthesisRequest) (*speechmodel.Synthesis, error)
	Status() speechsvc.Status
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
}

// New 创建语音处理器
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

type synthesizeRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
	Format       string `json:"format"`
	Voice        string `json:"voice,omitempty"`
	Duration     int64  `json:"duration,omitempty"`
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		// ASR 端点
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/transcribe/{sessionID}", h.handleTranscribeWithSession)

		// TTS 端点
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Post("/synthesize/{sessionID}", h.handleSynthesizeWithSession)

		// 健康检查
		speechRouter.Get("/health", h.handleHealth)
	})
}

// handleTranscribe 处理语音转文本请求
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, "")
}

// handleTranscribeWithSession 处理带会话ID的语音转文本请求
func (h *Handler) handleTranscribeWithSession(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, chi.URLParam(r, "sessionID"))
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	h.processSynthesize(w, r, "")
}

// handleSynthesizeWithSession 处理带会话ID的文本转语音请求
func (h *Handler) handleSynthesizeWithSession(w http.ResponseWriter, r *http.Request) {
	h.processSynthesize(w, r, chi.URLParam(r, "sessionID"))
}

func (h *Handler) processTranscribe(w http.ResponseWriter, r *http.Request, overrideSessionID string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	sessionID := overrideSessionID
	if sessionID == "" {
		sessionID = r.FormValue("sessionId")
	}

	lang := language.Primary
	if raw := r.FormValue("language"); raw != "" {
		parsed, err := language.ParseTag(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}

	sampleRate := 0
	if raw := r.FormValue("sampleRate"); raw != "" {
		if sampleRate, err = strconv.Atoi(raw); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid sampleRate")
			return
		}
	}

	resp, err := h.speechSvc.TranscribeAudio(r.Context(), speechmodel.TranscriptionRequest{
		SessionID:  sessionID,
		Audio:      audio,
		Format:     inferAudioFormat(header.Filename),
		SampleRate: sampleRate,
		Language:   lang,
	})
	if err != nil {
		log.Printf("[speech] ASR error: %v", err)
		if errors.Is(err, speechsvc.ErrNoAudio) {
			utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
			return
		}
		utils.RespondErrorDetails(w, http.StatusBadGateway, "speech recognition failed", err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) processSynthesize(w http.ResponseWriter, r *http.Request, overrideSessionID string) {
	var req synthesizeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if overrideSessionID != "" {
		req.SessionID = overrideSessionID
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	// 未指定语言时按文字脚本判断
	lang := language.Detect(req.Text)
	if req.Language != "" {
		parsed, err := language.ParseTag(req.Language)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}

	resp, err := h.speechSvc.SynthesizeSpeech(r.Context(), speechmodel.SynthesisRequest{
		SessionID: req.SessionID,
		Text:      req.Text,
		Language:  lang,
		Voice:     req.Voice,
	})
	if err != nil {
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondErrorDetails(w, http.StatusBadGateway, "Failed to synthesize speech", err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, synthesizeResponse{
		AudioContent: base64.StdEncoding.EncodeToString(resp.Audio),
		Format:       resp.Format,
		Voice:        resp.Voice,
		Duration:     resp.Duration,
	})
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.speechSvc.Status()
	state := "healthy"
	if !status.Configured {
		state = "unconfigured"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  state,
		"service": "speech",
		"voices":  status.Voices,
	})
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3":
		return "mp3"
	case ".ogg", ".opus":
		return "ogg"
	case ".pcm", ".raw":
		return "pcm"
	default:
		return "wav"
	}
}
