package capture

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	captureService "github.com/zhouzirui/health-assistant/backend/internal/service/capture"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Controller 语音采集控制
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	SetLanguage(tag language.Tag)
	Status() captureService.Status
}

// Handler 语音采集的HTTP处理器
type Handler struct {
	controller Controller
}

// New 创建采集处理器
func New(controller Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes 注册采集相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/capture", func(cr chi.Router) {
		cr.Get("/", h.handleStatus)
		cr.Post("/start", h.handleStart)
		cr.Post("/stop", h.handleStop)
		cr.Put("/language", h.handleLanguage)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.controller.Status())
}

// handleStart 开始录音；已在录音时保持不变
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Start(r.Context()); err != nil {
		if errors.Is(err, captureService.ErrCaptureUnsupported) {
			utils.RespondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	utils.RespondJSON(w, http.StatusOK, h.controller.Status())
}

// handleLanguage 切换识别语言，录音中时下次开始生效
func (h *Handler) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Language string `json:"language"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := language.ParseTag(payload.Language)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.controller.SetLanguage(tag)
	utils.RespondJSON(w, http.StatusOK, h.controller.Status())
}
