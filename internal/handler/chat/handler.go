package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
	chatService "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/playback"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Playback 朗读控制
type Playback interface {
	Speak(ctx context.Context, index int) error
	Speaking() (int, bool)
}

// Handler 对话服务的HTTP处理器
type Handler struct {
	orchestrator *chatService.Orchestrator
	playback     Playback
}

// New 创建对话处理器
func New(orchestrator *chatService.Orchestrator, playback Playback) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		playback:     playback,
	}
}

// StateResponse 对话状态
type StateResponse struct {
	State    chatService.State `json:"state"`
	Input    string            `json:"input"`
	Speaking int               `json:"speaking"`
	Messages int               `json:"messages"`
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversation", func(conv chi.Router) {
		conv.Get("/history", h.handleHistory)
		conv.Get("/state", h.handleState)
		conv.Put("/input", h.handleSetInput)
		conv.Post("/submit", h.handleSubmit)
	})

	r.Post("/playback/{index}", h.handleSpeak)
}

// handleHistory 返回全部消息
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages := h.orchestrator.History().List()
	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.state())
}

func (h *Handler) state() StateResponse {
	snap := h.orchestrator.Snapshot()
	speaking := -1
	if h.playback != nil {
		if idx, ok := h.playback.Speaking(); ok {
			speaking = idx
		}
	}
	return StateResponse{
		State:    snap.State,
		Input:    snap.Input,
		Speaking: speaking,
		Messages: h.orchestrator.History().Len(),
	}
}

// handleSetInput 覆盖输入框内容
func (h *Handler) handleSetInput(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.orchestrator.SetInput(payload.Text)
	utils.RespondJSON(w, http.StatusOK, h.state())
}

// handleSubmit 提交问题；text 为空时提交输入框内容
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 提交不随请求断开而中止，保证历史记录成对写入
	ctx := context.WithoutCancel(r.Context())

	var (
		outcome chatService.Outcome
		err     error
	)
	if strings.TrimSpace(payload.Text) != "" {
		outcome, err = h.orchestrator.Submit(ctx, payload.Text)
	} else {
		outcome, err = h.orchestrator.SubmitInput(ctx)
	}

	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "question is empty")
	case errors.Is(err, chatService.ErrBusy):
		utils.RespondError(w, http.StatusConflict, "a question is already being processed")
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		utils.RespondJSON(w, http.StatusOK, outcome)
	}
}

// handleSpeak 朗读指定消息
func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if h.playback == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "playback unavailable")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	if err := h.playback.Speak(r.Context(), index); err != nil {
		switch {
		case errors.Is(err, playback.ErrNoSuchMessage):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, playback.ErrEmptyText):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]int{"speaking": index})
}
