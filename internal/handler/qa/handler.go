package qa

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	qaService "github.com/zhouzirui/health-assistant/backend/internal/service/qa"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Handler 问答接口的HTTP处理器
type Handler struct {
	answerer answer.Answerer
}

// New 创建问答处理器
func New(answerer answer.Answerer) *Handler {
	return &Handler{answerer: answerer}
}

// RegisterRoutes 注册 /ask
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req answer.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.answerer.Ask(r.Context(), req)
	if err != nil {
		if errors.Is(err, qaService.ErrEmptyQuestion) {
			utils.RespondError(w, http.StatusBadRequest, "question is required")
			return
		}
		log.Printf("[qa] ask failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}
