package translate

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/ai"
	translateService "github.com/zhouzirui/health-assistant/backend/internal/service/translate"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Handler 翻译接口的HTTP处理器
type Handler struct {
	provider translateService.Provider
}

// New 创建翻译处理器；provider 为 nil 时接口返回 503
func New(provider translateService.Provider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes 注册翻译路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/translate", h.handleTranslate)
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "translation model not configured")
		return
	}

	var req translateService.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	source, err := language.ParseTag(string(req.SourceLang))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "sourceLang: "+err.Error())
		return
	}
	target, err := language.ParseTag(string(req.TargetLang))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "targetLang: "+err.Error())
		return
	}

	out, err := h.provider.Translate(r.Context(), req.Text, source, target)
	if err != nil {
		if errors.Is(err, ai.ErrUnsupportedPair) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[translate] %s->%s failed: %v", source, target, err)
		utils.RespondErrorDetails(w, http.StatusBadGateway, "translation failed", err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, translateService.Response{TranslatedText: out})
}
