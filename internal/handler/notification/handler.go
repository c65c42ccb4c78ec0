package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Queue 通知队列
type Queue interface {
	Current() (notification.Notification, bool)
	Dismiss()
}

// Handler 通知的HTTP处理器
type Handler struct {
	queue Queue
}

// New 创建通知处理器
func New(queue Queue) *Handler {
	return &Handler{queue: queue}
}

// RegisterRoutes 注册通知相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notification", h.handleCurrent)
	r.Delete("/notification", h.handleDismiss)
}

// handleCurrent 没有通知时返回 204
func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	n, ok := h.queue.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusOK, n)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	h.queue.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}
