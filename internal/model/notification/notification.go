package notification

import "time"

// Kind 通知类型
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification 短暂展示的提示信息
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Kind        Kind      `json:"kind"`
	ShownAt     time.Time `json:"shownAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Notifier 控制器发出通知的接口
type Notifier interface {
	Show(title, description string, kind Kind) Notification
}
