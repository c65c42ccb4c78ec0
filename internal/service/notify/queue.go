package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
)

// DefaultDuration 通知默认展示时长
const DefaultDuration = 5 * time.Second

// Queue 最多保留一条通知，到期自动关闭
type Queue struct {
	mu         sync.Mutex
	duration   time.Duration
	current    *notification.Notification
	timer      *time.Timer
	generation uint64
	events     events.Publisher
	now        func() time.Time
}

var _ notification.Notifier = (*Queue)(nil)

// NewQueue 创建通知队列，duration<=0 时使用默认时长
func NewQueue(duration time.Duration, publisher events.Publisher) *Queue {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Queue{
		duration: duration,
		events:   publisher,
		now:      time.Now,
	}
}

// Show 替换当前通知并重新计时
func (q *Queue) Show(title, description string, kind notification.Kind) notification.Notification {
	q.mu.Lock()

	if q.timer != nil {
		q.timer.Stop()
	}
	q.generation++
	gen := q.generation

	shownAt := q.now().UTC()
	n := notification.Notification{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Kind:        kind,
		ShownAt:     shownAt,
		ExpiresAt:   shownAt.Add(q.duration),
	}
	q.current = &n
	q.timer = time.AfterFunc(q.duration, func() { q.expire(gen) })
	q.mu.Unlock()

	q.events.Publish(events.NotificationShown, n)
	return n
}

// Dismiss 立即关闭当前通知
func (q *Queue) Dismiss() {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return
	}
	dismissed := *q.current
	q.clearLocked()
	q.mu.Unlock()

	q.events.Publish(events.NotificationDismissed, dismissed)
}

// Current 返回当前通知
func (q *Queue) Current() (notification.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return notification.Notification{}, false
	}
	return *q.current, true
}

// Duration 返回自动关闭时长
func (q *Queue) Duration() time.Duration {
	return q.duration
}

// expire 仅在定时器仍属于当前通知时生效
func (q *Queue) expire(gen uint64) {
	q.mu.Lock()
	if gen != q.generation || q.current == nil {
		q.mu.Unlock()
		return
	}
	expired := *q.current
	q.clearLocked()
	q.mu.Unlock()

	q.events.Publish(events.NotificationDismissed, expired)
}

func (q *Queue) clearLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.generation++
	q.current = nil
}
