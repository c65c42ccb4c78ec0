package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
)

func speakingCount(msgs []chat.Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsSpeaking {
			n++
		}
	}
	return n
}

func TestHistoryAppendAssignsIDs(t *testing.T) {
	h := NewHistory(nil)
	i, first := h.Append(chat.Message{Role: chat.RoleUser, Text: "a"})
	j, second := h.Append(chat.Message{Role: chat.RoleBot, Text: "b"})

	require.Equal(t, 0, i)
	require.Equal(t, 1, j)
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)
	require.False(t, first.CreatedAt.IsZero())
}

func TestHistoryAtMostOneSpeaking(t *testing.T) {
	h := NewHistory(nil)
	for i := 0; i < 3; i++ {
		h.Append(chat.Message{Role: chat.RoleBot, Text: "m"})
	}

	require.NoError(t, h.SetSpeaking(0))
	require.NoError(t, h.SetSpeaking(2))

	msgs := h.List()
	require.Equal(t, 1, speakingCount(msgs))
	require.False(t, msgs[0].IsSpeaking)
	require.True(t, msgs[2].IsSpeaking)

	// stale clear for a replaced message is ignored
	h.ClearSpeaking(0)
	idx, ok := h.Speaking()
	require.True(t, ok)
	require.Equal(t, 2, idx)

	h.ClearSpeaking(2)
	require.Zero(t, speakingCount(h.List()))
}

func TestHistoryOutOfRange(t *testing.T) {
	h := NewHistory(nil)
	require.ErrorIs(t, h.SetSpeaking(0), ErrNoSuchMessage)
	_, err := h.Get(-1)
	require.ErrorIs(t, err, ErrNoSuchMessage)
}

func TestHistoryListIsACopy(t *testing.T) {
	h := NewHistory(nil)
	h.Append(chat.Message{Text: "original"})

	msgs := h.List()
	msgs[0].Text = "changed"

	got, err := h.Get(0)
	require.NoError(t, err)
	require.Equal(t, "original", got.Text)
}

func TestHistoryPublishesEvents(t *testing.T) {
	b := events.NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	h := NewHistory(b)
	h.Append(chat.Message{Text: "x"})
	require.NoError(t, h.SetSpeaking(0))
	h.ClearAllSpeaking()

	var types []string
	for i := 0; i < 3; i++ {
		types = append(types, (<-ch).Type)
	}
	require.Equal(t, []string{events.HistoryAppended, events.HistorySpeaking, events.HistorySpeaking}, types)
}
