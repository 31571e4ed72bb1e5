package notify

import (
	"sort"
	"sync"

	"margin_bot/internal/models"
)

// Inbox: последние сообщения по каждому чату, кольцевой буфер фиксированной ёмкости.
type Inbox struct {
	capacity int

	mu    sync.RWMutex
	chats map[int64][]models.ChatMessage
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 100
	}
	return &Inbox{capacity: capacity, chats: make(map[int64][]models.ChatMessage)}
}

func (in *Inbox) Push(m models.ChatMessage) {
	in.mu.Lock()
	defer in.mu.Unlock()

	msgs := append(in.chats[m.ChatID], m)
	if len(msgs) > in.capacity {
		msgs = msgs[len(msgs)-in.capacity:]
	}
	in.chats[m.ChatID] = msgs
}

// Recent: до limit последних сообщений чата по возрастанию ID.
func (in *Inbox) Recent(chatID int64, limit int) []models.ChatMessage {
	in.mu.RLock()
	msgs := append([]models.ChatMessage(nil), in.chats[chatID]...)
	in.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}
