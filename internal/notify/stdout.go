package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"margin_bot/internal/models"
)

// Stdout это канал без мессенджера. Сообщения печатаются, входящие можно подложить через Inbox.
type Stdout struct {
	mu    sync.Mutex
	w     io.Writer
	inbox *Inbox
}

func NewStdout(w io.Writer, inbox *Inbox) *Stdout {
	return &Stdout{w: w, inbox: inbox}
}

func (s *Stdout) Send(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "[chat %d] %s\n", chatID, text)
	return err
}

func (s *Stdout) Recent(_ context.Context, chatID int64, limit int) ([]models.ChatMessage, error) {
	return s.inbox.Recent(chatID, limit), nil
}
