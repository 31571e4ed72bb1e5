package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Forwarder пересылает предупреждения и ошибки лога в чат администратора.
// Hook никогда не блокирует логгер: при переполнении очереди записи теряются.
type Forwarder struct {
	ch     sender
	chatID int64
	level  zapcore.Level
	queue  chan string
	log    *zap.Logger

	dropped atomic.Int64
}

func NewForwarder(ch sender, chatID int64, log *zap.Logger) *Forwarder {
	return &Forwarder{
		ch:     ch,
		chatID: chatID,
		level:  zapcore.WarnLevel,
		queue:  make(chan string, 256),
		log:    log,
	}
}

func (f *Forwarder) Hook(e zapcore.Entry) error {
	if f.chatID == 0 || e.Level < f.level {
		return nil
	}
	select {
	case f.queue <- fmt.Sprintf("[%s] %s", e.Level.CapitalString(), e.Message):
	default:
		f.dropped.Add(1)
	}
	return nil
}

func (f *Forwarder) Dropped() int64 { return f.dropped.Load() }

func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-f.queue:
			// только debug, иначе ошибка отправки снова попадёт в очередь
			if err := f.ch.Send(ctx, f.chatID, text); err != nil {
				f.log.Debug("forward log entry", zap.Error(err))
			}
		}
	}
}
