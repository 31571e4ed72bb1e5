package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"margin_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInbox(t *testing.T) {
	in := NewInbox(3)
	for _, id := range []int64{5, 1, 7, 9} {
		in.Push(models.ChatMessage{ID: id, ChatID: 10, Text: "x"})
	}
	in.Push(models.ChatMessage{ID: 2, ChatID: 20})

	msgs := in.Recent(10, 10)
	require.Len(t, msgs, 3)
	assert.Equal(t, []int64{1, 7, 9}, []int64{msgs[0].ID, msgs[1].ID, msgs[2].ID})

	msgs = in.Recent(10, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(9), msgs[0].ID)

	assert.Len(t, in.Recent(20, 10), 1)
	assert.Empty(t, in.Recent(30, 10))
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	in := NewInbox(10)
	s := NewStdout(&buf, in)

	require.NoError(t, s.Send(context.Background(), 7, "hello"))
	assert.Equal(t, "[chat 7] hello\n", buf.String())

	in.Push(models.ChatMessage{ID: 1, ChatID: 7, Text: "/roi"})
	msgs, err := s.Recent(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "/roi", msgs[0].Text)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return r.err
}

func (r *recordingSender) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func TestForwarder(t *testing.T) {
	rec := &recordingSender{}
	f := NewForwarder(rec, 1000, zap.NewNop())

	require.NoError(t, f.Hook(zapcore.Entry{Level: zapcore.InfoLevel, Message: "skip"}))
	require.NoError(t, f.Hook(zapcore.Entry{Level: zapcore.WarnLevel, Message: "balance insufficient"}))
	require.NoError(t, f.Hook(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "order failed"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	assert.Eventually(t, func() bool { return len(rec.texts()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"[WARN] balance insufficient", "[ERROR] order failed"}, rec.texts())
}

func TestForwarder_NeverBlocks(t *testing.T) {
	rec := &recordingSender{err: errors.New("telegram down")}
	f := NewForwarder(rec, 1000, zap.NewNop())

	for i := 0; i < 300; i++ {
		require.NoError(t, f.Hook(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "boom"}))
	}
	assert.Equal(t, int64(300-256), f.Dropped())

	off := NewForwarder(rec, 0, zap.NewNop())
	require.NoError(t, off.Hook(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "boom"}))
	assert.Zero(t, off.Dropped())
}
