package repl

import (
	"bytes"
	"context"
	"testing"

	"github.com/RichardoC/arohi/internal/chat"
	"github.com/RichardoC/arohi/internal/db"
	"github.com/RichardoC/arohi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticReplier string

func (s staticReplier) Reply(context.Context, string, []models.Message, bool) string {
	return string(s)
}

func newTestREPL(t *testing.T) (*REPL, *chat.Store, *bytes.Buffer) {
	t.Helper()
	store := chat.New(db.NewMemoryKV(), staticReplier("Hello"), zap.NewNop())
	out := &bytes.Buffer{}
	return New(store, out, zap.NewNop()), store, out
}

func TestPlainTextSendsToCurrentSession(t *testing.T) {
	r, store, out := newTestREPL(t)
	id := store.StartChat()

	assert.False(t, r.Handle(context.Background(), "Hi there"))

	session, ok := store.Session(id)
	require.True(t, ok)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "Hi there", session.Title)
	assert.Contains(t, out.String(), "Hello")
}

func TestInterruptedReplyIsNotCommitted(t *testing.T) {
	r, store, out := newTestREPL(t)
	id := store.StartChat()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, r.Handle(ctx, "Hi there"))

	session, ok := store.Session(id)
	require.True(t, ok)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, models.SenderUser, session.Messages[0].Sender)
	assert.False(t, store.Pending(id))
	assert.NotContains(t, out.String(), "Hello")
	assert.Contains(t, out.String(), "Cancelled.")
}

func TestTextWithoutSessionIsRefused(t *testing.T) {
	r, store, out := newTestREPL(t)

	r.Handle(context.Background(), "anyone?")

	assert.Empty(t, store.ListSessions())
	assert.Contains(t, out.String(), "/new")
}

func TestCommands(t *testing.T) {
	r, store, out := newTestREPL(t)
	ctx := context.Background()

	r.Handle(ctx, "/new")
	first := store.CurrentID()
	r.Handle(ctx, "/new")
	require.Len(t, store.ListSessions(), 2)

	r.Handle(ctx, "/select 2")
	assert.Equal(t, first, store.CurrentID())

	r.Handle(ctx, "/list")
	assert.Contains(t, out.String(), models.DefaultTitle)

	r.Handle(ctx, "/memory")
	assert.False(t, store.Settings().MemoryEnabled)

	r.Handle(ctx, "/theme light")
	assert.Equal(t, models.ThemeLight, store.Settings().Theme)

	r.Handle(ctx, "/clear")
	assert.Empty(t, store.ListSessions())
	assert.Empty(t, store.CurrentID())

	r.Handle(ctx, "/bogus")
	assert.Contains(t, out.String(), "unknown command")

	assert.True(t, r.Handle(ctx, "/quit"))
}

func TestSelectByID(t *testing.T) {
	r, store, _ := newTestREPL(t)
	id := store.CreateSession()
	store.CreateSession()

	r.Handle(context.Background(), "/select "+id)
	assert.Equal(t, id, store.CurrentID())
}
