package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/finance-chat/internal/core"
	"gwi.com/finance-chat/internal/store"
)

func newTestREPL(t *testing.T, id store.Identity) (*REPL, *core.ChatService, *bytes.Buffer) {
	t.Helper()
	svc := core.NewChatService(store.NewMemoryStore(), core.WithSuggestionDelay(0))
	var out bytes.Buffer
	return NewREPL(context.Background(), svc, id, &out), svc, &out
}

func TestREPLConversation(t *testing.T) {
	repl, svc, out := newTestREPL(t, "")
	ctx := context.Background()

	input := strings.Join([]string{
		"How can I save more this month?",
		"/login alice@example.com",
		"What's my monthly budget?",
		"/history",
		"/quit",
		"never reached",
	}, "\n")
	require.NoError(t, repl.Run(ctx, strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "bot: Start saving by: 1) Pay yourself first")
	assert.Contains(t, text, "signed in as alice@example.com")
	assert.Contains(t, text, " 1. What's my monthly budget?")
	assert.NotContains(t, text, "never reached")

	entries := svc.History().Entries(ctx, "alice@example.com")
	require.Len(t, entries, 1)
	assert.Equal(t, "What's my monthly budget?", entries[0].Title)
}

func TestREPLOpenAndDeleteByNumber(t *testing.T) {
	repl, svc, out := newTestREPL(t, "alice@example.com")
	ctx := context.Background()

	repl.Handle(ctx, "How can I save more this month?")
	first := repl.Session().State().ChatID
	repl.Handle(ctx, "/new")
	repl.Handle(ctx, "Track my expenses")

	repl.Handle(ctx, "/history")
	out.Reset()
	repl.Handle(ctx, "/open 2")
	assert.Equal(t, first, repl.Session().State().ChatID)
	assert.Contains(t, out.String(), "you: How can I save more this month?")

	repl.Handle(ctx, "/delete 2")
	assert.NotEqual(t, first, repl.Session().State().ChatID, "deleting the open chat starts a new one")
	assert.Len(t, svc.History().Entries(ctx, "alice@example.com"), 1)

	out.Reset()
	repl.Handle(ctx, "/open 5")
	assert.Contains(t, out.String(), "no chat 5")
}

func TestREPLSuggest(t *testing.T) {
	repl, _, out := newTestREPL(t, "alice@example.com")
	ctx := context.Background()

	repl.Handle(ctx, "/suggest 2")
	assert.Contains(t, out.String(), "you: How can I save more this month?")
	assert.Contains(t, out.String(), "bot: Start saving by")
	assert.Len(t, repl.Session().Messages(), 2)

	out.Reset()
	repl.Handle(ctx, "/suggest 9")
	assert.Contains(t, out.String(), "usage: /suggest")
}

func TestREPLLogoutClearsConversation(t *testing.T) {
	repl, _, out := newTestREPL(t, "alice@example.com")
	ctx := context.Background()

	repl.Handle(ctx, "Track my expenses")
	repl.Handle(ctx, "/logout")
	assert.Empty(t, repl.Session().Messages())
	assert.Equal(t, core.PhaseNoUser, repl.Session().State().Phase)

	out.Reset()
	repl.Handle(ctx, "/delete")
	assert.Contains(t, out.String(), "sign in to manage chats")
}

func TestREPLUnknownAndUsage(t *testing.T) {
	repl, _, out := newTestREPL(t, "")
	ctx := context.Background()

	assert.False(t, repl.Handle(ctx, "/frobnicate"))
	assert.Contains(t, out.String(), "unknown command /frobnicate")

	out.Reset()
	repl.Handle(ctx, "/login")
	assert.Contains(t, out.String(), "usage: /login")

	out.Reset()
	repl.Handle(ctx, "/open ../etc")
	assert.Contains(t, out.String(), "invalid chat id")

	assert.True(t, repl.Handle(ctx, "/exit"))
}
