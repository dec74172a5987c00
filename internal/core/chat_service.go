package core

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"gwi.com/finance-chat/internal/observability"
	"gwi.com/finance-chat/internal/store"
	"gwi.com/finance-chat/internal/telemetry"
)

const defaultSuggestionDelay = 50 * time.Millisecond

// ChatService wires the knowledge base, matcher, transcripts and history
// together and hands out one ChatSession per chat view.
type ChatService struct {
	knowledge *KnowledgeStore
	matcher   *Matcher
	sessions  *SessionStore
	history   *HistoryIndex
	broker    *Broker
	ids       *ChatIDGenerator
	now       func() time.Time

	suggestionDelay time.Duration
}

type Option func(*ChatService)

// WithClock replaces time.Now for message stamps, history timestamps and chat ids.
func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

func WithSuggestionDelay(d time.Duration) Option {
	return func(s *ChatService) { s.suggestionDelay = d }
}

func WithKnowledgeStore(k *KnowledgeStore) Option {
	return func(s *ChatService) { s.knowledge = k }
}

func NewChatService(kv store.KV, opts ...Option) *ChatService {
	s := &ChatService{
		now:             time.Now,
		suggestionDelay: defaultSuggestionDelay,
		broker:          NewBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.knowledge == nil {
		s.knowledge = NewKnowledgeStore(kv)
	}
	s.matcher = NewMatcher(s.knowledge)
	s.sessions = NewSessionStore(kv)
	s.history = NewHistoryIndex(kv, s.sessions, s.broker)
	s.history.now = s.now
	s.ids = NewChatIDGenerator(s.now)
	return s
}

func (s *ChatService) Knowledge() *KnowledgeStore { return s.knowledge }
func (s *ChatService) Sessions() *SessionStore    { return s.sessions }
func (s *ChatService) History() *HistoryIndex     { return s.history }
func (s *ChatService) Broker() *Broker            { return s.broker }

// Match answers text without touching any conversation.
func (s *ChatService) Match(ctx context.Context, text string) string {
	return s.matcher.Match(ctx, text)
}

func (s *ChatService) NewChatID() string {
	return s.ids.Next()
}

// NewSession starts a chat view for id with a fresh, empty conversation.
func (s *ChatService) NewSession(ctx context.Context, id store.Identity) *ChatSession {
	c := &ChatSession{svc: s}
	c.apply(ctx, IdentityChanged{Identity: id, ChatID: s.ids.Next()})
	return c
}

// ChatSession is the controller of one chat view. It turns user actions into
// events, runs Transition and executes the resulting effects.
type ChatSession struct {
	svc *ChatService

	mu    sync.Mutex
	state State

	// latest selected suggestion waiting for the settle delay
	pendingGen  uint64
	pendingText string
}

// State returns a copy of the current state.
func (c *ChatSession) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ChatSession) snapshotLocked() State {
	st := c.state
	st.Messages = slices.Clone(c.state.Messages)
	return st
}

func (c *ChatSession) Messages() []store.Message {
	return c.State().Messages
}

func (c *ChatSession) apply(ctx context.Context, ev Event) {
	next, effects := Transition(c.state, ev)
	c.state = next
	for _, eff := range effects {
		switch eff := eff.(type) {
		case SaveMessages:
			c.svc.sessions.Save(ctx, eff.Identity, eff.ChatID, eff.Messages)
		case UpsertHistory:
			c.svc.history.Upsert(ctx, eff.Identity, eff.ChatID, eff.FirstMessage)
		}
	}
}

// supersede drops any suggestion still waiting to be sent.
func (c *ChatSession) supersede() {
	c.pendingGen++
	c.pendingText = ""
}

// SetIdentity reacts to sign-in, sign-out or account switch. A real change
// clears the conversation and starts a new one; the same identity is a no-op.
func (c *ChatSession) SetIdentity(ctx context.Context, id store.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == c.state.Identity {
		return
	}
	c.supersede()
	c.apply(ctx, IdentityChanged{Identity: id, ChatID: c.svc.ids.Next()})
	telemetry.AddBreadcrumb(ctx, "chat", "identity changed")
	observability.LoggerFromContext(ctx).Debug("chat identity changed", "chat_id", c.state.ChatID, "phase", c.state.Phase)
}

// Open switches to an existing chat id and loads its transcript.
func (c *ChatSession) Open(ctx context.Context, chatID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede()
	messages := c.svc.sessions.Load(ctx, c.state.Identity, chatID)
	c.apply(ctx, Navigated{ChatID: chatID, Messages: messages})
	return c.snapshotLocked()
}

// NewChat starts an empty conversation and returns its id.
func (c *ChatSession) NewChat(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede()
	return c.newChatLocked(ctx)
}

func (c *ChatSession) newChatLocked(ctx context.Context) string {
	c.apply(ctx, NewChatStarted{ChatID: c.svc.ids.Next()})
	return c.state.ChatID
}

// Send submits user text and returns the user message and the bot reply.
// Blank text is ignored and yields nil.
func (c *ChatSession) Send(ctx context.Context, text string) []store.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede()
	return c.sendLocked(ctx, text)
}

func (c *ChatSession) sendLocked(ctx context.Context, text string) []store.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	before := len(c.state.Messages)
	reply := c.svc.matcher.Match(ctx, text)
	c.apply(ctx, Sent{Text: text, Reply: reply, At: c.svc.now()})

	observability.LoggerFromContext(ctx).Debug("chat message sent",
		"chat_id", c.state.ChatID,
		"phase", c.state.Phase,
		"message_count", len(c.state.Messages),
	)
	return slices.Clone(c.state.Messages[before:])
}

// SelectSuggestion starts a new chat for a suggested question and sends it
// after the settle delay. If another suggestion, a send, a navigation or an
// identity change happens during the delay, this call sends nothing and
// returns false; only the latest selection is ever sent.
func (c *ChatSession) SelectSuggestion(ctx context.Context, question string) ([]store.Message, bool, error) {
	c.mu.Lock()
	c.supersede()
	c.newChatLocked(ctx)
	c.pendingText = question
	gen := c.pendingGen
	c.mu.Unlock()

	if d := c.svc.suggestionDelay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingGen != gen {
		return nil, false, nil
	}
	text := c.pendingText
	c.pendingText = ""
	return c.sendLocked(ctx, text), true, nil
}

// History lists the signed-in user's conversations, filtered by query when
// it is non-empty.
func (c *ChatSession) History(ctx context.Context, query string) []store.ChatHistoryEntry {
	c.mu.Lock()
	id := c.state.Identity
	c.mu.Unlock()

	entries := c.svc.history.Entries(ctx, id)
	if query == "" {
		return entries
	}
	return Search(entries, query)
}

// DeleteChat removes a conversation from history together with its
// transcript. Deleting the open conversation starts a new one.
func (c *ChatSession) DeleteChat(ctx context.Context, chatID string) []store.ChatHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.svc.history.Remove(ctx, c.state.Identity, chatID)
	if chatID == c.state.ChatID && !c.state.Identity.IsZero() {
		c.supersede()
		c.newChatLocked(ctx)
	}
	return entries
}
