package core

import (
	"slices"
	"strings"
	"time"

	"gwi.com/finance-chat/internal/store"
)

type Phase string

const (
	PhaseNoUser Phase = "no_user" // no identity: chat works but nothing is persisted
	PhaseFresh  Phase = "fresh"   // identity known, conversation has no messages
	PhaseActive Phase = "active"  // at least one exchange in the conversation
)

// botReplyOffset stamps the bot reply just after the user message.
const botReplyOffset = 200 * time.Millisecond

// State is the active conversation as seen by one chat view.
type State struct {
	Phase    Phase           `json:"phase"`
	Identity store.Identity  `json:"-"`
	ChatID   string          `json:"chat_id"`
	Messages []store.Message `json:"messages"`
}

// Event is an input to Transition. Events carry everything the transition
// needs (loaded transcripts, matched replies, minted ids) so Transition stays
// free of I/O.
type Event interface{ event() }

// IdentityChanged is raised on sign-in, sign-out and account switch.
type IdentityChanged struct {
	Identity store.Identity
	ChatID   string
}

// Navigated opens an existing chat id with its loaded transcript.
type Navigated struct {
	ChatID   string
	Messages []store.Message
}

// NewChatStarted is the explicit "new chat" action.
type NewChatStarted struct {
	ChatID string
}

// Sent is one user submission and the reply chosen for it.
type Sent struct {
	Text  string
	Reply string
	At    time.Time
}

func (IdentityChanged) event() {}
func (Navigated) event()       {}
func (NewChatStarted) event()  {}
func (Sent) event()            {}

// Effect is a persistence step requested by Transition.
type Effect interface{ effect() }

type SaveMessages struct {
	Identity store.Identity
	ChatID   string
	Messages []store.Message
}

type UpsertHistory struct {
	Identity     store.Identity
	ChatID       string
	FirstMessage string
}

func (SaveMessages) effect()  {}
func (UpsertHistory) effect() {}

func phaseFor(id store.Identity, messages []store.Message) Phase {
	switch {
	case id.IsZero():
		return PhaseNoUser
	case len(messages) == 0:
		return PhaseFresh
	}
	return PhaseActive
}

// Transition is the single state transition function of a chat view.
func Transition(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case IdentityChanged:
		if s.Phase != "" && ev.Identity == s.Identity {
			return s, nil
		}
		return State{
			Phase:    phaseFor(ev.Identity, nil),
			Identity: ev.Identity,
			ChatID:   ev.ChatID,
			Messages: []store.Message{},
		}, nil

	case Navigated:
		messages := []store.Message{}
		if !s.Identity.IsZero() {
			messages = append(messages, ev.Messages...)
		}
		return State{
			Phase:    phaseFor(s.Identity, messages),
			Identity: s.Identity,
			ChatID:   ev.ChatID,
			Messages: messages,
		}, nil

	case NewChatStarted:
		return State{
			Phase:    phaseFor(s.Identity, nil),
			Identity: s.Identity,
			ChatID:   ev.ChatID,
			Messages: []store.Message{},
		}, nil

	case Sent:
		text := strings.TrimSpace(ev.Text)
		if text == "" || s.Phase == "" {
			return s, nil
		}
		userMsg := store.Message{Sender: store.SenderUser, Text: text, Time: ev.At.UnixMilli()}
		botMsg := store.Message{Sender: store.SenderBot, Text: ev.Reply, Time: ev.At.Add(botReplyOffset).UnixMilli()}

		next := s
		next.Messages = append(slices.Clone(s.Messages), userMsg, botMsg)
		next.Phase = phaseFor(s.Identity, next.Messages)
		if s.Identity.IsZero() {
			return next, nil
		}
		return next, []Effect{
			SaveMessages{Identity: s.Identity, ChatID: s.ChatID, Messages: slices.Clone(next.Messages)},
			UpsertHistory{Identity: s.Identity, ChatID: s.ChatID, FirstMessage: firstUserText(next.Messages)},
		}
	}
	return s, nil
}

func firstUserText(messages []store.Message) string {
	for _, m := range messages {
		if m.Sender == store.SenderUser {
			return m.Text
		}
	}
	return ""
}
