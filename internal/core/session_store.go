package core

import (
	"context"
	"encoding/json"
	"errors"

	"gwi.com/finance-chat/internal/store"
)

// SessionStore persists conversation transcripts per (identity, chatID).
// Every method is a no-op for the zero identity and absorbs storage failures.
type SessionStore struct {
	kv store.KV
}

func NewSessionStore(kv store.KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load returns the stored transcript, or an empty one when there is none or
// it cannot be read.
func (s *SessionStore) Load(ctx context.Context, id store.Identity, chatID string) []store.Message {
	if id.IsZero() || !ValidChatID(chatID) {
		return []store.Message{}
	}

	raw, err := s.kv.Get(ctx, store.TranscriptKey(id, chatID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			absorb(ctx, "failed to load chat", err, "chat_id", chatID)
		}
		return []store.Message{}
	}

	var messages []store.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		absorb(ctx, "failed to parse chat", err, "chat_id", chatID)
		return []store.Message{}
	}
	if messages == nil {
		messages = []store.Message{}
	}
	return messages
}

// Save replaces the stored transcript. Empty transcripts are never written.
func (s *SessionStore) Save(ctx context.Context, id store.Identity, chatID string, messages []store.Message) {
	if id.IsZero() || !ValidChatID(chatID) || len(messages) == 0 {
		return
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		absorb(ctx, "failed to encode chat", err, "chat_id", chatID)
		return
	}
	if err := s.kv.Set(ctx, store.TranscriptKey(id, chatID), raw); err != nil {
		absorb(ctx, "failed to save chat", err, "chat_id", chatID)
	}
}

// Delete removes the stored transcript. Deleting a missing one is fine.
func (s *SessionStore) Delete(ctx context.Context, id store.Identity, chatID string) {
	if id.IsZero() || !ValidChatID(chatID) {
		return
	}
	if err := s.kv.Remove(ctx, store.TranscriptKey(id, chatID)); err != nil {
		absorb(ctx, "failed to delete chat", err, "chat_id", chatID)
	}
}
