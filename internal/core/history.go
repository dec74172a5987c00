package core

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"gwi.com/finance-chat/internal/store"
	"gwi.com/finance-chat/internal/utils"
)

const (
	titleLength   = 30
	previewLength = 50
)

// HistoryIndex keeps each user's list of conversation summaries, most
// recently created first.
type HistoryIndex struct {
	kv       store.KV
	sessions *SessionStore
	broker   *Broker
	now      func() time.Time

	// serialises read-modify-write cycles within this process only
	mu sync.Mutex
}

func NewHistoryIndex(kv store.KV, sessions *SessionStore, broker *Broker) *HistoryIndex {
	return &HistoryIndex{
		kv:       kv,
		sessions: sessions,
		broker:   broker,
		now:      time.Now,
	}
}

// NewHistoryEntry derives the title and preview from the first user message.
func NewHistoryEntry(chatID, firstMessage string, at time.Time) store.ChatHistoryEntry {
	return store.ChatHistoryEntry{
		ID:        chatID,
		Title:     utils.Ellipsize(firstMessage, titleLength),
		Preview:   utils.Ellipsize(firstMessage, previewLength),
		Timestamp: at.UnixMilli(),
	}
}

// Entries returns the user's history in stored order.
func (h *HistoryIndex) Entries(ctx context.Context, id store.Identity) []store.ChatHistoryEntry {
	if id.IsZero() {
		return []store.ChatHistoryEntry{}
	}
	return h.load(ctx, id)
}

func (h *HistoryIndex) load(ctx context.Context, id store.Identity) []store.ChatHistoryEntry {
	raw, err := h.kv.Get(ctx, store.HistoryKey(id))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			absorb(ctx, "failed to load chat histories", err)
		}
		return []store.ChatHistoryEntry{}
	}

	var entries []store.ChatHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		absorb(ctx, "failed to parse chat histories", err)
		return []store.ChatHistoryEntry{}
	}
	if entries == nil {
		entries = []store.ChatHistoryEntry{}
	}
	return entries
}

func (h *HistoryIndex) save(ctx context.Context, id store.Identity, entries []store.ChatHistoryEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		absorb(ctx, "failed to encode chat histories", err)
		return
	}
	if err := h.kv.Set(ctx, store.HistoryKey(id), raw); err != nil {
		absorb(ctx, "failed to save chat histories", err)
	}
}

// Upsert bumps the timestamp of an existing entry in place, or prepends a new
// entry derived from firstMessage. It returns the updated list.
func (h *HistoryIndex) Upsert(ctx context.Context, id store.Identity, chatID, firstMessage string) []store.ChatHistoryEntry {
	if id.IsZero() || chatID == "" {
		return []store.ChatHistoryEntry{}
	}

	h.mu.Lock()
	entries := h.load(ctx, id)
	now := h.now()
	if i := slices.IndexFunc(entries, func(e store.ChatHistoryEntry) bool { return e.ID == chatID }); i >= 0 {
		entries[i].Timestamp = now.UnixMilli()
	} else {
		entries = append([]store.ChatHistoryEntry{NewHistoryEntry(chatID, firstMessage, now)}, entries...)
	}
	h.save(ctx, id, entries)
	h.mu.Unlock()

	h.publish(id, HistoryUpserted, chatID, entries)
	return entries
}

// Remove deletes the entry and its transcript. Removing a missing entry still
// clears any transcript left under that id.
func (h *HistoryIndex) Remove(ctx context.Context, id store.Identity, chatID string) []store.ChatHistoryEntry {
	if id.IsZero() || chatID == "" {
		return []store.ChatHistoryEntry{}
	}

	h.mu.Lock()
	entries := h.load(ctx, id)
	kept := slices.DeleteFunc(slices.Clone(entries), func(e store.ChatHistoryEntry) bool { return e.ID == chatID })
	if len(kept) != len(entries) {
		h.save(ctx, id, kept)
	}
	h.sessions.Delete(ctx, id, chatID)
	h.mu.Unlock()

	h.publish(id, HistoryRemoved, chatID, kept)
	return kept
}

func (h *HistoryIndex) publish(id store.Identity, kind HistoryEventKind, chatID string, entries []store.ChatHistoryEntry) {
	if h.broker == nil {
		return
	}
	h.broker.Publish(HistoryEvent{
		Identity: id,
		Kind:     kind,
		ChatID:   chatID,
		Entries:  slices.Clone(entries),
	})
}

// Search keeps the entries whose title or preview contains query, ignoring
// case. An empty query keeps everything.
func Search(entries []store.ChatHistoryEntry, query string) []store.ChatHistoryEntry {
	out := make([]store.ChatHistoryEntry, 0, len(entries))
	for _, e := range entries {
		if utils.ContainsFold(e.Title, query) || utils.ContainsFold(e.Preview, query) {
			out = append(out, e)
		}
	}
	return out
}
