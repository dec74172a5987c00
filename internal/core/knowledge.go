package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/tidwall/gjson"

	"gwi.com/finance-chat/internal/core/catalog"
	"gwi.com/finance-chat/internal/observability"
	"gwi.com/finance-chat/internal/store"
)

// catalogRecord is the persisted form of the catalogue. Version and Hash
// describe the built-in catalogue the record was derived from.
type catalogRecord struct {
	Version int                   `json:"version"`
	Hash    string                `json:"hash"`
	Items   []store.KnowledgeItem `json:"items"`
}

type KnowledgeStore struct {
	kv       store.KV
	defaults []store.KnowledgeItem
	version  int
	hash     string

	// parsed copy of the last persisted record, keyed by its raw bytes
	mu        sync.Mutex
	cachedRaw string
	cached    []store.KnowledgeItem
}

func NewKnowledgeStore(kv store.KV) *KnowledgeStore {
	return NewKnowledgeStoreWithDefaults(kv, catalog.Version(), catalog.Default())
}

func NewKnowledgeStoreWithDefaults(kv store.KV, version int, defaults []store.KnowledgeItem) *KnowledgeStore {
	return &KnowledgeStore{
		kv:       kv,
		defaults: defaults,
		version:  version,
		hash:     catalogueHash(defaults),
	}
}

func catalogueHash(items []store.KnowledgeItem) string {
	raw, _ := json.Marshal(items)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// EnsureSeeded writes the built-in catalogue when nothing is persisted or the
// persisted record is stale. Storage failures are logged, never returned.
func (s *KnowledgeStore) EnsureSeeded(ctx context.Context) {
	log := observability.LoggerFromContext(ctx)

	raw, err := s.kv.Get(ctx, store.KnowledgeKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if s.write(ctx, s.defaults) {
			log.Info("financial knowledge base initialized", "items", len(s.defaults))
		}
		return
	case err != nil:
		absorb(ctx, "failed to read knowledge base", err)
		return
	}

	if reason := s.staleReason(raw); reason != "" {
		if s.write(ctx, s.defaults) {
			log.Info("financial knowledge base updated", "reason", reason, "items", len(s.defaults))
		}
	}
}

func (s *KnowledgeStore) staleReason(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return "unparseable"
	}
	rec := gjson.ParseBytes(raw)
	if rec.IsArray() {
		return "legacy format"
	}
	if int(rec.Get("version").Int()) != s.version {
		return "version changed"
	}
	if rec.Get("hash").String() != s.hash {
		return "content changed"
	}
	if !rec.Get("items").IsArray() || rec.Get("items.#").Int() == 0 {
		return "no entries"
	}
	if rec.Get("items.#").Int() != int64(len(s.defaults)) {
		return "entry count changed"
	}
	return ""
}

func (s *KnowledgeStore) write(ctx context.Context, items []store.KnowledgeItem) bool {
	raw, err := json.Marshal(catalogRecord{Version: s.version, Hash: s.hash, Items: items})
	if err != nil {
		absorb(ctx, "failed to encode knowledge base", err)
		return false
	}
	if err := s.kv.Set(ctx, store.KnowledgeKey, raw); err != nil {
		absorb(ctx, "failed to write knowledge base", err)
		return false
	}
	return true
}

// Load returns a copy of the imported override if one is stored, else of the
// seeded catalogue, else of the built-in one.
func (s *KnowledgeStore) Load(ctx context.Context) []store.KnowledgeItem {
	for _, key := range []string{store.KnowledgeOverrideKey, store.KnowledgeKey} {
		if items, ok := s.loadKey(ctx, key); ok {
			return cloneItems(items)
		}
	}
	return cloneItems(s.defaults)
}

func (s *KnowledgeStore) loadKey(ctx context.Context, key string) ([]store.KnowledgeItem, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			absorb(ctx, "failed to load knowledge base", err, "key", key)
		}
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.cachedRaw == string(raw) {
		return s.cached, true
	}

	items, err := parseCatalogue(raw)
	if err != nil {
		absorb(ctx, "failed to parse knowledge base", err, "key", key)
		return nil, false
	}
	s.cachedRaw, s.cached = string(raw), items
	return items, true
}

func cloneItems(items []store.KnowledgeItem) []store.KnowledgeItem {
	out := make([]store.KnowledgeItem, len(items))
	for i, item := range items {
		item.Keywords = slices.Clone(item.Keywords)
		out[i] = item
	}
	return out
}

// parseCatalogue accepts the envelope record or a bare array of entries.
func parseCatalogue(raw []byte) ([]store.KnowledgeItem, error) {
	var items []store.KnowledgeItem
	if gjson.ParseBytes(raw).IsArray() {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	} else {
		var rec catalogRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		items = rec.Items
	}

	if len(items) == 0 {
		return nil, errors.New("catalogue has no entries")
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return items, nil
}

// Import reads a catalogue file and stores it as the override Load prefers.
// EnsureSeeded never touches the override. Unlike the read path, Import
// reports every failure.
func (s *KnowledgeStore) Import(ctx context.Context, filePath string) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalogue file %s: %w", filePath, err)
	}
	items, err := parseCatalogue(contentBytes)
	if err != nil {
		return 0, fmt.Errorf("invalid catalogue file %s: %w", filePath, err)
	}

	raw, err := json.Marshal(catalogRecord{Version: s.version, Hash: s.hash, Items: items})
	if err != nil {
		return 0, fmt.Errorf("failed to encode catalogue: %w", err)
	}
	if err := s.kv.Set(ctx, store.KnowledgeOverrideKey, raw); err != nil {
		return 0, fmt.Errorf("failed to store catalogue: %w", err)
	}
	return len(items), nil
}

// ClearOverride removes an imported catalogue so Load serves the seeded one again.
func (s *KnowledgeStore) ClearOverride(ctx context.Context) error {
	if err := s.kv.Remove(ctx, store.KnowledgeOverrideKey); err != nil {
		return fmt.Errorf("failed to remove catalogue override: %w", err)
	}
	return nil
}
