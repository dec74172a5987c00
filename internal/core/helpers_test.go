package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"gwi.com/finance-chat/internal/store"
)

var errStorageDown = errors.New("storage unavailable")

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errStorageDown }
func (failingKV) Set(context.Context, string, []byte) error   { return errStorageDown }
func (failingKV) Remove(context.Context, string) error        { return errStorageDown }
func (failingKV) Close() error                                { return nil }

// countingKV counts writes on top of a MemoryStore.
type countingKV struct {
	*store.MemoryStore
	mu   sync.Mutex
	sets map[string]int
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryStore: store.NewMemoryStore(), sets: make(map[string]int)}
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets[key]++
	c.mu.Unlock()
	return c.MemoryStore.Set(ctx, key, value)
}

func (c *countingKV) setCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[key]
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{t: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func testCatalogue() []store.KnowledgeItem {
	return []store.KnowledgeItem{
		{Keywords: []string{"options", "derivatives"}, Response: "advanced options", Difficulty: store.DifficultyAdvanced, Category: "advanced_investment"},
		{Keywords: []string{"invest"}, Response: "medium invest A", Difficulty: store.DifficultyMedium, Category: "investment"},
		{Keywords: []string{"budget"}, Response: "easy budget", Difficulty: store.DifficultyEasy, Category: "budgeting"},
		{Keywords: []string{"index fund", "invest"}, Response: "medium invest B", Difficulty: store.DifficultyMedium, Category: "investment"},
	}
}
