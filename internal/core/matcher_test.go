package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/finance-chat/internal/core/catalog"
	"gwi.com/finance-chat/internal/store"
)

func TestMatchBuiltInCatalogue(t *testing.T) {
	items := catalog.Default()

	tests := []struct {
		name       string
		input      string
		wantPrefix string
	}{
		{"saving question", "How can I save more this month?", "Start saving by: 1) Pay yourself first"},
		{"budget question", "What's my monthly budget?", "A budget is a plan"},
		{"expenses", "Track my expenses", "Track expenses using"},
		{"uppercase input", "HOW CAN I SAVE MORE THIS MONTH?", "Start saving by: 1) Pay yourself first"},
		{"easy beats medium", "I want to save money and invest in index funds", "Start saving by"},
		{"medium only", "How do I start investing?", "Start investing with these steps"},
		{"advanced only", "What is tax harvesting?", "Tax-loss harvesting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(items, tt.input)
			assert.True(t, strings.HasPrefix(got, tt.wantPrefix), "got %q", got)
		})
	}
}

func TestMatchFallback(t *testing.T) {
	assert.Equal(t, FallbackResponse, Match(catalog.Default(), "xyz random gibberish"))
	assert.Equal(t, FallbackResponse, Match(catalog.Default(), "Create a 3-month financial plan"))
	assert.Equal(t, FallbackResponse, Match(catalog.Default(), ""))
	assert.Equal(t, FallbackResponse, Match(nil, "budget"))
}

func TestMatchLowestDifficultyWins(t *testing.T) {
	items := testCatalogue()

	assert.Equal(t, "advanced options", Match(items, "tell me about options"))
	assert.Equal(t, "medium invest A", Match(items, "options or invest?"))
	assert.Equal(t, "easy budget", Match(items, "budget, invest and derivatives"))
}

func TestMatchTiesKeepCatalogueOrder(t *testing.T) {
	items := testCatalogue()

	// both medium entries contain "invest"; the earlier listed one wins
	assert.Equal(t, "medium invest A", Match(items, "should I invest in an index fund"))

	matches := Matches(items, "derivatives, index fund, invest")
	require.Len(t, matches, 3)
	assert.Equal(t, "medium invest A", matches[0].Response)
	assert.Equal(t, "medium invest B", matches[1].Response)
	assert.Equal(t, "advanced options", matches[2].Response)
}

func TestMatchIsDeterministicAndPure(t *testing.T) {
	items := testCatalogue()
	before := catalogueHash(items)

	first := Match(items, "budget and invest")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Match(items, "budget and invest"))
	}
	assert.Equal(t, before, catalogueHash(items), "matching must not reorder the catalogue")
}

func TestMatchKeywordCaseInsensitive(t *testing.T) {
	items := []store.KnowledgeItem{
		{Keywords: []string{"Roth IRA"}, Response: "roth", Difficulty: store.DifficultyMedium, Category: "retirement"},
	}
	assert.Equal(t, "roth", Match(items, "what is a roth ira"))
}

func TestMatcherReadsKnowledgeStore(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	knowledge := NewKnowledgeStoreWithDefaults(kv, 1, testCatalogue())
	knowledge.EnsureSeeded(ctx)

	m := NewMatcher(knowledge)
	assert.Equal(t, "easy budget", m.Match(ctx, "Budget please"))
	assert.Equal(t, FallbackResponse, m.Match(ctx, "weather"))
}
