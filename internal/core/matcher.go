package core

import (
	"context"
	"slices"
	"strings"

	"gwi.com/finance-chat/internal/store"
)

// FallbackResponse is returned when no catalogue keyword occurs in the input.
const FallbackResponse = "I can help with budgeting, saving, investments, taxes, insurance, retirement planning, and advanced topics like derivatives, portfolio management, and estate planning. Try asking: 'How do I start investing?' or 'What is tax harvesting?' or 'Explain asset allocation'"

// CatalogueSource supplies the catalogue the matcher reads.
type CatalogueSource interface {
	Load(ctx context.Context) []store.KnowledgeItem
}

type Matcher struct {
	knowledge CatalogueSource
}

func NewMatcher(knowledge CatalogueSource) *Matcher {
	return &Matcher{knowledge: knowledge}
}

// Match answers input from the current catalogue.
func (m *Matcher) Match(ctx context.Context, input string) string {
	return Match(m.knowledge.Load(ctx), input)
}

// Match returns the response of the easiest entry with a keyword contained in
// input (case-insensitive). Among equally difficult matches the entry listed
// first in items wins. Without any match it returns FallbackResponse.
func Match(items []store.KnowledgeItem, input string) string {
	if best, ok := BestMatch(items, input); ok {
		return best.Response
	}
	return FallbackResponse
}

// BestMatch reports the winning entry, if any.
func BestMatch(items []store.KnowledgeItem, input string) (store.KnowledgeItem, bool) {
	matches := Matches(items, input)
	if len(matches) == 0 {
		return store.KnowledgeItem{}, false
	}
	return matches[0], true
}

// Matches returns every matching entry ordered by difficulty rank, keeping
// catalogue order within a rank.
func Matches(items []store.KnowledgeItem, input string) []store.KnowledgeItem {
	lowerText := strings.ToLower(input)

	var matches []store.KnowledgeItem
	for _, item := range items {
		if containsAnyKeyword(lowerText, item.Keywords) {
			matches = append(matches, item)
		}
	}

	slices.SortStableFunc(matches, func(a, b store.KnowledgeItem) int {
		return a.Difficulty.Rank() - b.Difficulty.Rank()
	})
	return matches
}

func containsAnyKeyword(lowerText string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowerText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
