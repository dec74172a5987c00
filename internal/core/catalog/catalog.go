// Package catalog embeds the built-in financial knowledge base.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gwi.com/finance-chat/internal/store"
)

//go:embed knowledge.json
var knowledgeJSON []byte

type file struct {
	Version int                   `json:"version"`
	Items   []store.KnowledgeItem `json:"items"`
}

var builtin = mustParse(knowledgeJSON)

func mustParse(raw []byte) file {
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		panic(fmt.Sprintf("catalog: invalid embedded knowledge.json: %v", err))
	}
	for i, item := range f.Items {
		if err := item.Validate(); err != nil {
			panic(fmt.Sprintf("catalog: entry %d: %v", i, err))
		}
	}
	return f
}

// Version is bumped by hand whenever knowledge.json changes shape.
func Version() int { return builtin.Version }

// Default returns a copy of the built-in catalogue in its listed order.
func Default() []store.KnowledgeItem {
	out := make([]store.KnowledgeItem, len(builtin.Items))
	for i, item := range builtin.Items {
		item.Keywords = append([]string(nil), item.Keywords...)
		out[i] = item
	}
	return out
}

// SuggestedQuestions are the starter cards offered before a chat begins.
var SuggestedQuestions = []Suggestion{
	{Title: "What's my monthly budget?", Subtitle: "Generate a personalized budget plan"},
	{Title: "How can I save more this month?", Subtitle: "Practical saving tips based on your spending"},
	{Title: "Create a 3-month financial plan", Subtitle: "Budget, savings, and basic investment goals"},
	{Title: "Track my expenses", Subtitle: "Categorize and monitor your daily spending"},
}

type Suggestion struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}
