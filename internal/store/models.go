package store

import "fmt"

// Identity is the opaque user identifier handed over by the identity provider.
// The zero value means the caller is not signed in.
type Identity string

func (i Identity) IsZero() bool { return i == "" }

type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
)

// Rank orders difficulties easy < medium < advanced. Unknown values sort last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyAdvanced:
		return 2
	}
	return 3
}

func (d Difficulty) Valid() bool {
	return d.Rank() < 3
}

type KnowledgeItem struct {
	Keywords   []string   `json:"keywords"`
	Response   string     `json:"response"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
}

func (k KnowledgeItem) Validate() error {
	if len(k.Keywords) == 0 {
		return fmt.Errorf("knowledge item %q has no keywords", k.Category)
	}
	for _, kw := range k.Keywords {
		if kw == "" {
			return fmt.Errorf("knowledge item %q has an empty keyword", k.Category)
		}
	}
	if k.Response == "" {
		return fmt.Errorf("knowledge item %q has no response", k.Category)
	}
	if !k.Difficulty.Valid() {
		return fmt.Errorf("knowledge item %q has unknown difficulty %q", k.Category, k.Difficulty)
	}
	return nil
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   int64  `json:"time"` // milliseconds since epoch
}

// ChatHistoryEntry summarises one conversation in a user's history listing.
type ChatHistoryEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	Timestamp int64  `json:"timestamp"` // last activity, milliseconds since epoch
}
