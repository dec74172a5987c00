package store

const KnowledgeKey = "financeKnowledgeBase"

// KnowledgeOverrideKey holds an imported catalogue that takes precedence
// over the seeded one.
const KnowledgeOverrideKey = "financeKnowledgeOverride"

func HistoryKey(id Identity) string {
	return "chatHistories-" + string(id)
}

func TranscriptKey(id Identity, chatID string) string {
	return "financeChat-" + string(id) + "-" + chatID
}
