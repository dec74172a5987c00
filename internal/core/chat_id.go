package core

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

const chatIDPrefix = "chat-"

// ChatIDGenerator mints time-derived chat ids that strictly increase within
// the process, even when two mints land in the same millisecond.
type ChatIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewChatIDGenerator(now func() time.Time) *ChatIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &ChatIDGenerator{now: now}
}

func (g *ChatIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return chatIDPrefix + strconv.FormatInt(ms, 10)
}

// chatIDPattern is the only form Next mints. Identities may contain '-', so a
// transcript key stays unambiguous only while the chat id has no other shape.
var chatIDPattern = regexp.MustCompile(`^chat-[0-9]{1,19}$`)

// ValidChatID reports whether id has the minted chat-<millis> form.
func ValidChatID(id string) bool {
	return chatIDPattern.MatchString(id)
}
