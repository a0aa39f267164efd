// Package retention implements the message buffering that feeds the
// summarizer: a per-conversation in-memory buffer with time-based eviction,
// backed by a best-effort durable tier that survives restarts.
package retention

import "time"

// RootThread is the sentinel thread ID for messages posted outside any
// thread. A ConversationKey never has an empty ThreadID.
const RootThread = "root"

// ConversationKey identifies one chat/thread pair. Two messages belong to
// the same conversation iff both components are equal.
type ConversationKey struct {
	ChatID   string
	ThreadID string
}

// NewKey builds a ConversationKey, mapping an absent thread ID to RootThread.
func NewKey(chatID, threadID string) ConversationKey {
	if threadID == "" {
		threadID = RootThread
	}
	return ConversationKey{ChatID: chatID, ThreadID: threadID}
}

// Record is one stored message. Records are immutable after append.
type Record struct {
	Timestamp time.Time // arrival time, with timezone
	AuthorID  string    // stable author identity (durable tier only)
	Author    string    // display name used in transcripts
	Text      string    // message text or caption
}
