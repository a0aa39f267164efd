// Package pipeline orchestrates one summarize (or chat) request end to end.
// It is the last line of defense: every path out of Run produces reply text,
// never an error, so a glitch can not leave a request hanging or crash the
// event loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/guard"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/persona"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/summarizer"
)

const (
	// DefaultStartupGrace is how long after process start the empty-result
	// reply discloses that pre-restart history is unavailable.
	DefaultStartupGrace = 90 * time.Minute

	// DefaultMaxTranscriptBytes caps the transcript handed to the
	// summarizer. When exceeded, whole records are dropped from the oldest
	// end. This bounds prompt size beyond the window/record limits.
	DefaultMaxTranscriptBytes = 24 * 1024
)

// Config holds the pipeline knobs.
type Config struct {
	StartupGrace       time.Duration
	MaxTranscriptBytes int
}

// Pipeline wires the retention store, guard, persona, and summarizer into
// the request flow. Constructed once at startup and shared by handlers.
type Pipeline struct {
	retention  *retention.Store
	guard      *guard.Guard
	summarizer summarizer.Summarizer
	chatter    summarizer.Chatter
	persona    persona.Persona
	logger     *slog.Logger

	startedAt time.Time
	cfg       Config

	nowFn func() time.Time
}

// New creates a Pipeline. summarizer and chatter may be nil (no API key
// configured); the corresponding requests then get the "disabled" reply.
func New(ret *retention.Store, g *guard.Guard, sum summarizer.Summarizer, chat summarizer.Chatter, p persona.Persona, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = DefaultStartupGrace
	}
	if cfg.MaxTranscriptBytes <= 0 {
		cfg.MaxTranscriptBytes = DefaultMaxTranscriptBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retention:  ret,
		guard:      g,
		summarizer: sum,
		chatter:    chat,
		persona:    p,
		logger:     logger,
		startedAt:  time.Now(),
		cfg:        cfg,
		nowFn:      time.Now,
	}
}

// Summarize runs one summarize request: cooldown → window → fetch → empty
// and quota branches → transcript → summarizer → reply. The returned string
// is always ready to send to the chat.
func (p *Pipeline) Summarize(ctx context.Context, key retention.ConversationKey, actorID, windowToken string) string {
	traceID := uuid.NewString()

	if p.guard.SummarizeThrottled(actorID) {
		return p.persona.Replies.SlowDown
	}

	window := retention.ResolveWindow(windowToken, p.retention.Horizon())
	records := p.retention.Query(ctx, key, window)

	if len(records) == 0 {
		reply := p.persona.Replies.NothingToSummarize
		if p.nowFn().Sub(p.startedAt) < p.cfg.StartupGrace {
			reply += " " + p.persona.Replies.RestartNote
		}
		return reply
	}

	if p.summarizer == nil {
		return p.persona.Replies.SummariesDisabled
	}

	if p.guard.TodayCount(ctx) >= p.guard.DailyLimit() {
		return p.persona.Replies.QuotaExceeded
	}

	transcript, dropped := buildTranscript(records, p.cfg.MaxTranscriptBytes)
	if dropped > 0 {
		p.logger.Info("transcript truncated from oldest end",
			"trace_id", traceID, "dropped", dropped, "kept", len(records)-dropped)
	}

	out, err := p.summarizer.Summarize(ctx, transcript, p.persona.SummaryStyle)
	if err != nil {
		p.logger.Error("summarize failed",
			"trace_id", traceID, "chat", key.ChatID, "thread", key.ThreadID,
			"window", window, "records", len(records), "err", err)
		return p.summaryFailureReply(err)
	}

	count := p.guard.IncrementDaily(ctx, 1)
	p.logger.Info("summary delivered",
		"trace_id", traceID, "chat", key.ChatID, "thread", key.ThreadID,
		"window", window, "records", len(records), "usage_today", count)
	return strings.TrimSpace(out)
}

// Chat answers a mention or /ask prompt in character, behind the chat
// cooldown and the shared daily quota.
func (p *Pipeline) Chat(ctx context.Context, actorID, authorName, prompt string) string {
	traceID := uuid.NewString()

	if p.guard.ChatThrottled(actorID) {
		return p.persona.Replies.SlowDown
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return p.persona.Replies.EmptyPrompt
	}

	if p.chatter == nil {
		return p.persona.Replies.SummariesDisabled
	}

	if p.guard.TodayCount(ctx) >= p.guard.DailyLimit() {
		return p.persona.Replies.QuotaExceeded
	}

	out, err := p.chatter.Reply(ctx, p.persona.ChatSystem, "The user is "+authorName+". "+prompt)
	if err != nil {
		p.logger.Error("chat reply failed", "trace_id", traceID, "actor", actorID, "err", err)
		return p.persona.Replies.ChatGlitched
	}

	count := p.guard.IncrementDaily(ctx, 1)
	p.logger.Info("chat reply delivered", "trace_id", traceID, "actor", actorID, "usage_today", count)
	return strings.TrimSpace(out)
}

// summaryFailureReply maps a summarizer failure class to its persona line.
// Raw error text never reaches the chat.
func (p *Pipeline) summaryFailureReply(err error) string {
	switch {
	case errors.Is(err, summarizer.ErrRateLimited):
		return p.persona.Replies.SummaryRateLimited
	case errors.Is(err, summarizer.ErrTimedOut), errors.Is(err, context.DeadlineExceeded):
		return p.persona.Replies.SummaryTimedOut
	case errors.Is(err, summarizer.ErrContentPolicy):
		return p.persona.Replies.SummaryRefused
	default:
		return p.persona.Replies.SummaryGlitched
	}
}

// buildTranscript joins records as "Author: text" lines, oldest first.
// When the result would exceed maxBytes, whole records are dropped from the
// oldest end; dropped reports how many.
func buildTranscript(records []retention.Record, maxBytes int) (string, int) {
	// Compute the total size, then find the oldest record we can keep.
	sizes := make([]int, len(records))
	total := 0
	for i, r := range records {
		sizes[i] = len(r.Author) + 2 + len(r.Text) + 1 // "Author: text\n"
		total += sizes[i]
	}

	start := 0
	for start < len(records)-1 && total > maxBytes {
		total -= sizes[start]
		start++
	}

	var b strings.Builder
	for i, r := range records[start:] {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Author)
		b.WriteString(": ")
		b.WriteString(r.Text)
	}
	return b.String(), start
}
