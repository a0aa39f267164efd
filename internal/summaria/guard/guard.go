// Package guard gates the expensive operations: per-actor cooldowns for
// politeness and a global daily counter so one chatty group cannot burn
// through the API budget.
package guard

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultSummarizeCooldown throttles summarize requests per actor.
	DefaultSummarizeCooldown = 30 * time.Second

	// DefaultChatCooldown throttles mention replies and /ask per actor.
	DefaultChatCooldown = 5 * time.Second

	// DefaultDailyLimit caps summarizer calls per UTC day.
	DefaultDailyLimit = 40
)

// CounterStore persists the per-day usage counter. Keying on the UTC date
// string makes day rollover implicit: a new date reads as zero.
type CounterStore interface {
	// Count returns the counter for the given UTC date ("2006-01-02").
	Count(ctx context.Context, day string) (int, error)

	// Increment adds cost to the counter for day and returns the new value.
	Increment(ctx context.Context, day string, cost int) (int, error)
}

// Config holds the guard knobs.
type Config struct {
	SummarizeCooldown time.Duration
	ChatCooldown      time.Duration
	DailyLimit        int
}

// Guard tracks cooldowns in process memory (lost on restart, which is fine
// for a politeness throttle) and delegates the daily counter to a
// CounterStore. Safe for concurrent use.
type Guard struct {
	mu         sync.Mutex
	lastAction map[string]time.Time // scope+actor → last check time

	counters CounterStore
	cfg      Config

	nowFn func() time.Time
}

// New creates a Guard. Zero config fields get the documented defaults.
func New(cfg Config, counters CounterStore) *Guard {
	if cfg.SummarizeCooldown <= 0 {
		cfg.SummarizeCooldown = DefaultSummarizeCooldown
	}
	if cfg.ChatCooldown <= 0 {
		cfg.ChatCooldown = DefaultChatCooldown
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	return &Guard{
		lastAction: make(map[string]time.Time),
		counters:   counters,
		cfg:        cfg,
		nowFn:      time.Now,
	}
}

// DailyLimit returns the configured daily cap.
func (g *Guard) DailyLimit() int {
	return g.cfg.DailyLimit
}

// SummarizeThrottled reports whether the actor is inside the summarize
// cooldown window. Every call stamps the actor's last-action time regardless
// of outcome, so rapid repeated checks keep extending the block. That quirk
// is inherited behaviour the rest of the bot depends on; do not "fix" it.
func (g *Guard) SummarizeThrottled(actorID string) bool {
	return g.throttledAt("tldr:"+actorID, g.cfg.SummarizeCooldown, g.nowFn())
}

// ChatThrottled is SummarizeThrottled for the mention/ask cooldown scope.
func (g *Guard) ChatThrottled(actorID string) bool {
	return g.throttledAt("chat:"+actorID, g.cfg.ChatCooldown, g.nowFn())
}

func (g *Guard) throttledAt(key string, window time.Duration, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, seen := g.lastAction[key]
	g.lastAction[key] = now
	return seen && now.Sub(last) < window
}

// TodayCount returns the usage counter for the current UTC day. A storage
// error reads as zero: quota enforcement degrades open rather than locking
// everyone out when the database hiccups.
func (g *Guard) TodayCount(ctx context.Context) int {
	if g.counters == nil {
		return 0
	}
	n, err := g.counters.Count(ctx, g.today())
	if err != nil {
		return 0
	}
	return n
}

// IncrementDaily bumps the current UTC day's counter by cost and returns the
// new count. With a nil or failing CounterStore it returns 0.
func (g *Guard) IncrementDaily(ctx context.Context, cost int) int {
	if g.counters == nil {
		return 0
	}
	if cost <= 0 {
		cost = 1
	}
	n, err := g.counters.Increment(ctx, g.today(), cost)
	if err != nil {
		return 0
	}
	return n
}

func (g *Guard) today() string {
	return g.nowFn().UTC().Format("2006-01-02")
}
