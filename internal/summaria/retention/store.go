package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/common/retry"
)

// DefaultFallbackThreshold is the in-memory record count below which a query
// also consults the durable tier. Immediately after a restart the in-memory
// tier is empty, so without the fallback every query would report "nothing
// to summarize" until fresh traffic accumulates.
const DefaultFallbackThreshold = 3

// DurableTier is the persistent backing store for records. Implementations
// may return errors freely; the Store treats every durable failure as
// "the durable tier returned nothing" and never propagates it.
type DurableTier interface {
	// Insert persists one record under the given key.
	Insert(ctx context.Context, key ConversationKey, rec Record) error

	// Since returns records for key with Timestamp > since, oldest first.
	Since(ctx context.Context, key ConversationKey, since time.Time) ([]Record, error)
}

// Config holds the tunable knobs of a Store.
type Config struct {
	// Horizon is the retention ceiling. In-memory records older than this
	// are evicted lazily on append. Default: 180 minutes.
	Horizon time.Duration

	// FallbackThreshold is the in-memory result count below which the
	// durable tier is also queried. Default: 3.
	FallbackThreshold int
}

// Store buffers recent conversation text per ConversationKey. The in-memory
// tier is authoritative for ordering and eviction; the durable tier is
// best-effort and consulted only when memory looks suspiciously thin.
// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	buffers map[ConversationKey][]Record

	durable   DurableTier
	horizon   time.Duration
	threshold int
	logger    *slog.Logger

	// nowFn is swapped in tests.
	nowFn func() time.Time
}

// NewStore creates a Store. The durable tier may be nil, in which case the
// store is memory-only. If logger is nil the default slog logger is used.
func NewStore(cfg Config, durable DurableTier, logger *slog.Logger) *Store {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.FallbackThreshold <= 0 {
		cfg.FallbackThreshold = DefaultFallbackThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		buffers:   make(map[ConversationKey][]Record),
		durable:   durable,
		horizon:   cfg.Horizon,
		threshold: cfg.FallbackThreshold,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Horizon returns the configured retention ceiling.
func (s *Store) Horizon() time.Duration {
	return s.horizon
}

// Append records a message for key. The in-memory append always succeeds;
// the durable write is retried a few times and then given up on silently,
// so the caller sees at-least-best-effort behaviour either way.
// Records older than the horizon are evicted from the key's buffer on the
// same call (lazy eviction keeps memory bounded by recent traffic).
func (s *Store) Append(ctx context.Context, key ConversationKey, rec Record) {
	s.appendAt(ctx, key, rec, s.nowFn())
}

func (s *Store) appendAt(ctx context.Context, key ConversationKey, rec Record, now time.Time) {
	s.mu.Lock()
	s.buffers[key] = append(s.buffers[key], rec)
	s.evictLocked(key, now)
	s.mu.Unlock()

	if s.durable == nil {
		return
	}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	}, func() error {
		return s.durable.Insert(ctx, key, rec)
	})
	if err != nil {
		s.logger.Warn("retention: durable write skipped",
			"chat", key.ChatID, "thread", key.ThreadID, "err", err)
	}
}

// Query returns records for key with Timestamp > now-window, oldest first.
// The in-memory tier is consulted first; when it yields fewer than the
// fallback threshold, the durable tier is also queried and the larger of the
// two result sets wins. Durable failures degrade to memory-only results.
func (s *Store) Query(ctx context.Context, key ConversationKey, window time.Duration) []Record {
	return s.queryAt(ctx, key, window, s.nowFn())
}

func (s *Store) queryAt(ctx context.Context, key ConversationKey, window time.Duration, now time.Time) []Record {
	cutoff := now.Add(-window)

	s.mu.Lock()
	var fromMemory []Record
	for _, r := range s.buffers[key] {
		if r.Timestamp.After(cutoff) {
			fromMemory = append(fromMemory, r)
		}
	}
	s.mu.Unlock()

	if len(fromMemory) >= s.threshold || s.durable == nil {
		return fromMemory
	}

	fromDurable, err := s.durable.Since(ctx, key, cutoff)
	if err != nil {
		s.logger.Warn("retention: durable query failed, serving memory only",
			"chat", key.ChatID, "thread", key.ThreadID, "err", err)
		return fromMemory
	}

	if len(fromDurable) > len(fromMemory) {
		return fromDurable
	}
	return fromMemory
}

// Clear drops the in-memory buffer for key. The durable tier is untouched:
// clearing means "forget going forward", not durable erasure.
func (s *Store) Clear(key ConversationKey) {
	s.mu.Lock()
	delete(s.buffers, key)
	s.mu.Unlock()
}

// evictLocked removes records older than the horizon. Must hold mu.
func (s *Store) evictLocked(key ConversationKey, now time.Time) {
	cutoff := now.Add(-s.horizon)
	buf := s.buffers[key]

	// Records arrive roughly in time order, so find the first survivor and
	// slice; a single out-of-order stale record is caught next append.
	i := 0
	for i < len(buf) && !buf[i].Timestamp.After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	if i == len(buf) {
		delete(s.buffers, key)
		return
	}
	s.buffers[key] = append(buf[:0:0], buf[i:]...)
}
