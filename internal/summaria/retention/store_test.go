package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeTier is an in-memory DurableTier for tests. It can be told to fail.
type fakeTier struct {
	rows    map[ConversationKey][]Record
	failing bool
	inserts int
}

func newFakeTier() *fakeTier {
	return &fakeTier{rows: make(map[ConversationKey][]Record)}
}

func (f *fakeTier) Insert(_ context.Context, key ConversationKey, rec Record) error {
	if f.failing {
		return errors.New("database is locked")
	}
	f.inserts++
	f.rows[key] = append(f.rows[key], rec)
	return nil
}

func (f *fakeTier) Since(_ context.Context, key ConversationKey, since time.Time) ([]Record, error) {
	if f.failing {
		return nil, errors.New("database is locked")
	}
	var out []Record
	for _, r := range f.rows[key] {
		if r.Timestamp.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func testStore(t *testing.T, tier DurableTier, now time.Time) *Store {
	t.Helper()
	s := NewStore(Config{}, tier, nil)
	s.nowFn = func() time.Time { return now }
	return s
}

func rec(ts time.Time, author, text string) Record {
	return Record{Timestamp: ts, AuthorID: "@" + author, Author: author, Text: text}
}

func TestNewKeyRootSentinel(t *testing.T) {
	k := NewKey("!room:example.org", "")
	if k.ThreadID != RootThread {
		t.Errorf("empty thread should map to %q, got %q", RootThread, k.ThreadID)
	}
	if k2 := NewKey("!room:example.org", "$thread1"); k2.ThreadID != "$thread1" {
		t.Errorf("explicit thread lost: %q", k2.ThreadID)
	}
}

func TestAppendThenQueryReturnsAllInOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(t, nil, now)
	key := NewKey("G1", "")

	const n = 300
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(n-i) * time.Second)
		s.appendAt(context.Background(), key, rec(ts, "Alice", fmt.Sprintf("msg %d", i)), now)
	}

	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != n {
		t.Fatalf("expected %d records, got %d", n, len(got))
	}
	for i, r := range got {
		if r.Text != fmt.Sprintf("msg %d", i) {
			t.Fatalf("record %d out of order: %q", i, r.Text)
		}
	}
}

func TestQueryWindowFiltersOldRecords(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(t, nil, now)
	key := NewKey("G1", "")

	s.appendAt(context.Background(), key, rec(now.Add(-50*time.Minute), "Alice", "old"), now)
	s.appendAt(context.Background(), key, rec(now.Add(-10*time.Minute), "Bob", "fresh"), now)
	s.appendAt(context.Background(), key, rec(now.Add(-5*time.Minute), "Bob", "fresher"), now)

	got := s.queryAt(context.Background(), key, 30*time.Minute, now)
	if len(got) != 2 || got[0].Text != "fresh" || got[1].Text != "fresher" {
		t.Fatalf("window filter wrong: %+v", got)
	}
}

func TestQueryIsolatesConversations(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(t, nil, now)
	a := NewKey("G1", "")
	b := NewKey("G1", "$topic")
	c := NewKey("G2", "")

	s.appendAt(context.Background(), a, rec(now.Add(-time.Minute), "Alice", "in root"), now)
	s.appendAt(context.Background(), b, rec(now.Add(-time.Minute), "Bob", "in topic"), now)
	s.appendAt(context.Background(), c, rec(now.Add(-time.Minute), "Cleo", "other chat"), now)

	got := s.queryAt(context.Background(), b, time.Hour, now)
	if len(got) != 1 || got[0].Text != "in topic" {
		t.Fatalf("cross-conversation leak: %+v", got)
	}
}

func TestAppendEvictsPastHorizon(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := testStore(t, nil, now)
	key := NewKey("G1", "")

	s.appendAt(context.Background(), key, rec(now.Add(-4*time.Hour), "Alice", "ancient"), now)
	s.appendAt(context.Background(), key, rec(now.Add(-time.Minute), "Bob", "recent"), now)

	s.mu.Lock()
	buf := s.buffers[key]
	s.mu.Unlock()
	if len(buf) != 1 || buf[0].Text != "recent" {
		t.Fatalf("lazy eviction failed: %+v", buf)
	}
}

func TestClearDropsMemoryOnly(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tier := newFakeTier()
	s := testStore(t, tier, now)
	key := NewKey("G1", "")

	for i := 0; i < 5; i++ {
		s.appendAt(context.Background(), key, rec(now.Add(-time.Minute), "Alice", "hi"), now)
	}
	s.Clear(key)

	s.mu.Lock()
	_, ok := s.buffers[key]
	s.mu.Unlock()
	if ok {
		t.Fatal("in-memory buffer survived Clear")
	}

	// The durable tier still has the rows, so the fallback may serve them.
	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != 5 {
		t.Fatalf("expected durable fallback after Clear, got %d records", len(got))
	}
}

func TestQueryFallsBackToDurableWhenMemoryThin(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tier := newFakeTier()
	key := NewKey("G1", "")

	// Simulate a restart: rows exist durably but memory is empty.
	for i := 0; i < 4; i++ {
		tier.rows[key] = append(tier.rows[key],
			rec(now.Add(-time.Duration(10-i)*time.Minute), "Alice", fmt.Sprintf("pre-restart %d", i)))
	}
	s := testStore(t, tier, now)

	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != 4 {
		t.Fatalf("expected 4 durable records after restart, got %d", len(got))
	}
}

func TestQueryPrefersLargerResultSet(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tier := newFakeTier()
	s := testStore(t, tier, now)
	key := NewKey("G1", "")

	// Two in-memory records (below threshold 3) but only one durable row:
	// memory wins because it is larger.
	s.appendAt(context.Background(), key, rec(now.Add(-2*time.Minute), "Alice", "a"), now)
	tier.rows[key] = tier.rows[key][:1]
	s.appendAt(context.Background(), key, rec(now.Add(-time.Minute), "Bob", "b"), now)
	tier.rows[key] = tier.rows[key][:1]

	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != 2 {
		t.Fatalf("expected the larger (memory) set, got %d records", len(got))
	}
}

func TestQueryAboveThresholdSkipsDurable(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tier := newFakeTier()
	s := testStore(t, tier, now)
	key := NewKey("G1", "")

	for i := 0; i < 3; i++ {
		s.appendAt(context.Background(), key, rec(now.Add(-time.Minute), "Alice", "hi"), now)
	}
	tier.failing = true // would error if consulted

	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != 3 {
		t.Fatalf("expected 3 in-memory records, got %d", len(got))
	}
}

func TestDurableFailuresNeverSurface(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tier := newFakeTier()
	tier.failing = true
	s := testStore(t, tier, now)
	key := NewKey("G1", "")

	// Append must succeed in memory despite the durable tier being locked.
	s.appendAt(context.Background(), key, rec(now.Add(-time.Minute), "Alice", "hi"), now)

	got := s.queryAt(context.Background(), key, time.Hour, now)
	if len(got) != 1 {
		t.Fatalf("memory append lost when durable tier failed: %d records", len(got))
	}
}
