package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasEveryReply(t *testing.T) {
	p := Default()
	replies := []string{
		p.Replies.SlowDown,
		p.Replies.NothingToSummarize,
		p.Replies.RestartNote,
		p.Replies.QuotaExceeded,
		p.Replies.SummaryGlitched,
		p.Replies.SummaryRateLimited,
		p.Replies.SummaryTimedOut,
		p.Replies.SummaryRefused,
		p.Replies.ChatGlitched,
		p.Replies.EmptyPrompt,
		p.Replies.HistoryCleared,
		p.Replies.SummariesDisabled,
	}
	for i, r := range replies {
		if r == "" {
			t.Errorf("default reply %d is empty", i)
		}
	}
	if p.Name == "" || p.SummaryStyle == "" || p.ChatSystem == "" {
		t.Error("default prompts must be non-empty")
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	doc := []byte(`
name: Tilly
replies:
  slow_down: "easy there"
`)
	p, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "Tilly" {
		t.Errorf("name override lost: %q", p.Name)
	}
	if p.Replies.SlowDown != "easy there" {
		t.Errorf("reply override lost: %q", p.Replies.SlowDown)
	}
	if p.Replies.NothingToSummarize != Default().Replies.NothingToSummarize {
		t.Error("unset reply should keep default")
	}
	if p.SummaryStyle != Default().SummaryStyle {
		t.Error("unset style should keep default")
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("personality: shady\n")); err == nil {
		t.Fatal("unknown top-level key must fail validation")
	}
	if _, err := Parse([]byte("replies:\n  sassy_mode: \"yes\"\n")); err == nil {
		t.Fatal("unknown reply key must fail validation")
	}
}

func TestParseRejectsWrongTypes(t *testing.T) {
	if _, err := Parse([]byte("name: 42\n")); err == nil {
		t.Fatal("non-string name must fail validation")
	}
}

func TestParseEmptyDocumentKeepsDefaults(t *testing.T) {
	p, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if p.Name != Default().Name {
		t.Errorf("empty document changed defaults: %q", p.Name)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	if err := os.WriteFile(path, []byte("name: Tilly\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "Tilly" {
		t.Errorf("got %q", p.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file must error")
	}

	if p, err := Load(""); err != nil || p.Name != Default().Name {
		t.Fatalf("empty path should return defaults, got %v %v", p.Name, err)
	}
}
