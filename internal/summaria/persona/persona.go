// Package persona holds the bot's voice: the summary style instruction, the
// in-character chat prompt, and every user-facing reply string. Operators can
// override any of it with a YAML file; the file is validated against an
// embedded JSON Schema before use so a typo'd key fails loudly at startup
// instead of silently falling back to defaults.
package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// schema describes the persona YAML document.
const schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "summary_style": {"type": "string", "minLength": 1},
    "chat_system": {"type": "string", "minLength": 1},
    "replies": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "slow_down": {"type": "string"},
        "nothing_to_summarize": {"type": "string"},
        "restart_note": {"type": "string"},
        "quota_exceeded": {"type": "string"},
        "summary_glitched": {"type": "string"},
        "summary_rate_limited": {"type": "string"},
        "summary_timed_out": {"type": "string"},
        "summary_refused": {"type": "string"},
        "chat_glitched": {"type": "string"},
        "empty_prompt": {"type": "string"},
        "history_cleared": {"type": "string"},
        "summaries_disabled": {"type": "string"}
      }
    }
  }
}`

// Persona is the resolved configuration with all defaults applied.
type Persona struct {
	Name         string  `yaml:"name"`
	SummaryStyle string  `yaml:"summary_style"`
	ChatSystem   string  `yaml:"chat_system"`
	Replies      Replies `yaml:"replies"`
}

// Replies are the user-facing strings. Every failure and control-flow
// outcome has its own line; none of them ever carry raw error text.
type Replies struct {
	SlowDown           string `yaml:"slow_down"`
	NothingToSummarize string `yaml:"nothing_to_summarize"`
	RestartNote        string `yaml:"restart_note"`
	QuotaExceeded      string `yaml:"quota_exceeded"`
	SummaryGlitched    string `yaml:"summary_glitched"`
	SummaryRateLimited string `yaml:"summary_rate_limited"`
	SummaryTimedOut    string `yaml:"summary_timed_out"`
	SummaryRefused     string `yaml:"summary_refused"`
	ChatGlitched       string `yaml:"chat_glitched"`
	EmptyPrompt        string `yaml:"empty_prompt"`
	HistoryCleared     string `yaml:"history_cleared"`
	SummariesDisabled  string `yaml:"summaries_disabled"`
}

// Default returns the built-in Summaria persona.
func Default() Persona {
	return Persona{
		Name:         "Summaria",
		SummaryStyle: "You summarize group chats like a helpful assistant. No emojis or bullet points. Just plain text in the order things were said.",
		ChatSystem:   "You are Summaria, a smart, shady group chat girlbot. Witty, fun, and helpful. You know you're a bot, but you talk like a regular. Casual, warm, and in the loop.",
		Replies: Replies{
			SlowDown:           "Slow down, boo 😘",
			NothingToSummarize: "Nothing juicy to summarize 💅",
			RestartNote:        "Heads up: I restarted a little while ago, so anything from before that is gone.",
			QuotaExceeded:      "I've hit my daily summary limit, babe. Resets at midnight UTC ⏳",
			SummaryGlitched:    "Babe I tried, but the summary glitched 😵",
			SummaryRateLimited: "I'm talking too fast for the machine. Give it a minute and ask again 🙏",
			SummaryTimedOut:    "That one took too long and I gave up. Try again in a bit ⏱",
			SummaryRefused:     "I read it, but I'm not allowed to summarize that one 😶",
			ChatGlitched:       "I tried baby but my brain glitched 🫠",
			EmptyPrompt:        "👀 I'm here — say something cute.",
			HistoryCleared:     "Message history cleared. Fresh start 💁",
			SummariesDisabled:  "Summaries are off right now — nobody gave me a brain (API key).",
		},
	}
}

// Load reads a persona YAML file, validates it against the schema, and
// merges it over the defaults. An empty path returns the defaults as-is.
func Load(path string) (Persona, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("persona: read %s: %w", path, err)
	}
	if err := parseInto(&p, data); err != nil {
		return Persona{}, fmt.Errorf("persona: %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a persona document, merging over defaults.
func Parse(data []byte) (Persona, error) {
	p := Default()
	if err := parseInto(&p, data); err != nil {
		return Persona{}, err
	}
	return p, nil
}

func parseInto(p *Persona, data []byte) error {
	// Validate the raw document first so unknown keys and wrong types are
	// reported with schema paths instead of being dropped by the struct
	// decoder.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		return nil // empty file keeps all defaults
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("persona.json", strings.NewReader(schema)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	sch, err := compiler.Compile("persona.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(raw); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
