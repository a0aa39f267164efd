package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/persona"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/pipeline"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
)

// Fixed prompts for the flavor commands. The persona system prompt carries
// the voice; these just pick the move.
const (
	shadePrompt  = "Deliver a playful, light-hearted tease. Never mean."
	advicePrompt = "Give spontaneous, stylish advice like you're a chat regular."
)

// Handlers implements the command handlers. All state lives in the injected
// collaborators; Handlers itself is stateless and safe for concurrent use.
type Handlers struct {
	pipeline  *pipeline.Pipeline
	retention *retention.Store
	persona   persona.Persona
}

// NewHandlers creates the Handlers.
func NewHandlers(p *pipeline.Pipeline, ret *retention.Store, pers persona.Persona) *Handlers {
	return &Handlers{pipeline: p, retention: ret, persona: pers}
}

// RegisterAll wires every command onto the router, including the long-form
// aliases the bot historically answered to.
func (h *Handlers) RegisterAll(r *Router) {
	r.Register("tldr", h.HandleTLDR)
	r.Register("clear", h.HandleClear)
	r.Register("clearhistory", h.HandleClear)
	r.Register("help", h.HandleHelp)
	r.Register("ask", h.HandleAsk)
	r.Register("asksummaria", h.HandleAsk)
	r.Register("shade", h.HandleShade)
	r.Register("advice", h.HandleAdvice)
	r.Register("summariadvice", h.HandleAdvice)
}

// HandleTLDR runs the summarize pipeline with the optional window token
// ("3h", "45m", "all"). The pipeline owns every outcome, so this never
// returns an error.
func (h *Handlers) HandleTLDR(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	return h.pipeline.Summarize(ctx, evt.Key, evt.ActorID, cmd.Arg(0)), nil
}

// HandleClear drops the in-memory buffer for this conversation. History
// already persisted durably is not erased; the buffer just starts fresh.
func (h *Handlers) HandleClear(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	h.retention.Clear(evt.Key)
	return h.persona.Replies.HistoryCleared, nil
}

// HandleHelp lists the commands.
func (h *Handlers) HandleHelp(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	return fmt.Sprintf(
		"/tldr [3h|45m|all] — summarize the recent conversation (default 3h)\n"+
			"/clear — forget this conversation's buffer\n"+
			"/ask <question> — ask %s anything\n"+
			"/shade — request a little shade\n"+
			"/advice — unsolicited but stylish advice\n"+
			"Mention me by name for replies 💅",
		h.persona.Name,
	), nil
}

// HandleAsk answers a free-form question in character.
func (h *Handlers) HandleAsk(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	return h.pipeline.Chat(ctx, evt.ActorID, evt.Author, cmd.Rest()), nil
}

// HandleShade delivers the tease.
func (h *Handlers) HandleShade(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	return h.pipeline.Chat(ctx, evt.ActorID, evt.Author, shadePrompt), nil
}

// HandleAdvice delivers the advice.
func (h *Handlers) HandleAdvice(ctx context.Context, cmd *Command, evt *Event) (string, error) {
	return h.pipeline.Chat(ctx, evt.ActorID, evt.Author, advicePrompt), nil
}

// MentionPrompt extracts the prompt from a message that mentions the bot by
// name, stripping the mention itself. Returns ("", false) when the message
// does not mention the bot.
func MentionPrompt(text, botName string) (string, bool) {
	if botName == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	name := strings.ToLower(botName)

	idx := strings.Index(lower, name)
	if idx < 0 {
		return "", false
	}

	prompt := text[:idx] + text[idx+len(name):]
	prompt = strings.TrimSpace(prompt)
	prompt = strings.TrimLeft(prompt, "@:,.!? \t")
	return strings.TrimSpace(prompt), true
}
