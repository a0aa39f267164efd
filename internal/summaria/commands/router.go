// Package commands provides slash-command parsing and routing for Summaria.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
)

// Event is the transport-neutral inbound message the handlers consume. The
// transport layer is responsible for filling every field, including mapping
// "no thread" to the root sentinel inside Key.
type Event struct {
	Key     retention.ConversationKey
	EventID string // platform event ID, used for dedup upstream
	ActorID string // stable sender identity
	Author  string // sender display name
	Text    string // message text or caption
	Time    time.Time
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// Arg returns the argument at index, or "" when absent.
func (c *Command) Arg(index int) string {
	if index < 0 || index >= len(c.Args) {
		return ""
	}
	return c.Args[index]
}

// Rest returns all arguments joined back into one string.
func (c *Command) Rest() string {
	return strings.Join(c.Args, " ")
}

// ErrNotACommand is returned by Parse when the message does not start with
// the slash prefix. Callers should use errors.Is to distinguish this
// expected case from real errors.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// Handler handles one command.
type Handler func(ctx context.Context, cmd *Command, evt *Event) (string, error)

// Router routes slash commands to handlers.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register registers a handler under a command name (without the slash).
func (r *Router) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Parse splits a message into a Command. Messages not starting with "/" are
// not commands; "/name@botname arg" forms (common in group chats) have the
// suffix stripped.
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, ErrNotACommand
	}

	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	name := strings.ToLower(parts[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	return &Command{Name: name, Args: parts[1:]}, nil
}

// Route parses text and dispatches to the matching handler. Unknown
// commands are ignored silently: in a group chat, "/" lines are often meant
// for other bots.
func (r *Router) Route(ctx context.Context, text string, evt *Event) (string, error) {
	cmd, err := r.Parse(text)
	if err != nil {
		return "", err
	}

	handler, ok := r.handlers[cmd.Name]
	if !ok {
		return "", nil
	}
	return handler(ctx, cmd, evt)
}
