// Package summarizer talks to an OpenAI-compatible chat completions API.
// It exposes the two capabilities the bot needs: turn a transcript into a
// summary, and answer a prompt in character.
package summarizer

import (
	"context"
	"errors"
)

// Typed failure classes so callers can pick the right user-facing message.
// All of them wrap the real cause for logging.
var (
	// ErrRateLimited means the API returned HTTP 429.
	ErrRateLimited = errors.New("summarizer: rate limited")

	// ErrTimedOut means the request exceeded its deadline.
	ErrTimedOut = errors.New("summarizer: timed out")

	// ErrContentPolicy means the API refused the input on policy grounds.
	ErrContentPolicy = errors.New("summarizer: content policy refusal")
)

// Summarizer produces a conversational summary of a chat transcript.
// The style instruction tells the model how to sound.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, style string) (string, error)
}

// Chatter answers a single prompt in character, given a persona system
// prompt. Used for mentions and the flavor commands.
type Chatter interface {
	Reply(ctx context.Context, system, prompt string) (string, error)
}
