package commands

import (
	"context"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	r := NewRouter()
	tests := []struct {
		name     string
		text     string
		wantName string
		wantArgs []string
		wantErr  bool
		notACmd  bool
	}{
		{name: "bare command", text: "/tldr", wantName: "tldr"},
		{name: "with window token", text: "/tldr 3h", wantName: "tldr", wantArgs: []string{"3h"}},
		{name: "multi-arg", text: "/ask what is the move", wantName: "ask", wantArgs: []string{"what", "is", "the", "move"}},
		{name: "bot suffix stripped", text: "/tldr@summariabot 1h", wantName: "tldr", wantArgs: []string{"1h"}},
		{name: "case folded", text: "/TLDR", wantName: "tldr"},
		{name: "leading space ok", text: "  /tldr", wantName: "tldr"},
		{name: "plain text is not a command", text: "hello there", notACmd: true},
		{name: "empty is not a command", text: "", notACmd: true},
		{name: "lone slash errors", text: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := r.Parse(tt.text)
			if tt.notACmd {
				if !errors.Is(err, ErrNotACommand) {
					t.Fatalf("expected ErrNotACommand, got %v", err)
				}
				return
			}
			if tt.wantErr {
				if err == nil || errors.Is(err, ErrNotACommand) {
					t.Fatalf("expected a real error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if cmd.Name != tt.wantName {
				t.Errorf("name = %q, want %q", cmd.Name, tt.wantName)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", cmd.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestRouteUnknownCommandIsSilent(t *testing.T) {
	r := NewRouter()
	r.Register("tldr", func(ctx context.Context, cmd *Command, evt *Event) (string, error) {
		return "summary", nil
	})

	out, err := r.Route(context.Background(), "/someotherbot do stuff", &Event{})
	if err != nil || out != "" {
		t.Fatalf("unknown command should be ignored, got %q err %v", out, err)
	}

	out, err = r.Route(context.Background(), "/tldr", &Event{})
	if err != nil || out != "summary" {
		t.Fatalf("known command failed: %q err %v", out, err)
	}
}

func TestCommandAccessors(t *testing.T) {
	cmd := &Command{Name: "ask", Args: []string{"what", "now"}}
	if cmd.Arg(0) != "what" || cmd.Arg(5) != "" || cmd.Arg(-1) != "" {
		t.Error("Arg bounds handling wrong")
	}
	if cmd.Rest() != "what now" {
		t.Errorf("Rest = %q", cmd.Rest())
	}
}

func TestMentionPrompt(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		bot        string
		wantPrompt string
		wantFound  bool
	}{
		{name: "mention with prompt", text: "Summaria what should we eat", bot: "Summaria", wantPrompt: "what should we eat", wantFound: true},
		{name: "case insensitive", text: "hey Summaria, thoughts?", bot: "summaria", wantPrompt: "hey , thoughts?", wantFound: true},
		{name: "at-mention", text: "@summaria: you up?", bot: "Summaria", wantPrompt: "you up?", wantFound: true},
		{name: "bare mention", text: "Summaria", bot: "Summaria", wantPrompt: "", wantFound: true},
		{name: "no mention", text: "lunch anyone", bot: "Summaria", wantFound: false},
		{name: "empty bot name", text: "anything", bot: "", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, found := MentionPrompt(tt.text, tt.bot)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && prompt != tt.wantPrompt {
				t.Errorf("prompt = %q, want %q", prompt, tt.wantPrompt)
			}
		})
	}
}
