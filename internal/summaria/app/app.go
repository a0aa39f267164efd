// Package app provides the main Summaria application
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/commands"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/guard"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/matrix"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/persona"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/pipeline"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/store"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/summarizer"
)

const (
	// pruneInterval is how often the durable message log and the stale usage
	// counters are trimmed.
	pruneInterval = time.Hour

	// usageKeepDays is how many days of usage counters to keep around. Only
	// today's row is ever read; older rows exist for eyeballing the database.
	usageKeepDays = 7

	// typingTimeout caps the typing indicator while a summary is in flight.
	typingTimeout = 30 * time.Second
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	Matrix       matrix.Config

	// PersonaPath is an optional YAML file overriding the built-in persona.
	// When empty, the stock Summaria voice is used.
	PersonaPath string

	// LLM configures the OpenAI-compatible backend. When LLM.APIKey is empty
	// the bot still buffers messages and answers commands, but summarize and
	// chat requests get the "disabled" reply.
	LLM summarizer.Config

	Guard     guard.Config
	Retention retention.Config

	// StartupGrace is how long after start the bot discloses that
	// pre-restart history may be missing. Zero uses the pipeline default.
	StartupGrace time.Duration

	// HTTPAddr is the TCP address for the optional health/status HTTP server
	// (e.g. ":8080"). When empty the server is disabled.
	HTTPAddr string

	// BotName is the name the bot answers to when mentioned in chat.
	// Defaults to the persona name.
	BotName string
}

// App is the main Summaria application
type App struct {
	config       *Config
	store        *store.Store
	retention    *retention.Store
	guard        *guard.Guard
	pipeline     *pipeline.Pipeline
	persona      persona.Persona
	matrix       *matrix.Client
	router       *commands.Router
	dedup        *deduper
	healthServer *HealthServer
	botName      string

	nameMu    sync.Mutex
	nameCache map[string]string
}

// New creates a new Summaria application
func New(config *Config) (*App, error) {
	// Initialize database
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Matrix client.
	// Inject the DB so the client can persist the sync token across restarts.
	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
	}

	// Load persona (voice, reply strings).
	pers, err := persona.Load(config.PersonaPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load persona: %w", err)
	}
	slog.Info("persona ready", "name", pers.Name)

	botName := config.BotName
	if botName == "" {
		botName = pers.Name
	}

	// Two-tier retention: hot in-memory buffers, sqlite as the durable
	// fallback that survives restarts.
	ret := retention.NewStore(config.Retention, st, slog.Default())
	g := guard.New(config.Guard, st)

	// LLM backend. Nil when no key is configured; the pipeline degrades to
	// the "disabled" reply instead of erroring.
	var sum summarizer.Summarizer
	var chat summarizer.Chatter
	if config.LLM.APIKey != "" {
		client := summarizer.New(config.LLM)
		sum, chat = client, client
		slog.Info("summarizer ready", "model", config.LLM.Model)
	} else {
		slog.Warn("no LLM API key configured; summaries and chat are disabled")
	}

	pipe := pipeline.New(ret, g, sum, chat, pers, pipeline.Config{
		StartupGrace: config.StartupGrace,
	}, slog.Default())

	// Command router with all slash commands and their aliases.
	router := commands.NewRouter()
	handlers := commands.NewHandlers(pipe, ret, pers)
	handlers.RegisterAll(router)

	// Optionally build the health/status HTTP server.
	var healthServer *HealthServer
	if config.HTTPAddr != "" {
		healthServer = NewHealthServer(config.HTTPAddr, g)
		slog.Info("health server configured", "addr", config.HTTPAddr)
	}

	return &App{
		config:       config,
		store:        st,
		retention:    ret,
		guard:        g,
		pipeline:     pipe,
		persona:      pers,
		matrix:       matrixClient,
		router:       router,
		dedup:        newDeduper(0),
		healthServer: healthServer,
		botName:      botName,
		nameCache:    make(map[string]string),
	}, nil
}

// Run starts the Summaria application
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start health/status HTTP server if configured.
	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	// Start Matrix client
	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	// Periodically trim the durable log past the retention horizon and drop
	// stale usage counter rows.
	go a.pruneLoop(ctx)

	// Send startup message to watched rooms
	for _, roomID := range a.config.Matrix.Rooms {
		a.matrix.SendNotice(roomID, fmt.Sprintf("💖 %s is back! Type /help to see what I can do.", a.persona.Name))
	}

	slog.Info("Summaria is running; press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the Summaria application
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	slog.Info("closing database")
	a.store.Close()
}

// pruneLoop trims old rows on a fixed cadence for as long as ctx lives.
func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-a.retention.Horizon())
			if n, err := a.store.PruneMessages(ctx, cutoff); err != nil {
				slog.Warn("prune messages", "err", err)
			} else if n > 0 {
				slog.Info("pruned old messages", "rows", n)
			}

			keepFrom := time.Now().UTC().AddDate(0, 0, -usageKeepDays).Format("2006-01-02")
			if err := a.store.PruneUsage(ctx, keepFrom); err != nil {
				slog.Warn("prune usage counters", "err", err)
			}
		}
	}
}

// handleMessage processes one incoming Matrix message: dedup, buffer, then
// route commands or mention replies. The Matrix client has already filtered
// out our own messages, empty events, and unwatched rooms.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	if a.dedup.Seen(evt.ID.String()) {
		return
	}

	text := matrix.ExtractText(evt)
	key := retention.NewKey(evt.RoomID.String(), matrix.ThreadID(evt))

	cmdEvt := &commands.Event{
		Key:     key,
		EventID: evt.ID.String(),
		ActorID: evt.Sender.String(),
		Author:  a.displayName(evt.Sender.String()),
		Text:    text,
		Time:    time.UnixMilli(evt.Timestamp),
	}

	var response string
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		a.matrix.SetTyping(key.ChatID, true, typingTimeout)
		defer a.matrix.SetTyping(key.ChatID, false, 0)

		var err error
		response, err = a.router.Route(ctx, text, cmdEvt)
		if err != nil {
			slog.Warn("route command", "room", key.ChatID, "err", err)
			return
		}
	} else {
		// Ordinary chat message: remember it, then answer if we were
		// mentioned by name.
		a.retention.Append(ctx, key, retention.Record{
			Timestamp: cmdEvt.Time,
			AuthorID:  cmdEvt.ActorID,
			Author:    cmdEvt.Author,
			Text:      text,
		})

		prompt, mentioned := commands.MentionPrompt(text, a.botName)
		if !mentioned {
			return
		}

		a.matrix.SetTyping(key.ChatID, true, typingTimeout)
		defer a.matrix.SetTyping(key.ChatID, false, 0)
		response = a.pipeline.Chat(ctx, cmdEvt.ActorID, cmdEvt.Author, prompt)
	}

	if response == "" {
		return
	}

	if err := a.matrix.ReplyToMessage(key.ChatID, cmdEvt.EventID, response); err != nil {
		slog.Error("failed to send reply", "room", key.ChatID, "err", err)
	}
}

// displayName resolves (and caches) a sender's display name, falling back to
// the user ID when the profile lookup fails or comes back empty.
func (a *App) displayName(userID string) string {
	a.nameMu.Lock()
	if name, ok := a.nameCache[userID]; ok {
		a.nameMu.Unlock()
		return name
	}
	a.nameMu.Unlock()

	name, err := a.matrix.GetDisplayName(userID)
	if err != nil || name == "" {
		return userID
	}

	a.nameMu.Lock()
	a.nameCache[userID] = name
	a.nameMu.Unlock()
	return name
}
