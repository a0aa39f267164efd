// Package matrix provides the Matrix transport for Summaria: receiving
// group messages and delivering reply text. The core never sees mautrix
// types; the app layer converts events at the boundary.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	Rooms       []string // room IDs the bot serves
	// DB is an optional SQLite connection used to persist the Matrix sync
	// token (next_batch) across restarts. When nil, an in-memory store is
	// used and room history will be replayed on every restart.
	DB *sql.DB
}

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler
}

// MessageHandler processes incoming Matrix messages.
type MessageHandler func(ctx context.Context, evt *event.Event)

// New creates a Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	// A persistent sync store lets the bot resume from the last known
	// position after a restart instead of replaying room history.
	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing in the background.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	// Sync with exponential back-off reconnection. Without retries a
	// transient homeserver error would silently kill the sync goroutine
	// and leave the bot deaf to all new messages.
	go func() {
		var backoff time.Duration
		for {
			start := time.Now()
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				backoff = reconnectDelay(backoff, time.Since(start))
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				continue
			}
			// Sync returned nil, which only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

const (
	reconnectMin = 2 * time.Second
	reconnectMax = 5 * time.Minute

	// syncHealthyAfter is how long a sync has to stay up before the next
	// failure restarts the back-off progression from the minimum.
	syncHealthyAfter = time.Minute
)

// reconnectDelay returns the wait before the next sync attempt. Consecutive
// short-lived failures double the previous delay up to the cap; a sync that
// stayed healthy for a while resets the progression.
func reconnectDelay(prev, uptime time.Duration) time.Duration {
	if prev <= 0 || uptime >= syncHealthyAfter {
		return reconnectMin
	}
	next := prev * 2
	if next > reconnectMax {
		next = reconnectMax
	}
	return next
}

// Stop stops the Matrix client.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage sends a text message to a room.
func (c *Client) SendMessage(roomID, message string) error {
	_, err := c.client.SendText(context.Background(), id.RoomID(roomID), message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ReplyToMessage sends a reply to a specific message.
func (c *Client) ReplyToMessage(roomID, eventID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    message,
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{
				EventID: id.EventID(eventID),
			},
		},
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// SendNotice sends a notice message (less intrusive than normal messages).
func (c *Client) SendNotice(roomID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}
	return nil
}

// SetTyping sets the typing indicator while a summary is being produced.
func (c *Client) SetTyping(roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(context.Background(), id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// IsWatchedRoom checks whether the bot serves the given room.
func (c *Client) IsWatchedRoom(roomID string) bool {
	for _, r := range c.config.Rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

// GetUserID returns the bot's own user ID.
func (c *Client) GetUserID() string {
	return c.config.UserID
}

// GetDisplayName resolves a user's display name.
func (c *Client) GetDisplayName(userID string) (string, error) {
	profile, err := c.client.GetProfile(context.Background(), id.UserID(userID))
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.DisplayName, nil
}

// handleMessage filters incoming events before handing them to the app.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	if ExtractText(evt) == "" {
		return
	}

	if !c.IsWatchedRoom(evt.RoomID.String()) {
		return
	}

	if c.msgHandler != nil {
		c.msgHandler(ctx, evt)
	}
}

// ExtractText returns the message text, or the caption for media messages.
// Returns "" for events the bot has no use for.
func ExtractText(evt *event.Event) string {
	content := evt.Content.AsMessage()
	if content == nil {
		return ""
	}
	switch content.MsgType {
	case event.MsgText:
		return content.Body
	case event.MsgImage, event.MsgVideo, event.MsgFile, event.MsgAudio:
		// For media, Body is the caption when a separate FileName is set;
		// otherwise it is just the upload's filename and carries no words.
		if content.FileName != "" && content.Body != content.FileName {
			return content.Body
		}
	}
	return ""
}

// ThreadID returns the event's thread root, or "" for messages outside any
// thread. The caller maps "" to the root sentinel.
func ThreadID(evt *event.Event) string {
	content := evt.Content.AsMessage()
	if content == nil || content.RelatesTo == nil {
		return ""
	}
	return content.RelatesTo.GetThreadParent().String()
}

// joinRoom attempts to join a room.
func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		// M_FORBIDDEN is returned by homeservers when the bot is already a
		// member of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
