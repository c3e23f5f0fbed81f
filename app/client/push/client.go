package push

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"phoenix/app/config"
	"phoenix/app/service/session"

	"github.com/gorilla/websocket"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Handlers dispatches decoded push frames. Nil fields drop their frame type.
type Handlers struct {
	AudioChunk       func(ctx context.Context, sequence int, audio []byte)
	WidgetCreate     func(id, category, title string, data json.RawMessage)
	WidgetUpdate     func(id string, progress int, section string, data json.RawMessage)
	WidgetComplete   func(id, category, message string, data json.RawMessage)
	ProcessingStatus func(status string)
}

type frame struct {
	Type     string          `json:"type"`
	Sequence int             `json:"sequence,omitempty"`
	Chunk    string          `json:"chunk,omitempty"`
	Format   string          `json:"format,omitempty"`
	WidgetID string          `json:"widgetId,omitempty"`
	Category string          `json:"category,omitempty"`
	Title    string          `json:"title,omitempty"`
	Progress int             `json:"progress,omitempty"`
	Section  string          `json:"section,omitempty"`
	Message  string          `json:"message,omitempty"`
	Status   string          `json:"status,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Client maintains the push stream: one WebSocket connection authenticated
// by query-string token, reconnected with exponential backoff for as long
// as the session holds credentials.
type Client struct {
	cfg      *config.Config
	session  *session.Service
	handlers Handlers
}

func New(di *do.Injector) (*Client, error) {
	return &Client{
		cfg:     do.MustInvoke[*config.Config](di),
		session: do.MustInvoke[*session.Service](di),
	}, nil
}

// NewWithDeps builds the client outside the injector, used by tests.
func NewWithDeps(cfg *config.Config, sess *session.Service) *Client {
	return &Client{cfg: cfg, session: sess}
}

func (c *Client) SetHandlers(handlers Handlers) {
	c.handlers = handlers
}

// Run connects and serves frames until ctx is cancelled. Dropped connections
// reconnect with exponential backoff capped at reconnectMaxDelay, a
// successful connect resets the backoff.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		token := c.session.Token()
		if token == "" {
			// Not logged in yet, poll instead of dialing a rejected socket.
			if err := sleepCtx(ctx, reconnectBaseDelay); err != nil {
				return err
			}
			continue
		}

		connected, err := c.serve(ctx, token)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			attempts = 0
		}

		delay := reconnectBaseDelay << attempts
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		} else {
			attempts++
		}

		slog.Warn("Push stream disconnected, reconnecting", "delay", delay, "error", err)

		if err = sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// serve reports whether the connection was established so the caller can
// reset its backoff, separately from the error that ended it.
func (c *Client) serve(ctx context.Context, token string) (bool, error) {
	url := c.cfg.Backend.WSURL + "/phoenix-stream?token=" + token

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, oops.Errorf("failed to dial push stream: %w", err)
	}
	defer conn.Close()

	slog.Info("Push stream connected")

	// Unblock ReadMessage when ctx goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, oops.Errorf("push stream read failed: %w", err)
		}

		var msg frame
		if err = json.Unmarshal(raw, &msg); err != nil {
			slog.Error("Failed to parse push frame", "error", err)
			continue
		}

		c.dispatch(ctx, conn, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, conn *websocket.Conn, msg frame) {
	switch msg.Type {
	case "audio_chunk":
		if c.handlers.AudioChunk == nil {
			return
		}

		audio, err := base64.StdEncoding.DecodeString(msg.Chunk)
		if err != nil {
			slog.Error("Failed to decode audio chunk", "sequence", msg.Sequence, "error", err)
			return
		}

		c.handlers.AudioChunk(ctx, msg.Sequence, audio)

	case "widget_create":
		if c.handlers.WidgetCreate != nil {
			c.handlers.WidgetCreate(msg.WidgetID, msg.Category, msg.Title, msg.Data)
		}

	case "widget_update":
		if c.handlers.WidgetUpdate != nil {
			c.handlers.WidgetUpdate(msg.WidgetID, msg.Progress, msg.Section, msg.Data)
		}

	case "widget_complete":
		if c.handlers.WidgetComplete != nil {
			c.handlers.WidgetComplete(msg.WidgetID, msg.Category, msg.Message, msg.Data)
		}

	case "processing_status":
		if c.handlers.ProcessingStatus != nil {
			c.handlers.ProcessingStatus(msg.Status)
		}

	case "heartbeat":
		if err := conn.WriteJSON(frame{Type: "heartbeat_ack"}); err != nil {
			slog.Error("Failed to ack heartbeat", "error", err)
		}

	default:
		slog.Debug("Unknown push frame type", "type", msg.Type)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
