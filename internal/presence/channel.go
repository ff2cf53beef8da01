package presence

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"airtrack/internal/config"
	"airtrack/internal/logging"
	"airtrack/internal/services"
)

// Status describes the channel connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Settings configure a presence channel.
type Settings struct {
	URL          string
	DocumentID   string
	Token        string
	Username     string
	PingInterval time.Duration
	Backoff      Policy
}

// SettingsFromConfig derives channel settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{
		PingInterval: 25 * time.Second,
		Backoff:      DefaultPolicy,
	}
	if cfg == nil {
		return s
	}
	s.URL = cfg.Collaboration.URL
	s.DocumentID = cfg.Collaboration.DocumentID
	s.Token = cfg.Traffic.APIToken
	s.Username = cfg.Collaboration.Username
	if cfg.Collaboration.PingInterval > 0 {
		s.PingInterval = time.Duration(cfg.Collaboration.PingInterval) * time.Second
	}
	s.Backoff = Policy{
		Base:        time.Duration(cfg.Collaboration.ReconnectBaseSeconds) * time.Second,
		Max:         time.Duration(cfg.Collaboration.ReconnectMaxSeconds) * time.Second,
		MaxAttempts: cfg.Collaboration.ReconnectAttempts,
	}
	return s
}

// ChannelOption configures optional Channel behavior.
type ChannelOption func(*Channel)

// WithEventHandler registers a callback invoked for every inbound event
// after it has been applied to the collaborator set.
func WithEventHandler(fn func(Event)) ChannelOption {
	return func(c *Channel) {
		c.onEvent = fn
	}
}

// WithDialFunc overrides the WebSocket dialer, used by tests.
func WithDialFunc(dial func(ctx context.Context, endpoint string) (*websocket.Conn, error)) ChannelOption {
	return func(c *Channel) {
		c.dial = dial
	}
}

// Channel maintains a best-effort presence connection for a shared daily
// log. Delivery is at most once and unordered across reconnects; a
// users_list frame is the authoritative snapshot after any reconnect. The
// channel owns at most one outstanding reconnect timer, invalidated on
// disconnect.
type Channel struct {
	settings Settings
	logger   *slog.Logger
	set      *CollaboratorSet
	dial     func(ctx context.Context, endpoint string) (*websocket.Conn, error)
	onEvent  func(Event)

	writeMu sync.Mutex

	mu             sync.Mutex
	conn           *websocket.Conn
	status         Status
	attempts       int
	reconnectTimer *time.Timer
	closed         bool
	generation     int
	baseCtx        context.Context
	pingStop       chan struct{}
}

// NewChannel constructs a presence channel. Connect must be called before
// any events flow.
func NewChannel(settings Settings, logger *slog.Logger, opts ...ChannelOption) *Channel {
	if settings.PingInterval <= 0 {
		settings.PingInterval = 25 * time.Second
	}
	if settings.Backoff.Base <= 0 {
		settings.Backoff = DefaultPolicy
	}
	c := &Channel{
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "presence"),
		set:      NewCollaboratorSet(),
		status:   StatusDisconnected,
	}
	c.dial = func(ctx context.Context, endpoint string) (*websocket.Conn, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return conn, err
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collaborators returns the tracked collaborator set.
func (c *Channel) Collaborators() *CollaboratorSet {
	return c.set
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Attempts returns the consecutive failed reconnect attempts since the last
// successful connection.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Channel) endpoint() string {
	base := strings.TrimRight(c.settings.URL, "/")
	return fmt.Sprintf("%s/%s?token=%s", base, url.PathEscape(c.settings.DocumentID), url.QueryEscape(c.settings.Token))
}

// Connect opens the channel. The server replies with an initial users_list
// snapshot once the connection is established.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.attempts = 0
	c.baseCtx = ctx
	c.status = StatusConnecting
	c.mu.Unlock()

	return c.establish(ctx)
}

func (c *Channel) establish(ctx context.Context) error {
	conn, err := c.dial(ctx, c.endpoint())
	if err != nil {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		return services.Wrap(services.ErrConnectionLost, "presence", "connect", c.settings.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.status = StatusConnected
	c.attempts = 0
	c.generation++
	generation := c.generation
	c.pingStop = make(chan struct{})
	pingStop := c.pingStop
	c.mu.Unlock()

	c.logger.Info("presence channel connected",
		logging.String(logging.FieldEventType, "presence_connected"),
		logging.String("document_id", c.settings.DocumentID))

	go c.readLoop(conn, generation)
	go c.pingLoop(pingStop)
	return nil
}

// Disconnect cancels any pending reconnect timer and closes the connection.
// Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed && c.conn == nil && c.reconnectTimer == nil {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	c.set.Reset()
}

// Reconnect manually re-establishes the channel after the retry ceiling was
// reached or an explicit disconnect.
func (c *Channel) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.closed = false
	c.attempts = 0
	c.baseCtx = ctx
	c.status = StatusConnecting
	c.mu.Unlock()

	return c.establish(ctx)
}

func (c *Channel) readLoop(conn *websocket.Conn, generation int) {
	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			c.handleDisconnect(conn, generation, err)
			return
		}
		c.handleEvent(event)
	}
}

func (c *Channel) handleEvent(event Event) {
	if !event.Kind.Known() {
		c.logger.Debug("ignoring unknown presence event kind",
			logging.String("kind", string(event.Kind)))
		return
	}
	if event.Kind == KindPong || event.Kind == KindPing {
		return
	}
	c.set.Apply(event)
	if c.onEvent != nil {
		c.onEvent(event)
	}
}

func (c *Channel) handleDisconnect(conn *websocket.Conn, generation int, err error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.generation != generation || c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	c.status = StatusDisconnected
	c.mu.Unlock()

	c.logger.Warn("presence channel lost",
		logging.Error(err),
		logging.String(logging.FieldEventType, "presence_disconnected"),
		logging.String(logging.FieldImpact, "collaborator presence is stale until reconnect"))

	c.scheduleReconnect()
}

func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	if c.settings.Backoff.Exhausted(c.attempts) {
		c.mu.Unlock()
		c.logger.Error("presence reconnect ceiling reached; waiting for manual reconnect",
			logging.Int("attempts", c.attempts),
			logging.String(logging.FieldEventType, "presence_reconnect_exhausted"),
			logging.String(logging.FieldErrorHint, "run 'airtrack presence reconnect' or restart the daemon"))
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := c.settings.Backoff.Delay(attempt)
	c.status = StatusConnecting
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		ctx := c.baseCtx
		c.mu.Unlock()
		if closed {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.establish(ctx); err != nil {
			c.scheduleReconnect()
		}
	})
	c.mu.Unlock()

	c.logger.Info("presence reconnect scheduled",
		logging.Int("attempt", attempt),
		logging.Duration("delay", delay))
}

func (c *Channel) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.send(Event{Kind: KindPing, Username: c.settings.Username}); err != nil {
				return
			}
		}
	}
}

func (c *Channel) send(event Event) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return services.Wrap(services.ErrConnectionLost, "presence", "send", string(event.Kind), nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(event)
}

// SendCursor broadcasts the local cursor position.
func (c *Channel) SendCursor(cursor Cursor) error {
	return c.send(Event{Kind: KindCursorUpdate, Username: c.settings.Username, Cursor: &cursor})
}

// SendSpotUpdate announces which spot the local user is editing.
func (c *Channel) SendSpotUpdate(spotID string) error {
	return c.send(Event{Kind: KindSpotUpdate, Username: c.settings.Username, SpotID: spotID})
}

// SendLock acquires or releases the advisory log lock flag.
func (c *Channel) SendLock(locked bool) error {
	return c.send(Event{Kind: KindLogLock, Username: c.settings.Username, Locked: &locked})
}

// SendTyping broadcasts typing state.
func (c *Channel) SendTyping(typing bool) error {
	return c.send(Event{Kind: KindTyping, Username: c.settings.Username, Typing: &typing})
}
