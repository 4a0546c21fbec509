package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the lifecycle state of a connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the label shown while the roster waits for a connection.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateConnecting:
		return "connecting"
	default:
		return "disconnected"
	}
}

// Handler receives a decoded inbound message. Handlers run on the read loop
// and must not block.
type Handler func(Message)

// AnyEvent registers a handler for every inbound message.
const AnyEvent = "*"

const writeTimeout = 10 * time.Second

// DialOptions configures Dial.
type DialOptions struct {
	URL    string
	Token  string
	Logger *slog.Logger
	Dialer *websocket.Dialer
}

// Client is one authenticated WebSocket connection to the event channel.
type Client struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	state    State
	handlers map[string]map[uint64]Handler
	nextID   uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a connection and starts its read loop.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("socket: url is required")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("socket: dial %s: %w (status %d)", opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("socket: dial %s: %w", opts.URL, err)
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		id:       id,
		conn:     conn,
		logger:   logger.With("component", "socket", "connection_id", id),
		state:    StateConnected,
		handlers: make(map[string]map[uint64]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	c.logger.Info("socket connected", "url", opts.URL)
	return c, nil
}

// ID returns the connection identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	if c == nil {
		return StateDisconnected
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connected reports whether messages can currently be emitted.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Done is closed once the connection has terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// On registers h for inbound messages named event (or AnyEvent) and returns
// a function that removes it.
func (c *Client) On(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h

	return func() {
		c.mu.Lock()
		delete(c.handlers[event], id)
		c.mu.Unlock()
	}
}

// Emit sends msg. It fails with ErrDisconnected once the connection is gone;
// nothing is queued for later delivery.
func (c *Client) Emit(ctx context.Context, msg Message) error {
	if !c.Connected() {
		return ErrDisconnected
	}
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("socket: set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.terminate()
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.logger.Debug("socket message emitted", "event", msg.EventName())
	return nil
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.Connected() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	}
	c.terminate()
	<-c.done
	return err
}

func (c *Client) terminate() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() {
		c.terminate()
		close(c.done)
		c.logger.Info("socket disconnected")
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.Connected() {
				c.logger.Warn("socket read failed", "error", err)
			}
			return
		}

		msg, err := Decode(frame)
		if err != nil {
			c.logger.Warn("dropping inbound frame", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.RLock()
	targets := make([]Handler, 0, len(c.handlers[msg.EventName()])+len(c.handlers[AnyEvent]))
	for _, h := range c.handlers[msg.EventName()] {
		targets = append(targets, h)
	}
	for _, h := range c.handlers[AnyEvent] {
		targets = append(targets, h)
	}
	c.mu.RUnlock()

	for _, h := range targets {
		h(msg)
	}
}
