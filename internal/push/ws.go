package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait        = 10 * time.Second
	eventBufferSize  = 64
	defaultMaxTries  = 8
	defaultRetryWait = 250 * time.Millisecond
)

// WSChannel is a Channel over a single websocket connection that redials on loss.
type WSChannel struct {
	url    string
	token  string
	dialer *websocket.Dialer

	initialRetry time.Duration
	maxTries     uint

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  rooms
	closed bool

	writeMu sync.Mutex
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
}

// WSOption configures a WSChannel.
type WSOption func(*WSChannel)

// WithRetry sets the first reconnect delay and the number of dial attempts per reconnect.
func WithRetry(initial time.Duration, maxTries uint) WSOption {
	return func(c *WSChannel) {
		c.initialRetry = initial
		c.maxTries = maxTries
	}
}

// NewWSChannel creates a websocket channel for the endpoint, authenticating with token.
func NewWSChannel(endpoint, token string, opts ...WSOption) *WSChannel {
	c := &WSChannel{
		url:          endpoint,
		token:        token,
		dialer:       websocket.DefaultDialer,
		initialRetry: defaultRetryWait,
		maxTries:     defaultMaxTries,
		rooms:        newRooms(),
		events:       make(chan Event, eventBufferSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the endpoint, sends any registration and rooms recorded
// before the connection existed, and starts the reader goroutine.
func (c *WSChannel) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	frames := c.rooms.replay()
	c.mu.Unlock()

	for _, f := range frames {
		if err := c.send(f); err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			conn.Close()
			return err
		}
	}

	c.wg.Add(1)
	go c.readLoop(ctx, conn)
	return nil
}

// Register announces the player on the connection.
func (c *WSChannel) Register(_ context.Context, playerID int) error {
	c.mu.Lock()
	c.rooms.playerID = playerID
	c.mu.Unlock()
	return c.send(registerFrame(playerID))
}

// Join subscribes to a match's event room.
func (c *WSChannel) Join(_ context.Context, matchID int) error {
	c.mu.Lock()
	c.rooms.matches[matchID] = true
	c.mu.Unlock()
	return c.send(joinFrame(matchID))
}

// Leave unsubscribes from a match's event room; reconnects no longer rejoin it.
func (c *WSChannel) Leave(_ context.Context, matchID int) error {
	c.mu.Lock()
	delete(c.rooms.matches, matchID)
	c.mu.Unlock()
	return c.send(leaveFrame(matchID))
}

// SendChat posts a chat line to a match.
func (c *WSChannel) SendChat(_ context.Context, msg Chat) error {
	return c.send(chatFrame(msg))
}

// Events returns the channel of decoded events.
func (c *WSChannel) Events() <-chan Event { return c.events }

// Close closes the connection and waits for the reader to stop.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}
	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	return conn, nil
}

func (c *WSChannel) send(f Frame) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		// Not connected yet; Connect sends the recorded rooms.
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("ws write %s: %w", f.Event, err)
	}
	return nil
}

func (c *WSChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.events)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() || ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Push connection lost, reconnecting")
			conn, err = c.reconnect(ctx)
			if err != nil {
				if !c.isClosed() {
					log.Error().Err(err).Msg("Push reconnect failed")
					c.emit(ErrorOccurred{Message: "lost connection to the game server"})
				}
				return
			}
			continue
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Debug().Err(err).Msg("Dropping malformed push frame")
			continue
		}
		c.mu.Lock()
		accepted := c.rooms.accepts(f.MatchID)
		c.mu.Unlock()
		if !accepted {
			log.Debug().Str("event", f.Event).Int("matchId", f.MatchID).Msg("Dropping frame for a room not joined")
			continue
		}
		ev, err := Decode(f)
		if err != nil {
			log.Debug().Err(err).Msg("Dropping push frame")
			continue
		}
		if !c.emit(ev) {
			return
		}
	}
}

// reconnect redials with exponential backoff and replays registration and rooms.
func (c *WSChannel) reconnect(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialRetry

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		if c.isClosed() {
			return nil, backoff.Permanent(ErrClosed)
		}
		return c.dial(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	c.conn = conn
	frames := c.rooms.replay()
	c.mu.Unlock()

	for _, f := range frames {
		if err := c.send(f); err != nil {
			conn.Close()
			return nil, err
		}
	}
	log.Info().Int("rooms", len(frames)).Msg("Push connection re-established")
	return conn, nil
}

func (c *WSChannel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *WSChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ Channel = (*WSChannel)(nil)

// IsClosed reports whether err stems from using a closed channel.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }
