package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Pub/sub channel patterns used by the game server's event relay.
const (
	matchChannelFmt  = "partida:%d:eventos"
	playerChannelFmt = "jugador:%d:eventos"
)

// MatchChannel returns the pub/sub channel carrying a match's events.
func MatchChannel(matchID int) string { return fmt.Sprintf(matchChannelFmt, matchID) }

// PlayerChannel returns the pub/sub channel carrying a player's private events.
func PlayerChannel(playerID int) string { return fmt.Sprintf(playerChannelFmt, playerID) }

// RedisChannel is a Channel backed by Redis pub/sub. The go-redis client
// resubscribes on its own after a dropped connection.
type RedisChannel struct {
	rdb    *redis.Client
	owned  bool
	mu     sync.Mutex
	pubsub *redis.PubSub
	rooms  rooms
	closed bool
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewRedisChannel connects to Redis at redisURL.
func NewRedisChannel(redisURL string) (*RedisChannel, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	c := NewRedisChannelFromClient(redis.NewClient(opts))
	c.owned = true
	return c, nil
}

// NewRedisChannelFromClient wraps an existing client. Close leaves the client open.
func NewRedisChannelFromClient(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{
		rdb:    rdb,
		rooms:  newRooms(),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Connect checks the server is reachable and starts receiving.
func (c *RedisChannel) Connect(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.pubsub != nil {
		return nil
	}

	var channels []string
	for _, f := range c.rooms.replay() {
		channels = append(channels, c.channelFor(f))
	}
	c.pubsub = c.rdb.Subscribe(ctx, channels...)
	ch := c.pubsub.Channel()

	c.wg.Add(1)
	go c.receive(ch)
	return nil
}

// Register subscribes to the player's private channel.
func (c *RedisChannel) Register(ctx context.Context, playerID int) error {
	c.mu.Lock()
	c.rooms.playerID = playerID
	ps := c.pubsub
	c.mu.Unlock()
	return c.subscribe(ctx, ps, PlayerChannel(playerID))
}

// Join subscribes to the match channel.
func (c *RedisChannel) Join(ctx context.Context, matchID int) error {
	c.mu.Lock()
	c.rooms.matches[matchID] = true
	ps := c.pubsub
	c.mu.Unlock()
	return c.subscribe(ctx, ps, MatchChannel(matchID))
}

// Leave unsubscribes from the match channel.
func (c *RedisChannel) Leave(ctx context.Context, matchID int) error {
	c.mu.Lock()
	delete(c.rooms.matches, matchID)
	ps, closed := c.pubsub, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if ps == nil {
		return nil
	}
	if err := ps.Unsubscribe(ctx, MatchChannel(matchID)); err != nil {
		return fmt.Errorf("redis unsubscribe: %w", err)
	}
	return nil
}

// SendChat publishes a chat line on the match channel.
func (c *RedisChannel) SendChat(ctx context.Context, msg Chat) error {
	raw, err := json.Marshal(map[string]string{"usuario": msg.Author, "texto": msg.Text})
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Frame{Event: EventChatMessage, MatchID: msg.MatchID, Data: raw})
	if err != nil {
		return err
	}
	if err := c.rdb.Publish(ctx, MatchChannel(msg.MatchID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Events returns the channel of decoded events.
func (c *RedisChannel) Events() <-chan Event { return c.events }

// Close stops receiving and releases the subscription.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ps := c.pubsub
	close(c.done)
	c.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
		c.wg.Wait()
	} else {
		close(c.events)
	}
	if c.owned {
		if cerr := c.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *RedisChannel) subscribe(ctx context.Context, ps *redis.PubSub, channel string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if ps == nil {
		// Subscribed on Connect.
		return nil
	}
	if err := ps.Subscribe(ctx, channel); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	return nil
}

func (c *RedisChannel) channelFor(f Frame) string {
	if f.Event == ActionRegister {
		return PlayerChannel(c.rooms.playerID)
	}
	return MatchChannel(f.MatchID)
}

func (c *RedisChannel) receive(ch <-chan *redis.Message) {
	defer c.wg.Done()
	defer close(c.events)

	for msg := range ch {
		var f Frame
		if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
			log.Debug().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed push frame")
			continue
		}
		if f.MatchID == 0 {
			f.MatchID = matchFromChannel(msg.Channel)
		}
		c.mu.Lock()
		accepted := c.rooms.accepts(f.MatchID)
		c.mu.Unlock()
		if !accepted {
			continue
		}
		ev, err := Decode(f)
		if err != nil {
			log.Debug().Err(err).Str("channel", msg.Channel).Msg("Dropping push frame")
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *RedisChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// matchFromChannel extracts the match id from a match channel name, or 0.
func matchFromChannel(channel string) int {
	rest, ok := strings.CutPrefix(channel, "partida:")
	if !ok {
		return 0
	}
	id, _, _ := strings.Cut(rest, ":")
	n, _ := strconv.Atoi(id)
	return n
}

var _ Channel = (*RedisChannel)(nil)
