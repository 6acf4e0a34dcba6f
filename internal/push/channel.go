package push

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("push channel closed")

// Channel is the server push connection of one player.
//
// Registration and match rooms survive reconnects: implementations replay
// Register and every outstanding Join after the transport comes back.
// Join and Leave must be paired by callers.
type Channel interface {
	Connect(ctx context.Context) error
	Register(ctx context.Context, playerID int) error
	Join(ctx context.Context, matchID int) error
	Leave(ctx context.Context, matchID int) error
	SendChat(ctx context.Context, c Chat) error
	// Events is closed when the channel is closed or the connection is lost for good.
	Events() <-chan Event
	Close() error
}

// rooms tracks the player registration and joined matches to replay on reconnect.
type rooms struct {
	playerID int
	matches  map[int]bool
}

func newRooms() rooms {
	return rooms{matches: make(map[int]bool)}
}

// accepts reports whether a frame scoped to matchID belongs to a joined room.
// Unscoped frames are always accepted.
func (r rooms) accepts(matchID int) bool {
	return matchID == 0 || r.matches[matchID]
}

func (r rooms) replay() []Frame {
	var frames []Frame
	if r.playerID != 0 {
		frames = append(frames, registerFrame(r.playerID))
	}
	for id := range r.matches {
		frames = append(frames, joinFrame(id))
	}
	return frames
}
