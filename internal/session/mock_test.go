package session

import (
	"context"
	"sync"

	"github.com/freeeve/galactic-conquest/internal/push"
)

type mockChannel struct {
	mu         sync.Mutex
	events     chan push.Event
	connectErr error
	registered []int
	joined     []int
	left       []int
	chats      []push.Chat
	closed     bool
}

func newMockChannel() *mockChannel {
	return &mockChannel{events: make(chan push.Event, 16)}
}

func (m *mockChannel) Connect(context.Context) error { return m.connectErr }

func (m *mockChannel) Register(_ context.Context, playerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, playerID)
	return nil
}

func (m *mockChannel) Join(_ context.Context, matchID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = append(m.joined, matchID)
	return nil
}

func (m *mockChannel) Leave(_ context.Context, matchID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, matchID)
	return nil
}

func (m *mockChannel) SendChat(_ context.Context, c push.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, c)
	return nil
}

func (m *mockChannel) Events() <-chan push.Event { return m.events }

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockChannel) state() (joined, left []int, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.joined...), append([]int(nil), m.left...), m.closed
}
