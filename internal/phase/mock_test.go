package phase

import (
	"context"
	"errors"
	"sync"

	"github.com/freeeve/galactic-conquest/internal/model"
)

type mockSubmitter struct {
	mu       sync.Mutex
	commands []model.Command
	reply    *model.CommandReply
	err      error
	gate     chan struct{}
	entered  chan struct{}
}

func (m *mockSubmitter) Submit(ctx context.Context, cmd model.Command) (*model.CommandReply, error) {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	gate, entered := m.gate, m.entered
	reply, err := m.reply, m.err
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if reply == nil {
		reply = &model.CommandReply{}
	}
	return reply, nil
}

func (m *mockSubmitter) sent() []model.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Command(nil), m.commands...)
}

// mockRefresher returns next on every call, or err.
type mockRefresher struct {
	mu    sync.Mutex
	next  *model.Snapshot
	err   error
	calls int
}

func (m *mockRefresher) Refresh(context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.next == nil {
		return nil, errors.New("nothing to refresh")
	}
	return m.next, nil
}

func (m *mockRefresher) set(snap *model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = snap
}

func (m *mockRefresher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
