package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/freeeve/galactic-conquest/internal/model"
)

type fetchResult struct {
	snap *model.Snapshot
	err  error
}

// mockFetcher answers GetMatch from a queue. A call whose result has a gate
// channel blocks until the channel is closed.
type mockFetcher struct {
	mu         sync.Mutex
	results    []fetchResult
	gates      []chan struct{}
	mission    *model.Mission
	missionErr error
	matchCalls int
	missCalls  int
}

func (m *mockFetcher) push(snap *model.Snapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, fetchResult{snap: snap, err: err})
	m.gates = append(m.gates, nil)
}

func (m *mockFetcher) pushGated(snap *model.Snapshot) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.results = append(m.results, fetchResult{snap: snap})
	m.gates = append(m.gates, gate)
	return gate
}

func (m *mockFetcher) GetMatch(ctx context.Context, _ int) (*model.Snapshot, error) {
	m.mu.Lock()
	if len(m.results) == 0 {
		m.mu.Unlock()
		return nil, errors.New("no result queued")
	}
	r, gate := m.results[0], m.gates[0]
	m.results, m.gates = m.results[1:], m.gates[1:]
	m.matchCalls++
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.snap, r.err
}

func (m *mockFetcher) GetMission(_ context.Context, _, _ int) (*model.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missCalls++
	return m.mission, m.missionErr
}

func (m *mockFetcher) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchCalls, m.missCalls
}
