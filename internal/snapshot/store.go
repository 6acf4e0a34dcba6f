// Package snapshot holds the last server-confirmed state of one match.
package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/galactic-conquest/internal/model"
)

// ErrSuperseded is returned by Refresh when a later refresh was issued
// before this one completed. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// Fetcher reads match state from the game server.
type Fetcher interface {
	GetMatch(ctx context.Context, matchID int) (*model.Snapshot, error)
	GetMission(ctx context.Context, matchID, playerID int) (*model.Mission, error)
}

// Store caches the snapshot and secret mission of one match for one player.
// It never writes to the server.
type Store struct {
	fetcher  Fetcher
	matchID  int
	playerID int

	mu      sync.RWMutex
	issued  uint64
	snap    *model.Snapshot
	mission *model.Mission
}

// NewStore creates an empty store for the match as seen by playerID.
func NewStore(fetcher Fetcher, matchID, playerID int) *Store {
	return &Store{fetcher: fetcher, matchID: matchID, playerID: playerID}
}

// MatchID returns the match this store tracks.
func (s *Store) MatchID() int { return s.matchID }

// PlayerID returns the player this store reads missions for.
func (s *Store) PlayerID() int { return s.playerID }

// Refresh fetches the match, and the mission when the match is in progress,
// and replaces both wholesale. On failure the previous state is kept.
func (s *Store) Refresh(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.mu.Unlock()

	snap, err := s.fetcher.GetMatch(ctx, s.matchID)
	if err != nil {
		if s.stale(token) {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	var mission *model.Mission
	missionOK := true
	if snap.Status == model.StatusInProgress {
		mission, err = s.fetcher.GetMission(ctx, s.matchID, s.playerID)
		if err != nil {
			log.Warn().Err(err).Int("matchId", s.matchID).Int("playerId", s.playerID).Msg("Mission read failed, keeping previous mission")
			missionOK = false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.issued {
		log.Debug().Uint64("token", token).Uint64("latest", s.issued).Int("matchId", s.matchID).Msg("Discarding superseded refresh")
		return nil, ErrSuperseded
	}
	s.snap = snap
	if missionOK {
		s.mission = mission
	}
	return snap, nil
}

// Current returns the last snapshot, or nil before the first successful refresh.
func (s *Store) Current() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Mission returns the player's secret mission, or nil when none is assigned.
func (s *Store) Mission() *model.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mission
}

// Loaded reports whether a snapshot has been stored.
func (s *Store) Loaded() bool {
	return s.Current() != nil
}

func (s *Store) stale(token uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return token != s.issued
}
