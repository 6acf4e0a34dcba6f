// Package lobby sorts the match listing into what a player can resume, join or review.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/galactic-conquest/internal/api"
	"github.com/freeeve/galactic-conquest/internal/model"
	"github.com/freeeve/galactic-conquest/internal/push"
)

// alreadyJoined is the server's message when a player joins a match twice.
const alreadyJoined = "ya está en la partida"

// Lister reads the match listing.
type Lister interface {
	ListMatches(ctx context.Context) ([]model.MatchSummary, error)
}

// Joiner adds a player to a match.
type Joiner interface {
	JoinMatch(ctx context.Context, matchID, playerID int) error
}

// Listing splits matches into the player's active ones and open lobbies.
type Listing struct {
	Active []model.MatchSummary
	Open   []model.MatchSummary
}

// Split builds the listing for playerID.
func Split(matches []model.MatchSummary, playerID int) Listing {
	return Listing{Active: Active(matches, playerID), Open: Open(matches)}
}

// Active returns in-progress matches the player takes part in.
func Active(matches []model.MatchSummary, playerID int) []model.MatchSummary {
	var out []model.MatchSummary
	for _, m := range matches {
		if m.Status == model.StatusInProgress && m.HasPlayer(playerID) {
			out = append(out, m)
		}
	}
	return out
}

// Open returns matches still waiting for players.
func Open(matches []model.MatchSummary) []model.MatchSummary {
	var out []model.MatchSummary
	for _, m := range matches {
		if m.Status == model.StatusLobby {
			out = append(out, m)
		}
	}
	return out
}

// Record is one finished match in a player's history.
type Record struct {
	MatchID int
	Date    time.Time
	Winner  string
	Won     bool
	Players []string
}

// History returns the player's finished matches, newest first. The winner is
// whoever fulfilled their mission.
func History(matches []model.MatchSummary, playerID int) []Record {
	var out []Record
	for _, m := range matches {
		if m.Status != model.StatusFinished || !m.HasPlayer(playerID) {
			continue
		}
		r := Record{MatchID: m.ID, Date: m.UpdatedAt, Winner: "N/A"}
		for _, mh := range m.Missions {
			if !mh.Fulfilled {
				continue
			}
			r.Winner = "Unknown"
			if p, ok := m.Player(mh.PlayerID); ok {
				r.Winner = p.Name
				r.Won = p.ID == playerID
			}
			break
		}
		for _, p := range m.Players {
			r.Players = append(r.Players, p.Name)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Join adds the player to a match. Joining a match twice is not an error.
func Join(ctx context.Context, j Joiner, matchID, playerID int) error {
	err := j.JoinMatch(ctx, matchID, playerID)
	var apiErr *api.Error
	if errors.As(err, &apiErr) && errors.Is(err, api.ErrRejected) && strings.Contains(apiErr.Message, alreadyJoined) {
		log.Debug().Int("matchId", matchID).Int("playerId", playerID).Msg("Player already in match")
		return nil
	}
	return err
}

// Watch registers on the push channel and calls onUpdate with a fresh listing
// initially and whenever the server announces a change, until ctx is done.
func Watch(ctx context.Context, ch push.Channel, l Lister, playerID int, onUpdate func(Listing, error)) error {
	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Register(ctx, playerID); err != nil {
		return fmt.Errorf("register player: %w", err)
	}

	update := func() {
		matches, err := l.ListMatches(ctx)
		if err != nil {
			onUpdate(Listing{}, err)
			return
		}
		onUpdate(Split(matches, playerID), nil)
	}
	update()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return push.ErrClosed
			}
			switch ev.(type) {
			case push.MatchesUpdated, push.MatchStarted, push.PlayerJoined:
				update()
			}
		}
	}
}
