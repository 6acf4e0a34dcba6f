// Package session runs one player's view of one match: it keeps the snapshot
// store, the phase machine and the presentation surface in step with push
// events and user intents.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galactic-conquest/internal/api"
	"github.com/freeeve/galactic-conquest/internal/auth"
	"github.com/freeeve/galactic-conquest/internal/model"
	"github.com/freeeve/galactic-conquest/internal/phase"
	"github.com/freeeve/galactic-conquest/internal/push"
	"github.com/freeeve/galactic-conquest/internal/snapshot"
	"github.com/freeeve/galactic-conquest/internal/surface"
)

// ErrDisconnected is returned by Run when the push channel is lost for good.
var ErrDisconnected = errors.New("push channel disconnected")

const unreachable = "Cannot reach the game server"

// Backend is the command API as used by a session.
type Backend interface {
	snapshot.Fetcher
	phase.Submitter
}

// Option configures a Session.
type Option func(*options)

type options struct {
	clock  surface.Clock
	window time.Duration
}

// WithClock sets the clock used for banner expiry.
func WithClock(c surface.Clock) Option { return func(o *options) { o.clock = c } }

// WithBannerWindow sets how long banners stay up.
func WithBannerWindow(d time.Duration) Option { return func(o *options) { o.window = d } }

// Session is one player's interaction with one match.
type Session struct {
	matchID int
	id      auth.Identity
	channel push.Channel
	store   *snapshot.Store
	machine *phase.Machine
	surface *surface.Surface
	log     zerolog.Logger
}

type refresherFunc func(ctx context.Context) (*model.Snapshot, error)

func (f refresherFunc) Refresh(ctx context.Context) (*model.Snapshot, error) { return f(ctx) }

// New creates a session for the identified player in matchID.
func New(backend Backend, channel push.Channel, matchID int, id auth.Identity, opts ...Option) *Session {
	o := options{clock: surface.SystemClock, window: surface.DefaultWindow}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		matchID: matchID,
		id:      id,
		channel: channel,
		store:   snapshot.NewStore(backend, matchID, id.PlayerID),
		surface: surface.New(o.clock, o.window),
		log:     log.Logger.With().Int("matchId", matchID).Int("playerId", id.PlayerID).Logger(),
	}
	s.machine = phase.NewMachine(matchID, id.PlayerID, backend, refresherFunc(s.fetch))
	return s
}

// Run connects the push channel, joins the match and processes events until
// ctx is done or the channel is lost. The match room is always left on return.
func (s *Session) Run(ctx context.Context) error {
	if err := s.channel.Connect(ctx); err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer s.channel.Close()

	if err := s.channel.Register(ctx, s.id.PlayerID); err != nil {
		return fmt.Errorf("register player: %w", err)
	}
	if err := s.channel.Join(ctx, s.matchID); err != nil {
		return fmt.Errorf("join match: %w", err)
	}
	defer func() {
		if err := s.channel.Leave(context.Background(), s.matchID); err != nil && !push.IsClosed(err) {
			s.log.Warn().Err(err).Msg("Failed to leave match room")
		}
	}()
	s.log.Info().Msg("Session started")

	if err := s.Refresh(ctx); err != nil {
		if errors.Is(err, api.ErrNotAuthenticated) || errors.Is(err, api.ErrNotFound) {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Session ended")
			return nil
		case ev, ok := <-s.channel.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDisconnected
			}
			s.Handle(ctx, ev)
		}
	}
}

// Handle applies one push event.
func (s *Session) Handle(ctx context.Context, ev push.Event) {
	switch e := ev.(type) {
	case push.StateChanged:
		s.Refresh(ctx)
	case push.ErrorOccurred:
		s.log.Warn().Str("message", e.Message).Msg("Server reported an error")
		s.surface.ShowError(e.Message)
	case push.GameOver:
		s.log.Info().Int("winnerId", e.WinnerID).Str("winner", e.WinnerName).Msg("Match over")
		s.endMatch(e.WinnerID, e.WinnerName)
	case push.ChatMessage:
		s.surface.AddChat(e.Author, e.Text)
	case push.PlayerJoined:
		s.surface.Notify(e.Name + " joined the match")
		s.Refresh(ctx)
	case push.MatchStarted:
		s.surface.Notify("The match has started")
		s.Refresh(ctx)
	case push.MatchesUpdated:
		s.log.Debug().Msg("Ignoring lobby listing update")
	}
}

// Refresh re-reads the match. Failures are shown on the error banner and
// leave the previous snapshot in place; superseded results are ignored.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.fetch(ctx)
	if errors.Is(err, snapshot.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return err
	}
	s.machine.Observe(snap)
	return nil
}

// fetch refreshes the store and updates the surface. The machine observes the result itself.
func (s *Session) fetch(ctx context.Context) (*model.Snapshot, error) {
	snap, err := s.store.Refresh(ctx)
	if errors.Is(err, snapshot.ErrSuperseded) {
		return nil, err
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Refresh failed")
		s.showError(err)
		return nil, err
	}
	// Observers always see the newest landed snapshot, even if another refresh completed in between.
	if cur := s.store.Current(); cur != nil {
		snap = cur
	}
	s.surface.ObserveTurn(snap, s.id.PlayerID)
	if snap.Status == model.StatusFinished {
		// Raised undecided when no mission is fulfilled yet; the game-over push names the winner.
		w, _ := snap.Winner()
		s.surface.ShowGameOver(w.ID, w.Name)
	}
	return snap, nil
}

// Click selects a territory or plans increment troops on it.
func (s *Session) Click(territoryID, increment int) error {
	return s.report(s.machine.Select(territoryID, increment))
}

// ConfirmReinforcement submits the reinforcement plan.
func (s *Session) ConfirmReinforcement(ctx context.Context) error {
	return s.settle(ctx, s.machine.ConfirmReinforcement)
}

// ConfirmAttack submits the selected attack.
func (s *Session) ConfirmAttack(ctx context.Context) error {
	return s.settle(ctx, s.machine.ConfirmAttack)
}

// ConfirmManeuver moves troops between the selected territories.
func (s *Session) ConfirmManeuver(ctx context.Context, troops int) error {
	return s.settle(ctx, func(ctx context.Context) (phase.Outcome, error) {
		return s.machine.ConfirmManeuver(ctx, troops)
	})
}

// Finalize ends the turn.
func (s *Session) Finalize(ctx context.Context) error {
	return s.settle(ctx, s.machine.FinalizeTurn)
}

// SetMode switches between attack and maneuver.
func (s *Session) SetMode(mode phase.Mode) error {
	return s.report(s.machine.SetMode(mode))
}

// Cancel clears the attack or maneuver selection.
func (s *Session) Cancel() { s.machine.Cancel() }

// ResetPlan empties the reinforcement plan.
func (s *Session) ResetPlan() { s.machine.ResetPlan() }

// DismissCombat closes the combat report.
func (s *Session) DismissCombat() { s.surface.DismissCombat() }

// DismissError hides the error banner.
func (s *Session) DismissError() { s.surface.DismissError() }

// Say sends a chat line to the match.
func (s *Session) Say(ctx context.Context, text string) error {
	err := s.channel.SendChat(ctx, push.Chat{MatchID: s.matchID, Author: s.id.DisplayName(), Text: text})
	return s.report(err)
}

func (s *Session) settle(ctx context.Context, run func(context.Context) (phase.Outcome, error)) error {
	out, err := run(ctx)
	if out.Combat != nil {
		s.surface.ShowCombat(out.Combat)
	}
	if out.GameOver {
		s.endMatch(out.WinnerID, out.WinnerName)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrRejected) {
		if rerr := s.Refresh(ctx); rerr != nil {
			s.log.Debug().Err(rerr).Msg("Refresh after rejected command failed")
		}
	}
	return s.report(err)
}

func (s *Session) endMatch(winnerID int, winnerName string) {
	s.surface.ShowGameOver(winnerID, winnerName)
	s.machine.MarkGameOver(winnerID, winnerName)
}

func (s *Session) report(err error) error {
	if err != nil {
		s.showError(err)
	}
	return err
}

func (s *Session) showError(err error) {
	if errors.Is(err, api.ErrTransport) {
		s.surface.ShowError(unreachable)
		return
	}
	s.surface.ShowError(err.Error())
}

// MatchID returns the match this session plays.
func (s *Session) MatchID() int { return s.matchID }

// Machine exposes the phase machine.
func (s *Session) Machine() *phase.Machine { return s.machine }

// Surface exposes the presentation state.
func (s *Session) Surface() *surface.Surface { return s.surface }

// Store exposes the snapshot store.
func (s *Session) Store() *snapshot.Store { return s.store }

// View assembles a render view of the current state.
func (s *Session) View() surface.View {
	sel := s.machine.Selection()
	plan := s.machine.Plan()
	planned := make(map[int]int, plan.Len())
	for _, e := range plan.Entries() {
		planned[e.TerritoryID] = e.Troops
	}
	v := surface.View{
		PlayerID:    s.id.PlayerID,
		Snapshot:    s.store.Current(),
		Mission:     s.store.Mission(),
		Phase:       s.machine.Phase().String(),
		Mode:        s.machine.Mode().String(),
		Planned:     planned,
		Remaining:   s.machine.Remaining(),
		Origin:      sel.Origin,
		Destination: sel.Destination,
		InFlight:    s.machine.InFlight(),
		Combat:      s.surface.Combat(),
		Chat:        s.surface.Chat(),
	}
	v.Error, _ = s.surface.ErrorBanner()
	v.Turn, _ = s.surface.TurnBanner()
	v.Notice, _ = s.surface.Notice()
	if g, ok := s.surface.GameOver(); ok {
		v.GameOver = &g
	}
	return v
}
