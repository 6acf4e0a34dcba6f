package phase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/freeeve/galactic-conquest/internal/logger"
	"github.com/freeeve/galactic-conquest/internal/model"
	"github.com/freeeve/galactic-conquest/internal/snapshot"
)

// Submitter sends a command to the game server.
type Submitter interface {
	Submit(ctx context.Context, cmd model.Command) (*model.CommandReply, error)
}

// Refresher re-reads the match snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*model.Snapshot, error)
}

// Outcome is what a successful command reported back.
type Outcome struct {
	Combat     *model.CombatOutcome
	GameOver   bool
	WinnerID   int
	WinnerName string
}

// Machine holds the local interaction state of one player in one match.
// The phase is never stored: it is recomputed from the latest observed snapshot.
type Machine struct {
	matchID   int
	playerID  int
	submitter Submitter
	refresher Refresher

	mu         sync.Mutex
	snap       *model.Snapshot
	mode       Mode
	plan       Plan
	sel        Selection
	inFlight   bool
	over       bool
	winnerID   int
	winnerName string
}

// NewMachine creates a machine for playerID in matchID.
func NewMachine(matchID, playerID int, sub Submitter, ref Refresher) *Machine {
	return &Machine{matchID: matchID, playerID: playerID, submitter: sub, refresher: ref}
}

// Observe applies a fresh snapshot and runs the entry actions of the phase it leads to.
func (m *Machine) Observe(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := PhaseOf(m.snap, m.playerID)
	m.snap = snap
	next := PhaseOf(snap, m.playerID)

	if snap.Status == model.StatusFinished {
		w, _ := snap.Winner()
		m.markOver(w.ID, w.Name)
	}

	if next != prev {
		switch next {
		case Reinforce:
			m.sel = Selection{}
			m.plan.Reset()
		case Action:
			m.plan.Reset()
			m.mode = Attack
		default:
			m.sel = Selection{}
			m.plan.Reset()
			m.mode = Attack
		}
		return
	}

	switch next {
	case Reinforce:
		m.revalidatePlan()
	case Action:
		m.revalidateSelection()
	}
}

// revalidatePlan drops a plan the new snapshot no longer supports.
func (m *Machine) revalidatePlan() {
	if m.plan.Total() > m.budget() {
		m.plan.Reset()
		return
	}
	for _, e := range m.plan.entries {
		t, ok := m.snap.Territory(e.TerritoryID)
		if !ok || t.OwnerID != m.playerID {
			m.plan.Reset()
			return
		}
	}
}

// revalidateSelection clears selection ends the new snapshot made invalid.
func (m *Machine) revalidateSelection() {
	if m.sel.Origin != 0 {
		t, ok := m.snap.Territory(m.sel.Origin)
		if !ok || !canOriginate(t, m.playerID) {
			m.sel = Selection{}
			return
		}
	}
	if m.sel.Destination != 0 {
		t, ok := m.snap.Territory(m.sel.Destination)
		own := ok && t.OwnerID == m.playerID
		if !ok || (m.mode == Attack && own) || (m.mode == Maneuver && !own) {
			m.sel.Destination = 0
		}
	}
}

// Select handles a click on a territory. In the Reinforce phase it plans
// increment more troops there; in the Action phase it picks origin and destination.
func (m *Machine) Select(territoryID, increment int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	ph := PhaseOf(m.snap, m.playerID)
	if ph == Spectating {
		return ErrNotYourTurn
	}
	if m.inFlight {
		return ErrCommandInFlight
	}
	t, ok := m.snap.Territory(territoryID)
	if !ok {
		return ErrUnknownTerritory
	}

	if ph == Reinforce {
		return m.planReinforcement(t, increment)
	}
	return m.selectForAction(t)
}

func (m *Machine) planReinforcement(t model.TerritoryState, increment int) error {
	if t.OwnerID != m.playerID {
		return ErrNotOwnedTerritory
	}
	remaining := m.budget() - m.plan.Total()
	if remaining <= 0 {
		return ErrBudgetExhausted
	}
	if increment <= 0 {
		return withMessage(ErrInvalidTroopCount, "Troops to place must be at least 1")
	}
	if increment > remaining {
		return withMessage(ErrInsufficientBudget, fmt.Sprintf("Only %d troops left to place", remaining))
	}
	m.plan.Add(t.TerritoryID, increment)
	return nil
}

func (m *Machine) selectForAction(t model.TerritoryState) error {
	if !m.sel.HasOrigin() {
		if !canOriginate(t, m.playerID) {
			return ErrInvalidOrigin
		}
		m.sel = Selection{Origin: t.TerritoryID}
		return nil
	}
	if t.TerritoryID == m.sel.Origin {
		m.sel = Selection{}
		return nil
	}

	own := t.OwnerID == m.playerID
	switch m.mode {
	case Attack:
		if own {
			// An own-territory click most likely means a change of origin.
			if canOriginate(t, m.playerID) {
				m.sel = Selection{Origin: t.TerritoryID}
			}
			return ErrMustTargetEnemy
		}
	case Maneuver:
		if !own {
			return ErrMustTargetOwn
		}
	}
	m.sel.Destination = t.TerritoryID
	return nil
}

// SetMode switches between Attack and Maneuver, clearing the selection on change.
func (m *Machine) SetMode(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	switch PhaseOf(m.snap, m.playerID) {
	case Spectating:
		return ErrNotYourTurn
	case Reinforce:
		return ErrReinforcementPending
	}
	if mode != m.mode {
		m.mode = mode
		m.sel = Selection{}
	}
	return nil
}

// Cancel clears the action selection.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel = Selection{}
}

// ResetPlan empties the reinforcement plan.
func (m *Machine) ResetPlan() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan.Reset()
}

// ConfirmReinforcement submits the plan. It must place exactly the pending budget.
func (m *Machine) ConfirmReinforcement(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if err := m.ready(); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	switch PhaseOf(m.snap, m.playerID) {
	case Spectating:
		m.mu.Unlock()
		return Outcome{}, ErrNotYourTurn
	case Action:
		m.mu.Unlock()
		return Outcome{}, withMessage(ErrWrongPhase, "There are no reinforcements to place")
	}
	if total, budget := m.plan.Total(), m.budget(); total != budget {
		m.mu.Unlock()
		return Outcome{}, withMessage(ErrIncompleteAllocation,
			fmt.Sprintf("Planned %d of %d reinforcements", total, budget))
	}
	if m.inFlight {
		m.mu.Unlock()
		return Outcome{}, ErrCommandInFlight
	}
	submitted := m.plan.clone()
	cmd := m.command(model.ActionReinforce, submitted.Entries())
	m.inFlight = true
	m.mu.Unlock()

	return m.execute(ctx, cmd, func(err error) {
		if err == nil {
			m.plan.Reset()
		}
	})
}

// ConfirmAttack submits an attack from the selected origin to the selected destination.
func (m *Machine) ConfirmAttack(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if err := m.actionReady(Attack); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	cmd := m.command(model.ActionAttack, model.AttackPayload{
		OriginID:      m.sel.Origin,
		DestinationID: m.sel.Destination,
	})
	m.inFlight = true
	m.mu.Unlock()

	return m.execute(ctx, cmd, func(error) { m.sel = Selection{} })
}

// ConfirmManeuver moves troops from the selected origin to the selected destination.
// At least one troop must stay behind.
func (m *Machine) ConfirmManeuver(ctx context.Context, troops int) (Outcome, error) {
	m.mu.Lock()
	if err := m.actionReady(Maneuver); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	origin, _ := m.snap.Territory(m.sel.Origin)
	if troops < 1 || troops > origin.Troops-1 {
		m.mu.Unlock()
		return Outcome{}, withMessage(ErrInvalidTroopCount,
			fmt.Sprintf("Move between 1 and %d troops", origin.Troops-1))
	}
	cmd := m.command(model.ActionManeuver, model.ManeuverPayload{
		OriginID:      m.sel.Origin,
		DestinationID: m.sel.Destination,
		Troops:        troops,
	})
	m.inFlight = true
	m.mu.Unlock()

	return m.execute(ctx, cmd, func(error) { m.sel = Selection{} })
}

// FinalizeTurn ends the turn. Reinforcements must be placed first.
func (m *Machine) FinalizeTurn(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if err := m.ready(); err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	switch PhaseOf(m.snap, m.playerID) {
	case Spectating:
		m.mu.Unlock()
		return Outcome{}, ErrNotYourTurn
	case Reinforce:
		m.mu.Unlock()
		return Outcome{}, ErrReinforcementPending
	}
	if m.inFlight {
		m.mu.Unlock()
		return Outcome{}, ErrCommandInFlight
	}
	cmd := m.command(model.ActionFinalizeTurn, struct{}{})
	m.inFlight = true
	m.mu.Unlock()

	return m.execute(ctx, cmd, func(err error) {
		if err == nil {
			m.mode = Attack
			m.sel = Selection{}
		}
	})
}

// MarkGameOver makes the machine terminal. Every later operation fails with MatchOver.
func (m *Machine) MarkGameOver(winnerID int, winnerName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markOver(winnerID, winnerName)
}

// markOver keeps the first known winner; a later report only fills in a missing one.
func (m *Machine) markOver(winnerID int, winnerName string) {
	if !m.over || (m.winnerID == 0 && m.winnerName == "") {
		m.winnerID = winnerID
		m.winnerName = winnerName
	}
	m.over = true
	m.plan.Reset()
	m.sel = Selection{}
}

// execute runs cmd with the admission gate held. settle is applied under
// the lock once the server answered; on success the snapshot is refreshed
// before the gate is released.
func (m *Machine) execute(ctx context.Context, cmd model.Command, settle func(err error)) (Outcome, error) {
	ctx = logger.WithCommandID(ctx, logger.NewCommandID())
	l := logger.ForCommand(ctx)
	l.Info().Str("kind", string(cmd.Kind)).Int("matchId", cmd.MatchID).Msg("Submitting command")

	reply, err := m.submitter.Submit(ctx, cmd)

	m.mu.Lock()
	settle(err)
	var out Outcome
	if err == nil && reply != nil {
		out = Outcome{
			Combat:     reply.Combat(),
			GameOver:   reply.GameOver,
			WinnerID:   reply.WinnerID,
			WinnerName: reply.WinnerName,
		}
		if out.GameOver {
			m.markOver(out.WinnerID, out.WinnerName)
		}
	}
	m.mu.Unlock()
	defer m.release()

	if err != nil {
		l.Warn().Err(err).Str("kind", string(cmd.Kind)).Msg("Command failed")
		return Outcome{}, err
	}
	l.Info().Str("kind", string(cmd.Kind)).Bool("gameOver", out.GameOver).Msg("Command accepted")

	if out.GameOver || m.refresher == nil {
		return out, nil
	}
	snap, err := m.refresher.Refresh(ctx)
	switch {
	case errors.Is(err, snapshot.ErrSuperseded):
		return out, nil
	case err != nil:
		l.Warn().Err(err).Msg("Refresh after command failed")
		return out, fmt.Errorf("refresh after command: %w", err)
	}
	m.Observe(snap)
	return out, nil
}

func (m *Machine) release() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}

func (m *Machine) command(kind model.ActionKind, payload any) model.Command {
	return model.Command{MatchID: m.matchID, PlayerID: m.playerID, Kind: kind, Payload: payload}
}

// ready checks the preconditions shared by every operation. Caller holds mu.
func (m *Machine) ready() error {
	if m.over {
		return ErrMatchOver
	}
	if m.snap == nil {
		return ErrNotLoaded
	}
	return nil
}

// actionReady checks an attack or maneuver can be submitted. Caller holds mu.
func (m *Machine) actionReady(mode Mode) error {
	if err := m.ready(); err != nil {
		return err
	}
	switch PhaseOf(m.snap, m.playerID) {
	case Spectating:
		return ErrNotYourTurn
	case Reinforce:
		return ErrReinforcementPending
	}
	if m.mode != mode {
		return withMessage(ErrWrongMode, fmt.Sprintf("Switch to %s mode first", mode))
	}
	if !m.sel.Complete() {
		return ErrNoSelection
	}
	if m.inFlight {
		return ErrCommandInFlight
	}
	return nil
}

func (m *Machine) budget() int {
	p, _ := m.snap.Player(m.playerID)
	return p.PendingReinforcements
}

// Phase returns the phase derived from the latest snapshot.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PhaseOf(m.snap, m.playerID)
}

// Mode returns the Action sub-mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Plan returns a copy of the reinforcement plan.
func (m *Machine) Plan() Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan.clone()
}

// Remaining is the budget not yet planned, or 0 outside the Reinforce phase.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if PhaseOf(m.snap, m.playerID) != Reinforce {
		return 0
	}
	return m.budget() - m.plan.Total()
}

// Selection returns the current origin and destination.
func (m *Machine) Selection() Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sel
}

// InFlight reports whether a command is awaiting its answer.
func (m *Machine) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Terminal reports whether the match is over.
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.over
}

// Winner returns the winner recorded when the match ended.
func (m *Machine) Winner() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winnerID, m.winnerName
}

// Snapshot returns the latest observed snapshot.
func (m *Machine) Snapshot() *model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
