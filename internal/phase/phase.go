// Package phase implements the turn-phase interaction state machine: it derives
// the active phase from the latest snapshot, accumulates the player's pending
// action, validates it locally and submits it as a single command.
package phase

import "github.com/freeeve/galactic-conquest/internal/model"

// Phase is the interaction phase of one player in a match.
type Phase int

const (
	Spectating Phase = iota
	Reinforce
	Action
)

func (p Phase) String() string {
	switch p {
	case Reinforce:
		return "reinforce"
	case Action:
		return "action"
	default:
		return "spectating"
	}
}

// Mode is the sub-mode of the Action phase.
type Mode int

const (
	Attack Mode = iota
	Maneuver
)

func (m Mode) String() string {
	if m == Maneuver {
		return "maneuver"
	}
	return "attack"
}

// ParseMode converts "attack" or "maneuver" into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "attack", "atacar":
		return Attack, true
	case "maneuver", "maniobrar":
		return Maneuver, true
	}
	return Attack, false
}

// PhaseOf derives the phase of playerID from a snapshot. Anything other than
// an in-progress match where the player holds the turn is Spectating.
func PhaseOf(snap *model.Snapshot, playerID int) Phase {
	if snap == nil || snap.Status != model.StatusInProgress || snap.CurrentTurnPlayerID != playerID {
		return Spectating
	}
	p, ok := snap.Player(playerID)
	if !ok {
		return Spectating
	}
	if p.PendingReinforcements > 0 {
		return Reinforce
	}
	return Action
}

// MinOriginTroops is the troop count a territory needs to attack or maneuver from.
const MinOriginTroops = 2

func canOriginate(t model.TerritoryState, playerID int) bool {
	return t.OwnerID == playerID && t.Troops >= MinOriginTroops
}
