package surface

import "github.com/freeeve/galactic-conquest/internal/model"

// TurnWatcher detects transitions into holding the turn.
// The first snapshot only primes it.
type TurnWatcher struct {
	primed bool
	holder bool
}

// Observe records the snapshot and reports whether the player just became the turn holder.
func (w *TurnWatcher) Observe(snap *model.Snapshot, playerID int) bool {
	if snap == nil {
		return false
	}
	holder := snap.Status == model.StatusInProgress && snap.CurrentTurnPlayerID == playerID
	fired := w.primed && holder && !w.holder
	w.primed = true
	w.holder = holder
	return fired
}

// Holder reports whether the last observed snapshot had the player holding the turn.
func (w *TurnWatcher) Holder() bool { return w.holder }
