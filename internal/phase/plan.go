package phase

import "github.com/freeeve/galactic-conquest/internal/model"

// Plan is an insertion-ordered reinforcement allocation.
type Plan struct {
	entries []model.ReinforceEntry
}

// Add increments the troops planned for a territory, appending it if new.
func (p *Plan) Add(territoryID, troops int) {
	for i := range p.entries {
		if p.entries[i].TerritoryID == territoryID {
			p.entries[i].Troops += troops
			return
		}
	}
	p.entries = append(p.entries, model.ReinforceEntry{TerritoryID: territoryID, Troops: troops})
}

// Troops returns the troops planned for a territory.
func (p Plan) Troops(territoryID int) int {
	for _, e := range p.entries {
		if e.TerritoryID == territoryID {
			return e.Troops
		}
	}
	return 0
}

// Total is the sum of planned troops.
func (p Plan) Total() int {
	n := 0
	for _, e := range p.entries {
		n += e.Troops
	}
	return n
}

// Entries returns a copy of the allocation in insertion order.
func (p Plan) Entries() []model.ReinforceEntry {
	return append([]model.ReinforceEntry(nil), p.entries...)
}

// Len is the number of territories in the plan.
func (p Plan) Len() int { return len(p.entries) }

// Empty reports whether nothing is planned.
func (p Plan) Empty() bool { return len(p.entries) == 0 }

// Reset empties the plan.
func (p *Plan) Reset() { p.entries = nil }

func (p Plan) clone() Plan { return Plan{entries: p.Entries()} }

// Selection is the origin and destination of an attack or maneuver, by territory id. Zero means unset.
type Selection struct {
	Origin      int
	Destination int
}

// HasOrigin reports whether an origin is selected.
func (s Selection) HasOrigin() bool { return s.Origin != 0 }

// Complete reports whether both ends are selected.
func (s Selection) Complete() bool { return s.Origin != 0 && s.Destination != 0 }
