package apitest

import "github.com/freeeve/galactic-conquest/internal/model"

// Territory builds a territory state.
func Territory(id int, name, system string, owner, troops int) model.TerritoryState {
	return model.TerritoryState{
		ID:          100 + id,
		TerritoryID: id,
		OwnerID:     owner,
		Troops:      troops,
		Territory:   &model.Territory{ID: id, Name: name, System: system},
	}
}

// Match builds an in-progress snapshot whose turn belongs to turn.
func Match(id, turn int, players []model.Player, territories ...model.TerritoryState) *model.Snapshot {
	return &model.Snapshot{
		ID:                  id,
		Status:              model.StatusInProgress,
		CurrentTurnPlayerID: turn,
		Players:             players,
		Territories:         territories,
	}
}

// Board returns a small two-player map: player 1 owns Endor (5), Kef Bir (1)
// and Naboo (3); player 2 owns Tatooine (2) and Geonosis (4).
func Board() []model.TerritoryState {
	return []model.TerritoryState{
		Territory(1, "Endor", "Endor", 1, 5),
		Territory(2, "Kef Bir", "Endor", 1, 1),
		Territory(3, "Naboo", "Naboo", 1, 3),
		Territory(4, "Tatooine", "Tatooine", 2, 2),
		Territory(5, "Geonosis", "Tatooine", 2, 4),
	}
}

// Players returns Ada (1) and Linus (2) with the given pending reinforcements.
func Players(adaBudget, linusBudget int) []model.Player {
	return []model.Player{
		{ID: 1, Name: "Ada", Color: "#e74c3c", PendingReinforcements: adaBudget},
		{ID: 2, Name: "Linus", Color: "#3498db", PendingReinforcements: linusBudget},
	}
}
