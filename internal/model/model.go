package model

import (
	"strconv"
	"time"
)

// Status is a match's lifecycle state as reported by the server.
type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "en_progreso"
	StatusFinished   Status = "finalizada"
)

// Player is one participant of a match.
type Player struct {
	ID                    int    `json:"id"`
	Name                  string `json:"name"`
	Color                 string `json:"color,omitempty"`
	PendingReinforcements int    `json:"tropasParaReforzar"`
}

// Territory is the static metadata of a map cell.
type Territory struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	System string `json:"sistemaGalactico"`
}

// TerritoryState is the ownership and troop count of one territory in a match.
type TerritoryState struct {
	ID          int        `json:"id"`
	TerritoryID int        `json:"territorioId"`
	OwnerID     int        `json:"jugadorId"`
	Troops      int        `json:"cantidadTropas"`
	Territory   *Territory `json:"Territorio"`
}

// Name returns the territory name, falling back to its id.
func (t TerritoryState) Name() string {
	if t.Territory != nil && t.Territory.Name != "" {
		return t.Territory.Name
	}
	return "#" + strconv.Itoa(t.TerritoryID)
}

// System returns the territory's galactic system grouping, or empty.
func (t TerritoryState) System() string {
	if t.Territory == nil {
		return ""
	}
	return t.Territory.System
}

// CardHolding records one card owned by a player.
type CardHolding struct {
	PlayerID int `json:"jugadorId"`
}

// MissionHolding is a player's mission as listed on the match.
type MissionHolding struct {
	PlayerID  int  `json:"jugadorId"`
	Fulfilled bool `json:"cumplida"`
}

// Snapshot is the server-confirmed state of one match. It is never mutated after decoding.
type Snapshot struct {
	ID                  int              `json:"id"`
	Status              Status           `json:"estado"`
	CurrentTurnPlayerID int              `json:"turnoActualId"`
	Players             []Player         `json:"Jugadors"`
	Territories         []TerritoryState `json:"EstadoTerritorioEnPartidas"`
	Cards               []CardHolding    `json:"CartaJugadors,omitempty"`
	Missions            []MissionHolding `json:"MisionJugadors,omitempty"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// Player returns the player with the given id.
func (s *Snapshot) Player(id int) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Territory returns the state of the territory with the given territory id.
func (s *Snapshot) Territory(territoryID int) (TerritoryState, bool) {
	for _, t := range s.Territories {
		if t.TerritoryID == territoryID {
			return t, true
		}
	}
	return TerritoryState{}, false
}

// TurnHolder returns the player whose turn is active.
func (s *Snapshot) TurnHolder() (Player, bool) {
	return s.Player(s.CurrentTurnPlayerID)
}

// HasPlayer reports whether the player takes part in the match.
func (s *Snapshot) HasPlayer(id int) bool {
	_, ok := s.Player(id)
	return ok
}

// CardCount returns how many cards the player holds.
func (s *Snapshot) CardCount(playerID int) int {
	n := 0
	for _, c := range s.Cards {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n
}

// Winner returns the player whose mission is fulfilled.
func (s *Snapshot) Winner() (Player, bool) {
	for _, m := range s.Missions {
		if m.Fulfilled {
			return s.Player(m.PlayerID)
		}
	}
	return Player{}, false
}

// MatchSummary is a listing entry; the server returns the full match shape.
type MatchSummary = Snapshot

// Mission is a player-private objective.
type Mission struct {
	ID          int
	Description string
	Fulfilled   bool
}

// MissionDetail is the static text of a mission.
type MissionDetail struct {
	Description string `json:"descripcion"`
}

// MissionRecord is the wire shape of a player's mission assignment.
type MissionRecord struct {
	ID        int            `json:"id"`
	Fulfilled bool           `json:"cumplida"`
	Mission   *MissionDetail `json:"Mision"`
}

// ToMission converts the wire record into a Mission.
func (r MissionRecord) ToMission() Mission {
	m := Mission{ID: r.ID, Fulfilled: r.Fulfilled}
	if r.Mission != nil {
		m.Description = r.Mission.Description
	}
	return m
}
