package model

import (
	"encoding/json"
	"testing"
)

const matchJSON = `{
	"id": 12,
	"estado": "en_progreso",
	"turnoActualId": 2,
	"Jugadors": [
		{"id": 1, "name": "Ada", "color": "#f00", "tropasParaReforzar": 0},
		{"id": 2, "name": "Linus", "color": "#0f0", "tropasParaReforzar": 3}
	],
	"EstadoTerritorioEnPartidas": [
		{"id": 100, "territorioId": 1, "jugadorId": 1, "cantidadTropas": 4, "Territorio": {"id": 1, "name": "Endor", "sistemaGalactico": "Endor"}},
		{"id": 101, "territorioId": 2, "jugadorId": 2, "cantidadTropas": 1, "Territorio": {"id": 2, "name": "Kef Bir", "sistemaGalactico": "Endor"}}
	],
	"CartaJugadors": [{"jugadorId": 2}, {"jugadorId": 2}, {"jugadorId": 1}],
	"MisionJugadors": [{"jugadorId": 1, "cumplida": false}, {"jugadorId": 2, "cumplida": true}],
	"updatedAt": "2025-11-20T18:00:00Z"
}`

func TestSnapshotDecode(t *testing.T) {
	var s Snapshot
	if err := json.Unmarshal([]byte(matchJSON), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Status != StatusInProgress {
		t.Errorf("expected en_progreso, got %s", s.Status)
	}
	holder, ok := s.TurnHolder()
	if !ok || holder.Name != "Linus" {
		t.Errorf("expected Linus as turn holder, got %+v", holder)
	}
	if holder.PendingReinforcements != 3 {
		t.Errorf("expected 3 pending reinforcements, got %d", holder.PendingReinforcements)
	}
	terr, ok := s.Territory(2)
	if !ok || terr.Name() != "Kef Bir" || terr.System() != "Endor" || terr.OwnerID != 2 {
		t.Errorf("unexpected territory %+v", terr)
	}
	if s.CardCount(2) != 2 || s.CardCount(1) != 1 || s.CardCount(3) != 0 {
		t.Errorf("unexpected card counts")
	}
	winner, ok := s.Winner()
	if !ok || winner.ID != 2 {
		t.Errorf("expected player 2 as winner, got %+v", winner)
	}
}

func TestTerritoryNameFallback(t *testing.T) {
	ts := TerritoryState{TerritoryID: 7}
	if ts.Name() != "#7" {
		t.Errorf("expected #7, got %s", ts.Name())
	}
	if ts.System() != "" {
		t.Errorf("expected empty system, got %s", ts.System())
	}
}

func TestCommandReplyCombat(t *testing.T) {
	raw := `{"resultado":{"combate":{"dadosAtacante":[6,4],"dadosDefensor":[3],"perdidasDeAtacante":0,"perdidasDeDefensor":1,"territorioEsConquistado":false}}}`
	var r CommandReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := r.Combat()
	if c == nil {
		t.Fatal("expected combat outcome")
	}
	if len(c.AttackerDice) != 2 || c.AttackerDice[0] != 6 || c.AttackerDice[1] != 4 {
		t.Errorf("unexpected attacker dice %v", c.AttackerDice)
	}
	if len(c.DefenderDice) != 1 || c.DefenderDice[0] != 3 {
		t.Errorf("unexpected defender dice %v", c.DefenderDice)
	}
	if c.AttackerLosses != 0 || c.DefenderLosses != 1 || c.Conquered {
		t.Errorf("unexpected losses %+v", c)
	}

	var empty *CommandReply
	if empty.Combat() != nil {
		t.Error("nil reply should have no combat")
	}
}

func TestCommandEncode(t *testing.T) {
	cmd := Command{
		MatchID:  12,
		PlayerID: 1,
		Kind:     ActionManeuver,
		Payload:  ManeuverPayload{OriginID: 1, DestinationID: 3, Troops: 2},
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"partidaId":12,"jugadorId":1,"tipoJugada":"MANIOBRAR","datosJugada":{"origenManiobraId":1,"destinoManiobraId":3,"tropasManiobra":2}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}
