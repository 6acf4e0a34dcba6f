package model

// ActionKind identifies the intent carried by a command.
type ActionKind string

const (
	ActionReinforce    ActionKind = "REFORZAR"
	ActionAttack       ActionKind = "ATACAR"
	ActionManeuver     ActionKind = "MANIOBRAR"
	ActionFinalizeTurn ActionKind = "FINALIZAR_TURNO"
)

// Command is a single player intent submitted to the server.
type Command struct {
	MatchID  int        `json:"partidaId"`
	PlayerID int        `json:"jugadorId"`
	Kind     ActionKind `json:"tipoJugada"`
	Payload  any        `json:"datosJugada"`
}

// ReinforceEntry is one line of a submitted reinforcement plan.
type ReinforceEntry struct {
	TerritoryID int `json:"territorioId"`
	Troops      int `json:"tropas"`
}

// AttackPayload names the attacking and defending territories.
type AttackPayload struct {
	OriginID      int `json:"origenId"`
	DestinationID int `json:"destinoId"`
}

// ManeuverPayload moves troops between two owned territories.
type ManeuverPayload struct {
	OriginID      int `json:"origenManiobraId"`
	DestinationID int `json:"destinoManiobraId"`
	Troops        int `json:"tropasManiobra"`
}

// CombatOutcome is the server's report of one attack.
type CombatOutcome struct {
	AttackerDice   []int `json:"dadosAtacante"`
	DefenderDice   []int `json:"dadosDefensor"`
	AttackerLosses int   `json:"perdidasDeAtacante"`
	DefenderLosses int   `json:"perdidasDeDefensor"`
	Conquered      bool  `json:"territorioEsConquistado"`
}

// CommandResult holds the optional hints of a command reply.
type CommandResult struct {
	Combat *CombatOutcome `json:"combate,omitempty"`
}

// CommandReply is the acknowledgment of a successful command.
type CommandReply struct {
	Result     *CommandResult `json:"resultado,omitempty"`
	GameOver   bool           `json:"gameOver"`
	WinnerID   int            `json:"ganadorId,omitempty"`
	WinnerName string         `json:"ganadorName,omitempty"`
}

// Combat returns the combat outcome carried by the reply, if any.
func (r *CommandReply) Combat() *CombatOutcome {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.Combat
}
