// Package push delivers server-initiated match events to the client.
//
// Raw frames are converted into the closed Event variant as soon as they are
// received; nothing past this package sees untyped payloads.
package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names. The English aliases are accepted alongside the
// names emitted by the current server.
const (
	EventStateChanged   = "estado_actualizado"
	EventError          = "error_juego"
	EventGameOver       = "juego_terminado"
	EventChatMessage    = "nuevo_mensaje"
	EventPlayerJoined   = "jugador_unido"
	EventMatchStarted   = "partida_iniciada"
	EventMatchesUpdated = "partidas_actualizadas"
)

// Outbound actions.
const (
	ActionRegister = "register"
	ActionJoin     = "join"
	ActionLeave    = "leave"
	ActionSendChat = "enviar_mensaje"
)

var aliases = map[string]string{
	"state_changed": EventStateChanged,
	"error":         EventError,
	"game_over":     EventGameOver,
	"chat_message":  EventChatMessage,
	"player_joined": EventPlayerJoined,
	"match_started": EventMatchStarted,
}

// ErrUnknownEvent is returned by Decode for event names it does not model.
var ErrUnknownEvent = errors.New("unknown push event")

const unknownServerError = "unknown server error"

// Frame is the envelope of every message on the wire, in both directions.
type Frame struct {
	Event   string          `json:"event"`
	MatchID int             `json:"partidaId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Event is one of StateChanged, ErrorOccurred, GameOver, ChatMessage,
// PlayerJoined, MatchStarted or MatchesUpdated.
type Event interface {
	isEvent()
}

// StateChanged tells the client its snapshot is stale.
type StateChanged struct{}

// ErrorOccurred carries a server-side error for display.
type ErrorOccurred struct {
	Message string
}

// GameOver announces the end of the match.
type GameOver struct {
	WinnerID   int
	WinnerName string
}

// ChatMessage is one line of match chat.
type ChatMessage struct {
	Author string
	Text   string
}

// PlayerJoined announces a new player in a lobby.
type PlayerJoined struct {
	Name string
}

// MatchStarted announces that a lobby became an active match.
type MatchStarted struct{}

// MatchesUpdated tells lobby views their listing is stale.
type MatchesUpdated struct{}

func (StateChanged) isEvent()   {}
func (ErrorOccurred) isEvent()  {}
func (GameOver) isEvent()       {}
func (ChatMessage) isEvent()    {}
func (PlayerJoined) isEvent()   {}
func (MatchStarted) isEvent()   {}
func (MatchesUpdated) isEvent() {}

// Decode converts a raw frame into its typed event.
func Decode(f Frame) (Event, error) {
	name := f.Event
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}

	switch name {
	case EventStateChanged:
		return StateChanged{}, nil
	case EventMatchStarted:
		return MatchStarted{}, nil
	case EventMatchesUpdated:
		return MatchesUpdated{}, nil
	case EventError:
		return decodeError(f.Data), nil
	case EventGameOver:
		var d struct {
			GanadorID   int    `json:"ganadorId"`
			GanadorName string `json:"ganadorName"`
			WinnerID    int    `json:"winnerId"`
			WinnerName  string `json:"winnerName"`
		}
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		ev := GameOver{WinnerID: d.GanadorID, WinnerName: d.GanadorName}
		if ev.WinnerID == 0 {
			ev.WinnerID = d.WinnerID
		}
		if ev.WinnerName == "" {
			ev.WinnerName = d.WinnerName
		}
		return ev, nil
	case EventChatMessage:
		var d struct {
			Usuario string `json:"usuario"`
			Texto   string `json:"texto"`
		}
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return ChatMessage{Author: d.Usuario, Text: d.Texto}, nil
	case EventPlayerJoined:
		var d struct {
			Name string `json:"name"`
		}
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Event, err)
		}
		return PlayerJoined{Name: d.Name}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
}

// decodeError accepts {"error": "..."} or a bare JSON string.
func decodeError(data json.RawMessage) ErrorOccurred {
	var d struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &d); err == nil && d.Error != "" {
		return ErrorOccurred{Message: d.Error}
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return ErrorOccurred{Message: s}
	}
	return ErrorOccurred{Message: unknownServerError}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Chat is an outbound chat line.
type Chat struct {
	MatchID int
	Author  string
	Text    string
}

func registerFrame(playerID int) Frame {
	return actionFrame(ActionRegister, 0, map[string]int{"jugadorId": playerID})
}

func joinFrame(matchID int) Frame {
	return actionFrame(ActionJoin, matchID, map[string]int{"partidaId": matchID})
}

func leaveFrame(matchID int) Frame {
	return actionFrame(ActionLeave, matchID, map[string]int{"partidaId": matchID})
}

func chatFrame(c Chat) Frame {
	return actionFrame(ActionSendChat, c.MatchID, map[string]any{
		"partidaId":     c.MatchID,
		"mensaje":       c.Text,
		"usuarioNombre": c.Author,
	})
}

func actionFrame(action string, matchID int, data any) Frame {
	raw, _ := json.Marshal(data)
	return Frame{Event: action, MatchID: matchID, Data: raw}
}
