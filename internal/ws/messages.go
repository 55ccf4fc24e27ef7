package ws

import (
	"encoding/json"
	"fmt"

	"codenames/internal/domain"
	"codenames/internal/game"
)

// Frame type tags, shared by requests and events. The wire encoding is
// a discriminated union: {"type": "...", "data": {...}}.
const (
	TypeConnect             = "connect"
	TypeSetName             = "setName"
	TypeDisconnect          = "disconnect"
	TypeTimedOut            = "timedOut"
	TypeMessage             = "message"
	TypeFlipCard            = "flipCard"
	TypeNewGame             = "newGame"
	TypeSetSpyMaster        = "setSpyMaster"
	TypeNextTurn            = "nextTurn"
	TypeGameStateUpdate     = "gameStateUpdate"
	TypeUpdateClientSession = "updateClientSession"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RequestBody is the decoded payload of a client frame. Only the
// fields matching Type are meaningful.
type RequestBody struct {
	Type      string
	ID        uint64     // connect, disconnect, timedOut
	Name      string     // setName
	Text      string     // message
	Coord     game.Coord // flipCard
	Spymaster bool       // setSpyMaster
}

// ClientRequest is what an endpoint posts to the hub.
type ClientRequest struct {
	SenderID uint64
	Room     string
	Body     RequestBody
}

// ParseRequest decodes an inbound text frame. Unknown or malformed
// frames are protocol errors; the caller drops them.
func ParseRequest(raw []byte) (RequestBody, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return RequestBody{}, fmt.Errorf("frame envelope: %w", err)
	}

	body := RequestBody{Type: env.Type}
	switch env.Type {
	case TypeConnect, TypeDisconnect, TypeTimedOut:
		var data struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return RequestBody{}, fmt.Errorf("%s data: %w", env.Type, err)
		}
		body.ID = data.ID
	case TypeSetName:
		var data struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return RequestBody{}, fmt.Errorf("setName data: %w", err)
		}
		body.Name = data.Name
	case TypeMessage:
		var data struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return RequestBody{}, fmt.Errorf("message data: %w", err)
		}
		body.Text = data.Text
	case TypeFlipCard:
		var data struct {
			Coord game.Coord `json:"coord"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return RequestBody{}, fmt.Errorf("flipCard data: %w", err)
		}
		body.Coord = data.Coord
	case TypeSetSpyMaster:
		var data struct {
			Spymaster bool `json:"spymaster"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return RequestBody{}, fmt.Errorf("setSpyMaster data: %w", err)
		}
		body.Spymaster = data.Spymaster
	case TypeNewGame, TypeNextTurn:
		// no payload
	default:
		return RequestBody{}, fmt.Errorf("unknown request type %q", env.Type)
	}
	return body, nil
}

// Event is one server-to-client notification. Only the fields matching
// Type are meaningful.
type Event struct {
	Type        string
	ID          uint64
	Name        string
	Sender      *domain.Session
	Text        string
	FlippedCard *game.Card
	Game        *game.Game
	Session     *domain.Session
}

// EventMessage is the outbound frame: the event plus who triggered it
// and in which room.
type EventMessage struct {
	Sender domain.Session `json:"sender"`
	Room   string         `json:"room"`
	Event  Event          `json:"event"`
}

func DisconnectEvent(id uint64) Event { return Event{Type: TypeDisconnect, ID: id} }

func SetNameEvent(id uint64, name string) Event {
	return Event{Type: TypeSetName, ID: id, Name: name}
}

func MessageEvent(sender domain.Session, text string) Event {
	return Event{Type: TypeMessage, Sender: &sender, Text: text}
}

func FlipCardEvent(card game.Card) Event {
	return Event{Type: TypeFlipCard, FlippedCard: &card}
}

func NewGameEvent() Event      { return Event{Type: TypeNewGame} }
func SetSpyMasterEvent() Event { return Event{Type: TypeSetSpyMaster} }
func NextTurnEvent() Event     { return Event{Type: TypeNextTurn} }

func GameStateEvent(g game.Game) Event {
	return Event{Type: TypeGameStateUpdate, Game: &g}
}

func UpdateSessionEvent(s domain.Session) Event {
	return Event{Type: TypeUpdateClientSession, Session: &s}
}

func (e Event) MarshalJSON() ([]byte, error) {
	var data any
	switch e.Type {
	case TypeConnect, TypeDisconnect, TypeTimedOut:
		data = map[string]uint64{"id": e.ID}
	case TypeSetName:
		data = struct {
			ID   uint64 `json:"id"`
			Name string `json:"name"`
		}{e.ID, e.Name}
	case TypeMessage:
		data = struct {
			Sender *domain.Session `json:"sender"`
			Text   string          `json:"text"`
		}{e.Sender, e.Text}
	case TypeFlipCard:
		data = struct {
			FlippedCard *game.Card `json:"flippedCard"`
		}{e.FlippedCard}
	case TypeGameStateUpdate:
		data = struct {
			Game *game.Game `json:"game"`
		}{e.Game}
	case TypeUpdateClientSession:
		data = struct {
			Session *domain.Session `json:"session"`
		}{e.Session}
	case TypeNewGame, TypeSetSpyMaster, TypeNextTurn:
		data = struct{}{}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}

	return json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{e.Type, data})
}

func (e *Event) UnmarshalJSON(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("event envelope: %w", err)
	}

	*e = Event{Type: env.Type}
	switch env.Type {
	case TypeConnect, TypeDisconnect, TypeTimedOut:
		var data struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("%s data: %w", env.Type, err)
		}
		e.ID = data.ID
	case TypeSetName:
		var data struct {
			ID   uint64 `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("setName data: %w", err)
		}
		e.ID, e.Name = data.ID, data.Name
	case TypeMessage:
		var data struct {
			Sender *domain.Session `json:"sender"`
			Text   string          `json:"text"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("message data: %w", err)
		}
		e.Sender, e.Text = data.Sender, data.Text
	case TypeFlipCard:
		var data struct {
			FlippedCard *game.Card `json:"flippedCard"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("flipCard data: %w", err)
		}
		e.FlippedCard = data.FlippedCard
	case TypeGameStateUpdate:
		var data struct {
			Game *game.Game `json:"game"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("gameStateUpdate data: %w", err)
		}
		e.Game = data.Game
	case TypeUpdateClientSession:
		var data struct {
			Session *domain.Session `json:"session"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return fmt.Errorf("updateClientSession data: %w", err)
		}
		e.Session = data.Session
	case TypeNewGame, TypeSetSpyMaster, TypeNextTurn:
		// no payload
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}
