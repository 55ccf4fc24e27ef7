package ws

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"codenames/internal/domain"
	"codenames/internal/game"
	"codenames/internal/store"
)

var hubWords = []string{"apple", "ocean", "piano", "shadow", "comet", "anchor"}

type fakeEndpoint struct {
	buf    []EventMessage
	full   bool
	kicked bool
}

func (f *fakeEndpoint) Deliver(msg EventMessage) bool {
	if f.full {
		return false
	}
	f.buf = append(f.buf, msg)
	return true
}

func (f *fakeEndpoint) Kick() { f.kicked = true }

func (f *fakeEndpoint) ofType(t string) []EventMessage {
	var out []EventMessage
	for _, msg := range f.buf {
		if msg.Event.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

// newTestHub builds a hub with a deterministic rng. Requests are fed
// through the handlers directly, which preserves the production code
// path while keeping the test single-threaded.
func newTestHub(seed int64) *Hub {
	return NewHub(store.NewMemory(nil), hubWords, Config{
		Rand: rand.New(rand.NewSource(seed)),
	})
}

func join(t *testing.T, h *Hub, room string) (domain.Session, *fakeEndpoint) {
	t.Helper()
	ep := &fakeEndpoint{}
	reply := make(chan joinReply, 1)
	h.handleJoin(context.Background(), &joinRequest{room: room, endpoint: ep, reply: reply})
	r := <-reply
	if r.err != nil {
		t.Fatalf("join: %v", r.err)
	}
	return r.session, ep
}

func post(h *Hub, sender domain.Session, body RequestBody) {
	h.handleClient(context.Background(), ClientRequest{
		SenderID: sender.ID,
		Room:     sender.Room,
		Body:     body,
	})
}

func TestJoinDeliversSessionThenState(t *testing.T) {
	h := newTestHub(1)
	ctx := context.Background()

	alice, epA := join(t, h, "alpha")
	if alice.ID == 0 {
		t.Fatal("join returned zero session id")
	}

	if len(epA.buf) != 2 {
		t.Fatalf("joining endpoint got %d events, want 2: %+v", len(epA.buf), epA.buf)
	}
	if epA.buf[0].Event.Type != TypeUpdateClientSession {
		t.Fatalf("first event = %s, want updateClientSession", epA.buf[0].Event.Type)
	}
	if got := epA.buf[0].Event.Session; got == nil || got.ID != alice.ID {
		t.Fatalf("updateClientSession carries %+v, want session %d", got, alice.ID)
	}
	if epA.buf[1].Event.Type != TypeGameStateUpdate {
		t.Fatalf("second event = %s, want gameStateUpdate", epA.buf[1].Event.Type)
	}

	room, err := h.store.GetRoom(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if len(room.Sessions) != 1 || room.Sessions[0] != alice.ID {
		t.Fatalf("room sessions = %v", room.Sessions)
	}

	// a second join reaches the first endpoint as a state broadcast only
	bob, epB := join(t, h, "alpha")
	if bob.ID == alice.ID {
		t.Fatal("duplicate session ids")
	}
	if len(epB.ofType(TypeUpdateClientSession)) != 1 {
		t.Fatal("second joiner missing updateClientSession")
	}
	if len(epA.ofType(TypeGameStateUpdate)) != 2 {
		t.Fatalf("first endpoint state updates = %d, want 2",
			len(epA.ofType(TypeGameStateUpdate)))
	}
	if len(epA.ofType(TypeUpdateClientSession)) != 1 {
		t.Fatal("first endpoint must not receive the joiner's session")
	}
}

func TestSetName(t *testing.T) {
	h := newTestHub(2)

	alice, epA := join(t, h, "alpha")
	_, epB := join(t, h, "alpha")

	post(h, alice, RequestBody{Type: TypeSetName, Name: "alice"})

	updates := epA.ofType(TypeUpdateClientSession)
	last := updates[len(updates)-1]
	if last.Event.Session.Username != "alice" {
		t.Fatalf("sender session username = %q", last.Event.Session.Username)
	}

	for _, ep := range []*fakeEndpoint{epA, epB} {
		events := ep.ofType(TypeSetName)
		if len(events) != 1 {
			t.Fatalf("setName broadcasts = %d, want 1", len(events))
		}
		if events[0].Event.ID != alice.ID || events[0].Event.Name != "alice" {
			t.Fatalf("setName event = %+v", events[0].Event)
		}
	}

	stored, err := h.store.GetSession(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Username != "alice" {
		t.Fatalf("stored username = %q", stored.Username)
	}
}

func TestChatEchoIncludesSender(t *testing.T) {
	h := newTestHub(3)

	alice, epA := join(t, h, "alpha")
	_, epB := join(t, h, "alpha")

	post(h, alice, RequestBody{Type: TypeMessage, Text: "hi"})

	for _, ep := range []*fakeEndpoint{epA, epB} {
		events := ep.ofType(TypeMessage)
		if len(events) != 1 {
			t.Fatalf("message events = %d, want 1", len(events))
		}
		ev := events[0].Event
		if ev.Text != "hi" {
			t.Fatalf("text = %q", ev.Text)
		}
		if ev.Sender == nil || ev.Sender.ID != alice.ID {
			t.Fatalf("message sender = %+v, want %d", ev.Sender, alice.ID)
		}
	}
}

func TestFlipCardBroadcastsCardThenState(t *testing.T) {
	h := newTestHub(4)
	ctx := context.Background()

	alice, epA := join(t, h, "alpha")

	room, _ := h.store.GetRoom(ctx, "alpha")
	g, _ := h.store.GetGame(ctx, room.GameID)

	var blue game.Coord
	for row := 0; row < game.BoardSize; row++ {
		for col := 0; col < game.BoardSize; col++ {
			if g.Board[row][col].Type == game.CardBlue {
				blue = g.Board[row][col].Coord
			}
		}
	}

	before := len(epA.buf)
	post(h, alice, RequestBody{Type: TypeFlipCard, Coord: blue})

	if got := len(epA.buf) - before; got != 2 {
		t.Fatalf("flip produced %d events, want flipCard + state", got)
	}
	flip := epA.buf[before].Event
	if flip.Type != TypeFlipCard {
		t.Fatalf("first event = %s", flip.Type)
	}
	if flip.FlippedCard == nil || !flip.FlippedCard.Flipped || flip.FlippedCard.Type != game.CardBlue {
		t.Fatalf("flipped card = %+v", flip.FlippedCard)
	}

	state := epA.buf[before+1].Event
	if state.Type != TypeGameStateUpdate {
		t.Fatalf("second event = %s", state.Type)
	}
	// matching color keeps the turn
	if state.Game.TurnTeam != game.TeamBlue {
		t.Fatalf("turn = %s, want BLUE", state.Game.TurnTeam)
	}
	if state.Game.Remaining != (game.Remaining{Blue: 8, Red: 8}) {
		t.Fatalf("remaining = %+v, want {8 8}", state.Game.Remaining)
	}
}

func TestFlipIgnoredOnceOver(t *testing.T) {
	h := newTestHub(5)
	ctx := context.Background()

	alice, epA := join(t, h, "alpha")

	room, _ := h.store.GetRoom(ctx, "alpha")
	g, _ := h.store.GetGame(ctx, room.GameID)

	var assassin, red game.Coord
	for row := 0; row < game.BoardSize; row++ {
		for col := 0; col < game.BoardSize; col++ {
			switch g.Board[row][col].Type {
			case game.CardAssassin:
				assassin = g.Board[row][col].Coord
			case game.CardRed:
				red = g.Board[row][col].Coord
			}
		}
	}

	post(h, alice, RequestBody{Type: TypeFlipCard, Coord: assassin})

	states := epA.ofType(TypeGameStateUpdate)
	final := states[len(states)-1].Event.Game
	if !final.Status.Over() {
		t.Fatal("assassin flip must end the game")
	}
	if final.Status.Winner != game.TeamRed {
		t.Fatalf("winner = %s, want RED", final.Status.Winner)
	}

	// any further flip is silent: no events, no state change
	before := len(epA.buf)
	post(h, alice, RequestBody{Type: TypeFlipCard, Coord: red})
	if len(epA.buf) != before {
		t.Fatalf("flip after game over produced %d events", len(epA.buf)-before)
	}

	persisted, _ := h.store.GetGame(ctx, room.GameID)
	if persisted.Board[red.Row][red.Col].Flipped {
		t.Fatal("flip after game over mutated the board")
	}
}

func TestNewGameResetsSpymastersAndAlternates(t *testing.T) {
	h := newTestHub(6)
	ctx := context.Background()

	alice, epA := join(t, h, "alpha")
	bob, epB := join(t, h, "alpha")

	post(h, alice, RequestBody{Type: TypeSetSpyMaster, Spymaster: true})
	post(h, bob, RequestBody{Type: TypeSetSpyMaster, Spymaster: true})

	if s, _ := h.store.GetSession(ctx, alice.ID); !s.IsSpymaster {
		t.Fatal("setSpyMaster not applied")
	}

	post(h, alice, RequestBody{Type: TypeNewGame})

	for _, ep := range []*fakeEndpoint{epA, epB} {
		updates := ep.ofType(TypeUpdateClientSession)
		last := updates[len(updates)-1].Event.Session
		if last.IsSpymaster {
			t.Fatalf("session %d still spymaster after newGame", last.ID)
		}
		if len(ep.ofType(TypeNewGame)) != 1 {
			t.Fatal("missing newGame broadcast")
		}
		states := ep.ofType(TypeGameStateUpdate)
		final := states[len(states)-1].Event.Game
		if final.StartingTeam != game.TeamRed {
			t.Fatalf("starting team = %s, want RED after reseed", final.StartingTeam)
		}
		if final.Status.Over() {
			t.Fatal("reseeded game must be in progress")
		}
	}
}

func TestNextTurn(t *testing.T) {
	h := newTestHub(7)

	alice, epA := join(t, h, "alpha")
	post(h, alice, RequestBody{Type: TypeNextTurn})

	if len(epA.ofType(TypeNextTurn)) != 1 {
		t.Fatal("missing nextTurn broadcast")
	}
	states := epA.ofType(TypeGameStateUpdate)
	final := states[len(states)-1].Event.Game
	if final.TurnTeam != game.TeamRed {
		t.Fatalf("turn = %s, want RED", final.TurnTeam)
	}
}

func TestDisconnectPrunesAndBroadcasts(t *testing.T) {
	h := newTestHub(8)
	ctx := context.Background()

	alice, epA := join(t, h, "alpha")
	bob, epB := join(t, h, "alpha")

	post(h, alice, RequestBody{Type: TypeDisconnect, ID: alice.ID})

	// departing endpoint saw nothing of its own removal
	if len(epA.ofType(TypeDisconnect)) != 0 {
		t.Fatal("departing endpoint received its own disconnect")
	}

	events := epB.ofType(TypeDisconnect)
	if len(events) != 1 || events[0].Event.ID != alice.ID {
		t.Fatalf("peer disconnect events = %+v", events)
	}
	states := epB.ofType(TypeGameStateUpdate)
	if len(states) != 2 { // own join, alice's departure
		t.Fatalf("peer state updates = %d, want 2", len(states))
	}

	room, err := h.store.GetRoom(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if len(room.Sessions) != 1 || room.Sessions[0] != bob.ID {
		t.Fatalf("room sessions = %v, want [%d]", room.Sessions, bob.ID)
	}
	if _, ok := h.endpoints[alice.ID]; ok {
		t.Fatal("endpoint handle survived disconnect")
	}
}

func TestLastLeaveRemovesRoom(t *testing.T) {
	h := newTestHub(9)
	ctx := context.Background()

	alice, _ := join(t, h, "alpha")

	room, _ := h.store.GetRoom(ctx, "alpha")
	post(h, alice, RequestBody{Type: TypeTimedOut, ID: alice.ID})

	if _, err := h.store.GetRoom(ctx, "alpha"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("room survived last leave: %v", err)
	}
	if _, err := h.store.GetGame(ctx, room.GameID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("game survived room teardown: %v", err)
	}

	// the room can be recreated afterwards
	again, _ := join(t, h, "alpha")
	if again.ID == 0 {
		t.Fatal("rejoin after teardown failed")
	}
}

func TestStaleRequestsDropped(t *testing.T) {
	h := newTestHub(10)

	alice, epA := join(t, h, "alpha")

	// unknown sender
	h.handleClient(context.Background(), ClientRequest{
		SenderID: 999999,
		Room:     "alpha",
		Body:     RequestBody{Type: TypeMessage, Text: "ghost"},
	})
	if len(epA.ofType(TypeMessage)) != 0 {
		t.Fatal("request from unknown sender reached the room")
	}

	// unknown room
	h.handleClient(context.Background(), ClientRequest{
		SenderID: alice.ID,
		Room:     "beta",
		Body:     RequestBody{Type: TypeMessage, Text: "void"},
	})
	if len(epA.ofType(TypeMessage)) != 0 {
		t.Fatal("request for unknown room reached the endpoint")
	}

	// a second leave for the same session is dropped quietly
	post(h, alice, RequestBody{Type: TypeDisconnect, ID: alice.ID})
	post(h, alice, RequestBody{Type: TypeDisconnect, ID: alice.ID})
}

func TestSlowEndpointIsKicked(t *testing.T) {
	h := newTestHub(11)

	alice, epA := join(t, h, "alpha")
	epA.full = true

	post(h, alice, RequestBody{Type: TypeMessage, Text: "hi"})
	if !epA.kicked {
		t.Fatal("full endpoint not kicked")
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	h := newTestHub(12)

	alice, _ := join(t, h, "alpha")
	_, epB := join(t, h, "beta")

	post(h, alice, RequestBody{Type: TypeMessage, Text: "hi alpha"})
	if len(epB.ofType(TypeMessage)) != 0 {
		t.Fatal("message leaked across rooms")
	}
	if len(epB.ofType(TypeGameStateUpdate)) != 1 {
		t.Fatal("state updates leaked across rooms")
	}

	// a live session naming a room it does not belong to is dropped
	h.handleClient(context.Background(), ClientRequest{
		SenderID: alice.ID,
		Room:     "beta",
		Body:     RequestBody{Type: TypeMessage, Text: "spoofed"},
	})
	if len(epB.ofType(TypeMessage)) != 0 {
		t.Fatal("request from a foreign session reached the room")
	}
}
