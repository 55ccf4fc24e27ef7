package ws

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand"
	"time"

	"codenames/internal/domain"
	"codenames/internal/game"
	"codenames/internal/logger"
	"codenames/internal/store"
)

// Endpoint is the hub's handle to one connected client. Handles are
// not part of the persistent data model; the hub keeps them in its own
// session-id map.
type Endpoint interface {
	// Deliver queues an event without blocking. False reports a full
	// outbound buffer.
	Deliver(msg EventMessage) bool
	// Kick asks the endpoint to close its socket; the endpoint then
	// runs its normal disconnect path.
	Kick()
}

const (
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultClientTimeout     = 10 * time.Second

	defaultQueueSize = 256
)

type Config struct {
	// HeartbeatInterval is how often an endpoint pings its peer;
	// ClientTimeout is how long missing ping/pong traffic is tolerated.
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration

	// AllowedOrigin restricts upgrades when set.
	AllowedOrigin string

	QueueSize int

	// Rand drives board generation. Nil means a source seeded from OS
	// entropy; tests inject deterministic ones.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ClientTimeout == 0 {
		c.ClientTimeout = DefaultClientTimeout
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(cryptoSeed()))
	}
	return c
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic(err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]))
}

type joinRequest struct {
	room     string
	endpoint Endpoint
	reply    chan joinReply
}

type joinReply struct {
	session domain.Session
	err     error
}

type request struct {
	join   *joinRequest
	client *ClientRequest
}

// Hub is the single serialization point: one goroutine drains the
// request queue in FIFO order, and only that goroutine touches the
// store and the endpoint map. Events a request produces are queued on
// every affected endpoint before the next request is looked at.
type Hub struct {
	cfg   Config
	store store.Store
	words []string
	rng   *rand.Rand

	requests  chan request
	done      chan struct{}
	endpoints map[uint64]Endpoint
}

func NewHub(st store.Store, words []string, cfg Config) *Hub {
	cfg = cfg.withDefaults()
	return &Hub{
		cfg:       cfg,
		store:     st,
		words:     words,
		rng:       cfg.Rand,
		requests:  make(chan request, cfg.QueueSize),
		done:      make(chan struct{}),
		endpoints: make(map[uint64]Endpoint),
	}
}

// Run drains the request queue until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	logger.Info("hub started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("hub stopped")
			return
		case req := <-h.requests:
			switch {
			case req.join != nil:
				h.handleJoin(ctx, req.join)
			case req.client != nil:
				h.handleClient(ctx, *req.client)
			}
		}
	}
}

// Join registers an endpoint with the given room and returns its fresh
// session. It blocks until the hub has processed the join, so the
// Connect event is already queued on the endpoint when Join returns.
func (h *Hub) Join(ctx context.Context, room string, ep Endpoint) (domain.Session, error) {
	reply := make(chan joinReply, 1)
	jr := joinRequest{room: room, endpoint: ep, reply: reply}

	select {
	case h.requests <- request{join: &jr}:
	case <-h.done:
		return domain.Session{}, errors.New("hub is not running")
	case <-ctx.Done():
		return domain.Session{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.session, r.err
	case <-h.done:
		return domain.Session{}, errors.New("hub is not running")
	case <-ctx.Done():
		return domain.Session{}, ctx.Err()
	}
}

// Post enqueues a fire-and-forget client request.
func (h *Hub) Post(req ClientRequest) {
	select {
	case h.requests <- request{client: &req}:
	case <-h.done:
	}
}

func (h *Hub) handleJoin(ctx context.Context, jr *joinRequest) {
	room, err := h.store.GetRoom(ctx, jr.room)
	if errors.Is(err, store.ErrNotFound) {
		g, gerr := game.New(game.TeamBlue, h.words, h.rng)
		if gerr != nil {
			jr.reply <- joinReply{err: gerr}
			return
		}
		room, err = h.store.CreateRoom(ctx, jr.room, g)
		if err == nil {
			ActiveRooms.Inc()
			logger.Info("created room", "room", jr.room, "game", room.GameID)
		}
	}
	if err != nil {
		jr.reply <- joinReply{err: err}
		return
	}

	sess, err := h.store.CreateSession(ctx, jr.room)
	if err != nil {
		jr.reply <- joinReply{err: err}
		return
	}

	h.endpoints[sess.ID] = jr.endpoint
	logger.Info("session joined", "session", sess.ID, "room", jr.room)

	h.handleClient(ctx, ClientRequest{
		SenderID: sess.ID,
		Room:     jr.room,
		Body:     RequestBody{Type: TypeConnect, ID: sess.ID},
	})

	jr.reply <- joinReply{session: sess}
}

func (h *Hub) handleClient(ctx context.Context, req ClientRequest) {
	HubRequests.WithLabelValues(req.Body.Type).Inc()

	sender, err := h.store.GetSession(ctx, req.SenderID)
	if err != nil {
		logger.Warn("dropping request from unknown session",
			"session", req.SenderID, "type", req.Body.Type, "error", err)
		return
	}

	room, err := h.store.GetRoom(ctx, req.Room)
	if err != nil {
		logger.Warn("dropping request for unknown room",
			"room", req.Room, "type", req.Body.Type, "error", err)
		return
	}
	if !room.HasSession(sender.ID) {
		logger.Warn("dropping request from session outside the room",
			"session", sender.ID, "room", room.Name, "type", req.Body.Type)
		return
	}

	g, err := h.store.GetGame(ctx, room.GameID)
	if err != nil {
		// a room without a game is a broken store invariant
		logger.Fatal("room points at missing game",
			"room", room.Name, "game", room.GameID, "error", err)
	}

	switch req.Body.Type {
	case TypeConnect:
		h.deliverTo(sender.ID, EventMessage{Sender: sender, Room: room.Name, Event: UpdateSessionEvent(sender)})
		h.broadcast(room, sender, GameStateEvent(g))

	case TypeSetName:
		sender.Username = req.Body.Name
		if err := h.store.UpdateSession(ctx, sender.ID, sender); err != nil {
			logger.Warn("setName on vanished session", "session", sender.ID, "error", err)
			return
		}
		h.deliverTo(sender.ID, EventMessage{Sender: sender, Room: room.Name, Event: UpdateSessionEvent(sender)})
		h.broadcast(room, sender, SetNameEvent(sender.ID, sender.Username))

	case TypeDisconnect, TypeTimedOut:
		h.handleLeave(ctx, room, sender, req.Body)

	case TypeMessage:
		h.broadcast(room, sender, MessageEvent(sender, req.Body.Text))

	case TypeFlipCard:
		if g.Status.Over() {
			logger.Debug("ignoring flip on finished game", "room", room.Name)
			return
		}
		next, card, err := h.store.FlipCard(ctx, room.GameID, req.Body.Coord)
		if err != nil {
			logger.Warn("flip rejected", "room", room.Name,
				"coord", req.Body.Coord, "error", err)
			return
		}
		h.broadcast(room, sender, FlipCardEvent(card))
		h.broadcast(room, sender, GameStateEvent(next))

	case TypeNewGame:
		next, err := g.NewFromCurrent(h.words, h.rng)
		if err != nil {
			logger.Error("could not reseed game", "room", room.Name, "error", err)
			return
		}
		if err := h.store.UpdateGame(ctx, room.GameID, next); err != nil {
			logger.Warn("newGame on vanished game", "game", room.GameID, "error", err)
			return
		}
		for _, sid := range room.Sessions {
			s, err := h.store.GetSession(ctx, sid)
			if err != nil {
				logger.Fatal("room lists missing session",
					"room", room.Name, "session", sid, "error", err)
			}
			s.IsSpymaster = false
			if err := h.store.UpdateSession(ctx, sid, s); err != nil {
				logger.Fatal("could not reset spymaster flag",
					"session", sid, "error", err)
			}
			h.deliverTo(sid, EventMessage{Sender: sender, Room: room.Name, Event: UpdateSessionEvent(s)})
		}
		h.broadcast(room, sender, NewGameEvent())
		h.broadcast(room, sender, GameStateEvent(next))

	case TypeSetSpyMaster:
		sender.IsSpymaster = req.Body.Spymaster
		if err := h.store.UpdateSession(ctx, sender.ID, sender); err != nil {
			logger.Warn("setSpyMaster on vanished session", "session", sender.ID, "error", err)
			return
		}
		h.deliverTo(sender.ID, EventMessage{Sender: sender, Room: room.Name, Event: UpdateSessionEvent(sender)})
		h.broadcast(room, sender, SetSpyMasterEvent())

	case TypeNextTurn:
		next, err := h.store.NextTurn(ctx, room.GameID)
		if err != nil {
			logger.Warn("nextTurn on vanished game", "game", room.GameID, "error", err)
			return
		}
		h.broadcast(room, sender, NextTurnEvent())
		h.broadcast(room, sender, GameStateEvent(next))

	default:
		logger.Warn("unknown request type", "type", req.Body.Type, "session", sender.ID)
	}
}

// handleLeave removes a session; Disconnect and TimedOut are handled
// identically. The departing session is pruned before the fan-out so
// it never sees its own disconnect, and an emptied room is torn down
// silently together with its game.
func (h *Hub) handleLeave(ctx context.Context, room domain.Room, sender domain.Session, body RequestBody) {
	id := body.ID
	if id == 0 {
		id = sender.ID
	}

	after, err := h.store.RemoveSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrInconsistent) {
			logger.Fatal("store inconsistency on session removal", "session", id, "error", err)
		}
		logger.Warn("leave for already removed session", "session", id, "error", err)
		return
	}
	delete(h.endpoints, id)
	logger.Info("session left", "session", id, "room", room.Name)

	if len(after.Sessions) == 0 {
		if err := h.store.RemoveRoom(ctx, after.Name); err != nil {
			logger.Warn("could not remove empty room", "room", after.Name, "error", err)
			return
		}
		ActiveRooms.Dec()
		logger.Info("removed empty room", "room", after.Name)
		return
	}

	g, err := h.store.GetGame(ctx, after.GameID)
	if err != nil {
		logger.Fatal("room points at missing game",
			"room", after.Name, "game", after.GameID, "error", err)
	}

	h.broadcast(after, sender, DisconnectEvent(id))
	h.broadcast(after, sender, GameStateEvent(g))
}

func (h *Hub) broadcast(room domain.Room, sender domain.Session, ev Event) {
	msg := EventMessage{Sender: sender, Room: room.Name, Event: ev}
	for _, sid := range room.Sessions {
		h.deliverTo(sid, msg)
	}
}

func (h *Hub) deliverTo(sid uint64, msg EventMessage) {
	ep, ok := h.endpoints[sid]
	if !ok {
		logger.Debug("no endpoint handle", "session", sid)
		return
	}
	if !ep.Deliver(msg) {
		logger.Warn("endpoint buffer full, kicking", "session", sid)
		ep.Kick()
		return
	}
	EventsSent.WithLabelValues(msg.Event.Type).Inc()
}
