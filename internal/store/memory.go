package store

import (
	"context"
	"fmt"
	"sync"

	"codenames/internal/domain"
	"codenames/internal/game"
)

// Memory is the default in-process backend: maps behind a single mutex.
type Memory struct {
	mu  sync.Mutex
	ids IDSource

	rooms    map[string]*domain.Room
	games    map[uint64]*game.Game
	sessions map[uint64]*domain.Session
}

func NewMemory(ids IDSource) *Memory {
	if ids == nil {
		ids = CryptoIDSource
	}
	return &Memory{
		ids:      ids,
		rooms:    make(map[string]*domain.Room),
		games:    make(map[uint64]*game.Game),
		sessions: make(map[uint64]*domain.Session),
	}
}

// newGameID retries until the drawn id is nonzero and unused.
func (m *Memory) newGameID() uint64 {
	for {
		id := m.ids()
		if id == 0 {
			continue
		}
		if _, taken := m.games[id]; !taken {
			return id
		}
	}
}

func (m *Memory) newSessionID() uint64 {
	for {
		id := m.ids()
		if id == 0 {
			continue
		}
		if _, taken := m.sessions[id]; !taken {
			return id
		}
	}
}

func (m *Memory) CreateRoom(_ context.Context, name string, g game.Game) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[name]; exists {
		return domain.Room{}, fmt.Errorf("room %q: %w", name, ErrRoomExists)
	}

	gameID := m.newGameID()
	m.games[gameID] = &g

	room := &domain.Room{Name: name, GameID: gameID}
	m.rooms[name] = room
	return room.Clone(), nil
}

func (m *Memory) RemoveRoom(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[name]
	if !ok {
		return fmt.Errorf("room %q: %w", name, ErrNotFound)
	}

	delete(m.games, room.GameID)
	delete(m.rooms, name)
	return nil
}

func (m *Memory) GetRoom(_ context.Context, name string) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[name]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %q: %w", name, ErrNotFound)
	}
	return room.Clone(), nil
}

func (m *Memory) ListRooms(_ context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room.Clone())
	}
	return out, nil
}

func (m *Memory) CreateSession(_ context.Context, roomName string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomName]
	if !ok {
		return domain.Session{}, fmt.Errorf("room %q: %w", roomName, ErrNotFound)
	}

	id := m.newSessionID()
	session := &domain.Session{ID: id, Room: roomName}
	m.sessions[id] = session
	room.Sessions = append(room.Sessions, id)
	return *session, nil
}

func (m *Memory) GetSession(_ context.Context, id uint64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return *session, nil
}

func (m *Memory) UpdateSession(_ context.Context, id uint64, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	s.ID = id
	m.sessions[id] = &s
	return nil
}

func (m *Memory) RemoveSession(_ context.Context, id uint64) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)

	room, ok := m.rooms[session.Room]
	if !ok {
		return domain.Room{}, fmt.Errorf("session %d points at missing room %q: %w",
			id, session.Room, ErrInconsistent)
	}

	kept := room.Sessions[:0]
	for _, sid := range room.Sessions {
		if sid != id {
			kept = append(kept, sid)
		}
	}
	room.Sessions = kept
	return room.Clone(), nil
}

func (m *Memory) GetGame(_ context.Context, id uint64) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return game.Game{}, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	return *g, nil
}

func (m *Memory) UpdateGame(_ context.Context, id uint64, g game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	m.games[id] = &g
	return nil
}

func (m *Memory) FlipCard(_ context.Context, gameID uint64, at game.Coord) (game.Game, game.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return game.Game{}, game.Card{}, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}

	next, card, err := g.FlipCard(at)
	if err != nil {
		return game.Game{}, game.Card{}, err
	}
	m.games[gameID] = &next
	return next, card, nil
}

func (m *Memory) NextTurn(_ context.Context, gameID uint64) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return game.Game{}, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}

	next := g.NextTurn()
	m.games[gameID] = &next
	return next, nil
}
