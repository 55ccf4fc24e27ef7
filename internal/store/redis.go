package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"codenames/internal/domain"
	"codenames/internal/game"

	redis "github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix    = "room:"
	sessionKeyPrefix = "session:"
	gameKeyPrefix    = "game:"
	roomsSetKey      = "rooms"
)

// Redis keeps the tables as JSON values in a redis instance so room
// state survives a process restart. A single mutex provides the
// per-call atomicity the hub expects; cross-process sharing is not a
// goal (the hub is the only writer).
type Redis struct {
	mu     sync.Mutex
	ids    IDSource
	client *redis.Client
}

func NewRedis(addr, password string, db int, ids IDSource) (*Redis, error) {
	if ids == nil {
		ids = CryptoIDSource
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{ids: ids, client: client}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func roomKey(name string) string  { return roomKeyPrefix + name }
func sessionKey(id uint64) string { return sessionKeyPrefix + strconv.FormatUint(id, 10) }
func gameKey(id uint64) string    { return gameKeyPrefix + strconv.FormatUint(id, 10) }

func (r *Redis) getJSON(ctx context.Context, key string, out any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Redis) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) newID(ctx context.Context, keyFor func(uint64) string) (uint64, error) {
	for {
		id := r.ids()
		if id == 0 {
			continue
		}
		n, err := r.client.Exists(ctx, keyFor(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("redis exists: %w", err)
		}
		if n == 0 {
			return id, nil
		}
	}
}

func (r *Redis) CreateRoom(ctx context.Context, name string, g game.Game) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.client.Exists(ctx, roomKey(name)).Result()
	if err != nil {
		return domain.Room{}, fmt.Errorf("redis exists: %w", err)
	}
	if n > 0 {
		return domain.Room{}, fmt.Errorf("room %q: %w", name, ErrRoomExists)
	}

	gameID, err := r.newID(ctx, gameKey)
	if err != nil {
		return domain.Room{}, err
	}
	if err := r.setJSON(ctx, gameKey(gameID), g); err != nil {
		return domain.Room{}, err
	}

	room := domain.Room{Name: name, GameID: gameID, Sessions: []uint64{}}
	if err := r.setJSON(ctx, roomKey(name), room); err != nil {
		return domain.Room{}, err
	}
	if err := r.client.SAdd(ctx, roomsSetKey, name).Err(); err != nil {
		return domain.Room{}, fmt.Errorf("redis sadd: %w", err)
	}
	return room, nil
}

func (r *Redis) RemoveRoom(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var room domain.Room
	if err := r.getJSON(ctx, roomKey(name), &room); err != nil {
		return err
	}

	if err := r.client.Del(ctx, roomKey(name), gameKey(room.GameID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if err := r.client.SRem(ctx, roomsSetKey, name).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

func (r *Redis) GetRoom(ctx context.Context, name string) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var room domain.Room
	if err := r.getJSON(ctx, roomKey(name), &room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *Redis) ListRooms(ctx context.Context) ([]domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.client.SMembers(ctx, roomsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	out := make([]domain.Room, 0, len(names))
	for _, name := range names {
		var room domain.Room
		if err := r.getJSON(ctx, roomKey(name), &room); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, nil
}

func (r *Redis) CreateSession(ctx context.Context, roomName string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var room domain.Room
	if err := r.getJSON(ctx, roomKey(roomName), &room); err != nil {
		return domain.Session{}, err
	}

	id, err := r.newID(ctx, sessionKey)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{ID: id, Room: roomName}
	if err := r.setJSON(ctx, sessionKey(id), session); err != nil {
		return domain.Session{}, err
	}

	room.Sessions = append(room.Sessions, id)
	if err := r.setJSON(ctx, roomKey(roomName), room); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (r *Redis) GetSession(ctx context.Context, id uint64) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var session domain.Session
	if err := r.getJSON(ctx, sessionKey(id), &session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (r *Redis) UpdateSession(ctx context.Context, id uint64, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing domain.Session
	if err := r.getJSON(ctx, sessionKey(id), &existing); err != nil {
		return err
	}
	s.ID = id
	return r.setJSON(ctx, sessionKey(id), s)
}

func (r *Redis) RemoveSession(ctx context.Context, id uint64) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var session domain.Session
	if err := r.getJSON(ctx, sessionKey(id), &session); err != nil {
		return domain.Room{}, err
	}
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return domain.Room{}, fmt.Errorf("redis del: %w", err)
	}

	var room domain.Room
	if err := r.getJSON(ctx, roomKey(session.Room), &room); err != nil {
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
	if err := r.setJSON(ctx, roomKey(session.Room), room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *Redis) GetGame(ctx context.Context, id uint64) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g game.Game
	if err := r.getJSON(ctx, gameKey(id), &g); err != nil {
		return game.Game{}, err
	}
	return g, nil
}

func (r *Redis) UpdateGame(ctx context.Context, id uint64, g game.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.client.Exists(ctx, gameKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	return r.setJSON(ctx, gameKey(id), g)
}

func (r *Redis) FlipCard(ctx context.Context, gameID uint64, at game.Coord) (game.Game, game.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g game.Game
	if err := r.getJSON(ctx, gameKey(gameID), &g); err != nil {
		return game.Game{}, game.Card{}, err
	}

	next, card, err := g.FlipCard(at)
	if err != nil {
		return game.Game{}, game.Card{}, err
	}
	if err := r.setJSON(ctx, gameKey(gameID), next); err != nil {
		return game.Game{}, game.Card{}, err
	}
	return next, card, nil
}

func (r *Redis) NextTurn(ctx context.Context, gameID uint64) (game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g game.Game
	if err := r.getJSON(ctx, gameKey(gameID), &g); err != nil {
		return game.Game{}, err
	}

	next := g.NextTurn()
	if err := r.setJSON(ctx, gameKey(gameID), next); err != nil {
		return game.Game{}, err
	}
	return next, nil
}
