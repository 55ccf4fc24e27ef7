// Package store owns the authoritative room, session and game tables.
// Every operation is atomic on its own; multi-step sequences are
// serialized by the hub, so backends need no cross-call transactions.
package store

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"codenames/internal/domain"
	"codenames/internal/game"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrRoomExists = errors.New("room already exists")

	// ErrInconsistent marks a broken table invariant (a room pointing
	// at a missing session or game). The hub treats it as fatal.
	ErrInconsistent = errors.New("store inconsistency")
)

// IDSource yields candidate 64-bit identifiers. The production source
// draws from OS entropy; tests inject predictable sequences.
type IDSource func() uint64

// CryptoIDSource reads ids from crypto/rand.
func CryptoIDSource() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the process cannot mint ids at all
		panic(err)
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Store is the persistence boundary. Lookups return clones; mutating a
// returned value never changes the stored one.
type Store interface {
	CreateRoom(ctx context.Context, name string, g game.Game) (domain.Room, error)
	RemoveRoom(ctx context.Context, name string) error
	GetRoom(ctx context.Context, name string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)

	CreateSession(ctx context.Context, room string) (domain.Session, error)
	GetSession(ctx context.Context, id uint64) (domain.Session, error)
	UpdateSession(ctx context.Context, id uint64, s domain.Session) error
	// RemoveSession deletes the session and prunes it from its room's
	// list. It returns the room after pruning; whether an empty room is
	// then removed is the caller's call.
	RemoveSession(ctx context.Context, id uint64) (domain.Room, error)

	GetGame(ctx context.Context, id uint64) (game.Game, error)
	UpdateGame(ctx context.Context, id uint64, g game.Game) error
	FlipCard(ctx context.Context, gameID uint64, at game.Coord) (game.Game, game.Card, error)
	NextTurn(ctx context.Context, gameID uint64) (game.Game, error)
}
