package domain

// Session - запись о подключённом клиенте
type Session struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	Room        string `json:"room"`
	IsSpymaster bool   `json:"isSpymaster"`
}

// Room - именованное лобби; сессии в нём делят одну игру
type Room struct {
	Name     string   `json:"name"`
	GameID   uint64   `json:"gameId"`
	Sessions []uint64 `json:"sessions"`
}

// Clone returns a copy whose session list shares nothing with the original.
func (r *Room) Clone() Room {
	out := Room{
		Name:     r.Name,
		GameID:   r.GameID,
		Sessions: make([]uint64, len(r.Sessions)),
	}
	copy(out.Sessions, r.Sessions)
	return out
}

// HasSession reports whether the given session id belongs to the room.
func (r *Room) HasSession(id uint64) bool {
	for _, sid := range r.Sessions {
		if sid == id {
			return true
		}
	}
	return false
}
