package main

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"codenames/internal/ws"
)

// Manual smoke client: joins a room, names itself, chats, flips a
// card and prints every event the server sends back.
func main() {
	base := os.Getenv("SERVER_URL")
	if base == "" {
		base = "ws://localhost:8080"
	}
	room := os.Getenv("ROOM")
	if room == "" {
		room = "smoke"
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/"+room, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			var msg ws.EventMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("decode: %v (%s)", err, raw)
				continue
			}
			log.Printf("event %-20s sender=%d room=%s", msg.Event.Type, msg.Sender.ID, msg.Room)
			if msg.Event.Type == ws.TypeGameStateUpdate && msg.Event.Game != nil {
				log.Printf("  turn=%s remaining=[%d %d] over=%v",
					msg.Event.Game.TurnTeam,
					msg.Event.Game.Remaining.Blue, msg.Event.Game.Remaining.Red,
					msg.Event.Game.Status.Over())
			}
		}
	}()

	frames := []string{
		`{"type":"setName","data":{"name":"smoke"}}`,
		`{"type":"message","data":{"text":"hello from ws_smoke"}}`,
		`{"type":"flipCard","data":{"coord":[0,0]}}`,
		`{"type":"nextTurn","data":{}}`,
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			log.Fatalf("write: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	time.Sleep(time.Second)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
