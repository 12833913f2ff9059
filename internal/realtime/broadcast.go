package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBuffer   = 64
)

const (
	EventFlip    = "flip"
	EventMatch   = "match"
	EventNoMatch = "no-match"
)

// BoardEvent is the ephemeral flip-sync payload relayed between the two
// memory-match boards. It is never persisted and has no replay.
type BoardEvent struct {
	Event  string `json:"event"`
	CardId int    `json:"cardId"`
	UserId string `json:"userId,omitempty"`
	A      int    `json:"a"`
	B      int    `json:"b"`
}

func FlipEvent(cardId int, userId string) BoardEvent {
	return BoardEvent{Event: EventFlip, CardId: cardId, UserId: userId}
}

func MatchEvent(a, b int) BoardEvent {
	return BoardEvent{Event: EventMatch, A: a, B: b}
}

func NoMatchEvent(a, b int) BoardEvent {
	return BoardEvent{Event: EventNoMatch, A: a, B: b}
}

// MarshalJSON emits only the fields belonging to each event kind, so the
// relayed frames match what the clients exchange.
func (ev BoardEvent) MarshalJSON() ([]byte, error) {
	switch ev.Event {
	case EventFlip:
		return json.Marshal(map[string]any{"event": ev.Event, "cardId": ev.CardId, "userId": ev.UserId})
	case EventMatch, EventNoMatch:
		return json.Marshal(map[string]any{"event": ev.Event, "a": ev.A, "b": ev.B})
	}

	type plain BoardEvent
	return json.Marshal(plain(ev))
}

// Broadcaster carries board events to the partner's client. The websocket
// implementation talks to the relay; tests substitute a loopback fake.
type Broadcaster interface {
	Send(ev BoardEvent) error
	Close()
}

// WsBroadcaster is a relay client. One instance serves one board channel.
type WsBroadcaster struct {
	conn    *websocket.Conn
	log     *log.Logger
	onEvent func(BoardEvent)
	send    chan BoardEvent
	stop    chan struct{}
	once    sync.Once
}

// Dial connects to the relay's /ws endpoint and joins channel. Events from
// the partner are delivered to onEvent on the read pump goroutine.
func Dial(relayUrl, channel, token string, onEvent func(BoardEvent), logger *log.Logger) (*WsBroadcaster, error) {
	u, err := url.Parse(relayUrl)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("channel", channel)
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	b := &WsBroadcaster{
		conn:    conn,
		log:     logger,
		onEvent: onEvent,
		send:    make(chan BoardEvent, sendBuffer),
		stop:    make(chan struct{}),
	}

	go b.readPump()
	go b.writePump()

	return b, nil
}

func (b *WsBroadcaster) Send(ev BoardEvent) error {
	select {
	case b.send <- ev:
		return nil
	case <-b.stop:
		return fmt.Errorf("broadcaster is closed")
	default:
		return fmt.Errorf("send queue full")
	}
}

func (b *WsBroadcaster) Close() {
	b.once.Do(func() { close(b.stop) })
}

func (b *WsBroadcaster) readPump() {
	defer func() {
		b.conn.Close()
		b.Close()
		b.log.Println("broadcast read exiting")
	}()

	b.conn.SetReadDeadline(time.Now().Add(pongWait))
	b.conn.SetPongHandler(func(string) error { b.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				b.log.Printf("ws: read: %v", err)
			}
			return
		}

		var ev BoardEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			b.log.Println("error parsing board event:", err)
			continue
		}

		if b.onEvent != nil {
			b.onEvent(ev)
		}
	}
}

func (b *WsBroadcaster) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		b.conn.Close()
		b.log.Println("broadcast write exiting")
	}()

	for {
		select {
		case ev := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteJSON(ev); err != nil {
				b.log.Println("write board event:", err)
				return
			}
		case <-ticker.C:
			b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-b.stop:
			b.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
