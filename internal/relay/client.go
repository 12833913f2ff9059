package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one websocket connection joined to one broadcast channel.
type Client struct {
	conn    *websocket.Conn
	srv     *Server
	log     *log.Logger
	userId  string
	channel string
	send    chan []byte
	stop    chan struct{}
	once    sync.Once
}

func NewClient(userId, channel string, conn *websocket.Conn, srv *Server, logger *log.Logger) *Client {
	return &Client{
		conn:    conn,
		srv:     srv,
		log:     logger,
		userId:  userId,
		channel: channel,
		send:    make(chan []byte, 256),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("relay write exiting")
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					c.log.Printf("write message: %s", err)
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("relay read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		// payloads are opaque to the relay, but must at least be JSON
		if !json.Valid(raw) {
			c.log.Printf("dropping non-JSON payload from %q", c.userId)
			continue
		}

		select {
		case c.srv.broadcastChan <- &broadcastReq{channel: c.channel, sender: c, payload: raw}:
		default:
			c.log.Printf("broadcast channel full, dropping event from %q", c.userId)
		}
	}
}

func (c *Client) queuePayload(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) stopClient() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.srv.DeregisterChan <- c
	c.stopClient()
}
