package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"couplesync/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin enforcement happens in the CORS layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWs upgrades the connection and joins the client to the requested
// broadcast channel.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		errResp := NewBadRequestError()
		writeJson(s.log, w, errResp.StatusCode, errResp)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("upgrade:", err)
		return
	}

	client := relay.NewClient(userId, channel, conn, s.relay, s.log)
	s.relay.RegisterChan <- client

	go client.Write()
	go client.Read()
}

func writeJson(logger *log.Logger, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Println("write json:", err)
	}
}
