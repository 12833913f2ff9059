// Package relay is the ephemeral broadcast hub behind memory-match flip
// sync. Payloads are fanned out to the other clients on a channel and then
// forgotten: nothing is persisted and nothing is replayed.
package relay

import (
	"log"

	"couplesync/internal/stats"
)

type broadcastReq struct {
	channel string
	sender  *Client
	payload []byte
}

type Server struct {
	log   *log.Logger
	stats stats.StatsProvider

	RegisterChan   chan *Client
	DeregisterChan chan *Client
	broadcastChan  chan *broadcastReq
	channels       map[string]map[*Client]struct{}
	stop           chan struct{}
	done           chan struct{}
}

func NewServer(logger *log.Logger, sp stats.StatsProvider) *Server {
	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.ActiveChannels)
	sp.RegisterMetric(stats.EventsRelayed)

	return &Server{
		log:            logger,
		stats:          sp,
		RegisterChan:   make(chan *Client),
		DeregisterChan: make(chan *Client),
		broadcastChan:  make(chan *broadcastReq, 256),
		channels:       make(map[string]map[*Client]struct{}),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (s *Server) Run() {
	for {
		select {
		case client := <-s.RegisterChan:
			s.addClient(client)
		case client := <-s.DeregisterChan:
			s.removeClient(client)
		case req := <-s.broadcastChan:
			s.relay(req)
		case <-s.stop:
			s.log.Println("closing relay channels")
			for _, clients := range s.channels {
				for client := range clients {
					client.stopClient()
				}
			}
			close(s.done)
			return
		}
	}
}

func (s *Server) Shutdown() {
	s.log.Println("relay received shutdown signal")
	close(s.stop)
	<-s.done
}

func (s *Server) addClient(c *Client) {
	s.log.Printf("adding connection from %q to channel %q", c.userId, c.channel)

	if s.channels[c.channel] == nil {
		s.channels[c.channel] = make(map[*Client]struct{})
		s.stats.Incr(stats.ActiveChannels)
	}
	s.channels[c.channel][c] = struct{}{}
	s.stats.Incr(stats.ActiveConnections)
}

func (s *Server) removeClient(c *Client) {
	clients, ok := s.channels[c.channel]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	s.log.Printf("removing connection from %q on channel %q", c.userId, c.channel)
	delete(clients, c)
	s.stats.Decr(stats.ActiveConnections)

	if len(clients) == 0 {
		delete(s.channels, c.channel)
		s.stats.Decr(stats.ActiveChannels)
	}
}

// relay forwards the payload to every other client on the channel. Slow
// receivers are skipped, not waited on.
func (s *Server) relay(req *broadcastReq) {
	for client := range s.channels[req.channel] {
		if client == req.sender {
			continue
		}
		if !client.queuePayload(req.payload) {
			s.log.Printf("dropping event for %q on channel %q", client.userId, client.channel)
		}
	}
	s.stats.Incr(stats.EventsRelayed)
}
