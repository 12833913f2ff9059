package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"couplesync/internal/stats"
	"couplesync/internal/testutil"
)

func newTestServer(t *testing.T, su *stats.MockStatsUpdater) *Server {
	t.Helper()
	su.On("RegisterMetric", mock.Anything).Times(3)
	return NewServer(testutil.TestLogger(t), su)
}

func TestNewServer(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	s := newTestServer(t, su)
	assert.NotNil(t, s, "expected server to be non-nil")
	assert.NotNil(t, s.RegisterChan, "expected RegisterChan to be initialized")
	assert.NotNil(t, s.DeregisterChan, "expected DeregisterChan to be initialized")
	assert.NotNil(t, s.broadcastChan, "expected broadcastChan to be initialized")
	assert.NotNil(t, s.channels, "expected channels map to be initialized")
}

func TestServer_addClient_removeClient(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveChannels).Once()
	su.On("Incr", stats.ActiveConnections).Twice()
	su.On("Decr", stats.ActiveConnections).Twice()
	su.On("Decr", stats.ActiveChannels).Once()
	defer su.AssertExpectations(t)

	s := newTestServer(t, su)

	first := &Client{userId: "user-a", channel: "board:s1"}
	second := &Client{userId: "user-b", channel: "board:s1"}

	s.addClient(first)
	s.addClient(second)
	assert.Len(t, s.channels, 1, "expected one channel")
	assert.Len(t, s.channels["board:s1"], 2, "expected both clients on the channel")

	s.removeClient(first)
	assert.Len(t, s.channels["board:s1"], 1, "expected one client after removal")

	s.removeClient(second)
	assert.Empty(t, s.channels, "expected the empty channel to be dropped")

	// removing an unknown client is harmless
	s.removeClient(first)
}

func TestServer_relay(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything)
	defer su.AssertExpectations(t)

	s := newTestServer(t, su)

	sender := &Client{userId: "user-a", channel: "board:s1", send: make(chan []byte, 1)}
	receiver := &Client{userId: "user-b", channel: "board:s1", send: make(chan []byte, 1)}
	other := &Client{userId: "user-c", channel: "board:s2", send: make(chan []byte, 1)}
	s.addClient(sender)
	s.addClient(receiver)
	s.addClient(other)

	payload := []byte(`{"event":"flip","cardId":3}`)
	s.relay(&broadcastReq{channel: "board:s1", sender: sender, payload: payload})

	select {
	case got := <-receiver.send:
		assert.Equal(t, payload, got, "expected the payload forwarded verbatim")
	default:
		t.Fatal("expected the other client on the channel to receive the payload")
	}

	assert.Empty(t, sender.send, "expected the sender to be skipped")
	assert.Empty(t, other.send, "expected other channels to be untouched")
}

func TestServerShutdown(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	s := newTestServer(t, su)
	go s.Run()

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to complete")
	}
}

func TestRelayIntegration(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(3)
	su.On("Incr", mock.Anything)
	su.On("Decr", mock.Anything)

	logger := testutil.TestLogger(t)
	s := NewServer(logger, su)
	go s.Run()
	defer s.Shutdown()

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		client := NewClient(r.URL.Query().Get("user"), r.URL.Query().Get("channel"), conn, s, logger)
		s.RegisterChan <- client
		go client.Write()
		go client.Read()
	}))
	defer ts.Close()

	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http")
	dial := func(user, channel string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsUrl+"?user="+user+"&channel="+channel, nil)
		if err != nil {
			t.Fatalf("failed to dial: %v", err)
		}
		return conn
	}

	first := dial("user-a", "board:s1")
	defer first.Close()
	second := dial("user-b", "board:s1")
	defer second.Close()

	payload := `{"event":"flip","cardId":5,"userId":"user-a"}`
	err := first.WriteMessage(websocket.TextMessage, []byte(payload))
	assert.NoError(t, err, "expected write to succeed")

	second.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := second.ReadMessage()
	assert.NoError(t, err, "expected the payload to be relayed")
	assert.JSONEq(t, payload, string(raw), "expected the payload forwarded verbatim")

	// non-JSON frames are dropped, valid frames still flow afterwards
	err = first.WriteMessage(websocket.TextMessage, []byte("not json"))
	assert.NoError(t, err, "expected write to succeed")
	err = first.WriteMessage(websocket.TextMessage, []byte(`{"event":"match","a":1,"b":2}`))
	assert.NoError(t, err, "expected write to succeed")

	second.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err = second.ReadMessage()
	assert.NoError(t, err, "expected the next valid payload")
	assert.JSONEq(t, `{"event":"match","a":1,"b":2}`, string(raw), "expected the junk frame skipped")
}
