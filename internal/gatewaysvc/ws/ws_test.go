package ws

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTracking(t *testing.T) {
	s := NewWs()
	s.StoreConnection("s1", "G1", nil)
	s.StoreConnection("s2", "G1", nil)
	s.StoreConnection("s3", "G2", nil)

	sockets := s.GetRoomSockets("G1")
	sort.Strings(sockets)
	assert.Equal(t, []string{"s1", "s2"}, sockets)

	s.RemoveConnection("s1")
	assert.Equal(t, []string{"s2"}, s.GetRoomSockets("G1"))
	_, ok := s.GetConnection("s1")
	assert.False(t, ok)
	assert.Empty(t, s.GetRoomSockets("G3"))
}

func TestCloseRoomOnlyClosesThatGame(t *testing.T) {
	s := NewWs()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		socketId := r.URL.Query().Get("socket")
		s.StoreConnection(socketId, r.URL.Query().Get("game"), conn)
		defer s.RemoveConnection(socketId)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	dial := func(socketId, gameId string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?socket=" + socketId + "&game=" + gameId
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	a := dial("a", "G1")
	defer a.Close()
	b := dial("b", "G1")
	defer b.Close()
	c := dial("c", "G2")
	defer c.Close()

	require.Eventually(t, func() bool {
		return len(s.GetRoomSockets("G1")) == 2 && len(s.GetRoomSockets("G2")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.CloseRoom("G1", "game closed")

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	}

	c.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := c.ReadMessage()
	var nerr net.Error
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Timeout())
}
