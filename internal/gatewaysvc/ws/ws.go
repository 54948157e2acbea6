package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Ws tracks the open game sockets of this instance.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	roomMap sync.Map // socketId -> gameId
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId, gameId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
	s.roomMap.Store(socketId, gameId)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) RemoveConnection(socketId string) {
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)
}

// GetRoomSockets lists the sockets open on gameId.
func (s *Ws) GetRoomSockets(gameId string) []string {
	var sockets []string
	s.roomMap.Range(func(key, value any) bool {
		if value.(string) == gameId {
			sockets = append(sockets, key.(string))
		}
		return true
	})
	return sockets
}

// CloseRoom closes every socket open on gameId with a normal close frame.
func (s *Ws) CloseRoom(gameId, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	for _, socketId := range s.GetRoomSockets(gameId) {
		conn, ok := s.GetConnection(socketId)
		if !ok {
			continue
		}
		closeConn(socketId, conn, msg)
	}
}

// CloseAll sends a going-away close frame to every socket and closes it. The
// per-socket handlers then run their own cleanup.
func (s *Ws) CloseAll() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	s.connMap.Range(func(key, value any) bool {
		closeConn(key.(string), value.(*websocket.Conn), msg)
		return true
	})
}

func closeConn(socketId string, conn *websocket.Conn, msg []byte) {
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Debugf("close frame to socket %s: %s", socketId, err)
	}
	conn.Close()
}
