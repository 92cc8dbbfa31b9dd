package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/comm"
	"github.com/sipstream/sipstream-services/internal/socketsvc/broker"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// socketWriter is the outbound surface of one gorilla connection.
type socketWriter interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// SafeConn serializes writes to one websocket connection. Each watched
// channel dispatches feed callbacks on its own goroutine, and the read loop
// writes error frames, so one socket has several concurrent writers while
// gorilla permits exactly one.
type SafeConn struct {
	mu   sync.Mutex
	conn socketWriter
}

func (c *SafeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *SafeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "watch-game":
		s.handleWatchGame(socketId, message, true)
	case "unwatch-game":
		s.handleWatchGame(socketId, message, false)
	case "watch-user":
		s.handleWatchUser(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func gameChannels(gameID string) []string {
	return []string{
		backend.ChannelKey("games", gameID),
		backend.ChannelKey("history", gameID),
	}
}

func userChannels(userID string) []string {
	return []string{
		backend.ChannelKey("notifications", userID),
		backend.ChannelKey("friends", userID),
		backend.ChannelKey("profile", userID),
	}
}

func (s *Ws) handleWatchGame(socketId string, msg *comm.WSMessage, watch bool) {
	var payload comm.WatchGame
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed watch-game payload %s", err)
		return
	}
	if payload.GameID == "" {
		log.Error("Invalid watch-game payload: missing game_id")
		return
	}

	if watch {
		s.Broker.Watch(socketId, gameChannels(payload.GameID)...)
		log.Infof("socket %s watching game %s", socketId, payload.GameID)
	} else {
		s.Broker.Unwatch(socketId, gameChannels(payload.GameID)...)
	}
}

func (s *Ws) handleWatchUser(socketId string, msg *comm.WSMessage) {
	var payload comm.WatchUser
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed watch-user payload %s", err)
		return
	}
	if payload.UserID == "" {
		log.Error("Invalid watch-user payload: missing user_id")
		return
	}

	s.Broker.Watch(socketId, userChannels(payload.UserID)...)
	log.Infof("socket %s watching user %s", socketId, payload.UserID)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) *SafeConn {
	sc := &SafeConn{conn: conn}
	s.connMap.Store(socketId, sc)
	return sc
}

func (s *Ws) GetConnection(socketId string) (*SafeConn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*SafeConn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	if s.Broker != nil {
		s.Broker.DropSocket(socketId)
	}
	s.connMap.Delete(socketId)
}
