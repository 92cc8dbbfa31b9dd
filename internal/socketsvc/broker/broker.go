package broker

import (
	"sync"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/sipstream/sipstream-services/internal/backend"
	"github.com/sipstream/sipstream-services/internal/comm"
)

// Conn is the outbound half of one socket. Implementations must tolerate
// concurrent callers: every watched channel delivers on its own goroutine.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Broker relays remote change channels onto websocket clients. It owns no
// game logic; every frame it forwards is a change event published by some
// client's write.
type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (Conn, bool)

	mu   sync.Mutex
	subs map[string]map[string]*nats.Subscription // socketId -> channel -> sub
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (Conn, bool)) *Broker {
	return &Broker{
		Conn:          conn,
		GetConnection: fncGetConnection,
		subs:          map[string]map[string]*nats.Subscription{},
	}
}

// Watch subscribes the socket to the given change channels. Re-watching an
// already watched channel is a no-op.
func (b *Broker) Watch(socketId string, channels ...string) {
	for _, channel := range channels {
		b.mu.Lock()
		if _, ok := b.subs[socketId][channel]; ok {
			b.mu.Unlock()
			continue
		}
		b.mu.Unlock()

		sub, err := b.Conn.Subscribe(backend.SubjectFor(channel), func(m *nats.Msg) {
			b.forward(socketId, m.Data)
		})
		if err != nil {
			log.Errorf("Error subscribing socket %s to %s: %s", socketId, channel, err)
			continue
		}

		b.mu.Lock()
		if b.subs[socketId] == nil {
			b.subs[socketId] = map[string]*nats.Subscription{}
		}
		b.subs[socketId][channel] = sub
		b.mu.Unlock()
	}
}

// Unwatch drops the socket's subscriptions for the given channels.
func (b *Broker) Unwatch(socketId string, channels ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		if sub, ok := b.subs[socketId][channel]; ok {
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
				log.Errorf("Error unsubscribing socket %s from %s: %s", socketId, channel, err)
			}
			delete(b.subs[socketId], channel)
		}
	}
}

// DropSocket removes every subscription the socket holds.
func (b *Broker) DropSocket(socketId string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, sub := range b.subs[socketId] {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			log.Errorf("Error unsubscribing socket %s from %s: %s", socketId, channel, err)
		}
	}
	delete(b.subs, socketId)
}

// forward writes one change event to the web client as a WSMessage.
func (b *Broker) forward(socketId string, payload []byte) {
	conn, ok := b.GetConnection(socketId)
	if !ok {
		return
	}

	msg := &comm.WSMessage{
		Type:     "change",
		Data:     payload,
		SocketId: socketId,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Println(err)
	}
}
