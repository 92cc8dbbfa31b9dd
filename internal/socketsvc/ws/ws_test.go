package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// overlapWriter fails the test if two writes are ever in flight at once,
// which is what gorilla panics on.
type overlapWriter struct {
	t        *testing.T
	inFlight int32
	writes   int32
}

func (w *overlapWriter) enter() {
	if atomic.AddInt32(&w.inFlight, 1) > 1 {
		w.t.Error("concurrent write to websocket connection")
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&w.inFlight, -1)
	atomic.AddInt32(&w.writes, 1)
}

func (w *overlapWriter) WriteJSON(v interface{}) error {
	w.enter()
	return nil
}

func (w *overlapWriter) WriteMessage(messageType int, data []byte) error {
	w.enter()
	return nil
}

func TestSafeConnSerializesWriters(t *testing.T) {
	// One socket watching a game has a goroutine per watched channel, plus
	// the read loop writing error frames. All three race here.
	w := &overlapWriter{t: t}
	sc := &SafeConn{conn: w}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := sc.WriteJSON(map[string]string{"type": "change"}); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			if err := sc.WriteMessage(websocket.TextMessage, []byte("{}")); err != nil {
				t.Error(err)
			}
		}
	}()
	wg.Wait()

	if got := atomic.LoadInt32(&w.writes); got != 60 {
		t.Fatalf("expected 60 writes, got %d", got)
	}
}

func TestStoreConnectionWrapsSocket(t *testing.T) {
	s := NewWs()
	sc := s.StoreConnection("sock-1", &websocket.Conn{})

	got, ok := s.GetConnection("sock-1")
	if !ok || got != sc {
		t.Fatal("expected the stored wrapper back")
	}

	s.HandleDisconnect("sock-1")
	if _, ok := s.GetConnection("sock-1"); ok {
		t.Fatal("expected connection gone after disconnect")
	}
}
