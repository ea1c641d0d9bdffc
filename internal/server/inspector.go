package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observable"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

// ChangeEvent is the JSON frame sent to inspector clients for every
// component change.
type ChangeEvent struct {
	Kind       models.ChangeKind    `json:"kind"`
	Entity     models.EntityID      `json:"entity"`
	EntityName string               `json:"entity_name"`
	Component  models.ComponentType `json:"component"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Inspector streams component changes to websocket clients. Publishing never
// blocks the frame loop: each client has a bounded queue and frames that do
// not fit are dropped for that client.
type Inspector struct {
	logger   log.Log
	sub      *observable.Subscription[models.ComponentChange]
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewInspector(feed models.ChangeFeed, logger log.Log) *Inspector {
	if logger == nil {
		logger = log.NewNop()
	}
	in := &Inspector{
		logger: logger.With(log.String("component", "inspector")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	in.sub = feed.Subscribe(in.onChange)
	return in
}

// Clients returns the number of connected clients.
func (in *Inspector) Clients() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.clients)
}

func (in *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in.mu.Lock()
	closed := in.closed
	in.mu.Unlock()
	if closed {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		in.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		_ = conn.Close()
		return
	}
	in.clients[c] = struct{}{}
	in.wg.Add(2)
	in.mu.Unlock()

	in.logger.Debug("inspector client connected", log.String("remote", conn.RemoteAddr().String()))
	go in.writeLoop(c)
	go in.readLoop(c)
}

// readLoop discards incoming frames; it exists to process control frames and
// notice the peer going away.
func (in *Inspector) readLoop(c *client) {
	defer in.wg.Done()
	defer in.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (in *Inspector) writeLoop(c *client) {
	defer in.wg.Done()
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			in.logger.Debug("inspector write failed", log.Error(err))
			in.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (in *Inspector) drop(c *client) {
	in.mu.Lock()
	_, ok := in.clients[c]
	delete(in.clients, c)
	in.mu.Unlock()
	if ok {
		c.close()
		in.logger.Debug("inspector client disconnected")
	}
}

func (in *Inspector) onChange(m models.ComponentChange) error {
	frame, err := json.Marshal(ChangeEvent{
		Kind:       m.Kind(),
		Entity:     m.Entity().ID(),
		EntityName: m.Entity().Name(),
		Component:  m.Component().Type(),
	})
	if err != nil {
		in.logger.Error("encode change", log.Error(err))
		return nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for c := range in.clients {
		select {
		case c.send <- frame:
		default:
			in.logger.Warn("inspector client too slow, frame dropped")
		}
	}
	return nil
}

// Close unsubscribes from the feed, disconnects every client and waits for
// their goroutines.
func (in *Inspector) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return ErrServerClosed
	}
	in.closed = true
	clients := make([]*client, 0, len(in.clients))
	for c := range in.clients {
		clients = append(clients, c)
	}
	clear(in.clients)
	in.mu.Unlock()

	in.sub.Cancel()
	for _, c := range clients {
		c.close()
	}
	in.wg.Wait()
	return nil
}
