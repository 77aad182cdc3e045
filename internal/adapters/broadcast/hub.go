package broadcast

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/okian/cragboard/pkg/metrics"
)

const maxInboundMessage = 512

type subscriber struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// Hub fans messages out to websocket viewers. Each viewer has a bounded
// send buffer drained by its own writer goroutine, so a slow viewer never
// blocks Publish; when its buffer is full it is disconnected.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool

	log          logger.Logger
	terms        model.Terminology
	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration
	origins      []string
	upgrader     websocket.Upgrader

	wg sync.WaitGroup
}

// NewHub creates a hub with no viewers.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:         make(map[string]*subscriber),
		log:          logger.Nop(),
		terms:        model.NewTerminology(""),
		sendBuffer:   16,
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("hub")
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.origins {
		if o == origin {
			return true
		}
	}
	return false
}

// Publish frames ev and broadcasts it to every viewer.
func (h *Hub) Publish(_ context.Context, ev model.ResultEvent) error {
	msg, err := Encode(h.terms, ev)
	if err != nil {
		return err
	}
	return h.Broadcast(msg)
}

// Broadcast queues msg for every viewer without blocking.
func (h *Hub) Broadcast(msg []byte) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	var slow []*subscriber
	for _, s := range h.subs {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		metrics.RecordBroadcastDropped("slow_subscriber")
		h.log.Warn(context.Background(), "dropping slow viewer", logger.String("subscriber", s.id))
		h.remove(s)
	}
	return nil
}

// Subscribers returns the number of connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[s.id] = s
	metrics.UpdateBroadcastSubscribers(len(h.subs))
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		metrics.UpdateBroadcastSubscribers(len(h.subs))
	}
	h.mu.Unlock()
	s.close()
}

// ServeHTTP upgrades the request to a websocket and registers the viewer.
// Viewers only receive; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.log.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	s := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	if !h.add(s) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		return
	}
	h.log.Debug(r.Context(), "viewer connected", logger.String("subscriber", s.id))

	h.wg.Add(2)
	go h.writeLoop(s)
	go h.readLoop(s)
}

func (h *Hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

func (h *Hub) readLoop(s *subscriber) {
	defer h.wg.Done()
	defer h.remove(s)

	pongWait := 2 * h.pingInterval
	s.conn.SetReadLimit(maxInboundMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.log.Debug(context.Background(), "viewer disconnected", logger.String("subscriber", s.id))
			return
		}
	}
}

// Close disconnects every viewer and rejects new ones. It waits for the
// per-viewer goroutines to finish.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[string]*subscriber)
	metrics.UpdateBroadcastSubscribers(0)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	h.wg.Wait()
	return nil
}
