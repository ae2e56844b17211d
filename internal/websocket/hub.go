package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
)

const (
	catalogChannel = "catalog_events"
	writeWait      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes catalog change events to every connected websocket client.
// With a Redis client, events travel through pub/sub so every gateway
// replica delivers them to its own connections.
type Hub struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]struct{}
	redisClient *redis.Client
	log         *logger.Logger
	ready       chan struct{}
	readyOnce   sync.Once
}

func NewHub(redisClient *redis.Client, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		connections: make(map[*websocket.Conn]struct{}),
		redisClient: redisClient,
		log:         log,
		ready:       make(chan struct{}),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.registerConnection(conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Run relays Redis pub/sub events until ctx is done. Without Redis it only
// waits. All connections are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()

	if h.redisClient == nil {
		h.markReady()
		<-ctx.Done()
		return nil
	}

	pubsub := h.redisClient.Subscribe(ctx, catalogChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	h.markReady()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

// Ready is closed once Run is able to deliver events.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Publish sends an event to all subscribers.
func (h *Hub) Publish(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(models.WSMessage{Type: eventType, Payload: payload})
	if err != nil {
		h.log.Error("encode catalog event", "type", eventType, "error", err)
		return
	}

	if h.redisClient != nil {
		err := h.redisClient.Publish(ctx, catalogChannel, data).Err()
		if err == nil {
			return
		}
		h.log.Warn("redis publish failed, broadcasting locally", "type", eventType, "error", err)
	}
	h.broadcast(data)
}

// ConnectionCount reports the number of open websocket clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

func (h *Hub) registerConnection(conn *websocket.Conn) {
	h.mu.Lock()
	h.connections[conn] = struct{}{}
	total := len(h.connections)
	h.mu.Unlock()

	h.log.Debug("websocket connected", "total", total)
}

func (h *Hub) unregisterConnection(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.connections, conn)
	h.mu.Unlock()

	conn.Close()
	h.log.Debug("websocket disconnected")
}

// broadcast holds the lock while writing since a gorilla connection allows
// only one concurrent writer.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("websocket write failed", "error", err)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

func (h *Hub) markReady() {
	h.readyOnce.Do(func() { close(h.ready) })
}
