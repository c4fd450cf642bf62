package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/pkg/logger"
)

// event — конверт исходящего сообщения.
type event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	TS      int64  `json:"ts"`
}

// Hub — fan-out событий всем подключённым наблюдателям.
// Медленный клиент не тормозит остальных: переполненный буфер = дисконнект.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

const clientBuffer = 64

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// хаб отдаёт публичные события, origin не проверяем
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP — апгрейд и регистрация клиента.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[WS-HUB] upgrade: %v", err)
		return
	}

	c := &client{conn: conn, out: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Info("[WS-HUB] клиент подключён (%d всего)", n)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Publish — fan-out без блокировок: кто не успел, тот отключён.
func (h *Hub) Publish(evt string, payload any) {
	raw, err := sonic.Marshal(event{Event: evt, Payload: payload, TS: time.Now().UnixMilli()})
	if err != nil {
		logger.Error("[WS-HUB] marshal %s: %v", evt, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- raw:
		default:
			h.dropLocked(c)
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case raw, ok := <-c.out:
			if !ok {
				_ = c.conn.Close()
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.drop(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readLoop — входящие игнорируем, но read нужен для обработки close/pong.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.out)
	_ = c.conn.Close()
}

// Close — дисконнект всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
