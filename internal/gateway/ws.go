package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/pkg/logger"
)

// wsFeed — один WebSocket на все подписки. Реконнект с ресабскрайбом,
// keepalive ping каждые 20s — иначе шлюз рвёт соединение по таймауту.
type wsFeed struct {
	c *Client

	mu       sync.Mutex
	tokens   map[string]bool
	handlers []TickHandler
	conn     *websocket.Conn

	// writeMu сериализует все записи в conn: gorilla/websocket запрещает
	// конкурентных writer'ов, а пишут подписки, ресабскрайб и keepalive.
	writeMu sync.Mutex

	cancel context.CancelFunc
}

func newWSFeed(c *Client) *wsFeed {
	return &wsFeed{c: c, tokens: make(map[string]bool)}
}

func (f *wsFeed) connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

func (f *wsFeed) onTick(h TickHandler) {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
}

func (f *wsFeed) subscribe(token string) error {
	f.mu.Lock()
	f.tokens[token] = true
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		return f.writeOp(conn, "subscribe", []string{token})
	}
	return nil
}

func (f *wsFeed) unsubscribe(token string) error {
	f.mu.Lock()
	delete(f.tokens, token)
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		return f.writeOp(conn, "unsubscribe", []string{token})
	}
	return nil
}

func (f *wsFeed) writeOp(conn *websocket.Conn, op string, tokens []string) error {
	msg, err := sonic.Marshal(map[string]any{"op": op, "tokens": tokens})
	if err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (f *wsFeed) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	go f.loop(ctx)
}

func (f *wsFeed) stop() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *wsFeed) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := f.c.wsDialer.Dial(f.c.wsURL, nil)
		if err != nil {
			logger.Error("[WS] dial error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		logger.Info("[WS] connected %s", f.c.wsURL)

		// ресабскрайб всех активных токенов
		f.mu.Lock()
		f.conn = conn
		tokens := make([]string, 0, len(f.tokens))
		for t := range f.tokens {
			tokens = append(tokens, t)
		}
		f.mu.Unlock()
		if len(tokens) > 0 {
			if err := f.writeOp(conn, "subscribe", tokens); err != nil {
				logger.Error("[WS] resubscribe error: %v", err)
				_ = conn.Close()
				continue
			}
		}

		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = f.writeOp(conn, "ping", nil)
				}
			}
		}()

		f.readLoop(ctx, conn)
		close(stopPing)

		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

func (f *wsFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Error("[WS] read error: %v", err)
			return
		}

		var frame struct {
			Token string  `json:"token"`
			Price float64 `json:"ltp"`
			Qty   float64 `json:"qty"`
			Ts    int64   `json:"ts"` // ms
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Token == "" || frame.Price <= 0 {
			continue
		}

		at := time.UnixMilli(frame.Ts)
		if frame.Ts == 0 {
			at = time.Now()
		}

		f.mu.Lock()
		handlers := f.handlers
		f.mu.Unlock()
		for _, h := range handlers {
			h(frame.Token, frame.Price, frame.Qty, at)
		}
	}
}
