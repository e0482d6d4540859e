package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketqa/internal/logger"
	"marketqa/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendQueue  = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler answers questions sent over a WebSocket, one answer per
// message, in the order the questions arrive.
type wsHandler struct {
	qa   Answerer
	prom *metrics.Metrics
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] ws upgrade error: %v", err)
		return
	}
	if h.prom != nil {
		h.prom.WSConnections.Inc()
	}

	// The request context ends when ServeHTTP returns, so the session
	// carries the trace ID on a context of its own.
	ctx, cancel := context.WithCancel(logger.WithTraceID(context.Background(), logger.TraceID(r.Context())))
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendQueue), done: make(chan struct{}), qa: h.qa}

	go c.writePump()
	go func() {
		defer func() {
			cancel()
			if h.prom != nil {
				h.prom.WSConnections.Dec()
			}
		}()
		c.readPump(ctx)
	}()
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{} // closed when writePump exits
	qa   Answerer
}

func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		log.Println("[api] ws client disconnected")
	}()

	c.conn.SetReadLimit(maxQuestionBytes)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var req WSRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.reply(wsError("", "invalid JSON"))
			continue
		}
		if strings.TrimSpace(req.Question) == "" {
			c.reply(wsError(req.ID, "question is required"))
			continue
		}

		switch req.Type {
		case "", "ask":
			c.reply(WSResponse{ID: req.ID, Answer: NewAnswer(c.qa.Ask(ctx, req.Question), logger.TraceID(ctx))})
		case "analyze":
			c.reply(WSResponse{ID: req.ID, Answer: NewAnswer(c.qa.Analyze(ctx, req.Question), logger.TraceID(ctx))})
		default:
			c.reply(wsError(req.ID, "unknown type "+req.Type))
		}
	}
}

func (c *wsClient) reply(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[api] ws marshal: %v", err)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func wsError(id, msg string) map[string]string {
	return map[string]string{"id": id, "kind": "error", "text": msg}
}
