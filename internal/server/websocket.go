package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

type (
	// Client represents a WebSocket client connection for event streaming
	Client struct {
		conn    *websocket.Conn
		events  <-chan *api.Event
		cancel  func()
		filter  eventFilter
		release func(*Client)
	}

	eventFilter func(*api.Event) bool
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	events, cancel := s.hub.Subscribe()
	client := &Client{
		conn:   conn,
		events: events,
		cancel: cancel,
		// No events flow until the client subscribes
		filter:  func(*api.Event) bool { return false },
		release: s.unregisterWebSocket,
	}
	s.registerWebSocket(client)

	go client.run()
}

// Close terminates the connection; the run loop cleans up
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) run() {
	defer func() {
		c.cancel()
		_ = c.conn.Close()
		if c.release != nil {
			c.release(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event, ok := <-c.events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}

	c.filter = buildFilter(&sub)
}

func (c *Client) sendEventIfMatched(event *api.Event) bool {
	if !c.filter(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// buildFilter creates an event filter from client subscription preferences.
// Unset fields match everything; set fields must all match
func buildFilter(sub *api.SubscribeRequest) eventFilter {
	var types map[api.EventType]struct{}
	if len(sub.EventTypes) > 0 {
		types = map[api.EventType]struct{}{}
		for _, et := range sub.EventTypes {
			types[et] = struct{}{}
		}
	}

	return func(ev *api.Event) bool {
		if sub.FormID != "" && ev.FormID != sub.FormID {
			return false
		}
		if sub.EntryID != "" && ev.EntryID != sub.EntryID {
			return false
		}
		if types != nil {
			if _, ok := types[ev.Type]; !ok {
				return false
			}
		}
		return true
	}
}
