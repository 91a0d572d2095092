// Package websocket pushes comment and reply events to connected users.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"carmarket/auth"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type delivery struct {
	userID string
	msg    []byte
}

// Manager tracks connected clients per user. Start must be running for
// registrations and deliveries to be processed.
type Manager struct {
	clients    map[string]map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mu         sync.RWMutex
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	done    chan struct{}
	manager *Manager
}

// TokenParser validates the access token a client connects with.
type TokenParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan delivery, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Start runs the registry loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	defer close(m.stopped)
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for _, set := range m.clients {
				for client := range set {
					m.remove(client)
				}
			}
			m.mu.Unlock()
			return

		case client := <-m.register:
			m.mu.Lock()
			if m.clients[client.userID] == nil {
				m.clients[client.userID] = make(map[*Client]bool)
			}
			m.clients[client.userID][client] = true
			m.mu.Unlock()
			logrus.WithField("user_id", client.userID).Debug("websocket client registered")

		case client := <-m.unregister:
			m.mu.Lock()
			m.remove(client)
			m.mu.Unlock()
			logrus.WithField("user_id", client.userID).Debug("websocket client unregistered")

		case d := <-m.deliver:
			m.mu.Lock()
			for client := range m.clients[d.userID] {
				select {
				case client.send <- d.msg:
				default:
					// Slow consumer; drop it rather than block the hub.
					m.remove(client)
				}
			}
			m.mu.Unlock()
		}
	}
}

// remove must be called with m.mu held. The client's send channel is never
// closed; done tells its pumps to stop instead.
func (m *Manager) remove(client *Client) {
	set, ok := m.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.done)
	if len(set) == 0 {
		delete(m.clients, client.userID)
	}
}

// NotifyUser queues an event for every connection of userID. It never blocks;
// when the queue is full the event is dropped.
func (m *Manager) NotifyUser(userID, eventType string, payload interface{}) {
	msg, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		logrus.WithError(err).Error("marshal websocket event")
		return
	}

	select {
	case m.deliver <- delivery{userID: userID, msg: msg}:
	default:
		logrus.WithField("user_id", userID).Warn("websocket queue full, event dropped")
	}
}

// ConnectedUsers returns the number of users with at least one open connection.
func (m *Manager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades GET /ws?token=<access token>.
func Handler(manager *Manager, tokens TokenParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.ParseAccess(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := &Client{
			conn:    conn,
			userID:  claims.UserID,
			send:    make(chan []byte, sendBuffer),
			done:    make(chan struct{}),
			manager: manager,
		}
		select {
		case manager.register <- client:
		case <-manager.stopped:
			conn.Close()
			return
		}

		client.queue(Envelope{Type: "connected", Payload: map[string]interface{}{
			"userId": claims.UserID,
			"time":   time.Now().Unix(),
		}})

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) queue(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		logrus.WithError(err).Error("marshal websocket frame")
		return
	}
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.stopped:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("user_id", c.userID).Warn("websocket read error")
			}
			return
		}

		var in Envelope
		if err := json.Unmarshal(message, &in); err != nil {
			continue
		}
		if in.Type == "ping" {
			c.queue(Envelope{Type: "pong", Payload: map[string]interface{}{"time": time.Now().Unix()}})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
