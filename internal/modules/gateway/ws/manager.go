// Package ws owns the WebSocket connection registry and the per-connection
// read/write pumps. Rooms are plain string namespaces ("aviator", "coinflip",
// "poker/<roomID>"); a connection may sit in any number of them.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/gorilla/websocket"
)

type CloseReason string

const (
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonReadError  CloseReason = "read_error"
	ReasonReplaced   CloseReason = "replaced_by_new_connection"
	ReasonShutdown   CloseReason = "server_shutdown"
	ReasonBufferFull CloseReason = "buffer_full"
	ReasonTimeout    CloseReason = "timeout"
)

// Connection represents one authenticated WebSocket connection.
type Connection struct {
	UserID    int64
	Username  string
	Conn      *websocket.Conn
	Send      chan []byte
	manager   *Manager
	closeOnce sync.Once
}

// Manager manages all WebSocket connections and their room subscriptions.
// One connection per user: a duplicate login replaces the old one.
type Manager struct {
	cfg        config.WebSocketConfig
	clients    map[int64]*Connection
	rooms      map[string]map[int64]*Connection
	register   chan *Connection
	unregister chan *Connection
	mu         sync.RWMutex

	// onDisconnect is invoked after a connection is removed, with the rooms
	// it was subscribed to. Used to fold out disconnected poker players.
	onDisconnect func(userID int64, rooms []string)
}

// NewManager creates a new connection manager.
func NewManager(cfg config.WebSocketConfig) *Manager {
	return &Manager{
		cfg:        cfg,
		clients:    make(map[int64]*Connection),
		rooms:      make(map[string]map[int64]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
	}
}

// OnDisconnect installs the disconnect hook. Must be called before Run.
func (m *Manager) OnDisconnect(fn func(userID int64, rooms []string)) {
	m.onDisconnect = fn
}

// Register registers a new connection.
func (m *Manager) Register(conn *websocket.Conn, userID int64, username string) *Connection {
	c := &Connection{
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, 1024),
		manager:  m,
	}
	m.register <- c
	return c
}

// Run starts the manager loop.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			// If user already connected, close old connection
			if old, ok := m.clients[client.UserID]; ok {
				m.dropFromRoomsLocked(old)
				old.CloseWithReason(ReasonReplaced, nil)
			}
			m.clients[client.UserID] = client
			m.mu.Unlock()

		case client := <-m.unregister:
			m.mu.Lock()
			var left []string
			// Only remove if this is still the registered connection; a
			// replaced connection must not tear down its successor's rooms.
			if cur, ok := m.clients[client.UserID]; ok && cur == client {
				left = m.dropFromRoomsLocked(client)
				delete(m.clients, client.UserID)
			}
			m.mu.Unlock()

			if len(left) > 0 && m.onDisconnect != nil {
				go m.onDisconnect(client.UserID, left)
			}
		}
	}
}

// dropFromRoomsLocked removes the connection from every room and returns the
// rooms it occupied. Caller holds m.mu.
func (m *Manager) dropFromRoomsLocked(c *Connection) []string {
	var left []string
	for room, members := range m.rooms {
		if cur, ok := members[c.UserID]; ok && cur == c {
			delete(members, c.UserID)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
			left = append(left, room)
		}
	}
	return left
}

// Join subscribes the user's connection to a room.
func (m *Manager) Join(userID int64, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[userID]
	if !ok {
		return
	}
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[int64]*Connection)
		m.rooms[room] = members
	}
	members[userID] = client
}

// Leave unsubscribes the user's connection from a room.
func (m *Manager) Leave(userID int64, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

// Broadcast sends a message to every connection subscribed to the room.
func (m *Manager) Broadcast(room string, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.rooms[room] {
		select {
		case client.Send <- message:
		default:
			// Buffer full, drop client
			client.CloseWithReason(ReasonBufferFull, nil)
			// We can't delete here because we hold RLock
			// The unregister channel will handle cleanup eventually
		}
	}
}

// SendToUser sends a message to a specific user.
func (m *Manager) SendToUser(userID int64, message []byte) {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if ok {
		select {
		case client.Send <- message:
			return
		default:
			// Buffer full, try to wait a bit
		}

		// Wait with timeout
		select {
		case client.Send <- message:
			return
		case <-time.After(time.Second * 5):
			// Timeout, client is too slow. Close connection to avoid blocking server.
			client.CloseWithReason(ReasonTimeout, nil)
		}
	}
}

// Shutdown closes all connections.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.CloseWithReason(ReasonShutdown, nil)
	}
}

// CloseWithReason closes the connection with a reason.
func (c *Connection) CloseWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		logger.Error(context.Background()).
			Int64("user_id", c.UserID).
			Str("reason", string(r)).
			Err(err).
			Msg("ws connection closed")
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection. It is
// the sole writer on the connection, which gives per-connection ordering.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.manager.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			// Generous deadline, but required so a client that stops
			// reading cannot pin the writer forever.
			c.Conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseWithReason(ReasonPingError, err)
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Connection) ReadPump(handleMessage func(int64, string, []byte)) {
	var readErr error
	defer func() {
		c.manager.unregister <- c
		c.CloseWithReason(ReasonReadError, readErr)
	}()

	c.Conn.SetReadLimit(c.manager.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				readErr = err
			}
			break
		}

		handleMessage(c.UserID, c.Username, message)
	}
}
