package ws

import (
	"log/slog"
	"sync"

	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/services/presence"
)

// Manager owns one hub per room and the registry of live connections. It is
// the fan-out side of the coordinator: membership changes and room state land
// here and are turned into websocket frames.
type Manager struct {
	hubs    map[string]*Hub
	clients map[presence.ConnID]*Client
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewManager creates a manager with a running hub for each room key
func NewManager(roomKeys []string, logger *slog.Logger) *Manager {
	m := &Manager{
		hubs:    make(map[string]*Hub, len(roomKeys)),
		clients: make(map[presence.ConnID]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
	for _, key := range roomKeys {
		hub := NewHub(key, m.logger)
		m.hubs[key] = hub
		go hub.Run()
	}
	return m
}

// attach records a live connection so membership events can find it
func (m *Manager) attach(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.id] = client
}

// detach forgets a connection. The client is already out of every hub by the
// time this runs, since the coordinator emits LeaveRoom on disconnect.
func (m *Manager) detach(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients[client.id] == client {
		delete(m.clients, client.id)
	}
}

func (m *Manager) lookup(id presence.ConnID, roomName string) (*Client, *Hub) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[id], m.hubs[roomName]
}

// JoinRoom moves a connection into a room's hub
func (m *Manager) JoinRoom(id presence.ConnID, roomName string) {
	client, hub := m.lookup(id, roomName)
	if client == nil || hub == nil {
		return
	}
	hub.Register(client)
}

// LeaveRoom removes a connection from a room's hub
func (m *Manager) LeaveRoom(id presence.ConnID, roomName string) {
	client, hub := m.lookup(id, roomName)
	if client == nil || hub == nil {
		return
	}
	hub.Unregister(client)
}

// EmitRoomState broadcasts a tick frame to everyone in the room
func (m *Manager) EmitRoomState(roomName string, snapshot model.RoomSnapshot) {
	m.mu.RLock()
	hub := m.hubs[roomName]
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	frame, err := encodeTick(snapshot)
	if err != nil {
		m.logger.Error("failed to encode tick", slog.String("room", roomName), slog.Any("error", err))
		return
	}
	hub.Broadcast(frame)
}

// EmitChat broadcasts a chat frame to everyone in the room
func (m *Manager) EmitChat(roomName string, event model.ChatEvent) {
	m.mu.RLock()
	hub := m.hubs[roomName]
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	frame, err := encodeChat(event)
	if err != nil {
		m.logger.Error("failed to encode chat", slog.String("room", roomName), slog.Any("error", err))
		return
	}
	hub.Broadcast(frame)
}

// Close shuts down every hub
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, hub := range m.hubs {
		hub.Close()
	}
}

// ClientCount returns the number of clients currently in a room's hub
func (m *Manager) ClientCount(roomName string) int {
	m.mu.RLock()
	hub := m.hubs[roomName]
	m.mu.RUnlock()
	if hub == nil {
		return 0
	}
	return hub.ClientCount()
}
