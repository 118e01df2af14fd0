package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sporelabs/sporeverse/internal/dependencies/clock"
	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/services/access"
	"github.com/sporelabs/sporeverse/internal/storage"
)

// ConnID identifies one live network connection for the lifetime of that
// connection. The transport layer generates it on connect.
type ConnID string

// Broadcaster is the fan-out surface the coordinator drives. Implementations
// must not block: a slow recipient is the transport's problem, never the
// coordinator's.
type Broadcaster interface {
	// JoinRoom adds the connection to the room's delivery group
	JoinRoom(id ConnID, roomName string)
	// LeaveRoom removes the connection from the room's delivery group
	LeaveRoom(id ConnID, roomName string)
	// EmitRoomState pushes a full room snapshot to every member connection
	EmitRoomState(roomName string, snapshot model.RoomSnapshot)
	// EmitChat pushes a chat event to every member connection
	EmitChat(roomName string, event model.ChatEvent)
}

// KeyResolver maps opaque session keys to addresses. *credential.Service
// satisfies it.
type KeyResolver interface {
	Resolve(key string) (model.Address, bool)
}

// RoomConfig describes one room of the fixed registry
type RoomConfig struct {
	// Key is the name clients join by, e.g. "public"
	Key string
	// DisplayName is the human-facing room name
	DisplayName string
	// Background is the room's background asset URL
	Background string
	// Policy gates entry; nil means always allow
	Policy access.Policy
}

// room is a registry entry plus its live players. Players are created fresh
// on every join and never shared between rooms.
type room struct {
	displayName string
	background  string
	policy      access.Policy
	players     map[model.Address]*model.Player
}

// connState is the coordinator's view of one connection
type connState struct {
	address model.Address
	// generation increments when the connection goes away so a join whose
	// access check was still in flight can tell its result is stale
	generation uint64
}

// Coordinator owns every address-to-room binding. All room membership state
// lives behind its mutex and is mutated only through its methods, so no two
// presence transitions for the same address can interleave. Access policy
// checks and profile reads are the only suspending operations and run with
// the mutex released.
//
// Every operation treats an unknown connection, key, or room as a silent
// no-op: presence events are best-effort and may be replayed or arrive after
// a disconnect.
type Coordinator struct {
	logger      *slog.Logger
	resolver    KeyResolver
	profiles    storage.ProfileStore
	broadcaster Broadcaster
	clock       clock.Clock

	mu          sync.Mutex
	rooms       map[string]*room
	currentRoom map[model.Address]string
	conns       map[ConnID]*connState
}

// NewCoordinator creates a coordinator over a fixed room registry
func NewCoordinator(
	roomConfigs []RoomConfig,
	resolver KeyResolver,
	profiles storage.ProfileStore,
	broadcaster Broadcaster,
	clk clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	rooms := make(map[string]*room, len(roomConfigs))
	for _, rc := range roomConfigs {
		rooms[rc.Key] = &room{
			displayName: rc.DisplayName,
			background:  rc.Background,
			policy:      rc.Policy,
			players:     make(map[model.Address]*model.Player),
		}
	}
	return &Coordinator{
		logger:      logger.With(slog.String("component", "presence")),
		resolver:    resolver,
		profiles:    profiles,
		broadcaster: broadcaster,
		clock:       clk,
		rooms:       rooms,
		currentRoom: make(map[model.Address]string),
		conns:       make(map[ConnID]*connState),
	}
}

// Connect registers a connection with the coordinator. Until a join resolves
// a session key the connection has no address and no membership effects.
func (c *Coordinator) Connect(id ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[id]; !ok {
		c.conns[id] = &connState{}
	}
}

// Join moves the connection's address into the named room. The session key is
// resolved first; an unknown key, unknown room, or policy denial leaves all
// state untouched. If the address is already in another room it is removed
// from there, and that room's remaining members are notified, before the new
// membership is established.
func (c *Coordinator) Join(ctx context.Context, id ConnID, roomName, key string) {
	address, ok := c.resolver.Resolve(key)
	if !ok {
		c.logger.Debug("join with unknown session key", slog.String("conn", string(id)))
		return
	}

	c.mu.Lock()
	conn, ok := c.conns[id]
	if !ok {
		// Disconnected before the event was handled
		c.mu.Unlock()
		return
	}
	conn.address = address
	generation := conn.generation

	r, ok := c.rooms[roomName]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("join to unknown room", slog.String("room", roomName))
		return
	}
	if c.currentRoom[address] == roomName {
		// Already present; re-fired join events are idempotent
		c.mu.Unlock()
		return
	}
	policy := r.policy
	c.mu.Unlock()

	// The gate check and profile read may suspend; no membership state is
	// touched until both are done and the connection is known to still be
	// the one that asked.
	if policy != nil && !policy.Allow(ctx, address) {
		c.logger.Info("join denied by room policy",
			slog.String("room", roomName),
			slog.String("address", string(address)))
		return
	}

	profile, err := c.profiles.GetProfile(ctx, address)
	if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
		c.logger.Warn("profile lookup failed, joining with defaults",
			slog.String("address", string(address)),
			slog.String("error", err.Error()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok = c.conns[id]
	if !ok || conn.generation != generation || conn.address != address {
		// The connection went away (or was rebound) while the check was in
		// flight; the result is stale and must be discarded
		return
	}
	if c.currentRoom[address] == roomName {
		return
	}

	if prev, ok := c.currentRoom[address]; ok {
		c.leaveLocked(id, address, prev)
	}

	r.players[address] = model.NewPlayer(address, profile)
	c.currentRoom[address] = roomName
	c.broadcaster.JoinRoom(id, roomName)
	c.broadcaster.EmitRoomState(roomName, c.snapshotLocked(r))

	c.logger.Info("player joined room",
		slog.String("room", roomName),
		slog.String("address", string(address)))
}

// Move shifts the connection's player by (dx, dy). Positions are unbounded.
func (c *Coordinator) Move(id ConnID, dx, dy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	address, roomName, r := c.locateLocked(id)
	if r == nil {
		return
	}
	player := r.players[address]
	if player == nil {
		return
	}

	player.X += dx
	player.Y += dy
	c.broadcaster.EmitRoomState(roomName, c.snapshotLocked(r))
}

// UpdateName records the address's display name. The profile cache is always
// updated so a later join picks the name up; the live player record and room
// are only touched when the address is currently in a room.
func (c *Coordinator) UpdateName(ctx context.Context, id ConnID, name string) {
	c.updateProfile(ctx, id, func(profile *model.Profile, player *model.Player) {
		profile.Label = name
		if player != nil {
			player.Label = name
		}
	})
}

// UpdateAvatar records the address's avatar URL, mirroring UpdateName
func (c *Coordinator) UpdateAvatar(ctx context.Context, id ConnID, url string) {
	c.updateProfile(ctx, id, func(profile *model.Profile, player *model.Player) {
		profile.Avatar = url
		if player != nil {
			player.Avatar = url
		}
	})
}

func (c *Coordinator) updateProfile(ctx context.Context, id ConnID, apply func(*model.Profile, *model.Player)) {
	c.mu.Lock()
	conn, ok := c.conns[id]
	if !ok || conn.address == "" {
		c.mu.Unlock()
		return
	}
	address := conn.address
	c.mu.Unlock()

	// Read the stored profile outside the lock so an update to one field
	// never wipes the other
	profile := model.Profile{Address: address}
	if stored, err := c.profiles.GetProfile(ctx, address); err == nil {
		profile = *stored
	}

	c.mu.Lock()
	conn, ok = c.conns[id]
	if !ok || conn.address != address {
		c.mu.Unlock()
		return
	}

	var player *model.Player
	roomName, inRoom := c.currentRoom[address]
	if inRoom {
		player = c.rooms[roomName].players[address]
	}
	if player != nil {
		// The live record carries the freshest cached values
		profile.Label = player.Label
		profile.Avatar = player.Avatar
	}

	apply(&profile, player)
	profile.UpdatedAt = c.clock.Now()

	if player != nil {
		c.broadcaster.EmitRoomState(roomName, c.snapshotLocked(c.rooms[roomName]))
	}
	c.mu.Unlock()

	// Persisting the profile happens outside the lock; the store may be
	// backed by redis
	if err := c.profiles.SaveProfile(ctx, &profile); err != nil {
		c.logger.Warn("profile save failed",
			slog.String("address", string(address)),
			slog.String("error", err.Error()))
	}
}

// SendMessage fans a chat event out to the sender's current room. The sender
// name prefers the player's label, falling back to the raw address. Chat is
// not persisted anywhere.
func (c *Coordinator) SendMessage(id ConnID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	address, roomName, r := c.locateLocked(id)
	if r == nil {
		return
	}

	sender := string(address)
	if player := r.players[address]; player != nil && player.Label != "" {
		sender = player.Label
	}
	c.broadcaster.EmitChat(roomName, model.ChatEvent{Message: text, Sender: sender})
}

// Disconnect tears down everything the coordinator knows about the
// connection: the address is swept out of every room's player map, the
// vacated room's members get a fresh snapshot, and any access check still in
// flight for this connection is invalidated.
func (c *Coordinator) Disconnect(id ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[id]
	if !ok {
		return
	}
	conn.generation++
	delete(c.conns, id)

	address := conn.address
	if address == "" {
		return
	}

	if roomName, ok := c.currentRoom[address]; ok {
		c.broadcaster.LeaveRoom(id, roomName)
	}
	delete(c.currentRoom, address)

	// Sweep every room: the address must not linger anywhere
	for roomName, r := range c.rooms {
		if _, ok := r.players[address]; ok {
			delete(r.players, address)
			c.broadcaster.EmitRoomState(roomName, c.snapshotLocked(r))
		}
	}

	c.logger.Info("connection closed",
		slog.String("conn", string(id)),
		slog.String("address", string(address)))
}

// RoomSnapshot returns the current snapshot of a room, or false if the room
// does not exist
func (c *Coordinator) RoomSnapshot(roomName string) (model.RoomSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomName]
	if !ok {
		return model.RoomSnapshot{}, false
	}
	return c.snapshotLocked(r), true
}

// locateLocked resolves a connection to its address, current room name and
// room. Returns a nil room when the connection is unbound or roomless.
func (c *Coordinator) locateLocked(id ConnID) (model.Address, string, *room) {
	conn, ok := c.conns[id]
	if !ok || conn.address == "" {
		return "", "", nil
	}
	roomName, ok := c.currentRoom[conn.address]
	if !ok {
		return "", "", nil
	}
	return conn.address, roomName, c.rooms[roomName]
}

// leaveLocked removes the address from its previous room and tells the
// remaining members. Must complete before a new membership is recorded.
func (c *Coordinator) leaveLocked(id ConnID, address model.Address, roomName string) {
	r := c.rooms[roomName]
	delete(r.players, address)
	delete(c.currentRoom, address)
	c.broadcaster.LeaveRoom(id, roomName)
	c.broadcaster.EmitRoomState(roomName, c.snapshotLocked(r))

	c.logger.Info("player left room",
		slog.String("room", roomName),
		slog.String("address", string(address)))
}

// snapshotLocked deep-copies a room's state so the broadcast payload cannot
// race with later mutations
func (c *Coordinator) snapshotLocked(r *room) model.RoomSnapshot {
	players := make(map[model.Address]model.Player, len(r.players))
	for address, player := range r.players {
		players[address] = *player
	}
	return model.RoomSnapshot{
		Background: r.background,
		Name:       r.displayName,
		Players:    players,
	}
}
