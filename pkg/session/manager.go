// Package session implements the per-room session layer: game ownership,
// player color assignment, reset voting, chat relay, the lobby registry and
// disconnect/reconnect handling.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/herohde/twofold/pkg/history"
	"github.com/seekerror/logw"
)

// Config holds session tunables.
type Config struct {
	// ReconnectGrace is how long a disconnected player's color is held for
	// rejoin under the same username. Default 30s.
	ReconnectGrace time.Duration
	// RoomTTL is how long an inactive room survives. Default 30m.
	RoomTTL time.Duration
	// ChatLimit is the maximum chat message length in bytes. Default 500.
	ChatLimit int
}

func (c Config) withDefaults() Config {
	if c.ReconnectGrace == 0 {
		c.ReconnectGrace = 30 * time.Second
	}
	if c.RoomTTL == 0 {
		c.RoomTTL = 30 * time.Minute
	}
	if c.ChatLimit == 0 {
		c.ChatLimit = 500
	}
	return c
}

// LobbyInfo is one entry of the public lobby listing.
type LobbyInfo struct {
	Room      string    `json:"room"`
	Host      string    `json:"host"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager owns the process-wide room registry. Room lookups take a short
// exclusive lock; all game mutation happens inside the room, so cross-room
// operations never block a room's move path.
type Manager struct {
	cfg   Config
	store history.Store
	now   func() time.Time

	mu    sync.Mutex
	rooms map[string]*Room
}

// Option is a manager creation option.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager returns a manager persisting finished games to the given store,
// which may be nil to disable history.
func NewManager(store history.Store, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg.withDefaults(),
		store: store,
		now:   time.Now,
		rooms: map[string]*Room{},
	}
	for _, fn := range opts {
		fn(m)
	}
	return m
}

// Join registers the session in the room, creating the room on first join to
// a fresh id. The creating joiner becomes the host.
func (m *Manager) Join(ctx context.Context, session, username, roomID string, s Sender) (*Room, error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = newRoom(roomID, username, false, m.cfg, m.store, m.now)
		m.rooms[roomID] = r
		logw.Infof(ctx, "Created room %v for %v", roomID, username)
	}
	m.mu.Unlock()

	if err := r.Join(ctx, session, username, s); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateLobby creates an empty room with the given id. Errors if the id is
// taken.
func (m *Manager) CreateLobby(ctx context.Context, roomID, host string, private bool) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; ok {
		return nil, ErrRoomExists
	}
	r := newRoom(roomID, host, private, m.cfg, m.store, m.now)
	m.rooms[roomID] = r

	logw.Infof(ctx, "Created lobby %v (host=%v, private=%v)", roomID, host, private)
	return r, nil
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rooms)
}

// Room returns the room with the given id, if present.
func (m *Manager) Room(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	return r, ok
}

// Lobbies returns a snapshot of the open lobbies: public rooms that are not
// full, oldest first. Private rooms never appear.
func (m *Manager) Lobbies() []LobbyInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	var ret []LobbyInfo
	for _, r := range rooms {
		if info, ok := r.info(); ok {
			ret = append(ret, info)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

// LeaveLobby removes the user from the room, deleting the room if it becomes
// empty.
func (m *Manager) LeaveLobby(ctx context.Context, roomID, username string) error {
	r, ok := m.Room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Leave(ctx, username) {
		m.remove(ctx, r)
	}
	return nil
}

// Disconnect detaches the session from its room, if any. The room survives
// for the reconnect grace window even if it becomes empty.
func (m *Manager) Disconnect(ctx context.Context, session string) {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		r.Disconnect(ctx, session)
	}
}

// Run garbage-collects idle rooms once a minute until the context is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Expire(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Expire removes rooms that are inactive past the room TTL and hold no live
// reservation. An empty room is not removed here before it is also idle past
// the TTL; LeaveLobby deletes a room emptied by an explicit leave at once.
func (m *Manager) Expire(ctx context.Context) {
	now := m.now()
	deadline := now.Add(-m.cfg.RoomTTL)

	m.mu.Lock()
	var expired []*Room
	for _, r := range m.rooms {
		if r.idle(now, deadline) {
			expired = append(expired, r)
		}
	}
	m.mu.Unlock()

	for _, r := range expired {
		m.remove(ctx, r)
	}
}

func (m *Manager) remove(ctx context.Context, r *Room) {
	m.mu.Lock()
	delete(m.rooms, r.ID())
	m.mu.Unlock()

	r.Deleted()
	logw.Infof(ctx, "Deleted room %v", r.ID())
}
