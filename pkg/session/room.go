package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/herohde/twofold/pkg/board"
	"github.com/herohde/twofold/pkg/game"
	"github.com/herohde/twofold/pkg/history"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

const persistAttempts = 3

type member struct {
	session  string
	username string
	color    lang.Optional[board.Color]
	sender   Sender
}

type reservation struct {
	color   board.Color
	expires time.Time
}

// Room owns one game and its member table. All mutation of the game and the
// membership happens under the room lock, which serializes moves, votes and
// chat into one total order per room. Broadcasts are enqueued under the same
// lock, so every member observes the same sequence.
type Room struct {
	id      string
	host    string
	private bool
	created time.Time

	cfg   Config
	store history.Store
	now   func() time.Time

	mu         sync.Mutex
	game       *game.Game
	members    map[string]*member    // session id -> member
	reserved   map[string]reservation // username -> color held during the grace window
	lastActive time.Time
	failed     bool
}

func newRoom(id, host string, private bool, cfg Config, store history.Store, now func() time.Time) *Room {
	return &Room{
		id:         id,
		host:       host,
		private:    private,
		created:    now(),
		cfg:        cfg,
		store:      store,
		now:        now,
		game:       game.New(),
		members:    map[string]*member{},
		reserved:   map[string]reservation{},
		lastActive: now(),
	}
}

// ID returns the room id.
func (r *Room) ID() string {
	return r.id
}

// Join registers the session in the room, assigning a color if one is free.
// The first joiner becomes White and the second Black, at which point
// game_start is broadcast. A username holding a reservation from a recent
// disconnect gets its prior color back. A third joiner is rejected.
func (r *Room) Join(ctx context.Context, session, username string, s Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if m, ok := r.members[session]; ok {
		// Same session re-joining: rebind the sender and resend state.
		m.sender = s
		s.Send(Event{Type: EventGameState, Data: r.game.Snapshot()})
		return nil
	}

	color, ok := r.freeColorLocked(username)
	if !ok {
		return ErrRoomFull
	}
	delete(r.reserved, username)

	m := &member{session: session, username: username, color: lang.Some(color), sender: s}
	r.members[session] = m

	logw.Infof(ctx, "Room %v: %v joined as %v", r.id, username, color)

	r.broadcastLocked(Event{Type: EventPlayerJoined, Data: PlayerData{Color: color.String(), Username: username}})
	if r.playerCountLocked() == 2 {
		for _, other := range r.members {
			if c, ok := other.color.V(); ok {
				other.sender.Send(Event{Type: EventGameStart, Data: PlayerData{Color: c.String(), Username: other.username}})
			}
		}
	}
	s.Send(Event{Type: EventGameState, Data: r.game.Snapshot()})
	return nil
}

// Move validates and applies a move submitted by the session. Rule errors go
// back to the offending session only; accepted moves broadcast game_update to
// the whole room.
func (r *Room) Move(ctx context.Context, session string, name game.BoardName, req game.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	m, ok := r.members[session]
	if !ok {
		return
	}
	if r.failed {
		m.sender.Send(Event{Type: EventError, Data: ErrorData{Message: "room is out of service"}})
		return
	}
	color, ok := m.color.V()
	if !ok {
		m.sender.Send(Event{Type: EventMoveError, Data: MoveErrorData{Message: "not a player"}})
		return
	}

	if err := r.game.Submit(color, name, req); err != nil {
		var re *game.RuleError
		if errors.As(err, &re) {
			data := MoveErrorData{Message: re.Error(), Reason: string(re.Reason)}
			if b, ok := re.Expected.V(); ok {
				data.ExpectedBoard = b.String()
			}
			if b, ok := re.Actual.V(); ok {
				data.ActualBoard = b.String()
			}
			m.sender.Send(Event{Type: EventMoveError, Data: data})
			return
		}

		// Not a rule rejection: internal invariant violation. Freeze the room
		// rather than crash the process.
		logw.Errorf(ctx, "Room %v: fatal game error on %v %v: %v; state: %+v", r.id, name, req, err, r.game.Snapshot())
		r.failed = true
		r.broadcastLocked(Event{Type: EventError, Data: ErrorData{Message: "internal error; room frozen"}})
		return
	}

	logw.Infof(ctx, "Room %v: %v played %v on %v", r.id, color, req, name)
	r.broadcastLocked(Event{Type: EventGameUpdate, Data: r.game.Snapshot()})

	if w, over := r.game.IsOver(); over {
		r.persist(ctx, w.String(), r.game.Moves())
	}
}

// Reset handles a reset request. A single-member room resets immediately; in
// multiplayer it counts as the session's reset vote.
func (r *Room) Reset(ctx context.Context, session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	m, ok := r.members[session]
	if !ok {
		return
	}
	if r.playerCountLocked() < 2 {
		r.resetLocked(ctx)
		return
	}
	if c, ok := m.color.V(); ok {
		r.voteLocked(ctx, c)
	}
}

// VoteReset records a reset vote for the given color. When both colors have
// voted, the game is re-initialized atomically.
func (r *Room) VoteReset(ctx context.Context, color board.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	r.voteLocked(ctx, color)
}

// ForceReset unconditionally resets the room, as the HTTP reset endpoint does.
func (r *Room) ForceReset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	r.resetLocked(ctx)
}

// Chat broadcasts a chat message to the room. Content is not interpreted
// beyond the length limit.
func (r *Room) Chat(ctx context.Context, session, sender, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if _, ok := r.members[session]; !ok {
		return
	}
	if len(message) > r.cfg.ChatLimit {
		message = message[:r.cfg.ChatLimit]
	}
	r.broadcastLocked(Event{Type: EventChatMessage, Data: ChatData{Sender: sender, Message: message}})
}

// FinishGame persists a manually-ended game and resets the room.
func (r *Room) FinishGame(ctx context.Context, winner string, moves []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if len(moves) == 0 {
		moves = r.game.Moves()
	}
	r.persist(ctx, winner, moves)
	r.resetLocked(ctx)
}

// InstallScenario replaces the game with a preset state. Development only.
func (r *Room) InstallScenario(ctx context.Context, s game.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	g, err := game.NewScenario(s)
	if err != nil {
		return err
	}
	r.game = g
	r.failed = false

	logw.Infof(ctx, "Room %v: installed scenario %v", r.id, s)
	r.broadcastLocked(Event{Type: EventGameState, Data: r.game.Snapshot()})
	return nil
}

// Snapshot returns the current game snapshot.
func (r *Room) Snapshot() *game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.game.Snapshot()
}

// SendState re-sends the full game state to one session.
func (r *Room) SendState(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.members[session]; ok {
		m.sender.Send(Event{Type: EventGameState, Data: r.game.Snapshot()})
	}
}

// Disconnect removes the session, holding its color for the reconnect grace
// window. Returns true iff the room is now empty.
func (r *Room) Disconnect(ctx context.Context, session string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[session]
	if !ok {
		return len(r.members) == 0
	}
	delete(r.members, session)

	if c, ok := m.color.V(); ok {
		r.reserved[m.username] = reservation{color: c, expires: r.now().Add(r.cfg.ReconnectGrace)}
	}

	logw.Infof(ctx, "Room %v: %v disconnected", r.id, m.username)
	r.broadcastLocked(Event{Type: EventPlayerDisconnected, Data: PlayerData{Username: m.username}})
	return len(r.members) == 0
}

// Leave removes the member with the given username for good, releasing any
// reservation. Returns true iff the room is now empty.
func (r *Room) Leave(ctx context.Context, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reserved, username)
	for session, m := range r.members {
		if m.username == username {
			delete(r.members, session)
			r.broadcastLocked(Event{Type: EventPlayerLeft, Data: PlayerData{Username: username}})
			break
		}
	}
	return len(r.members) == 0
}

// Deleted notifies all members that the room is being torn down.
func (r *Room) Deleted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(Event{Type: EventRoomDeleted, Data: RoomData{Room: r.id}})
}

// info returns the lobby listing entry, plus whether the room is listable:
// public and not full.
func (r *Room) info() (LobbyInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ret := LobbyInfo{Room: r.id, Host: r.host, IsPrivate: r.private, CreatedAt: r.created}
	return ret, !r.private && r.playerCountLocked() < 2
}

// idle returns true iff the room has been inactive past the deadline. A
// reservation still live at now counts as activity, so a room is never torn
// down mid-grace. Rooms emptied by an explicit leave are deleted eagerly by
// the manager instead.
func (r *Room) idle(now, deadline time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range r.reserved {
		if res.expires.After(now) {
			return false
		}
	}
	return r.lastActive.Before(deadline)
}

func (r *Room) touch() {
	r.lastActive = r.now()
}

func (r *Room) voteLocked(ctx context.Context, color board.Color) {
	if r.game.Vote(color) {
		r.resetLocked(ctx)
		return
	}
	votes := r.game.Votes()
	r.broadcastLocked(Event{Type: EventResetVotesUpdate, Data: VotesData{
		Votes: game.Votes{White: votes[board.White], Black: votes[board.Black]},
	}})
}

func (r *Room) resetLocked(ctx context.Context) {
	r.game.Reset()
	r.failed = false

	logw.Infof(ctx, "Room %v: game reset", r.id)
	r.broadcastLocked(Event{Type: EventGameReset, Data: r.game.Snapshot()})
}

func (r *Room) freeColorLocked(username string) (board.Color, bool) {
	if res, ok := r.reserved[username]; ok && res.expires.After(r.now()) && !r.colorTakenLocked(res.color) {
		return res.color, true
	}
	for _, c := range [2]board.Color{board.White, board.Black} {
		if !r.colorTakenLocked(c) && !r.colorReservedLocked(c, username) {
			return c, true
		}
	}
	return 0, false
}

func (r *Room) colorTakenLocked(c board.Color) bool {
	for _, m := range r.members {
		if mc, ok := m.color.V(); ok && mc == c {
			return true
		}
	}
	return false
}

func (r *Room) colorReservedLocked(c board.Color, exclude string) bool {
	now := r.now()
	for username, res := range r.reserved {
		if username != exclude && res.color == c && res.expires.After(now) {
			return true
		}
	}
	return false
}

func (r *Room) playerCountLocked() int {
	n := 0
	for _, m := range r.members {
		if _, ok := m.color.V(); ok {
			n++
		}
	}
	return n
}

func (r *Room) broadcastLocked(e Event) {
	for _, m := range r.members {
		m.sender.Send(e)
	}
}

// persist writes the finished game to the history sink asynchronously with
// bounded retry. Failure is logged and otherwise invisible: the in-memory
// result stands.
func (r *Room) persist(ctx context.Context, winner string, moves []string) {
	if r.store == nil {
		return
	}
	rec := history.Record{
		Room:       r.id,
		Winner:     winner,
		Moves:      moves,
		FinishedAt: r.now(),
	}
	store := r.store

	go func() {
		var err error
		for i := 0; i < persistAttempts; i++ {
			if err = store.Put(ctx, rec); err == nil {
				return
			}
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
		logw.Errorf(ctx, "Room %v: failed to persist game: %v", rec.Room, err)
	}()
}

func (r *Room) String() string {
	return fmt.Sprintf("room{id=%v, host=%v, private=%v}", r.id, r.host, r.private)
}
