package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/herohde/twofold/pkg/board"
	"github.com/herohde/twofold/pkg/session"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

const (
	// writeWait is the deadline for a single outgoing write.
	writeWait = 10 * time.Second
	// pongWait evicts dead sessions: a socket that misses pongs this long
	// is closed.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8 << 10
	sendBuffer     = 64
)

// client is one websocket session. It implements session.Sender: outgoing
// events are enqueued on a buffered channel and written by a single goroutine,
// which preserves per-socket order and gives at-most-once delivery.
type client struct {
	id   string
	conn *websocket.Conn
	srv  *Server

	send chan session.Event
	quit iox.AsyncCloser
}

func newClient(conn *websocket.Conn, srv *Server) *client {
	return &client{
		id:   newSessionID(),
		conn: conn,
		srv:  srv,
		send: make(chan session.Event, sendBuffer),
		quit: iox.NewAsyncCloser(),
	}
}

// Send enqueues an event. It never blocks: a session too slow to drain its
// buffer is dropped, so a stuck socket cannot stall a room broadcast.
func (c *client) Send(e session.Event) {
	select {
	case c.send <- e:
	case <-c.quit.Closed():
	default:
		logw.Warningf(context.Background(), "Session %v: send buffer full; dropping connection", c.id)
		c.quit.Close()
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.srv.mgr.Disconnect(ctx, c.id)
		c.srv.conns.Dec()
		c.quit.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logw.Debugf(ctx, "Session %v: read failed: %v", c.id, err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("malformed event")
			continue
		}
		c.dispatch(ctx, env)
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				logw.Debugf(ctx, "Session %v: write failed: %v", c.id, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit.Closed():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// dispatch validates the payload shape and routes the event to the session
// layer. Rule errors are produced there; only shape errors surface here.
func (c *client) dispatch(ctx context.Context, env envelope) {
	switch env.Type {
	case "join":
		var p joinPayload
		if !c.decode(env.Data, &p) || p.Username == "" || p.Room == "" {
			c.sendError("invalid join payload")
			return
		}
		if _, err := c.srv.mgr.Join(ctx, c.id, p.Username, p.Room, c); err != nil {
			c.sendError(err.Error())
		}

	case "create_lobby":
		var p createLobbyPayload
		if !c.decode(env.Data, &p) || p.RoomID == "" || p.Host == "" {
			c.sendError("invalid create_lobby payload")
			return
		}
		if _, err := c.srv.mgr.CreateLobby(ctx, p.RoomID, p.Host, p.IsPrivate); err != nil {
			c.sendError(err.Error())
			return
		}
		c.Send(session.Event{Type: session.EventLobbyList, Data: c.srv.mgr.Lobbies()})

	case "get_lobbies":
		c.Send(session.Event{Type: session.EventLobbyList, Data: c.srv.mgr.Lobbies()})

	case "leave_lobby":
		var p leaveLobbyPayload
		if !c.decode(env.Data, &p) {
			c.sendError("invalid leave_lobby payload")
			return
		}
		if err := c.srv.mgr.LeaveLobby(ctx, p.RoomID, p.Username); err != nil {
			c.sendError(err.Error())
		}

	case "move":
		var p movePayload
		if !c.decode(env.Data, &p) {
			c.sendError("invalid move payload")
			return
		}
		r, ok := c.srv.mgr.Room(p.Room)
		if !ok {
			c.sendError(session.ErrRoomNotFound.Error())
			return
		}
		name, req, err := decodeMove(p)
		if err != nil {
			c.Send(session.Event{Type: session.EventMoveError, Data: session.MoveErrorData{Message: err.Error()}})
			return
		}
		r.Move(ctx, c.id, name, req)

	case "reset":
		if r, ok := c.room(env.Data); ok {
			r.Reset(ctx, c.id)
		}

	case "vote_reset":
		var p voteResetPayload
		if !c.decode(env.Data, &p) {
			c.sendError("invalid vote_reset payload")
			return
		}
		color, ok := board.ParseColor(p.Color)
		if !ok {
			c.sendError("invalid color")
			return
		}
		r, ok := c.srv.mgr.Room(p.Room)
		if !ok {
			c.sendError(session.ErrRoomNotFound.Error())
			return
		}
		r.VoteReset(ctx, color)

	case "chat_message":
		var p chatPayload
		if !c.decode(env.Data, &p) || p.Message == "" {
			c.sendError("invalid chat payload")
			return
		}
		r, ok := c.srv.mgr.Room(p.Room)
		if !ok {
			c.sendError(session.ErrRoomNotFound.Error())
			return
		}
		r.Chat(ctx, c.id, p.Sender, p.Message)

	case "finish_game":
		var p finishGamePayload
		if !c.decode(env.Data, &p) {
			c.sendError("invalid finish_game payload")
			return
		}
		r, ok := c.srv.mgr.Room(p.Room)
		if !ok {
			c.sendError(session.ErrRoomNotFound.Error())
			return
		}
		r.FinishGame(ctx, p.Winner, p.Moves)

	case "get_game_state":
		if r, ok := c.room(env.Data); ok {
			r.SendState(c.id)
		}

	default:
		c.sendError("unknown event type")
	}
}

// room decodes a room-addressed payload and resolves the room, emitting error
// events on failure.
func (c *client) room(data json.RawMessage) (*session.Room, bool) {
	var p roomPayload
	if !c.decode(data, &p) || p.Room == "" {
		c.sendError("invalid payload")
		return nil, false
	}
	r, ok := c.srv.mgr.Room(p.Room)
	if !ok {
		c.sendError(session.ErrRoomNotFound.Error())
		return nil, false
	}
	return r, true
}

func (c *client) decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *client) sendError(msg string) {
	c.Send(session.Event{Type: session.EventError, Data: session.ErrorData{Message: msg}})
}

func newSessionID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
