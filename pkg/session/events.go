package session

import (
	"github.com/herohde/twofold/pkg/game"
)

// Event is a single named message delivered to clients. The transport encodes
// events onto the wire verbatim and preserves per-session order.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	EventGameState          = "game_state"
	EventGameUpdate         = "game_update"
	EventGameReset          = "game_reset"
	EventMoveError          = "move_error"
	EventLobbyList          = "lobby_list"
	EventResetVotesUpdate   = "reset_votes_update"
	EventChatMessage        = "chat_message"
	EventPlayerJoined       = "player_joined"
	EventGameStart          = "game_start"
	EventPlayerLeft         = "player_left"
	EventPlayerDisconnected = "player_disconnected"
	EventRoomDeleted        = "room_deleted"
	EventError              = "error"
)

// Sender delivers events to one connected session. Send must not block: the
// room broadcast path runs under the room lock.
type Sender interface {
	Send(e Event)
}

// MoveErrorData is the payload of a move_error event.
type MoveErrorData struct {
	Message       string `json:"message"`
	Reason        string `json:"reason,omitempty"`
	ExpectedBoard string `json:"expectedBoard,omitempty"`
	ActualBoard   string `json:"actualBoard,omitempty"`
}

// ChatData is the payload of a chat_message event.
type ChatData struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// PlayerData is the payload of player lifecycle events.
type PlayerData struct {
	Color    string `json:"color,omitempty"`
	Username string `json:"username"`
}

// VotesData is the payload of a reset_votes_update event.
type VotesData struct {
	Votes game.Votes `json:"votes"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// RoomData is the payload of a room_deleted event.
type RoomData struct {
	Room string `json:"room"`
}
