package server

import (
	"encoding/json"
	"fmt"

	"github.com/herohde/twofold/pkg/board"
	"github.com/herohde/twofold/pkg/game"
)

// envelope is the wire form of every client event: a type tag and a payload.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type createLobbyPayload struct {
	RoomID    string `json:"roomId"`
	Host      string `json:"host"`
	IsPrivate bool   `json:"isPrivate"`
}

type leaveLobbyPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// wireMove is the client's move description. From/to are [row, col] pairs.
// The captured/castle/en_passant annotations are advisory: the server
// re-derives everything from its own state.
type wireMove struct {
	From      [2]int `json:"from"`
	To        [2]int `json:"to"`
	Piece     string `json:"piece,omitempty"`
	Captured  string `json:"captured,omitempty"`
	Castle    string `json:"castle,omitempty"`
	EnPassant bool   `json:"en_passant,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

type movePayload struct {
	Room      string   `json:"room"`
	BoardType string   `json:"boardType"`
	Move      wireMove `json:"move"`
	// Board is the client's snapshot of its own state. Untrusted: ignored.
	Board json.RawMessage `json:"board,omitempty"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type voteResetPayload struct {
	Room  string `json:"room"`
	Color string `json:"color"`
}

type chatPayload struct {
	Room    string `json:"room"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type finishGamePayload struct {
	Room   string          `json:"room"`
	Winner string          `json:"winner"`
	Board  json.RawMessage `json:"board,omitempty"`
	Moves  []string        `json:"moves"`
}

// decodeMove validates the wire move and converts it into a board name and a
// rules request.
func decodeMove(p movePayload) (game.BoardName, game.Request, error) {
	name, ok := ParseBoardType(p.BoardType)
	if !ok {
		return 0, game.Request{}, fmt.Errorf("invalid boardType: '%v'", p.BoardType)
	}

	from, ok := board.SquareAt(p.Move.From[0], p.Move.From[1])
	if !ok {
		return 0, game.Request{}, fmt.Errorf("from out of range: %v", p.Move.From)
	}
	to, ok := board.SquareAt(p.Move.To[0], p.Move.To[1])
	if !ok {
		return 0, game.Request{}, fmt.Errorf("to out of range: %v", p.Move.To)
	}

	req := game.Request{From: from, To: to}
	if p.Move.Promotion != "" {
		runes := []rune(p.Move.Promotion)
		promo, ok := board.ParsePiece(runes[0])
		if len(runes) != 1 || !ok || promo == board.Pawn || promo == board.King {
			return 0, game.Request{}, fmt.Errorf("invalid promotion: '%v'", p.Move.Promotion)
		}
		req.Promotion = promo
	}
	return name, req, nil
}

// ParseBoardType parses the wire board selector.
func ParseBoardType(str string) (game.BoardName, bool) {
	return game.ParseBoardName(str)
}
