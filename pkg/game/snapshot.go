package game

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/herohde/twofold/pkg/board"
	"github.com/seekerror/stdlib/pkg/lang"
)

// Grid is the wire form of a single board: 8x8 cells of piece codes or null.
// Pieces encode as a single letter, uppercase for White and lowercase for
// Black; pawns carry their id digit ("P1".."P8", "p1".."p8").
type Grid [8][8]*string

// Votes is the wire form of the reset votes.
type Votes struct {
	White bool `json:"White"`
	Black bool `json:"Black"`
}

// SideCastling is one color's castling rights on one board.
type SideCastling struct {
	K bool `json:"K"`
	Q bool `json:"Q"`
}

// BoardCastling is the castling rights on one board.
type BoardCastling struct {
	White SideCastling `json:"White"`
	Black SideCastling `json:"Black"`
}

// CastlingRights is the castling rights of both boards.
type CastlingRights struct {
	Main      BoardCastling `json:"main"`
	Secondary BoardCastling `json:"secondary"`
}

// EnPassantTargets is the per-board en passant target, as [row, col] or null.
type EnPassantTargets struct {
	Main      *[2]int `json:"main"`
	Secondary *[2]int `json:"secondary"`
}

// Snapshot is the full, self-contained wire form of a game. Every broadcast
// (game_state, game_update, game_reset) carries one.
type Snapshot struct {
	MainBoard             Grid             `json:"mainBoard"`
	SecondaryBoard        Grid             `json:"secondaryBoard"`
	Turn                  string           `json:"turn"`
	ActiveBoardPhase      string           `json:"active_board_phase"`
	Moves                 []string         `json:"moves"`
	Winner                string           `json:"winner,omitempty"`
	GameOver              bool             `json:"game_over"`
	MainBoardOutcome      string           `json:"main_board_outcome"`
	SecondaryBoardOutcome string           `json:"secondary_board_outcome"`
	RespondingOnBoard     string           `json:"is_responding_to_check_on_board,omitempty"`
	EnPassantTarget       EnPassantTargets `json:"en_passant_target"`
	CastlingRights        CastlingRights   `json:"castling_rights"`
	ResetVotes            Votes            `json:"reset_votes"`
}

// Snapshot returns the wire form of the game.
func (g *Game) Snapshot() *Snapshot {
	main, secondary := g.boards[Main], g.boards[Secondary]

	ret := &Snapshot{
		MainBoard:             encodeGrid(main),
		SecondaryBoard:        encodeGrid(secondary),
		Turn:                  g.turn.String(),
		ActiveBoardPhase:      g.phase.String(),
		Moves:                 append([]string{}, g.moves...),
		GameOver:              g.gameOver,
		MainBoardOutcome:      main.Outcome().String(),
		SecondaryBoardOutcome: secondary.Outcome().String(),
		EnPassantTarget: EnPassantTargets{
			Main:      encodeSquare(main),
			Secondary: encodeSquare(secondary),
		},
		CastlingRights: CastlingRights{
			Main:      encodeCastling(main.CastlingRights()),
			Secondary: encodeCastling(secondary.CastlingRights()),
		},
		ResetVotes: Votes{White: g.votes[board.White], Black: g.votes[board.Black]},
	}
	if w, ok := g.winner.V(); ok {
		ret.Winner = w.String()
	}
	if r, ok := g.responding.V(); ok {
		ret.RespondingOnBoard = r.String()
	}
	return ret
}

// Restore reconstructs a game from a snapshot. Pawn ids are taken from the
// grid; officer ids are reassigned in scan order per kind, so restoring and
// re-snapshotting is lossless at the wire level.
func Restore(s *Snapshot) (*Game, error) {
	main, err := decodeGrid(s.MainBoard, s.CastlingRights.Main, s.EnPassantTarget.Main)
	if err != nil {
		return nil, fmt.Errorf("invalid main board: %w", err)
	}
	secondary, err := decodeGrid(s.SecondaryBoard, s.CastlingRights.Secondary, s.EnPassantTarget.Secondary)
	if err != nil {
		return nil, fmt.Errorf("invalid secondary board: %w", err)
	}

	turn, ok := board.ParseColor(s.Turn)
	if !ok {
		return nil, fmt.Errorf("invalid turn: '%v'", s.Turn)
	}
	phase, ok := ParseBoardName(s.ActiveBoardPhase)
	if !ok {
		return nil, fmt.Errorf("invalid phase: '%v'", s.ActiveBoardPhase)
	}

	g := &Game{
		boards:   [NumBoardNames]board.Board{main, secondary},
		turn:     turn,
		phase:    phase,
		moves:    append([]string(nil), s.Moves...),
		gameOver: s.GameOver,
	}

	for n, str := range map[BoardName]string{Main: s.MainBoardOutcome, Secondary: s.SecondaryBoardOutcome} {
		if str == "" {
			continue
		}
		o, ok := board.ParseOutcome(str)
		if !ok {
			return nil, fmt.Errorf("invalid outcome: '%v'", str)
		}
		g.boards[n].Resolve(o)
	}
	if s.RespondingOnBoard != "" {
		r, ok := ParseBoardName(s.RespondingOnBoard)
		if !ok {
			return nil, fmt.Errorf("invalid responding board: '%v'", s.RespondingOnBoard)
		}
		g.responding = lang.Some(r)
	}
	if s.Winner != "" {
		switch s.Winner {
		case "white":
			g.winner = lang.Some(WinnerWhite)
		case "black":
			g.winner = lang.Some(WinnerBlack)
		case "draw":
			g.winner = lang.Some(WinnerDraw)
		default:
			return nil, fmt.Errorf("invalid winner: '%v'", s.Winner)
		}
	}
	g.votes[board.White] = s.ResetVotes.White
	g.votes[board.Black] = s.ResetVotes.Black
	return g, nil
}

func encodeGrid(b board.Board) Grid {
	var ret Grid
	for sq := board.ZeroSquare; sq < board.NumSquares; sq++ {
		cell := b.At(sq)
		if cell.IsEmpty() {
			continue
		}
		code := strings.ToUpper(cell.Piece.String())
		if cell.Piece == board.Pawn {
			code = string(cell.ID)
		}
		if cell.Color == board.Black {
			code = strings.ToLower(code)
		}
		ret[sq.Row()][sq.Col()] = &code
	}
	return ret
}

func decodeGrid(grid Grid, castling BoardCastling, ep *[2]int) (board.Board, error) {
	var pieces []board.Placement
	next := map[board.Color]map[board.Piece]int{board.White: {}, board.Black: {}}

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			code := grid[row][col]
			if code == nil || *code == "" {
				continue
			}

			runes := []rune(*code)
			kind, ok := board.ParsePiece(runes[0])
			if !ok {
				return board.Board{}, fmt.Errorf("invalid piece code: '%v'", *code)
			}
			c := board.Black
			if unicode.IsUpper(runes[0]) {
				c = board.White
			}

			id := board.ID(strings.ToUpper(*code))
			if kind != board.Pawn {
				next[c][kind]++
				id = board.ID(fmt.Sprintf("%v%d", strings.ToUpper(kind.String()), next[c][kind]))
			}
			pieces = append(pieces, board.Placement{Square: board.NewSquare(row, col), Color: c, Piece: kind, ID: id})
		}
	}

	rights := decodeCastling(castling)
	target := board.NoSquare
	if ep != nil {
		sq, ok := board.SquareAt(ep[0], ep[1])
		if !ok {
			return board.Board{}, fmt.Errorf("invalid en passant target: %v", *ep)
		}
		target = sq
	}
	return board.NewBoard(pieces, rights, target)
}

func encodeSquare(b board.Board) *[2]int {
	sq, ok := b.EnPassant()
	if !ok {
		return nil
	}
	return &[2]int{sq.Row(), sq.Col()}
}

func encodeCastling(c board.Castling) BoardCastling {
	return BoardCastling{
		White: SideCastling{K: c.IsAllowed(board.WhiteKingSideCastle), Q: c.IsAllowed(board.WhiteQueenSideCastle)},
		Black: SideCastling{K: c.IsAllowed(board.BlackKingSideCastle), Q: c.IsAllowed(board.BlackQueenSideCastle)},
	}
}

func decodeCastling(bc BoardCastling) board.Castling {
	var ret board.Castling
	if bc.White.K {
		ret |= board.WhiteKingSideCastle
	}
	if bc.White.Q {
		ret |= board.WhiteQueenSideCastle
	}
	if bc.Black.K {
		ret |= board.BlackKingSideCastle
	}
	if bc.Black.Q {
		ret |= board.BlackQueenSideCastle
	}
	return ret
}
