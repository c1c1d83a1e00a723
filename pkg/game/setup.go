package game

import (
	"fmt"

	"github.com/herohde/twofold/pkg/board"
	"github.com/seekerror/stdlib/pkg/lang"
)

// Scenario identifies a preset game state, used by tests and the development
// debug endpoint. Installing a preset is the only non-move path that mutates
// a game.
type Scenario string

const (
	ScenarioCheckmate Scenario = "checkmate"
	ScenarioStalemate Scenario = "stalemate"
	ScenarioInCheck   Scenario = "in_check"
	ScenarioPromotion Scenario = "promotion"
	ScenarioCastling  Scenario = "castling"
	ScenarioEnPassant Scenario = "en_passant"
)

// NewScenario returns a fresh game in the given preset state.
func NewScenario(s Scenario) (*Game, error) {
	switch s {
	case ScenarioCheckmate:
		// Back-rank mate on Main: White has just played Rd8#.
		main, err := board.NewBoard([]board.Placement{
			place("g1", board.White, board.King, "K1"),
			place("d8", board.White, board.Rook, "R1"),
			place("f2", board.White, board.Pawn, "P6"),
			place("g2", board.White, board.Pawn, "P7"),
			place("h2", board.White, board.Pawn, "P8"),
			place("g8", board.Black, board.King, "K1"),
			place("f7", board.Black, board.Pawn, "P6"),
			place("g7", board.Black, board.Pawn, "P7"),
			place("h7", board.Black, board.Pawn, "P8"),
		}, 0, board.NoSquare)
		if err != nil {
			return nil, err
		}
		main.Resolve(board.WhiteWins)

		g := newFromBoards(main, board.StartBoard(), board.Black, Main)
		g.gameOver = true
		g.winner = lang.Some(WinnerWhite)
		return g, nil

	case ScenarioStalemate:
		// Black is stalemated on Main; play continues on Secondary.
		main, err := board.NewBoard([]board.Placement{
			place("f7", board.White, board.King, "K1"),
			place("g6", board.White, board.Queen, "Q1"),
			place("h8", board.Black, board.King, "K1"),
		}, 0, board.NoSquare)
		if err != nil {
			return nil, err
		}
		main.Resolve(board.DrawStalemate)

		return newFromBoards(main, board.StartBoard(), board.Black, Secondary), nil

	case ScenarioInCheck:
		// Black is in check on Main and must respond there.
		main, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("e4", board.White, board.Rook, "R1"),
			place("e8", board.Black, board.King, "K1"),
		}, 0, board.NoSquare)
		if err != nil {
			return nil, err
		}

		g := newFromBoards(main, board.StartBoard(), board.Black, Main)
		g.responding = lang.Some(Main)
		return g, nil

	case ScenarioPromotion:
		// A White pawn one push from promotion.
		main, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("a7", board.White, board.Pawn, "P1"),
			place("h7", board.Black, board.King, "K1"),
		}, 0, board.NoSquare)
		if err != nil {
			return nil, err
		}
		return newFromBoards(main, board.StartBoard(), board.White, Main), nil

	case ScenarioCastling:
		// Cleared back ranks with full rights, on both boards.
		b, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("a1", board.White, board.Rook, "R1"),
			place("h1", board.White, board.Rook, "R2"),
			place("e8", board.Black, board.King, "K1"),
			place("a8", board.Black, board.Rook, "R1"),
			place("h8", board.Black, board.Rook, "R2"),
		}, board.FullCastlingRights, board.NoSquare)
		if err != nil {
			return nil, err
		}
		return newFromBoards(b, b, board.White, Main), nil

	case ScenarioEnPassant:
		// Black just double-pushed d7d5 beside a White pawn on e5.
		main, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("e5", board.White, board.Pawn, "P5"),
			place("e8", board.Black, board.King, "K1"),
			place("d5", board.Black, board.Pawn, "P4"),
		}, 0, mustSquare("d6"))
		if err != nil {
			return nil, err
		}
		return newFromBoards(main, board.StartBoard(), board.White, Main), nil

	default:
		return nil, fmt.Errorf("unknown scenario: '%v'", s)
	}
}

func newFromBoards(main, secondary board.Board, turn board.Color, phase BoardName) *Game {
	return &Game{
		boards: [NumBoardNames]board.Board{main, secondary},
		turn:   turn,
		phase:  phase,
	}
}

func place(sq string, c board.Color, p board.Piece, id board.ID) board.Placement {
	return board.Placement{Square: mustSquare(sq), Color: c, Piece: p, ID: id}
}

func mustSquare(str string) board.Square {
	sq, err := board.ParseSquareStr(str)
	if err != nil {
		panic(err)
	}
	return sq
}
