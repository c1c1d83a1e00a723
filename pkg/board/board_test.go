package board_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/herohde/twofold/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBoard(t *testing.T) {
	b := board.StartBoard()

	assert.Equal(t, board.FullCastlingRights, b.CastlingRights())
	_, ok := b.EnPassant()
	assert.False(t, ok)
	assert.Equal(t, board.Active, b.Outcome())

	// Kings on e1/e8.
	assert.Equal(t, sq(t, "e1"), b.King(board.White))
	assert.Equal(t, sq(t, "e8"), b.King(board.Black))

	// Pawns carry distinct ids P1..P8, by file.
	for col := 0; col < 8; col++ {
		white := b.At(board.NewSquare(6, col))
		black := b.At(board.NewSquare(1, col))
		assert.Equal(t, board.Pawn, white.Piece)
		assert.Equal(t, board.Pawn, black.Piece)
		assert.Equal(t, white.ID, black.ID)
		assert.Equal(t, string(white.ID), "P"+string(rune('1'+col)))
	}
}

func TestNewBoard(t *testing.T) {
	t.Run("rejects missing king", func(t *testing.T) {
		_, err := board.NewBoard([]board.Placement{
			{Square: sq(t, "e1"), Color: board.White, Piece: board.King, ID: "K1"},
		}, 0, board.NoSquare)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate placement", func(t *testing.T) {
		_, err := board.NewBoard([]board.Placement{
			{Square: sq(t, "e1"), Color: board.White, Piece: board.King, ID: "K1"},
			{Square: sq(t, "e1"), Color: board.White, Piece: board.Queen, ID: "Q1"},
			{Square: sq(t, "e8"), Color: board.Black, Piece: board.King, ID: "K1"},
		}, 0, board.NoSquare)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		_, err := board.NewBoard([]board.Placement{
			{Square: sq(t, "e1"), Color: board.White, Piece: board.King, ID: "K1"},
			{Square: sq(t, "a1"), Color: board.White, Piece: board.Rook, ID: "R1"},
			{Square: sq(t, "h1"), Color: board.White, Piece: board.Rook, ID: "R1"},
			{Square: sq(t, "e8"), Color: board.Black, Piece: board.King, ID: "K1"},
		}, 0, board.NoSquare)
		assert.Error(t, err)
	})
}

func TestFindRemoveByID(t *testing.T) {
	b := board.StartBoard()

	at, ok := b.Find(board.Black, "N2")
	require.True(t, ok)
	assert.Equal(t, sq(t, "g8"), at)

	assert.True(t, b.RemoveByID(board.Black, "N2"))
	_, ok = b.Find(board.Black, "N2")
	assert.False(t, ok)

	// The white twin is untouched.
	_, ok = b.Find(board.White, "N2")
	assert.True(t, ok)

	assert.False(t, b.RemoveByID(board.Black, "N2"))
}

func TestSquare(t *testing.T) {
	tests := []struct {
		str      string
		row, col int
	}{
		{"a8", 0, 0},
		{"h8", 0, 7},
		{"e4", 4, 4},
		{"a1", 7, 0},
		{"h1", 7, 7},
	}

	for _, tt := range tests {
		s, err := board.ParseSquareStr(tt.str)
		require.NoError(t, err)
		assert.Equal(t, tt.row, s.Row())
		assert.Equal(t, tt.col, s.Col())
		assert.Equal(t, tt.str, s.String())
	}

	for _, bad := range []string{"", "e", "i4", "e9", "e44"} {
		_, err := board.ParseSquareStr(bad)
		assert.Error(t, err, bad)
	}
}

// sq parses an algebraic square, failing the test on error.
func sq(t *testing.T, str string) board.Square {
	t.Helper()
	s, err := board.ParseSquareStr(str)
	require.NoError(t, err)
	return s
}

// printMoves renders moves as a sorted newline-separated list for
// order-insensitive comparison.
func printMoves(ms []board.Move) string {
	var list []string
	for _, m := range ms {
		list = append(list, m.String())
	}
	sort.Strings(list)
	return strings.Join(list, "\n")
}

// moveTo finds the move with the given destination, failing the test if absent.
func moveTo(t *testing.T, ms []board.Move, to board.Square) board.Move {
	t.Helper()
	for _, m := range ms {
		if m.To == to {
			return m
		}
	}
	t.Fatalf("no move to %v in %v", to, ms)
	return board.Move{}
}
