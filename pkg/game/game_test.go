package game

import (
	"testing"

	"github.com/herohde/twofold/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func req(t *testing.T, from, to string) Request {
	t.Helper()
	f, err := board.ParseSquareStr(from)
	require.NoError(t, err)
	o, err := board.ParseSquareStr(to)
	require.NoError(t, err)
	return Request{From: f, To: o}
}

func submit(t *testing.T, g *Game, c board.Color, n BoardName, from, to string) {
	t.Helper()
	require.NoError(t, g.Submit(c, n, req(t, from, to)), "%v %v %v%v", c, n, from, to)
}

func reason(t *testing.T, err error) Reason {
	t.Helper()
	re, ok := err.(*RuleError)
	require.True(t, ok, "expected rule error, got %v", err)
	return re.Reason
}

func TestNew(t *testing.T) {
	g := New()

	assert.Equal(t, board.White, g.Turn())
	assert.Equal(t, Main, g.Phase())
	_, over := g.IsOver()
	assert.False(t, over)
	assert.Empty(t, g.Moves())

	// Both boards are identical start positions.
	assert.Equal(t, g.Board(Main), g.Board(Secondary))
}

func TestPhaseAlternation(t *testing.T) {
	g := New()

	// A non-checking move flips the turn and toggles the phase to the board
	// the mover did not just play on.
	submit(t, g, board.White, Main, "e2", "e4")
	assert.Equal(t, board.Black, g.Turn())
	assert.Equal(t, Secondary, g.Phase())

	// Black must play on Secondary now.
	err := g.Submit(board.Black, Main, req(t, "e7", "e5"))
	assert.Equal(t, WrongBoard, reason(t, err))

	submit(t, g, board.Black, Secondary, "e7", "e5")
	assert.Equal(t, board.White, g.Turn())
	assert.Equal(t, Main, g.Phase())
}

func TestSubmitRejections(t *testing.T) {
	g := New()

	t.Run("not your turn", func(t *testing.T) {
		err := g.Submit(board.Black, Main, req(t, "e7", "e5"))
		assert.Equal(t, NotYourTurn, reason(t, err))
	})

	t.Run("no such piece", func(t *testing.T) {
		err := g.Submit(board.White, Main, req(t, "e4", "e5"))
		assert.Equal(t, NoSuchPiece, reason(t, err))

		// Moving the opponent's piece is equally unknown.
		err = g.Submit(board.White, Main, req(t, "e7", "e5"))
		assert.Equal(t, NoSuchPiece, reason(t, err))
	})

	t.Run("path blocked", func(t *testing.T) {
		err := g.Submit(board.White, Main, req(t, "d1", "d3"))
		assert.Equal(t, PathBlocked, reason(t, err))
	})

	t.Run("destination blocked", func(t *testing.T) {
		err := g.Submit(board.White, Main, req(t, "a1", "a2"))
		assert.Equal(t, DestinationBlocked, reason(t, err))
	})

	t.Run("state unchanged after rejection", func(t *testing.T) {
		assert.Equal(t, board.StartBoard(), g.Board(Main))
		assert.Empty(t, g.Moves())
	})
}

func TestScholarsMate(t *testing.T) {
	g := New()

	// White mates on Main while Black answers on Secondary.
	submit(t, g, board.White, Main, "e2", "e4")
	submit(t, g, board.Black, Secondary, "e7", "e5")
	submit(t, g, board.White, Main, "f1", "c4")
	submit(t, g, board.Black, Secondary, "g8", "f6")
	submit(t, g, board.White, Main, "d1", "h5")
	submit(t, g, board.Black, Secondary, "b8", "c6")
	submit(t, g, board.White, Main, "h5", "f7")

	assert.Equal(t, board.WhiteWins, g.Board(Main).Outcome())
	w, over := g.IsOver()
	assert.True(t, over)
	assert.Equal(t, WinnerWhite, w)

	// Nothing more is accepted.
	err := g.Submit(board.Black, Secondary, req(t, "c6", "d4"))
	assert.Equal(t, GameOver, reason(t, err))

	moves := g.Moves()
	require.NotEmpty(t, moves)
	assert.Equal(t, "main: white Qh5xf7#", moves[len(moves)-1])
}

func TestCaptureMirror(t *testing.T) {
	board1 := func(t *testing.T) board.Board {
		b, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("b3", board.White, board.Knight, "N1"),
			place("e8", board.Black, board.King, "K1"),
			place("a5", board.Black, board.Knight, "N1"),
		}, 0, board.NoSquare)
		require.NoError(t, err)
		return b
	}
	board2 := func(t *testing.T) board.Board {
		b, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("e8", board.Black, board.King, "K1"),
			place("g1", board.Black, board.Knight, "N1"),
		}, 0, board.NoSquare)
		require.NoError(t, err)
		return b
	}

	t.Run("main capture removes the twin from secondary", func(t *testing.T) {
		g := newFromBoards(board1(t), board2(t), board.White, Main)

		submit(t, g, board.White, Main, "b3", "a5")

		_, ok := g.Board(Main).Find(board.Black, "N1")
		assert.False(t, ok)
		_, ok = g.Board(Secondary).Find(board.Black, "N1")
		assert.False(t, ok, "twin must be removed from secondary")
	})

	t.Run("secondary capture does not mirror onto main", func(t *testing.T) {
		g := newFromBoards(board2(t), board1(t), board.White, Secondary)

		submit(t, g, board.White, Secondary, "b3", "a5")

		_, ok := g.Board(Secondary).Find(board.Black, "N1")
		assert.False(t, ok)
		_, ok = g.Board(Main).Find(board.Black, "N1")
		assert.True(t, ok, "main must be unchanged")
	})
}

func TestEnPassantMirrorsBothWays(t *testing.T) {
	epBoard := func(t *testing.T) board.Board {
		b, err := board.NewBoard([]board.Placement{
			place("e1", board.White, board.King, "K1"),
			place("e5", board.White, board.Pawn, "P5"),
			place("e8", board.Black, board.King, "K1"),
			place("d5", board.Black, board.Pawn, "P4"),
		}, 0, mustSquare("d6"))
		require.NoError(t, err)
		return b
	}

	t.Run("secondary en passant removes the pawn from main", func(t *testing.T) {
		g := newFromBoards(board.StartBoard(), epBoard(t), board.White, Secondary)

		submit(t, g, board.White, Secondary, "e5", "d6")

		_, ok := g.Board(Secondary).Find(board.Black, "P4")
		assert.False(t, ok)
		_, ok = g.Board(Main).Find(board.Black, "P4")
		assert.False(t, ok, "en passant mirrors from secondary to main")
	})

	t.Run("main en passant removes the pawn from secondary", func(t *testing.T) {
		g := newFromBoards(epBoard(t), board.StartBoard(), board.White, Main)

		submit(t, g, board.White, Main, "e5", "d6")

		_, ok := g.Board(Secondary).Find(board.Black, "P4")
		assert.False(t, ok)
	})
}

func TestCheckGating(t *testing.T) {
	g, err := NewScenario(ScenarioInCheck)
	require.NoError(t, err)

	r, ok := g.RespondingOn().V()
	require.True(t, ok)
	assert.Equal(t, Main, r)
	assert.Equal(t, board.Black, g.Turn())

	// Any move off the checked board is gated.
	err = g.Submit(board.Black, Secondary, req(t, "e7", "e5"))
	re, isRule := err.(*RuleError)
	require.True(t, isRule)
	assert.Equal(t, MustRespondToCheck, re.Reason)
	expected, _ := re.Expected.V()
	assert.Equal(t, Main, expected)

	// A legal response on the checked board clears the gate.
	submit(t, g, board.Black, Main, "e8", "d8")
	_, ok = g.RespondingOn().V()
	assert.False(t, ok)
	assert.Equal(t, board.White, g.Turn())
	assert.Equal(t, Secondary, g.Phase())
}

func TestCheckEndsTurn(t *testing.T) {
	// White delivers a non-mating check on Main; Black must answer on Main.
	main, err := board.NewBoard([]board.Placement{
		place("e1", board.White, board.King, "K1"),
		place("a4", board.White, board.Rook, "R1"),
		place("e8", board.Black, board.King, "K1"),
		place("a7", board.Black, board.Pawn, "P1"),
	}, 0, board.NoSquare)
	require.NoError(t, err)

	g := newFromBoards(main, board.StartBoard(), board.White, Main)

	submit(t, g, board.White, Main, "a4", "e4")

	assert.Equal(t, board.Black, g.Turn())
	assert.Equal(t, Main, g.Phase())
	r, ok := g.RespondingOn().V()
	require.True(t, ok)
	assert.Equal(t, Main, r)

	moves := g.Moves()
	assert.Equal(t, "main: white Ra4e4+", moves[len(moves)-1])
}

func TestCastlingOncePerGame(t *testing.T) {
	g, err := NewScenario(ScenarioCastling)
	require.NoError(t, err)

	// White castles king-side on Main.
	submit(t, g, board.White, Main, "e1", "g1")

	// Rights are gone for White on both boards, but intact for Black.
	for _, n := range []BoardName{Main, Secondary} {
		rights := g.Board(n).CastlingRights()
		assert.False(t, rights.IsAllowed(board.WhiteKingSideCastle|board.WhiteQueenSideCastle), "%v", n)
		assert.True(t, rights.IsAllowed(board.BlackKingSideCastle), "%v", n)
	}

	// A later White castle attempt on Secondary is rejected outright: the
	// move is no longer generated, so it reads as a blocked king slide.
	g.turn = board.White
	g.phase = Secondary
	err = g.Submit(board.White, Secondary, req(t, "e1", "g1"))
	assert.Equal(t, PathBlocked, reason(t, err))
}

func TestStalemateFreezesBoard(t *testing.T) {
	g, err := NewScenario(ScenarioStalemate)
	require.NoError(t, err)

	assert.Equal(t, board.DrawStalemate, g.Board(Main).Outcome())
	_, over := g.IsOver()
	assert.False(t, over, "game continues on the other board")

	// Moves on the frozen board are rejected; play continues on Secondary.
	err = g.Submit(board.Black, Main, req(t, "h8", "h7"))
	assert.Equal(t, WrongBoard, reason(t, err))

	submit(t, g, board.Black, Secondary, "e7", "e5")

	// The phase stays on Secondary: the other board is resolved.
	assert.Equal(t, board.White, g.Turn())
	assert.Equal(t, Secondary, g.Phase())
}

func TestBothBoardsStalemateIsDraw(t *testing.T) {
	// Secondary: White to deliver stalemate with Qg5-g6.
	secondary, err := board.NewBoard([]board.Placement{
		place("f7", board.White, board.King, "K1"),
		place("g5", board.White, board.Queen, "Q1"),
		place("h8", board.Black, board.King, "K1"),
	}, 0, board.NoSquare)
	require.NoError(t, err)

	main, err := board.NewBoard([]board.Placement{
		place("f7", board.White, board.King, "K1"),
		place("g6", board.White, board.Queen, "Q1"),
		place("h8", board.Black, board.King, "K1"),
	}, 0, board.NoSquare)
	require.NoError(t, err)
	main.Resolve(board.DrawStalemate)

	g := newFromBoards(main, secondary, board.White, Secondary)

	submit(t, g, board.White, Secondary, "g5", "g6")

	assert.Equal(t, board.DrawStalemate, g.Board(Secondary).Outcome())
	w, over := g.IsOver()
	assert.True(t, over)
	assert.Equal(t, WinnerDraw, w)
}

func TestPromotionRequiresChoice(t *testing.T) {
	g, err := NewScenario(ScenarioPromotion)
	require.NoError(t, err)

	err = g.Submit(board.White, Main, req(t, "a7", "a8"))
	assert.Equal(t, PromotionRequired, reason(t, err))

	r := req(t, "a7", "a8")
	r.Promotion = board.Queen
	require.NoError(t, g.Submit(board.White, Main, r))

	cell := g.Board(Main).At(mustSquare("a8"))
	assert.Equal(t, board.Queen, cell.Piece)
	assert.Equal(t, board.ID("P1"), cell.ID, "promoted piece keeps the pawn id")
}

func TestResetVoting(t *testing.T) {
	g := New()
	submit(t, g, board.White, Main, "e2", "e4")

	assert.False(t, g.Vote(board.White))
	votes := g.Votes()
	assert.True(t, votes[board.White])
	assert.False(t, votes[board.Black])
	assert.NotEmpty(t, g.Moves(), "a single vote does not reset")

	assert.True(t, g.Vote(board.Black))
	g.Reset()

	assert.Empty(t, g.Moves())
	assert.Equal(t, board.StartBoard(), g.Board(Main))
	votes = g.Votes()
	assert.False(t, votes[board.White] || votes[board.Black])
}

func TestScenarios(t *testing.T) {
	for _, s := range []Scenario{
		ScenarioCheckmate, ScenarioStalemate, ScenarioInCheck,
		ScenarioPromotion, ScenarioCastling, ScenarioEnPassant,
	} {
		t.Run(string(s), func(t *testing.T) {
			g, err := NewScenario(s)
			require.NoError(t, err)
			require.NotNil(t, g)
		})
	}

	_, err := NewScenario("bogus")
	assert.Error(t, err)
}

func TestScenarioCheckmateState(t *testing.T) {
	g, err := NewScenario(ScenarioCheckmate)
	require.NoError(t, err)

	w, over := g.IsOver()
	assert.True(t, over)
	assert.Equal(t, WinnerWhite, w)
	assert.Equal(t, board.WhiteWins, g.Board(Main).Outcome())
	assert.Equal(t, board.StatusCheckmate, g.Board(Main).Classify(board.Black))
}

func TestScenarioEnPassantReady(t *testing.T) {
	g, err := NewScenario(ScenarioEnPassant)
	require.NoError(t, err)

	ep, ok := g.Board(Main).EnPassant()
	require.True(t, ok)
	assert.Equal(t, mustSquare("d6"), ep)

	submit(t, g, board.White, Main, "e5", "d6")
	_, ok = g.Board(Main).Find(board.Black, "P4")
	assert.False(t, ok)
	// The mirror also removed Secondary's d7 pawn by id.
	_, ok = g.Board(Secondary).Find(board.Black, "P4")
	assert.False(t, ok)
}
