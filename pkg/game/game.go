// Package game implements the twofold coordinator: two coupled boards, the
// cross-board capture mirror, check-response gating and the turn/phase
// machine. A Game is not thread-safe; the session layer serializes access
// per room.
package game

import (
	"fmt"

	"github.com/herohde/twofold/pkg/board"
	"github.com/seekerror/stdlib/pkg/lang"
)

// Winner is the final verdict of a finished game.
type Winner uint8

const (
	WinnerWhite Winner = iota
	WinnerBlack
	WinnerDraw
)

// WinnerOf returns the winning verdict for the given color.
func WinnerOf(c board.Color) Winner {
	if c == board.White {
		return WinnerWhite
	}
	return WinnerBlack
}

func (w Winner) String() string {
	switch w {
	case WinnerWhite:
		return "white"
	case WinnerBlack:
		return "black"
	case WinnerDraw:
		return "draw"
	default:
		return "?"
	}
}

// Request is a decoded move submission: where to move and, for promotions,
// the piece chosen. The client's board snapshot is never part of a request;
// the server state is authoritative.
type Request struct {
	From, To  board.Square
	Promotion board.Piece // NoPiece if not chosen
}

func (r Request) String() string {
	if r.Promotion.IsValid() {
		return fmt.Sprintf("%v%v%v", r.From, r.To, r.Promotion)
	}
	return fmt.Sprintf("%v%v", r.From, r.To)
}

// Game couples two boards. All mutation goes through Submit, Vote and Reset.
type Game struct {
	boards [NumBoardNames]board.Board

	turn       board.Color
	phase      BoardName
	responding lang.Optional[BoardName]

	moves    []string
	winner   lang.Optional[Winner]
	gameOver bool

	votes [board.NumColors]bool
}

// New returns a game at the standard start position duplicated on both
// boards, White to move on Main.
func New() *Game {
	return &Game{
		boards: [NumBoardNames]board.Board{board.StartBoard(), board.StartBoard()},
		turn:   board.White,
		phase:  Main,
	}
}

// Board returns a copy of the named board.
func (g *Game) Board(n BoardName) board.Board {
	return g.boards[n]
}

// Turn returns the side to move.
func (g *Game) Turn() board.Color {
	return g.turn
}

// Phase returns the board on which the side to move must play next.
func (g *Game) Phase() BoardName {
	return g.phase
}

// RespondingOn returns the board the side to move is forced to respond to
// check on, if any.
func (g *Game) RespondingOn() lang.Optional[BoardName] {
	return g.responding
}

// Moves returns the human-readable move records, oldest first.
func (g *Game) Moves() []string {
	return append([]string(nil), g.moves...)
}

// IsOver returns the winner, if the game has ended.
func (g *Game) IsOver() (Winner, bool) {
	w, _ := g.winner.V()
	return w, g.gameOver
}

// Votes returns the current reset votes.
func (g *Game) Votes() [board.NumColors]bool {
	return g.votes
}

// Vote records a reset vote for the given color. Returns true iff both colors
// have now voted; the caller is expected to Reset.
func (g *Game) Vote(c board.Color) bool {
	g.votes[c] = true
	return g.votes[board.White] && g.votes[board.Black]
}

// Reset returns the game to the start state, clearing move history and votes.
func (g *Game) Reset() {
	*g = *New()
}

// Submit validates and applies a move by the given color on the named board,
// per the twofold rules. On success the game advances to the next phase or
// terminates; on rejection the returned *RuleError describes why and the
// state is unchanged.
func (g *Game) Submit(c board.Color, name BoardName, req Request) error {
	if g.gameOver {
		return reject(GameOver)
	}
	if c != g.turn {
		return reject(NotYourTurn)
	}
	if r, ok := g.responding.V(); ok && r != name {
		return rejectOnBoard(MustRespondToCheck, r, name)
	}
	if g.boards[name].Outcome().IsResolved() {
		return rejectOnBoard(WrongBoard, name.Other(), name)
	}
	if name != g.phase && !g.boards[g.phase].Outcome().IsResolved() {
		// The phase auto-skips resolved boards; otherwise the active phase
		// binds.
		return rejectOnBoard(WrongBoard, g.phase, name)
	}

	m, err := g.resolve(g.boards[name], c, req)
	if err != nil {
		return err
	}

	// Commit: apply on the target board, then mirror the capture.

	g.boards[name] = g.boards[name].Apply(m)
	g.mirror(c, name, m)
	if m.Type.IsCastle() {
		// Castling is permitted once per game per side, across both boards.
		for n := ZeroBoardName; n < NumBoardNames; n++ {
			g.boards[n].ClearCastlingRights(board.SideRights(c))
		}
	}

	// Invariant: every unresolved board holds exactly one king per color. A
	// breach here is an internal error, not a rule rejection; the session
	// layer freezes the room on it.
	for n := ZeroBoardName; n < NumBoardNames; n++ {
		if g.boards[n].Outcome().IsResolved() {
			continue
		}
		for _, side := range [2]board.Color{board.White, board.Black} {
			if g.boards[n].King(side) == board.NoSquare {
				return fmt.Errorf("invariant violation: no %v king on %v", side, n)
			}
		}
	}

	// Re-evaluate the opponent on both boards. The board just played takes
	// precedence for check-response gating.

	opp := c.Opponent()
	checked := lang.Optional[BoardName]{}
	mate := false
	for _, n := range [2]BoardName{name, name.Other()} {
		if g.boards[n].Outcome().IsResolved() {
			continue
		}
		switch g.boards[n].Classify(opp) {
		case board.StatusCheckmate:
			g.boards[n].Resolve(board.Wins(c))
			mate = true
		case board.StatusStalemate:
			g.boards[n].Resolve(board.DrawStalemate)
		default:
			if _, ok := checked.V(); !ok && g.boards[n].IsChecked(opp) {
				checked = lang.Some(n)
			}
		}
	}

	_, inCheck := checked.V()
	g.moves = append(g.moves, record(name, c, m, inCheck, mate))

	// Phase and turn transition.

	switch next, ok := checked.V(); {
	case mate:
		g.responding = lang.Optional[BoardName]{}
		g.gameOver = true
		g.winner = lang.Some(WinnerOf(c))

	case ok:
		// The defender must respond on the checked board; the mover's turn
		// ends immediately.
		g.responding = lang.Some(next)
		g.phase = next
		g.turn = opp

	default:
		g.responding = lang.Optional[BoardName]{}
		next := name.Other()
		if g.boards[next].Outcome().IsResolved() {
			next = name
		}
		if g.boards[next].Outcome().IsResolved() {
			// No active board left and no mate: both boards drawn.
			g.gameOver = true
			g.winner = lang.Some(WinnerDraw)
			return nil
		}
		g.phase = next
		g.turn = opp
	}
	return nil
}

// resolve matches a request against the legal moves of the piece at its
// origin, classifying any failure.
func (g *Game) resolve(b board.Board, c board.Color, req Request) (board.Move, error) {
	if !req.From.IsValid() || !req.To.IsValid() {
		return board.Move{}, reject(NoSuchPiece)
	}
	cell := b.At(req.From)
	if cell.IsEmpty() || cell.Color != c {
		return board.Move{}, reject(NoSuchPiece)
	}

	var candidates []board.Move
	for _, m := range b.LegalMoves(req.From) {
		if m.To == req.To {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		for _, m := range b.PseudoLegalMoves(req.From) {
			if m.To == req.To {
				return board.Move{}, reject(MovesIntoCheck)
			}
		}
		if target := b.At(req.To); !target.IsEmpty() && target.Color == c {
			return board.Move{}, reject(DestinationBlocked)
		}
		return board.Move{}, reject(PathBlocked)
	}

	if candidates[0].Type.IsPromotion() {
		if !req.Promotion.IsValid() || req.Promotion == board.Pawn || req.Promotion == board.King {
			return board.Move{}, reject(PromotionRequired)
		}
		for _, m := range candidates {
			if m.Promotion == req.Promotion {
				return m, nil
			}
		}
		return board.Move{}, reject(PromotionRequired)
	}
	return candidates[0], nil
}

// mirror applies the cross-board capture coupling: a capture on Main removes
// the piece with the same id from Secondary, and an en passant capture
// mirrors regardless of which board it was played on.
func (g *Game) mirror(c board.Color, name BoardName, m board.Move) {
	if !m.Type.IsCapture() {
		return
	}
	if m.Type != board.EnPassant && name != Main {
		return
	}
	g.boards[name.Other()].RemoveByID(c.Opponent(), m.CaptureID)
}
