package board

var (
	knightOffsets = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDirs      = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirs    = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

	promotions = [4]Piece{Queen, Rook, Knight, Bishop}
)

// generators is a per-kind jump table for pseudo-legal move generation.
var generators = [King + 1]func(b Board, from Square, c Color) []Move{
	Pawn:   pawnMoves,
	Bishop: bishopMoves,
	Knight: knightMoves,
	Rook:   rookMoves,
	Queen:  queenMoves,
	King:   kingMoves,
}

// PseudoLegalMoves returns the pseudo-legal moves for the piece at the given
// square, if any. Castling is produced by LegalMoves, not here.
func (b Board) PseudoLegalMoves(from Square) []Move {
	cell := b.cells[from]
	if cell.IsEmpty() {
		return nil
	}
	return generators[cell.Piece](b, from, cell.Color)
}

// AttacksSquare returns true iff any piece of the given color attacks the
// square. Pawn attacks are diagonal only. The test is purely geometric and
// never recurses through legality filtering.
func (b Board) AttacksSquare(sq Square, by Color) bool {
	row, col := sq.Row(), sq.Col()

	for _, d := range knightOffsets {
		if from, ok := SquareAt(row+d[0], col+d[1]); ok {
			if cell := b.cells[from]; cell.Color == by && cell.Piece == Knight {
				return true
			}
		}
	}
	for _, d := range kingOffsets {
		if from, ok := SquareAt(row+d[0], col+d[1]); ok {
			if cell := b.cells[from]; cell.Color == by && cell.Piece == King {
				return true
			}
		}
	}
	if b.rayHits(sq, rookDirs, by, Rook) || b.rayHits(sq, bishopDirs, by, Bishop) {
		return true
	}

	// Pawn attacks come from the rank the pawn stands on: one row behind the
	// target from the pawn's perspective.
	dr := 1
	if by == Black {
		dr = -1
	}
	for _, dc := range [2]int{-1, 1} {
		if from, ok := SquareAt(row+dr, col+dc); ok {
			if cell := b.cells[from]; cell.Color == by && cell.Piece == Pawn {
				return true
			}
		}
	}
	return false
}

// rayHits returns true iff a slider of the given kind (or a queen) of color by
// reaches sq along the given directions.
func (b Board) rayHits(sq Square, dirs [4][2]int, by Color, kind Piece) bool {
	row, col := sq.Row(), sq.Col()
	for _, d := range dirs {
		for i := 1; ; i++ {
			from, ok := SquareAt(row+d[0]*i, col+d[1]*i)
			if !ok {
				break
			}
			cell := b.cells[from]
			if cell.IsEmpty() {
				continue
			}
			if cell.Color == by && (cell.Piece == kind || cell.Piece == Queen) {
				return true
			}
			break
		}
	}
	return false
}

func pawnMoves(b Board, from Square, c Color) []Move {
	var ret []Move

	dir, start, promo := -1, 6, 0
	if c == Black {
		dir, start, promo = 1, 1, 7
	}
	row, col := from.Row(), from.Col()

	appendMove := func(m Move) {
		if m.To.Row() == promo {
			m.Type = Promotion
			if m.Capture != NoPiece {
				m.Type = CapturePromotion
			}
			for _, p := range promotions {
				m.Promotion = p
				ret = append(ret, m)
			}
			return
		}
		ret = append(ret, m)
	}

	if to, ok := SquareAt(row+dir, col); ok && b.IsEmpty(to) {
		appendMove(Move{Type: Push, Piece: Pawn, From: from, To: to})

		if row == start {
			if jump, ok := SquareAt(row+2*dir, col); ok && b.IsEmpty(jump) {
				ret = append(ret, Move{Type: Jump, Piece: Pawn, From: from, To: jump})
			}
		}
	}

	ep, hasEP := b.EnPassant()
	for _, dc := range [2]int{-1, 1} {
		to, ok := SquareAt(row+dir, col+dc)
		if !ok {
			continue
		}
		if cell := b.cells[to]; !cell.IsEmpty() && cell.Color != c {
			appendMove(Move{Type: Capture, Piece: Pawn, From: from, To: to, Capture: cell.Piece, CaptureID: cell.ID})
			continue
		}
		if hasEP && to == ep {
			victim := b.cells[NewSquare(row, col+dc)]
			ret = append(ret, Move{Type: EnPassant, Piece: Pawn, From: from, To: to, Capture: victim.Piece, CaptureID: victim.ID})
		}
	}
	return ret
}

func knightMoves(b Board, from Square, c Color) []Move {
	return b.offsetMoves(from, c, Knight, knightOffsets)
}

func kingMoves(b Board, from Square, c Color) []Move {
	return b.offsetMoves(from, c, King, kingOffsets)
}

func bishopMoves(b Board, from Square, c Color) []Move {
	return b.rayMoves(from, c, Bishop, bishopDirs[:])
}

func rookMoves(b Board, from Square, c Color) []Move {
	return b.rayMoves(from, c, Rook, rookDirs[:])
}

func queenMoves(b Board, from Square, c Color) []Move {
	return b.rayMoves(from, c, Queen, append(rookDirs[:], bishopDirs[:]...))
}

func (b Board) offsetMoves(from Square, c Color, kind Piece, offsets [8][2]int) []Move {
	var ret []Move
	row, col := from.Row(), from.Col()
	for _, d := range offsets {
		to, ok := SquareAt(row+d[0], col+d[1])
		if !ok {
			continue
		}
		cell := b.cells[to]
		switch {
		case cell.IsEmpty():
			ret = append(ret, Move{Type: Normal, Piece: kind, From: from, To: to})
		case cell.Color != c:
			ret = append(ret, Move{Type: Capture, Piece: kind, From: from, To: to, Capture: cell.Piece, CaptureID: cell.ID})
		}
	}
	return ret
}

func (b Board) rayMoves(from Square, c Color, kind Piece, dirs [][2]int) []Move {
	var ret []Move
	row, col := from.Row(), from.Col()
	for _, d := range dirs {
		for i := 1; ; i++ {
			to, ok := SquareAt(row+d[0]*i, col+d[1]*i)
			if !ok {
				break
			}
			cell := b.cells[to]
			if cell.IsEmpty() {
				ret = append(ret, Move{Type: Normal, Piece: kind, From: from, To: to})
				continue
			}
			if cell.Color != c {
				ret = append(ret, Move{Type: Capture, Piece: kind, From: from, To: to, Capture: cell.Piece, CaptureID: cell.ID})
			}
			break
		}
	}
	return ret
}
