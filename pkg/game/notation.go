package game

import (
	"fmt"
	"strings"

	"github.com/herohde/twofold/pkg/board"
)

// record formats a human-readable record of an accepted move, such as
// "main: white Qh5xf7#" or "secondary: black O-O".
func record(name BoardName, c board.Color, m board.Move, check, mate bool) string {
	var sb strings.Builder

	switch m.Type {
	case board.KingSideCastle:
		sb.WriteString("O-O")
	case board.QueenSideCastle:
		sb.WriteString("O-O-O")
	default:
		if m.Piece != board.Pawn {
			sb.WriteString(strings.ToUpper(m.Piece.String()))
		}
		sb.WriteString(m.From.String())
		if m.Type.IsCapture() {
			sb.WriteString("x")
		}
		sb.WriteString(m.To.String())
		if m.Type.IsPromotion() {
			sb.WriteString("=")
			sb.WriteString(strings.ToUpper(m.Promotion.String()))
		}
		if m.Type == board.EnPassant {
			sb.WriteString(" e.p.")
		}
	}

	switch {
	case mate:
		sb.WriteString("#")
	case check:
		sb.WriteString("+")
	}
	return fmt.Sprintf("%v: %v %v", name, c, sb.String())
}
