package game

import (
	"fmt"

	"github.com/seekerror/stdlib/pkg/lang"
)

// Reason classifies why a move was rejected. The state is unchanged in all
// cases.
type Reason string

const (
	NotYourTurn        Reason = "not_your_turn"
	WrongBoard         Reason = "wrong_board"
	MustRespondToCheck Reason = "must_respond_to_check"
	NoSuchPiece        Reason = "no_such_piece"
	MovesIntoCheck     Reason = "moves_into_check"
	DestinationBlocked Reason = "destination_blocked"
	PathBlocked        Reason = "path_blocked"
	GameOver           Reason = "game_over"
	PromotionRequired  Reason = "promotion_required"
)

// RuleError is a rejected move. Expected and Actual carry the board the side
// must play on and the board it tried to play on, when relevant.
type RuleError struct {
	Reason   Reason
	Expected lang.Optional[BoardName]
	Actual   lang.Optional[BoardName]
}

func (e *RuleError) Error() string {
	if expected, ok := e.Expected.V(); ok {
		if actual, ok := e.Actual.V(); ok {
			return fmt.Sprintf("illegal move: %v (expected %v, got %v)", e.Reason, expected, actual)
		}
		return fmt.Sprintf("illegal move: %v (expected %v)", e.Reason, expected)
	}
	return fmt.Sprintf("illegal move: %v", e.Reason)
}

func reject(reason Reason) *RuleError {
	return &RuleError{Reason: reason}
}

func rejectOnBoard(reason Reason, expected, actual BoardName) *RuleError {
	return &RuleError{Reason: reason, Expected: lang.Some(expected), Actual: lang.Some(actual)}
}
