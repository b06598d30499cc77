package board

// Outcome is the state of play after evaluating a board.
type Outcome int

const (
	OutcomeInProgress Outcome = iota
	OutcomeXWins
	OutcomeOWins
	OutcomeDraw
)

// DrawLabel is the winner value reported for a drawn game.
const DrawLabel = "Draw"

// Terminal reports whether the outcome ends active play.
func (o Outcome) Terminal() bool {
	return o != OutcomeInProgress
}

// WinnerLabel returns "X", "O" or "Draw" for terminal outcomes and "" otherwise.
func (o Outcome) WinnerLabel() string {
	switch o {
	case OutcomeXWins:
		return string(X)
	case OutcomeOWins:
		return string(O)
	case OutcomeDraw:
		return DrawLabel
	}
	return ""
}

func (o Outcome) String() string {
	switch o {
	case OutcomeXWins:
		return "x_wins"
	case OutcomeOWins:
		return "o_wins"
	case OutcomeDraw:
		return "draw"
	}
	return "in_progress"
}
