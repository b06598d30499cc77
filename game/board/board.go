package board

import (
	"errors"
	"fmt"
)

// Symbol is the piece a participant plays with.
type Symbol string

const (
	Empty Symbol = ""
	X     Symbol = "X"
	O     Symbol = "O"
)

// Size is the number of cells on a board.
const Size = 9

var (
	ErrInvalidCell   = errors.New("cell index out of range")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrCellOccupied  = errors.New("cell is already occupied")
)

// Lines lists the winning index triples, rows first, then columns, then diagonals.
var Lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ParseSymbol converts wire text into a playable symbol.
func ParseSymbol(s string) (Symbol, error) {
	switch Symbol(s) {
	case X, O:
		return Symbol(s), nil
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
}

// Valid reports whether s is X or O.
func (s Symbol) Valid() bool {
	return s == X || s == O
}

// Opponent returns the other playable symbol. Empty maps to Empty.
func (s Symbol) Opponent() Symbol {
	switch s {
	case X:
		return O
	case O:
		return X
	}
	return Empty
}

// Board is a 3x3 grid stored in row-major order.
type Board [Size]Symbol

// Cell returns the symbol at index i.
func (b *Board) Cell(i int) (Symbol, error) {
	if i < 0 || i >= Size {
		return Empty, fmt.Errorf("%w: %d", ErrInvalidCell, i)
	}
	return b[i], nil
}

// Place sets cell i to s. Occupied cells are never overwritten.
func (b *Board) Place(i int, s Symbol) error {
	if i < 0 || i >= Size {
		return fmt.Errorf("%w: %d", ErrInvalidCell, i)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	if b[i] != Empty {
		return ErrCellOccupied
	}
	b[i] = s
	return nil
}

// Clear empties every cell.
func (b *Board) Clear() {
	*b = Board{}
}

// Winner returns the symbol of the first uniform non-empty line, or Empty.
func (b *Board) Winner() Symbol {
	for _, line := range Lines {
		a := b[line[0]]
		if a != Empty && a == b[line[1]] && a == b[line[2]] {
			return a
		}
	}
	return Empty
}

// Full reports whether no empty cell remains.
func (b *Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Filled counts occupied cells.
func (b *Board) Filled() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

// Evaluate classifies the board. A win takes precedence over a full board.
func (b *Board) Evaluate() Outcome {
	switch b.Winner() {
	case X:
		return OutcomeXWins
	case O:
		return OutcomeOWins
	}
	if b.Full() {
		return OutcomeDraw
	}
	return OutcomeInProgress
}

// Strings renders the cells for JSON, with empty cells as "".
func (b *Board) Strings() []string {
	out := make([]string, Size)
	for i, c := range b {
		out[i] = string(c)
	}
	return out
}
