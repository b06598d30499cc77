// Package board provides the rules of a 3x3 tic-tac-toe board.
//
// The board package implements:
//   - Symbols and the fixed 9-cell board
//   - The 8 winning lines (rows, columns, diagonals)
//   - Winner and draw detection
//
// Core Types:
//
// Board is a value type holding 9 cells indexed 0..8 in row-major order.
// Symbol identifies the piece in a cell; Empty marks a free cell.
// Outcome is the result of evaluating a board after a move.
//
// Usage:
//
//	var b board.Board
//	_ = b.Place(4, board.X)
//	switch b.Evaluate() {
//	case board.OutcomeXWins, board.OutcomeOWins, board.OutcomeDraw:
//		// terminal
//	}
//
// The package is pure: it performs no I/O and holds no locks.
package board
