package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wricardo/tictactoe-relay/game/board"
)

// Strategy picks the next cell for side me. The board has at least one empty cell.
type Strategy interface {
	Name() string
	NextMove(b board.Board, me board.Symbol) int
}

// StrategyNames lists the strategies ParseStrategy accepts.
var StrategyNames = []string{"minimax", "random", "first"}

// ParseStrategy returns the named strategy. rng feeds the random strategy.
func ParseStrategy(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "minimax":
		return Minimax{}, nil
	case "random":
		return &Random{rng: rng}, nil
	case "first":
		return FirstFree{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want one of %v)", name, StrategyNames)
}

// FirstFree plays the lowest empty cell.
type FirstFree struct{}

func (FirstFree) Name() string { return "first" }

func (FirstFree) NextMove(b board.Board, me board.Symbol) int {
	for i, c := range b {
		if c == board.Empty {
			return i
		}
	}
	return -1
}

// Random plays a uniformly random empty cell.
type Random struct {
	rng *rand.Rand
}

func (*Random) Name() string { return "random" }

func (r *Random) NextMove(b board.Board, me board.Symbol) int {
	free := make([]int, 0, board.Size)
	for i, c := range b {
		if c == board.Empty {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return -1
	}
	return free[r.rng.IntN(len(free))]
}

// Minimax searches the full game tree and never loses. Among equal moves it
// prefers the faster win, then the lowest index.
type Minimax struct{}

func (Minimax) Name() string { return "minimax" }

func (Minimax) NextMove(b board.Board, me board.Symbol) int {
	best, bestScore := -1, math.MinInt
	for i := range b {
		if b[i] != board.Empty {
			continue
		}
		b[i] = me
		score := -negamax(b, me.Opponent(), 1)
		b[i] = board.Empty
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// negamax scores b for the side to move. The previous mover may have just won.
func negamax(b board.Board, toMove board.Symbol, depth int) int {
	switch b.Evaluate() {
	case board.OutcomeDraw:
		return 0
	case board.OutcomeXWins, board.OutcomeOWins:
		return depth - 10
	}

	best := math.MinInt
	for i := range b {
		if b[i] != board.Empty {
			continue
		}
		b[i] = toMove
		if score := -negamax(b, toMove.Opponent(), depth+1); score > best {
			best = score
		}
		b[i] = board.Empty
	}
	return best
}
