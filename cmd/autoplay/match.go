package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/board"
	"github.com/wricardo/tictactoe-relay/game/service"
)

// matchConfig describes a series of games between two strategies in one room.
type matchConfig struct {
	URL     string
	RoomID  string
	Games   int
	Creator Strategy
	Joiner  Strategy
	Delay   time.Duration
	Timeout time.Duration
}

// Tally counts finished games. Wins are keyed by seat ("creator" or "joiner")
// since roles may swap on reset.
type Tally struct {
	Games int
	Wins  map[string]int
	Draws int
}

func (t Tally) String() string {
	return fmt.Sprintf("games=%d creator=%d joiner=%d draws=%d",
		t.Games, t.Wins["creator"], t.Wins["joiner"], t.Draws)
}

// playMatch seats two bots in one room and plays cfg.Games games, resetting
// between them.
func playMatch(ctx context.Context, cfg matchConfig, logger *zap.Logger) (Tally, error) {
	tally := Tally{Wins: map[string]int{}}
	if cfg.Games < 1 {
		return tally, fmt.Errorf("games must be at least 1, got %d", cfg.Games)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	results := make(chan result, 2*cfg.Games)
	failed := make(chan error, 2)

	creator, err := dialPlayer(ctx, cfg.URL, "creator", cfg.RoomID, cfg.Creator, cfg.Delay, results, logger)
	if err != nil {
		return tally, err
	}
	defer creator.close()
	joiner, err := dialPlayer(ctx, cfg.URL, "joiner", cfg.RoomID, cfg.Joiner, cfg.Delay, results, logger)
	if err != nil {
		return tally, err
	}
	defer joiner.close()

	for _, p := range []*player{creator, joiner} {
		go func(p *player) {
			if err := p.run(); err != nil {
				failed <- fmt.Errorf("%s: %w", p.name, err)
			}
		}(p)
	}

	// the room must exist before the joiner asks for it
	if err := creator.emit(service.EventCreateGame, cfg.RoomID); err != nil {
		return tally, err
	}
	select {
	case <-creator.seated:
	case err := <-failed:
		return tally, err
	case <-ctx.Done():
		return tally, ctx.Err()
	case <-time.After(cfg.Timeout):
		return tally, fmt.Errorf("timed out creating room %s", cfg.RoomID)
	}
	if err := joiner.emit(service.EventJoinGame, cfg.RoomID); err != nil {
		return tally, err
	}

	for game := 1; game <= cfg.Games; game++ {
		// both seats must see endGame before the next reset
		var mine result
		for seen := 0; seen < 2; seen++ {
			select {
			case res := <-results:
				if res.player == creator.name {
					mine = res
				}
			case err := <-failed:
				return tally, fmt.Errorf("game %d: %w", game, err)
			case <-ctx.Done():
				return tally, ctx.Err()
			case <-time.After(cfg.Timeout):
				return tally, fmt.Errorf("game %d: timed out waiting for endGame", game)
			}
		}

		tally.Games++
		switch mine.winner {
		case board.DrawLabel:
			tally.Draws++
		case string(mine.role):
			tally.Wins[creator.name]++
		default:
			tally.Wins[joiner.name]++
		}
		logger.Info("game finished",
			zap.Int("game", game),
			zap.String("winner", mine.winner),
			zap.String("creator_role", string(mine.role)),
		)

		if game < cfg.Games {
			if err := creator.emit(service.EventResetGame, cfg.RoomID); err != nil {
				return tally, err
			}
		}
	}
	return tally, nil
}
