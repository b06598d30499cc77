// Command autoplay drives a running relay with two bot players. Both bots
// connect over WebSocket, share one room and play a series of games, resetting
// between them, which exercises the full create, join, move, endGame and reset
// cycle end to end.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/config"
	"github.com/wricardo/tictactoe-relay/logging"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play bot-vs-bot games against a running relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3000/ws", Usage: "Relay WebSocket URL"},
			&cli.StringFlag{Name: "room", Usage: "Room ID (default: random)"},
			&cli.IntFlag{Name: "games", Value: 10, Usage: "Number of games to play"},
			&cli.StringFlag{Name: "creator", Value: "minimax", Usage: fmt.Sprintf("Creator strategy %v", StrategyNames)},
			&cli.StringFlag{Name: "joiner", Value: "random", Usage: fmt.Sprintf("Joiner strategy %v", StrategyNames)},
			&cli.DurationFlag{Name: "delay", Usage: "Delay before each move"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "Maximum wait for any server event"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("v") {
		level = "debug"
	}
	logger, err := logging.New(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	creator, err := ParseStrategy(cmd.String("creator"), rng)
	if err != nil {
		return err
	}
	joiner, err := ParseStrategy(cmd.String("joiner"), rng)
	if err != nil {
		return err
	}

	roomID := cmd.String("room")
	if roomID == "" {
		roomID = "autoplay-" + uuid.NewString()[:8]
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to relay",
		zap.String("url", cmd.String("url")),
		zap.String("room", roomID),
		zap.String("creator", creator.Name()),
		zap.String("joiner", joiner.Name()),
	)

	tally, err := playMatch(ctx, matchConfig{
		URL:     cmd.String("url"),
		RoomID:  roomID,
		Games:   int(cmd.Int("games")),
		Creator: creator,
		Joiner:  joiner,
		Delay:   cmd.Duration("delay"),
		Timeout: cmd.Duration("timeout"),
	}, logger)
	if err != nil {
		return fmt.Errorf("match aborted after %d games: %w", tally.Games, err)
	}

	fmt.Fprintln(cmd.Root().Writer, tally)
	return nil
}
