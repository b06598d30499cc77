package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/board"
	"github.com/wricardo/tictactoe-relay/game/service"
)

var errRoomClosed = errors.New("room closed")

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// result is one player's view of a finished game.
type result struct {
	player string
	role   board.Symbol
	winner string
}

// player is one seat driven by a strategy. Game state is only touched by run.
type player struct {
	name     string
	conn     *websocket.Conn
	strategy Strategy
	delay    time.Duration
	logger   *zap.Logger

	roomID string
	role   board.Symbol
	board  board.Board
	turn   board.Symbol

	seated  chan board.Symbol
	results chan<- result
	writeMu sync.Mutex
}

func dialPlayer(ctx context.Context, url, name, roomID string, strategy Strategy, delay time.Duration, results chan<- result, logger *zap.Logger) (*player, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &player{
		name:     name,
		conn:     conn,
		strategy: strategy,
		delay:    delay,
		logger:   logger.With(zap.String("player", name)),
		roomID:   roomID,
		seated:   make(chan board.Symbol, 1),
		results:  results,
	}, nil
}

func (p *player) emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(envelope{Event: event, Data: raw})
}

func (p *player) close() {
	p.conn.Close()
}

// run reads frames until the connection fails or the room closes.
func (p *player) run() error {
	for {
		var env envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return err
		}
		if err := p.handle(env); err != nil {
			return err
		}
	}
}

func (p *player) handle(env envelope) error {
	switch env.Event {
	case service.EventAssignedRole:
		var role string
		if err := json.Unmarshal(env.Data, &role); err != nil {
			return err
		}
		sym, err := board.ParseSymbol(role)
		if err != nil {
			return err
		}
		p.role = sym
		select {
		case p.seated <- sym:
		default:
		}
		p.logger.Debug("assigned role", zap.String("role", role))

	case service.EventStartGame, service.EventResetBoard:
		p.board.Clear()
		p.turn = board.X
		return p.maybeMove()

	case service.EventUpdateBoard:
		var update service.BoardUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			return err
		}
		sym, err := board.ParseSymbol(update.Symbol)
		if err != nil {
			return err
		}
		if err := p.board.Place(update.Index, sym); err != nil {
			return fmt.Errorf("out of sync with server: %w", err)
		}
		if p.board.Evaluate().Terminal() {
			return nil
		}
		p.turn = sym.Opponent()
		return p.maybeMove()

	case service.EventEndGame:
		var res service.GameResult
		if err := json.Unmarshal(env.Data, &res); err != nil {
			return err
		}
		p.results <- result{player: p.name, role: p.role, winner: res.Winner}

	case service.EventRoomClosed:
		return errRoomClosed

	case service.EventError:
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return fmt.Errorf("server rejected request: %s", env.Data)
		}
		return fmt.Errorf("server rejected request: %s", msg)
	}
	return nil
}

func (p *player) maybeMove() error {
	if p.role == board.Empty || p.turn != p.role {
		return nil
	}
	index := p.strategy.NextMove(p.board, p.role)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.logger.Debug("move", zap.Int("index", index), zap.String("symbol", string(p.role)))
	return p.emit(service.EventMakeMove, service.Move{RoomID: p.roomID, Index: index, Symbol: string(p.role)})
}
