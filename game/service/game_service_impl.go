package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/board"
	"github.com/wricardo/tictactoe-relay/game/room"
)

// DefaultEndGameDelay lets the final updateBoard land before endGame.
const DefaultEndGameDelay = 100 * time.Millisecond

// Option configures a game service
type Option func(*gameServiceImpl)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEndGameDelay sets how long endGame waits after the final move.
// A non-positive delay sends endGame immediately.
func WithEndGameDelay(d time.Duration) Option {
	return func(s *gameServiceImpl) {
		s.endGameDelay = d
	}
}

// WithCoin sets the coin flipped on reset; true swaps roles.
func WithCoin(flip func() bool) Option {
	return func(s *gameServiceImpl) {
		if flip != nil {
			s.flip = flip
		}
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms        RoomStore
	notifier     Notifier
	logger       *zap.Logger
	endGameDelay time.Duration
	flip         func() bool
	mu           sync.Mutex
}

// NewGameService creates a new game service instance
func NewGameService(rooms RoomStore, notifier Notifier, opts ...Option) GameService {
	s := &gameServiceImpl{
		rooms:        rooms,
		notifier:     notifier,
		logger:       zap.NewNop(),
		endGameDelay: DefaultEndGameDelay,
		flip:         func() bool { return rand.IntN(2) == 1 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame opens a room and seats the creator as X
func (s *gameServiceImpl) CreateGame(ctx context.Context, participantID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, err := s.rooms.Create(roomID, participantID)
	if err != nil {
		return s.reject(participantID, EventCreateGame, roomID, err)
	}

	s.logger.Info("game created",
		zap.String("room", rm.ID),
		zap.String("participant", participantID),
	)
	s.notifier.Send(participantID, EventAssignedRole, string(board.X))
	return nil
}

// JoinGame seats the joiner as O and starts the game
func (s *gameServiceImpl) JoinGame(ctx context.Context, participantID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, err := s.rooms.Join(roomID, participantID)
	if err != nil {
		return s.reject(participantID, EventJoinGame, roomID, err)
	}

	s.logger.Info("player joined game",
		zap.String("room", rm.ID),
		zap.String("participant", participantID),
	)
	s.notifier.Send(participantID, EventAssignedRole, string(board.O))
	s.broadcast(rm.Members(), EventStartGame, nil)
	return nil
}

// MakeMove validates and applies a move, then evaluates the board
func (s *gameServiceImpl) MakeMove(ctx context.Context, participantID string, move Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms.Get(move.RoomID)
	if !ok {
		return s.reject(participantID, EventMakeMove, move.RoomID, room.ErrRoomNotFound)
	}

	symbol, err := s.checkMove(rm, participantID, move)
	if err != nil {
		return s.reject(participantID, EventMakeMove, rm.ID, err)
	}

	if err := rm.Board.Place(move.Index, symbol); err != nil {
		return s.reject(participantID, EventMakeMove, rm.ID, fmt.Errorf("%w: %w", ErrInvalidMove, err))
	}
	rm.Moves++
	rm.LastActivityAt = time.Now()

	members := rm.Members()
	s.broadcast(members, EventUpdateBoard, BoardUpdate{Index: move.Index, Symbol: string(symbol)})

	outcome := rm.Board.Evaluate()
	if !outcome.Terminal() {
		rm.Turn = symbol.Opponent()
		return nil
	}

	rm.Outcome = outcome
	s.logger.Info("game ended",
		zap.String("room", rm.ID),
		zap.String("outcome", outcome.String()),
		zap.Int("moves", rm.Moves),
	)
	s.scheduleEndGame(rm, GameResult{Winner: outcome.WinnerLabel()})
	return nil
}

// checkMove validates a move against the room. The cell and turn checks come
// last, so a seated participant's move is accepted exactly when the cell is
// empty and the symbol is the current turn.
func (s *gameServiceImpl) checkMove(rm *room.Room, participantID string, move Move) (board.Symbol, error) {
	if move.Index < 0 || move.Index >= board.Size {
		return board.Empty, fmt.Errorf("%w: %d", board.ErrInvalidCell, move.Index)
	}
	symbol, err := board.ParseSymbol(move.Symbol)
	if err != nil {
		return board.Empty, err
	}

	role, ok := rm.RoleOf(participantID)
	if !ok {
		return board.Empty, ErrNotInRoom
	}
	if role != symbol {
		return board.Empty, ErrNotYourSymbol
	}

	if rm.Board[move.Index] != board.Empty {
		return board.Empty, fmt.Errorf("%w: %w", ErrInvalidMove, board.ErrCellOccupied)
	}
	if rm.Turn != symbol {
		return board.Empty, fmt.Errorf("%w: %w", ErrInvalidMove, ErrNotYourTurn)
	}
	return symbol, nil
}

// ResetGame clears the board and reassigns roles at random
func (s *gameServiceImpl) ResetGame(ctx context.Context, participantID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms.Get(roomID)
	if !ok {
		return s.reject(participantID, EventResetGame, roomID, room.ErrRoomNotFound)
	}
	if !rm.Has(participantID) {
		return s.reject(participantID, EventResetGame, rm.ID, ErrNotInRoom)
	}

	swap := rm.Full() && s.flip()
	rm.Reset(swap)

	s.logger.Info("game reset",
		zap.String("room", rm.ID),
		zap.String("participant", participantID),
		zap.Bool("swapped", swap),
		zap.Int("round", rm.Rounds),
	)

	members := rm.Members()
	for _, member := range members {
		role, _ := rm.RoleOf(member)
		s.notifier.Send(member, EventAssignedRole, string(role))
	}
	s.broadcast(members, EventResetBoard, nil)
	return nil
}

// Disconnect tears down the participant's room, if any
func (s *gameServiceImpl) Disconnect(ctx context.Context, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms.RemoveByParticipant(participantID)
	if !ok {
		return
	}

	s.logger.Info("room closed by disconnect",
		zap.String("room", rm.ID),
		zap.String("participant", participantID),
	)
	s.broadcast(rm.Others(participantID), EventRoomClosed, RoomClosed{RoomID: rm.ID, Reason: CloseReasonDisconnect})
}

// CloseRoom removes a room on request and notifies its members
func (s *gameServiceImpl) CloseRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms.Remove(roomID)
	if !ok {
		return room.ErrRoomNotFound
	}

	s.logger.Info("room closed", zap.String("room", rm.ID))
	s.broadcast(rm.Members(), EventRoomClosed, RoomClosed{RoomID: rm.ID, Reason: CloseReasonClosed})
	return nil
}

// GetRoom returns a snapshot of one room
func (s *gameServiceImpl) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return newRoomInfo(rm), nil
}

// ListRooms returns snapshots of every room
func (s *gameServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.rooms.List()
	result := make([]*RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		result = append(result, newRoomInfo(rm))
	}
	return result, nil
}

func (s *gameServiceImpl) broadcast(members []string, event string, data any) {
	for _, member := range members {
		s.notifier.Send(member, event, data)
	}
}

// scheduleEndGame announces result to the room. A delayed announcement is
// dropped if the room was torn down or reset in the meantime.
func (s *gameServiceImpl) scheduleEndGame(rm *room.Room, result GameResult) {
	if s.endGameDelay <= 0 {
		s.broadcast(rm.Members(), EventEndGame, result)
		return
	}
	id, round := rm.ID, rm.Rounds
	time.AfterFunc(s.endGameDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		current, ok := s.rooms.Get(id)
		if !ok || current != rm || current.Rounds != round {
			s.logger.Debug("stale endGame dropped",
				zap.String("room", id),
				zap.Int("round", round),
			)
			return
		}
		s.broadcast(current.Members(), EventEndGame, result)
	})
}

// reject reports err to the requester only and returns it.
func (s *gameServiceImpl) reject(participantID, event, roomID string, err error) error {
	level := zap.InfoLevel
	if errors.Is(err, ErrInvalidMove) {
		level = zap.DebugLevel
	}
	if ce := s.logger.Check(level, "request rejected"); ce != nil {
		ce.Write(
			zap.String("event", event),
			zap.String("room", roomID),
			zap.String("participant", participantID),
			zap.Error(err),
		)
	}
	s.notifier.Send(participantID, EventError, err.Error())
	return err
}
