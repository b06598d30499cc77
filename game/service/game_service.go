package service

import (
	"context"
	"errors"

	"github.com/wricardo/tictactoe-relay/game/room"
)

var (
	ErrNotInRoom     = errors.New("not a participant of this room")
	ErrNotYourSymbol = errors.New("symbol does not match your role")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidMove   = errors.New("invalid move")
)

// GameService defines every room operation reachable from a transport
type GameService interface {
	// Participant operations
	CreateGame(ctx context.Context, participantID, roomID string) error
	JoinGame(ctx context.Context, participantID, roomID string) error
	MakeMove(ctx context.Context, participantID string, move Move) error
	ResetGame(ctx context.Context, participantID, roomID string) error
	Disconnect(ctx context.Context, participantID string)

	// Administration
	CloseRoom(ctx context.Context, roomID string) error
	GetRoom(ctx context.Context, roomID string) (*RoomInfo, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
}

// RoomStore defines room storage operations
type RoomStore interface {
	Create(id, creatorID string) (*room.Room, error)
	Join(id, joinerID string) (*room.Room, error)
	Get(id string) (*room.Room, bool)
	Remove(id string) (*room.Room, bool)
	RemoveByParticipant(participantID string) (*room.Room, bool)
	List() []*room.Room
}
