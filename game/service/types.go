package service

import (
	"time"

	"github.com/wricardo/tictactoe-relay/game/board"
	"github.com/wricardo/tictactoe-relay/game/room"
)

// Room status values reported by RoomInfo.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// RoomInfo is a point-in-time view of a room
type RoomInfo struct {
	ID             string    `json:"id"`
	PlayerX        string    `json:"player_x,omitempty"`
	PlayerO        string    `json:"player_o,omitempty"`
	Board          []string  `json:"board"`
	Turn           string    `json:"turn"`
	Status         string    `json:"status"`
	Winner         string    `json:"winner,omitempty"`
	Moves          int       `json:"moves"`
	Rounds         int       `json:"rounds"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func newRoomInfo(rm *room.Room) *RoomInfo {
	info := &RoomInfo{
		ID:             rm.ID,
		Board:          rm.Board.Strings(),
		Turn:           string(rm.Turn),
		Moves:          rm.Moves,
		Rounds:         rm.Rounds,
		CreatedAt:      rm.CreatedAt,
		LastActivityAt: rm.LastActivityAt,
		Winner:         rm.Outcome.WinnerLabel(),
	}
	info.PlayerX, _ = rm.Player(board.X)
	info.PlayerO, _ = rm.Player(board.O)

	switch {
	case rm.Outcome.Terminal():
		info.Status = StatusFinished
	case rm.Full():
		info.Status = StatusPlaying
	default:
		info.Status = StatusWaiting
	}
	return info
}
