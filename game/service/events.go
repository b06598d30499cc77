package service

// Inbound event names sent by participants.
const (
	EventCreateGame = "createGame"
	EventJoinGame   = "joinGame"
	EventMakeMove   = "makeMove"
	EventResetGame  = "resetGame"
)

// Outbound event names sent to participants.
const (
	EventAssignedRole = "assignedRole"
	EventStartGame    = "startGame"
	EventUpdateBoard  = "updateBoard"
	EventEndGame      = "endGame"
	EventResetBoard   = "resetBoard"
	EventRoomClosed   = "roomClosed"
	EventError        = "error"
)

// Reasons carried by a roomClosed event.
const (
	CloseReasonDisconnect = "disconnect"
	CloseReasonClosed     = "closed"
)

// Move is the makeMove payload.
type Move struct {
	RoomID string `json:"roomId"`
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
}

// BoardUpdate is the updateBoard payload.
type BoardUpdate struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
}

// GameResult is the endGame payload. Winner is "X", "O" or "Draw".
type GameResult struct {
	Winner string `json:"winner"`
}

// RoomClosed is the roomClosed payload.
type RoomClosed struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// Notifier delivers outbound events. Sends to unknown participants are dropped.
type Notifier interface {
	Send(participantID, event string, data any)
}
