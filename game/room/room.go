package room

import (
	"time"

	"github.com/wricardo/tictactoe-relay/game/board"
)

// Room is a single two-seat match. Fields are mutated only through the
// registry and the game service, which serialize access.
type Room struct {
	ID             string
	Board          board.Board
	Turn           board.Symbol
	Outcome        board.Outcome
	Moves          int
	Rounds         int
	CreatedAt      time.Time
	LastActivityAt time.Time

	seats map[board.Symbol]string
}

func newRoom(id, creatorID string) *Room {
	now := time.Now()
	return &Room{
		ID:             id,
		Turn:           board.X,
		Outcome:        board.OutcomeInProgress,
		Rounds:         1,
		CreatedAt:      now,
		LastActivityAt: now,
		seats:          map[board.Symbol]string{board.X: creatorID},
	}
}

// Player returns the participant currently holding symbol s.
func (r *Room) Player(s board.Symbol) (string, bool) {
	id, ok := r.seats[s]
	return id, ok && id != ""
}

// RoleOf returns the symbol held by participantID.
func (r *Room) RoleOf(participantID string) (board.Symbol, bool) {
	for s, id := range r.seats {
		if id == participantID {
			return s, true
		}
	}
	return board.Empty, false
}

// Has reports whether participantID holds a seat.
func (r *Room) Has(participantID string) bool {
	_, ok := r.RoleOf(participantID)
	return ok
}

// Full reports whether both seats are taken.
func (r *Room) Full() bool {
	_, x := r.Player(board.X)
	_, o := r.Player(board.O)
	return x && o
}

// Members lists seated participants, X first.
func (r *Room) Members() []string {
	members := make([]string, 0, 2)
	for _, s := range []board.Symbol{board.X, board.O} {
		if id, ok := r.Player(s); ok {
			members = append(members, id)
		}
	}
	return members
}

// Others lists seated participants other than participantID.
func (r *Room) Others(participantID string) []string {
	others := make([]string, 0, 1)
	for _, id := range r.Members() {
		if id != participantID {
			others = append(others, id)
		}
	}
	return others
}

// Reset clears the board, sets the turn to X and, when swap is true and both
// seats are taken, exchanges the seats.
func (r *Room) Reset(swap bool) {
	r.Board.Clear()
	r.Turn = board.X
	r.Outcome = board.OutcomeInProgress
	r.Moves = 0
	r.Rounds++
	r.LastActivityAt = time.Now()

	if swap && r.Full() {
		r.seats[board.X], r.seats[board.O] = r.seats[board.O], r.seats[board.X]
	}
}

func (r *Room) touch() {
	r.LastActivityAt = time.Now()
}
