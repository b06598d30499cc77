// Package room provides the in-memory room registry for the tic-tac-toe relay.
//
// The room package implements:
//   - Thread-safe room storage keyed by caller-chosen room ID
//   - Participant to room indexing (one room per participant)
//   - Role assignment on create and join
//   - Room removal by ID or by participant
//
// Core Types:
//
// Registry owns every live Room. Room holds the two seats, the board, the
// current turn and the last evaluated outcome. The identity to role mapping
// lives only in the room's seats, so swapping roles on reset is one update.
//
// Usage:
//
//	reg := room.NewRegistry()
//
//	r, err := reg.Create("lobby-1", creatorID)
//	if err != nil {
//		return err
//	}
//
//	r, err = reg.Join("lobby-1", joinerID)
//
//	// disconnect cleanup
//	if r, ok := reg.RemoveByParticipant(creatorID); ok {
//		notify(r.Members())
//	}
//
// Rooms are never persisted; they disappear with the process.
package room
