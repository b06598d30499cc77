// Package service provides the room state machine for the tic-tac-toe relay.
//
// The service package implements:
//   - Role assignment on create and join
//   - Turn arbitration and move validation
//   - Win and draw detection with a delayed endGame broadcast
//   - Reset with random role reassignment
//   - Teardown on disconnect or explicit close
//
// Core Interfaces:
//
// GameService is the operation set transports call into. RoomStore is the
// storage it mutates (implemented by room.Registry). Notifier is the outbound
// side: every state change is reported as a named event to one or both
// participants.
//
// Usage:
//
//	svc := service.NewGameService(room.NewRegistry(), hub,
//		service.WithLogger(logger),
//		service.WithEndGameDelay(100*time.Millisecond),
//	)
//
//	_ = svc.CreateGame(ctx, participantID, "lobby-1")
//
// Errors:
//
// Every rejected operation sends an error event to the requesting participant
// only and returns the same error to the caller. Rejections never change
// room state.
//
// Concurrency:
//
// All room mutations are serialized by the service. The endGame delay runs on
// a timer and never holds the service lock.
package service
