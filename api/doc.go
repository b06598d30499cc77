// Package api provides the HTTP surface of the tic-tac-toe relay.
//
// The api package implements:
//   - WebSocket upgrade for game participants
//   - Room inspection endpoints
//   - Explicit room removal
//   - Health reporting
//   - Static file serving for the browser client
//
// Endpoints:
//
//   - GET /ws - Upgrade to the game relay (see transport/websocket)
//   - GET /api/rooms - List rooms, optional ?status=waiting|playing|finished
//   - GET /api/rooms/{id} - Get one room
//   - DELETE /api/rooms/{id} - Close a room; members receive roomClosed
//   - GET /healthz - Room and connection counts
//   - anything else - files from the static directory
//
// Usage:
//
//	server := api.NewServer(gameService, hub, "public", logger)
//	http.ListenAndServe(":3000", server)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error:
//
//	{
//	  "error": "room not found"
//	}
package api
