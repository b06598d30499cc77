// Package websocket provides the WebSocket transport for the tic-tac-toe relay.
//
// The websocket package implements:
//   - One connection per participant, identified by a server-issued UUID
//   - JSON event framing in both directions
//   - Dispatch of inbound events to the game service
//   - Delivery of outbound events (service.Notifier)
//   - Disconnect detection and room teardown
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns the set of
// connected participants. Each connection runs a read pump, which decodes
// frames and calls the game service, and a write pump, which drains the
// participant's send queue and keeps the connection alive with pings.
//
// Message Protocol:
//
// Every frame is {"event": name, "data": payload}:
//   - Incoming: createGame/joinGame/resetGame with a room ID string,
//     makeMove with {roomId, index, symbol}
//   - Outgoing: assignedRole, startGame, updateBoard, endGame, resetBoard,
//     roomClosed and error
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(room.NewRegistry(), hub)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, svc)
//	})
//
// Connection Lifecycle:
//
// 1. Client connects and is assigned a participant ID
// 2. Connection registered with hub
// 3. Client sends events, receives room events
// 4. Disconnection unregisters the client and closes its room
package websocket
