// Package mcp provides the Model Context Protocol tool server for the relay.
//
// The server is a thin client of the REST API: every tool call becomes an
// HTTP request against /api/rooms, so it works the same whether it runs
// inside the relay process or beside it.
//
// MCP Tools:
//   - list_rooms: List active rooms, optionally filtered by status
//   - get_room: Render one room's board, players and turn
//   - close_room: Close a room; its players receive roomClosed
//   - game_rules: Describe the rules and the WebSocket protocol
//
// Transport Modes:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:3000")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode: POST JSON-RPC messages to /mcp
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
