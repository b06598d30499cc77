package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/tictactoe-relay/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tic-Tac-Toe Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tic-Tac-Toe Relay - MCP Interface

This is a thin client that proxies all requests to the relay's REST API.
Players connect over WebSocket; these tools only observe and administer rooms.

AVAILABLE TOOLS:
- list_rooms: List active rooms, optionally filtered by status
- get_room: Show one room's board, players and turn
- close_room: Close a room and notify its players
- game_rules: Explain the rules and the WebSocket protocol`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all active rooms",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{service.StatusWaiting, service.StatusPlaying, service.StatusFinished},
					"description": "Only list rooms in this status (optional)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the board, players and turn of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"room_id": map[string]any{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_room",
		Description: "Close a room; its players receive roomClosed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"room_id": map[string]any{
					"type":        "string",
					"description": "Room ID to close",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleCloseRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the game rules and the WebSocket event protocol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func roomIDArg(request mcp.CallToolRequest) (string, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	roomID, _ := args["room_id"].(string)
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return "", fmt.Errorf("room_id is required")
	}
	return roomID, nil
}

// Tool handlers

type roomList struct {
	Count int                 `json:"count"`
	Rooms []*service.RoomInfo `json:"rooms"`
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	status, _ := args["status"].(string)

	path := "/api/rooms"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var response roomList
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomList(&response)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, err := roomIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleCloseRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, err := roomIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", "/api/rooms/"+url.PathEscape(roomID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg := response["message"]
	if msg == "" {
		msg = fmt.Sprintf("Room %s closed", roomID)
	}
	return mcp.NewToolResultText(msg), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameRules), nil
}

const gameRules = `# Tic-Tac-Toe Relay

## Rules
- Two players share a 3x3 board, cells indexed 0..8 left to right, top to bottom.
- The room creator plays X, the joiner plays O. X moves first.
- A move is accepted when the cell is empty and the symbol matches the turn.
- Three in a row, column or diagonal wins. A full board with no line is a draw.
- After a reset the board is cleared, X moves first, and roles may swap at random.
- When a player disconnects the room is closed for everyone in it.

## WebSocket protocol (/ws)
Every frame is {"event": name, "data": payload}.

Client to server:
- createGame   data: "roomId"
- joinGame     data: "roomId"
- makeMove     data: {"roomId": "...", "index": 0-8, "symbol": "X"|"O"}
- resetGame    data: "roomId"

Server to client:
- assignedRole data: "X"|"O"
- startGame
- updateBoard  data: {"index": n, "symbol": "X"|"O"}
- endGame      data: {"winner": "X"|"O"|"Draw"}
- resetBoard
- roomClosed   data: {"roomId": "...", "reason": "disconnect"|"closed"}
- error        data: "message"
`

// Formatting helpers

func formatRoomList(list *roomList) string {
	if len(list.Rooms) == 0 {
		return "No active rooms"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d room(s):\n", list.Count)
	for _, info := range list.Rooms {
		fmt.Fprintf(&sb, "- %s [%s] moves=%d round=%d", info.ID, info.Status, info.Moves, info.Rounds)
		if info.Winner != "" {
			fmt.Fprintf(&sb, " winner=%s", info.Winner)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatRoomInfo(info *service.RoomInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Room: %s\n", info.ID)
	fmt.Fprintf(&sb, "Status: %s\n", info.Status)
	fmt.Fprintf(&sb, "Player X: %s\n", orNone(info.PlayerX))
	fmt.Fprintf(&sb, "Player O: %s\n", orNone(info.PlayerO))
	switch {
	case info.Winner == "Draw":
		sb.WriteString("Result: draw\n")
	case info.Winner != "":
		fmt.Fprintf(&sb, "Result: %s wins\n", info.Winner)
	default:
		fmt.Fprintf(&sb, "Turn: %s\n", info.Turn)
	}
	fmt.Fprintf(&sb, "Moves: %d  Round: %d\n\n", info.Moves, info.Rounds)
	sb.WriteString(formatBoard(info.Board))
	return sb.String()
}

// formatBoard renders the 3x3 grid; empty cells show their index.
func formatBoard(cells []string) string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}
		for col := 0; col < 3; col++ {
			i := row*3 + col
			mark := fmt.Sprint(i)
			if i < len(cells) && cells[i] != "" {
				mark = cells[i]
			}
			if col > 0 {
				sb.WriteString("|")
			}
			fmt.Fprintf(&sb, " %s ", mark)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
