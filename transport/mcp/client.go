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

	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/service"
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

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Chess Rooms",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess Rooms - MCP Interface

Read-only inspector for a live chess room server. Games are played over the
websocket endpoint; these tools only look.

Squares are board indices 0..63: index 0 is a8, index 7 is h8, index 56 is a1
and index 63 is h1. Tools that take a square also accept algebraic names like "e2".

AVAILABLE TOOLS:
- list_rooms: List live rooms with player counts and game status
- get_room: Show one room's board, side to move and last move
- legal_moves: List target squares for the piece on a square
- list_users: List the names of connected users
- list_configs: List start-position presets`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	roomProperty := map[string]interface{}{
		"type":        "string",
		"description": "Room ID",
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the board and game status of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room": roomProperty,
			},
			Required: []string{"room"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List the squares the piece on a square may move to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room": roomProperty,
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Square index (0-63) or algebraic name such as e2",
				},
			},
			Required: []string{"room", "from"},
		},
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_users",
		Description: "List the names of connected users",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListUsers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available start-position presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
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

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Total int                `json:"total"`
		Rooms []service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Total == 0 {
		return mcp.NewToolResultText("No live rooms."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Rooms (%d):\n\n", response.Total)
	for _, r := range response.Rooms {
		fmt.Fprintf(&b, "- %s: %d player(s), %s, %s to move, %d move(s)\n",
			r.ID, r.Players, r.State.Terminal, r.State.Turn, r.State.MoveCount)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := request.GetString("room", "")
	if roomID == "" {
		return mcp.NewToolResultError("room is required"), nil
	}

	var room service.RoomInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID), nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoom(&room)), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID := request.GetString("room", "")
	from := squareArgument(request.GetArguments()["from"])
	if roomID == "" || from == "" {
		return mcp.NewToolResultError("room and from are required"), nil
	}

	var response struct {
		From    int   `json:"from"`
		Targets []int `json:"targets"`
	}
	path := fmt.Sprintf("/api/rooms/%s/moves?from=%s", url.PathEscape(roomID), url.QueryEscape(from))
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTargets(response.From, response.Targets)), nil
}

func (c *Client) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Total int      `json:"total"`
		Users []string `json:"users"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/users", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Total == 0 {
		return mcp.NewToolResultText("No named users connected."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Users (%d): %s", response.Total, strings.Join(response.Users, ", "))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []config.PresetInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Start Positions:\n\n")
	for _, p := range presets {
		fmt.Fprintf(&b, "- %s: %s\n  %s\n  FEN: %s\n", p.ConfigID, p.Name, p.Description, p.FEN)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// squareArgument accepts a square as a JSON string or number.
func squareArgument(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return fmt.Sprintf("%d", int(s))
	case int:
		return fmt.Sprintf("%d", s)
	}
	return ""
}

// formatRoom renders a room as text with white at the bottom.
func formatRoom(room *service.RoomInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", room.ID)
	fmt.Fprintf(&b, "Players: %d\n", room.Players)
	fmt.Fprintf(&b, "Status: %s\n", room.State.Terminal)
	if room.State.Result != "" {
		fmt.Fprintf(&b, "Result: %s (%s)\n", room.State.Result, room.State.Method)
	} else {
		fmt.Fprintf(&b, "To move: %s\n", room.State.Turn)
	}
	fmt.Fprintf(&b, "Moves played: %d\n", room.State.MoveCount)
	if lm := room.State.LastMove; lm != nil {
		fmt.Fprintf(&b, "Last move: %s\n", lm.UCI)
	}
	fmt.Fprintf(&b, "FEN: %s\n\n", room.State.FEN)
	b.WriteString(formatBoard(room.Board))
	return b.String()
}

func formatBoard(board []string) string {
	if len(board) != engine.BoardSquares {
		return ""
	}
	var b strings.Builder
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&b, "%d ", 8-row)
		for col := 0; col < 8; col++ {
			piece := board[row*8+col]
			if piece == "" {
				piece = "."
			}
			b.WriteString(piece)
			if col < 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h\n")
	return b.String()
}

func formatTargets(from int, targets []int) string {
	name, err := engine.IndexToSquare(from)
	if err != nil {
		name = fmt.Sprintf("%d", from)
	}
	if len(targets) == 0 {
		return fmt.Sprintf("No legal moves from %s (%d).", name, from)
	}

	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		sq, err := engine.IndexToSquare(t)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", sq, t))
	}
	return fmt.Sprintf("Legal moves from %s (%d): %s", name, from, strings.Join(parts, ", "))
}
