package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/molegame/game/engine"
	"github.com/wricardo/mcp-training/molegame/game/service"
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
		baseURL: baseURL,
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
		"Whack-a-Mole",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Whack-a-Mole - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Press the control to start a timed round, then hit as many moles (M) as you
can before the countdown reaches zero. Each hit clears the cell and scores a
point. The score resets when the round ends.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- delete_session: End a session
- game_state: Get current grid, timer and score
- toggle_game: Start a round, or reset a running one
- hit_cell: Click one cell
- hit_all_moles: Hit every mole visible right now
- list_configs: List available configurations
- game_instructions: Get the full rules
- describe_cell: Check whether a cell currently holds a mole

NOTE: Moles move on every spawn cycle; hit_all_moles reads the state and hits in one call.`),
	)

	// Register all tools
	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and stop its timers",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current grid, timer and score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_game",
		Description: "Press the start/reset control: starts a round when idle, stops and resets it when running",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleToggle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hit_cell",
		Description: "Click a cell. Scores a point when a mole is there.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based)",
				},
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "row", "column"},
		},
	}, c.handleHitCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hit_all_moles",
		Description: "Read the grid and hit every mole currently visible",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleHitAllMoles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one grid cell, including whether a mole is visible there right now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based)",
				},
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "row", "column"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
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

// arguments returns the tool call's arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArgument reads an integer argument; JSON numbers arrive as float64
func intArgument(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameConfig != nil {
		result += fmt.Sprintf("Grid: %dx%d, %d moles at a time, %gs round\n",
			session.GameConfig.Rows, session.GameConfig.Columns,
			session.GameConfig.SimultaneousMoles, session.GameConfig.TimerSeconds)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		state := "idle"
		score := 0
		if s.GameState != nil {
			state = s.GameState.State.String()
			score = s.GameState.Score
		}
		result += fmt.Sprintf("- %s (Config: %s, %s, score %d, Created: %s)\n",
			s.ID, s.ConfigName, state, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	if err := c.apiCall(ctx, "DELETE", fmt.Sprintf("/api/sessions/%s", sessionID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", sessionID)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	state, err := c.gameState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(state)), nil
}

func (c *Client) gameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) handleToggle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.ToggleResult
	err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/toggle", sessionID), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := result.Message + "\n"
	if result.GameState != nil {
		response += "\n" + formatGameState(result.GameState)
	}
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleHitCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	row, okRow := intArgument(args, "row")
	column, okColumn := intArgument(args, "column")
	if !okRow || !okColumn {
		return mcp.NewToolResultError("row and column are required integers"), nil
	}

	result, err := c.hit(ctx, sessionID, row, column)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHitResult(result)), nil
}

func (c *Client) hit(ctx context.Context, sessionID string, row, column int) (*service.HitResult, error) {
	body := map[string]int{"row": row, "column": column}
	var result service.HitResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/hit", sessionID), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) handleHitAllMoles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	state, err := c.gameState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if state.State != engine.Running {
		return mcp.NewToolResultError("The game is not running. Call toggle_game to start a round first."), nil
	}

	var b strings.Builder
	hits, score := 0, state.Score
	for _, mole := range state.ActiveMoles {
		result, err := c.hit(ctx, sessionID, mole.Row, mole.Column)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mark := "missed (moved away)"
		if result.Hit {
			hits++
			mark = "hit"
		}
		score = result.Score
		fmt.Fprintf(&b, "- %s: %s\n", mole, mark)
	}

	summary := fmt.Sprintf("Hit %d of %d visible moles. Score: %d\n", hits, len(state.ActiveMoles), score)
	return mcp.NewToolResultText(summary + b.String()), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("- %s (%s): %s\n  %dx%d grid, %d moles, %gs round\n",
			cfg.ConfigID, cfg.Format, cfg.Name, cfg.Rows, cfg.Columns, cfg.SimultaneousMoles, cfg.TimerSeconds)
		if cfg.Description != "" {
			result += fmt.Sprintf("  %s\n", cfg.Description)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `WHACK-A-MOLE

THE BOARD
The grid has R rows and C columns, addressed (row, column) from (0,0) at the
top left. A configured number of moles are visible at the same time.

CONTROLS
- toggle_game while idle starts a round: the countdown begins, moles appear
  and the control reads "Reset the game!".
- toggle_game while running stops the round immediately. Moles disappear,
  the score drops to 0 and the timer shows the full round length again.
- hit_cell on a mole clears that cell and scores one point. Clicking an empty
  cell, or clicking while idle, does nothing.

MOLES
Every spawn cycle (mole_visible_seconds) all moles vanish and the same number
reappear on distinct random cells. A hit cell stays empty until the next
cycle.

TIMER
The countdown shows seconds with three decimals. When it reaches zero the
round ends on its own: moles vanish, the score resets and the control reads
"Start the game!" again. The last round's score is kept as last_score.

STRATEGY
Moles move every cycle, so act on fresh state. hit_all_moles reads the grid
and hits every visible mole in one call.

GRID LEGEND (game_state)
  M  mole
  .  empty cell`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	row, okRow := intArgument(args, "row")
	column, okColumn := intArgument(args, "column")
	if !okRow || !okColumn {
		return mcp.NewToolResultError("row and column are required integers"), nil
	}

	state, err := c.gameState(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pos := engine.Position{Row: row, Column: column}
	if !pos.InBounds(state.Rows, state.Columns) {
		return mcp.NewToolResultError(fmt.Sprintf("Cell %s is out of bounds. Grid is %dx%d (rows 0-%d, columns 0-%d)",
			pos, state.Rows, state.Columns, state.Rows-1, state.Columns-1)), nil
	}

	return mcp.NewToolResultText(describeCell(state, pos)), nil
}

func describeCell(state *engine.GameState, pos engine.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s\n", pos)
	fmt.Fprintf(&b, "Pixel origin: (%.1f, %.1f), size %.1fx%.1f\n",
		float64(pos.Column)*state.CellWidth, float64(pos.Row)*state.CellHeight, state.CellWidth, state.CellHeight)

	switch {
	case state.IsActive(pos):
		b.WriteString("Contents: M (mole) - hit it now to score\n")
	case state.State == engine.Running:
		b.WriteString("Contents: . (empty) - a hit here scores nothing\n")
	default:
		b.WriteString("Contents: . (empty) - the game is idle, start it with toggle_game\n")
	}
	return b.String()
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return result
}

func formatGameState(state *engine.GameState) string {
	var b strings.Builder

	status := "⏸ IDLE"
	if state.State == engine.Running {
		status = "▶ RUNNING"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Timer: %s\n", state.Timer)
	fmt.Fprintf(&b, "Score: %d (last round: %d, best: %d)\n", state.Score, state.LastScore, state.BestScore)
	fmt.Fprintf(&b, "Control: %s\n", state.ControlLabel)
	if state.Rounds > 0 || state.Hits > 0 || state.Misses > 0 {
		fmt.Fprintf(&b, "Rounds: %d, hits: %d, misses: %d\n", state.Rounds, state.Hits, state.Misses)
	}

	if len(state.ActiveMoles) > 0 {
		moles := make([]string, len(state.ActiveMoles))
		for i, m := range state.ActiveMoles {
			moles[i] = m.String()
		}
		fmt.Fprintf(&b, "Moles: %s\n", strings.Join(moles, " "))
	}

	b.WriteString("\n")
	b.WriteString(renderGrid(state))
	return b.String()
}

// renderGrid draws the board with column and row indices
func renderGrid(state *engine.GameState) string {
	var b strings.Builder
	b.WriteString("   ")
	for col := 0; col < state.Columns; col++ {
		fmt.Fprintf(&b, "%2d", col)
	}
	b.WriteString("\n")

	for row := 0; row < state.Rows; row++ {
		fmt.Fprintf(&b, "%2d ", row)
		for col := 0; col < state.Columns; col++ {
			cell := "."
			if state.IsActive(engine.Position{Row: row, Column: col}) {
				cell = "M"
			}
			fmt.Fprintf(&b, " %s", cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatHitResult(result *service.HitResult) string {
	mark := "❌ MISS"
	if result.Hit {
		mark = "🔨 HIT"
	}
	text := fmt.Sprintf("%s at %s. Score: %d\n", mark, result.Position, result.Score)
	if result.Message != "" {
		text += result.Message + "\n"
	}
	return text
}
