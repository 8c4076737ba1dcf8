// Command autoplayer is a bot that plays whack-a-mole against a running
// server. It creates (or joins) a session, subscribes to its events over
// WebSocket and hits every mole as soon as it appears, for a number of
// rounds.
//
// Hits go over the WebSocket by default; --rest sends them through the REST
// API instead, which also reports each hit or miss.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/molegame/game/engine"
	"github.com/wricardo/mcp-training/molegame/game/service"
	ws "github.com/wricardo/mcp-training/molegame/transport/websocket"
)

// Client calls the REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) apiCall(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
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

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// CreateSession starts a session with the given config, or the server default
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}
	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Toggle(ctx context.Context, sessionID string) (*service.ToggleResult, error) {
	var result service.ToggleResult
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/toggle", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Hit(ctx context.Context, sessionID string, pos engine.Position) (*service.HitResult, error) {
	var result service.HitResult
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/hit", pos, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// inbound is a hub event with its payload left undecoded
type inbound struct {
	SessionID string          `json:"session_id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

// Stats summarizes a bot run
type Stats struct {
	Rounds    int
	Scores    []int
	HitsSent  int
	Confirmed int // REST mode only
	Best      int
}

// Player reacts to a session's events
type Player struct {
	rounds  int
	running bool
	stats   Stats
	done    bool
}

func NewPlayer(rounds int) *Player {
	if rounds < 1 {
		rounds = 1
	}
	return &Player{rounds: rounds}
}

// handle updates the player from one event and returns the actions to send
func (p *Player) handle(msg inbound) ([]ws.ClientMessage, error) {
	switch msg.Event {
	case service.ViewEventState:
		var state engine.GameState
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		return p.onState(&state), nil

	case service.ViewEventCell:
		var cell service.CellEvent
		if err := json.Unmarshal(msg.Data, &cell); err != nil {
			return nil, fmt.Errorf("decode cell: %w", err)
		}
		if !cell.Active || !p.running {
			return nil, nil
		}
		p.stats.HitsSent++
		return []ws.ClientMessage{ws.HitAt(cell.Row, cell.Column)}, nil

	case ws.EventError:
		var text string
		json.Unmarshal(msg.Data, &text)
		return nil, fmt.Errorf("server error: %s", text)
	}
	return nil, nil
}

func (p *Player) onState(state *engine.GameState) []ws.ClientMessage {
	if state.State == engine.Running {
		p.running = true
		// Moles already on the board when we joined
		actions := make([]ws.ClientMessage, 0, len(state.ActiveMoles))
		for _, m := range state.ActiveMoles {
			actions = append(actions, ws.HitAt(m.Row, m.Column))
		}
		p.stats.HitsSent += len(actions)
		return actions
	}

	if p.running {
		// Round over
		p.running = false
		p.stats.Rounds++
		p.stats.Scores = append(p.stats.Scores, state.LastScore)
		if state.LastScore > p.stats.Best {
			p.stats.Best = state.LastScore
		}
		log.Info().Int("round", p.stats.Rounds).Int("score", state.LastScore).Msg("Round finished")

		if p.stats.Rounds >= p.rounds {
			p.done = true
			return nil
		}
	}
	return []ws.ClientMessage{{Action: ws.ActionToggle}}
}

// Bot wires a Player to a live session
type Bot struct {
	client    *Client
	sessionID string
	delay     time.Duration
	useREST   bool
}

// wsURL turns the API base URL into the session's WebSocket URL
func wsURL(baseURL, sessionID string) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws?session=" + sessionID
}

// Play runs rounds until the player is done or ctx is cancelled
func (b *Bot) Play(ctx context.Context, player *Player) (*Stats, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(b.client.baseURL, b.sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("connect websocket: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON on cancel
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for !player.done {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return &player.stats, ctx.Err()
			}
			return &player.stats, fmt.Errorf("read: %w", err)
		}

		actions, err := player.handle(msg)
		if err != nil {
			log.Warn().Err(err).Str("event", msg.Event).Msg("Event ignored")
			continue
		}

		for _, action := range actions {
			if err := b.send(ctx, conn, player, action); err != nil {
				return &player.stats, err
			}
		}
	}
	return &player.stats, nil
}

func (b *Bot) send(ctx context.Context, conn *websocket.Conn, player *Player, action ws.ClientMessage) error {
	if action.Action == ws.ActionHit && b.delay > 0 {
		time.Sleep(b.delay)
	}

	if !b.useREST {
		return conn.WriteJSON(action)
	}

	switch action.Action {
	case ws.ActionToggle:
		_, err := b.client.Toggle(ctx, b.sessionID)
		return err
	case ws.ActionHit:
		result, err := b.client.Hit(ctx, b.sessionID, engine.Position{Row: *action.Row, Column: *action.Column})
		if err != nil {
			return err
		}
		if result.Hit {
			player.stats.Confirmed++
		}
		log.Debug().Stringer("pos", result.Position).Bool("hit", result.Hit).Int("score", result.Score).Msg("Hit")
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplayer",
		Usage: "Play whack-a-mole automatically against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server base URL", Sources: cli.EnvVars("MOLEGAME_URL")},
			&cli.StringFlag{Name: "config", Usage: "Config ID for a new session"},
			&cli.StringFlag{Name: "session", Usage: "Join an existing session instead of creating one"},
			&cli.IntFlag{Name: "rounds", Value: 3, Usage: "Rounds to play"},
			&cli.DurationFlag{Name: "delay", Value: 150 * time.Millisecond, Usage: "Reaction time before each hit"},
			&cli.BoolFlag{Name: "rest", Usage: "Send hits through the REST API"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every hit"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			if cmd.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			client := NewClient(cmd.String("url"))
			sessionID := cmd.String("session")
			if sessionID == "" {
				session, err := client.CreateSession(ctx, cmd.String("config"))
				if err != nil {
					return err
				}
				sessionID = session.ID
				log.Info().Str("session", sessionID).Str("config", session.ConfigName).Msg("Session created")
			}

			bot := &Bot{
				client:    client,
				sessionID: sessionID,
				delay:     cmd.Duration("delay"),
				useREST:   cmd.Bool("rest"),
			}
			stats, err := bot.Play(ctx, NewPlayer(int(cmd.Int("rounds"))))
			if stats != nil {
				fmt.Printf("Session %s: %d rounds, scores %v, best %d, hits sent %d\n",
					sessionID, stats.Rounds, stats.Scores, stats.Best, stats.HitsSent)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Autoplayer failed")
	}
}
