package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/models"
)

const defaultRetryDelay = 3 * time.Second

// Agent maintains a viewer-side copy of the public view: one snapshot
// fetch, then incremental events folded in by the reducer. On any
// transport loss it re-fetches a full snapshot before resubscribing,
// so a reconnecting viewer never renders stale state indefinitely.
type Agent struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
	retryDelay time.Duration

	mu       sync.RWMutex
	state    *models.PublicState
	onChange func(models.PublicState)
}

// NewAgent builds an agent against a server base URL such as
// "http://localhost:8080".
func NewAgent(baseURL string, logger *slog.Logger) *Agent {
	baseURL = strings.TrimSuffix(baseURL, "/")
	wsURL := strings.Replace(strings.Replace(baseURL, "https://", "wss://", 1), "http://", "ws://", 1) + "/ws"
	return &Agent{
		baseURL:    baseURL,
		wsURL:      wsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// OnChange registers a hook invoked with a copy of the state after
// every applied event. Must be called before Run.
func (a *Agent) OnChange(fn func(models.PublicState)) {
	a.onChange = fn
}

// State returns a copy of the current local view, or nil before the
// first successful snapshot fetch.
func (a *Agent) State() *models.PublicState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneState(a.state)
}

// Run drives the fetch/subscribe/reduce loop until ctx is cancelled.
// Reconnection uses a fixed delay, not exponential backoff: the agent
// is a long-lived overlay process and a stable cadence is easier to
// reason about during a live event.
func (a *Agent) Run(ctx context.Context) error {
	for {
		if err := a.syncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("sync lost, retrying", "error", err, "delay", a.retryDelay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.retryDelay):
		}
	}
}

// syncOnce fetches a snapshot, then consumes the event stream until
// the connection drops.
func (a *Agent) syncOnce(ctx context.Context) error {
	snapshot, err := a.fetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	a.setState(snapshot)

	conn, _, err := a.dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", a.wsURL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read failed: %w", err)
		}
		a.applyFrame(frame)
	}
}

func (a *Agent) fetchSnapshot(ctx context.Context) (*models.PublicState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/state", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var state models.PublicState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (a *Agent) setState(state *models.PublicState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	a.notify()
}

func (a *Agent) applyFrame(frame []byte) {
	var msg struct {
		Type    broadcast.EventType `json:"type"`
		Payload json.RawMessage     `json:"payload"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		a.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	a.mu.Lock()
	changed := reduce(&a.state, msg.Type, msg.Payload)
	a.mu.Unlock()
	if changed {
		a.notify()
	}
}

func (a *Agent) notify() {
	if a.onChange == nil {
		return
	}
	if state := a.State(); state != nil {
		a.onChange(*state)
	}
}

// reduce folds one event into the local view. Unrecognized types,
// missing payloads and undecodable payloads leave the state unchanged.
func reduce(state **models.PublicState, eventType broadcast.EventType, payload json.RawMessage) bool {
	if len(payload) == 0 {
		return false
	}

	switch eventType {
	case broadcast.EventInit:
		var next models.PublicState
		if err := json.Unmarshal(payload, &next); err != nil {
			return false
		}
		*state = &next
		return true

	case broadcast.EventMatchUpdate:
		var p struct {
			Match *models.Match                   `json:"match"`
			Teams map[models.TeamSide]models.Team `json:"teams"`
			Games map[string]*models.GameView     `json:"games"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		// A games map means a full-state broadcast: replace everything.
		if p.Games != nil {
			next := &models.PublicState{Games: p.Games, Teams: p.Teams}
			if p.Match != nil {
				next.Match = *p.Match
			}
			if next.Teams == nil {
				next.Teams = make(map[models.TeamSide]models.Team)
			}
			*state = next
			return true
		}
		if *state == nil {
			return false
		}
		if p.Match != nil {
			(*state).Match = *p.Match
		}
		if p.Teams != nil {
			(*state).Teams = p.Teams
		}
		return p.Match != nil || p.Teams != nil

	case broadcast.EventBpUpdate:
		if *state == nil {
			return false
		}
		var p broadcast.BpUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		game := ensureGame(*state, p.GameNo)
		game.Bp = &models.BpPayload{TeamA: p.TeamA, TeamB: p.TeamB}
		if p.Locked != nil {
			game.BpLocked = *p.Locked
		}
		return true

	case broadcast.EventResultUpdate:
		if *state == nil {
			return false
		}
		var p broadcast.ResultUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		game := ensureGame(*state, p.GameNo)
		result := p.ResultPayload
		game.Result = &result
		return true

	case broadcast.EventScoreUpdate:
		if *state == nil {
			return false
		}
		var p broadcast.ScoreUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		(*state).Match.ScoreA = p.ScoreA
		(*state).Match.ScoreB = p.ScoreB
		return true

	case broadcast.EventTimerUpdate:
		if *state == nil {
			return false
		}
		var p broadcast.TimerUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		(*state).Match.TimerBaseSeconds = p.TimerBaseSeconds
		(*state).Match.TimerStartedAt = p.TimerStartedAt
		return true

	default:
		return false
	}
}

func ensureGame(state *models.PublicState, gameNo int) *models.GameView {
	if state.Games == nil {
		state.Games = make(map[string]*models.GameView)
	}
	key := strconv.Itoa(gameNo)
	game, ok := state.Games[key]
	if !ok {
		game = &models.GameView{}
		state.Games[key] = game
	}
	return game
}

func cloneState(state *models.PublicState) *models.PublicState {
	if state == nil {
		return nil
	}
	clone := &models.PublicState{
		Match: state.Match,
		Teams: make(map[models.TeamSide]models.Team, len(state.Teams)),
		Games: make(map[string]*models.GameView, len(state.Games)),
	}
	for side, team := range state.Teams {
		clone.Teams[side] = team
	}
	for key, game := range state.Games {
		copied := *game
		clone.Games[key] = &copied
	}
	return clone
}
