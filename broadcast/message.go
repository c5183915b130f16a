package broadcast

import (
	"time"

	"github.com/junzhij/esports-tournament-live/models"
)

type EventType string

const (
	EventInit         EventType = "init"
	EventMatchUpdate  EventType = "match_update"
	EventBpUpdate     EventType = "bp_update"
	EventResultUpdate EventType = "result_update"
	EventScoreUpdate  EventType = "score_update"
	EventTimerUpdate  EventType = "timer_update"
)

// Message is one server-to-viewer frame. The channel is receive-only
// from the viewer's perspective.
type Message struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// MatchUpdatePayload carries refreshed match and team data. When Games
// is set (startup full-state broadcast) viewers replace their entire
// local state; otherwise they merge match/teams only.
type MatchUpdatePayload struct {
	Match *models.Match                   `json:"match,omitempty"`
	Teams map[models.TeamSide]models.Team `json:"teams,omitempty"`
	Games map[string]*models.GameView     `json:"games,omitempty"`
}

// BpUpdatePayload announces a (re)published ban/pick. Locked is a
// tri-state: nil leaves the viewer's lock flag untouched.
type BpUpdatePayload struct {
	GameNo      int                   `json:"game_no"`
	TeamA       *models.BpTeamPayload `json:"teamA"`
	TeamB       *models.BpTeamPayload `json:"teamB"`
	Locked      *bool                 `json:"locked,omitempty"`
	PublishedAt time.Time             `json:"published_at"`
}

type ResultUpdatePayload struct {
	GameNo int `json:"game_no"`
	models.ResultPayload
}

type ScoreUpdatePayload struct {
	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`
}

type TimerUpdatePayload struct {
	TimerBaseSeconds int        `json:"timer_base_seconds"`
	TimerStartedAt   *time.Time `json:"timer_started_at"`
}
