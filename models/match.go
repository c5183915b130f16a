package models

import "time"

// LiveMatchID is the row id of the single active match. The system holds
// exactly one match at a time; every repository addresses this row.
const LiveMatchID = 1

type MatchStatus string

const (
	MatchStatusRunning  MatchStatus = "running"
	MatchStatusFinished MatchStatus = "finished"
)

func (s MatchStatus) Valid() bool {
	return s == MatchStatusRunning || s == MatchStatusFinished
}

type Match struct {
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	StreamURL        string      `json:"stream_url"`
	BestOf           int         `json:"best_of"`
	BanCount         int         `json:"ban_count"`
	CurrentGameNo    int         `json:"current_game_no"`
	Status           MatchStatus `json:"status"`
	ScoreA           int         `json:"score_a"`
	ScoreB           int         `json:"score_b"`
	TimerBaseSeconds int         `json:"timer_base_seconds"`
	TimerStartedAt   *time.Time  `json:"timer_started_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// WinTarget is the number of game wins that finishes the match.
func (m *Match) WinTarget() int {
	return (m.BestOf + 1) / 2
}

// TimerSeconds returns the display value of the match timer at the given
// instant: the persisted base plus the elapsed time since the last reset.
// The timer is never persisted per tick.
func (m *Match) TimerSeconds(now time.Time) int {
	total := m.TimerBaseSeconds
	if m.TimerStartedAt != nil {
		elapsed := int(now.Sub(*m.TimerStartedAt).Seconds())
		if elapsed > 0 {
			total += elapsed
		}
	}
	return total
}
