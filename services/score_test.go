package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junzhij/esports-tournament-live/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		bestOf int
		scoreA int
		scoreB int
		want   models.MatchStatus
	}{
		{"no wins", 3, 0, 0, models.MatchStatusRunning},
		{"one win short", 3, 1, 1, models.MatchStatusRunning},
		{"side A reaches target", 3, 2, 0, models.MatchStatusFinished},
		{"side B reaches target", 3, 1, 2, models.MatchStatusFinished},
		{"bo5 needs three", 5, 2, 2, models.MatchStatusRunning},
		{"bo5 finished", 5, 3, 1, models.MatchStatusFinished},
		{"bo1 single game", 1, 1, 0, models.MatchStatusFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, deriveStatus(tt.bestOf, tt.scoreA, tt.scoreB))
		})
	}
}

func TestCountPublishedWins(t *testing.T) {
	winA := completeResult(models.TeamSideA)
	winB := completeResult(models.TeamSideB)

	games := []*models.Game{
		{GameNo: 1, ResultPublished: &winA},
		{GameNo: 2, ResultPublished: &winB},
		{GameNo: 3, ResultPublished: nil},
		{GameNo: 4, ResultDraft: &winA}, // drafts never count
	}

	scoreA, scoreB := countPublishedWins(games)
	require.Equal(t, 1, scoreA)
	require.Equal(t, 1, scoreB)
}

func TestRecalcFromPublished(t *testing.T) {
	winA := completeResult(models.TeamSideA)

	games := []*models.Game{
		{GameNo: 1, ResultPublished: &winA},
		{GameNo: 2, ResultPublished: &winA},
		{GameNo: 3},
	}

	scoreA, scoreB, status := recalcFromPublished(games, 3)
	require.Equal(t, 2, scoreA)
	require.Equal(t, 0, scoreB)
	require.Equal(t, models.MatchStatusFinished, status)
}
