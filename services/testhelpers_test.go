package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/db"
	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/repositories"
)

// fakeBus records broadcast messages in order.
type fakeBus struct {
	mu       sync.Mutex
	messages []broadcast.Message
}

func (b *fakeBus) Broadcast(msg broadcast.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *fakeBus) all() []broadcast.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcast.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

func (b *fakeBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

type testEnv struct {
	conn        *sql.DB
	matchRepo   repositories.MatchRepository
	teamRepo    repositories.TeamRepository
	gameRepo    repositories.GameRepository
	historyRepo repositories.PublishHistoryRepository
	bus         *fakeBus

	state StateService
	match MatchService
	game  GameService
}

// newTestEnv gives every test a fresh in-memory store seeded with the
// default best_of=3 / ban_count=3 match.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.Connect(":memory:", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, conn))

	env := &testEnv{
		conn:        conn,
		matchRepo:   repositories.NewSQLiteMatchRepository(conn),
		teamRepo:    repositories.NewSQLiteTeamRepository(conn),
		gameRepo:    repositories.NewSQLiteGameRepository(conn),
		historyRepo: repositories.NewSQLitePublishHistoryRepository(conn),
		bus:         &fakeBus{},
	}

	now := time.Now().UTC()
	require.NoError(t, env.matchRepo.Create(ctx, nil, &models.Match{
		ID:            models.LiveMatchID,
		Title:         "Test Match",
		BestOf:        3,
		BanCount:      3,
		CurrentGameNo: 1,
		Status:        models.MatchStatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
	require.NoError(t, env.teamRepo.Create(ctx, nil, &models.Team{Side: models.TeamSideA, Name: "Team A", Color: "#E53935"}))
	require.NoError(t, env.teamRepo.Create(ctx, nil, &models.Team{Side: models.TeamSideB, Name: "Team B", Color: "#1E88E5"}))
	require.NoError(t, env.gameRepo.EnsureForBestOf(ctx, nil, 3))

	var mu sync.Mutex
	env.state = NewStateService(env.matchRepo, env.teamRepo, env.gameRepo)
	env.match = NewMatchService(env.matchRepo, env.teamRepo, env.gameRepo, env.bus, nil, &mu)
	env.game = NewGameService(conn, env.matchRepo, env.gameRepo, env.historyRepo, env.bus, &mu)

	return env
}

// completeBp is a draft that passes every publish-time constraint for
// ban_count=3.
func completeBp() models.BpPayload {
	side := func(prefix string) *models.BpTeamPayload {
		payload := &models.BpTeamPayload{
			Bans: []string{prefix + "-ban1", prefix + "-ban2", prefix + "-ban3"},
		}
		positions := []string{"top", "jungle", "mid", "adc", "support"}
		for i, pos := range positions {
			payload.Picks = append(payload.Picks, models.BpPick{
				Pos:    pos,
				Hero:   prefix + "-hero" + pos,
				Player: prefix + "-player" + string(rune('1'+i)),
			})
		}
		return payload
	}
	return models.BpPayload{TeamA: side("a"), TeamB: side("b")}
}

func completeResult(winner models.TeamSide) models.ResultPayload {
	return models.ResultPayload{
		Winner: winner,
		Mvp:    models.ResultMvp{Player: "player1", Hero: "hero1", KDA: "5/1/7"},
		KeyStats: models.ResultKeyStats{
			DamageShare:      "31.2%",
			DamageTakenShare: "18.4%",
			Participation:    "72%",
		},
		HighlightText: "clean sweep mid",
	}
}
