package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junzhij/esports-tournament-live/db"
	"github.com/junzhij/esports-tournament-live/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Connect(":memory:", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

func TestEnsureForBestOfIdempotent(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteGameRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.EnsureForBestOf(ctx, nil, 3))
	games, err := repo.ListByMatch(ctx, nil)
	require.NoError(t, err)
	require.Len(t, games, 3)

	// A second run creates nothing new.
	require.NoError(t, repo.EnsureForBestOf(ctx, nil, 3))
	games, err = repo.ListByMatch(ctx, nil)
	require.NoError(t, err)
	require.Len(t, games, 3)

	// Growing adds only the missing rows, never touches existing ones.
	require.NoError(t, repo.SaveBpDraft(ctx, nil, 2, &models.BpPayload{
		TeamA: &models.BpTeamPayload{Bans: []string{"x"}},
		TeamB: &models.BpTeamPayload{},
	}))
	require.NoError(t, repo.EnsureForBestOf(ctx, nil, 5))
	games, err = repo.ListByMatch(ctx, nil)
	require.NoError(t, err)
	require.Len(t, games, 5)

	game, err := repo.GetByNo(ctx, nil, 2)
	require.NoError(t, err)
	require.NotNil(t, game.BpDraft)
	require.Equal(t, []string{"x"}, game.BpDraft.TeamA.Bans)
}

func TestGameNotFound(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteGameRepository(conn)
	ctx := context.Background()

	_, err := repo.GetByNo(ctx, nil, 1)
	require.ErrorIs(t, err, ErrGameNotFound)

	err = repo.SetBpLocked(ctx, nil, 1)
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestPublishedRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLiteGameRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.EnsureForBestOf(ctx, nil, 1))

	at := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.SetBpPublished(ctx, nil, 1, []byte(`{"teamA":{"bans":["a"],"picks":[]},"teamB":{"bans":[],"picks":[]}}`), at, 2))

	game, err := repo.GetByNo(ctx, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, game.BpPublished)
	require.Equal(t, []string{"a"}, game.BpPublished.TeamA.Bans)
	require.Equal(t, 2, game.BpPublishedVersion)
	require.NotNil(t, game.BpPublishedAt)
	require.True(t, game.BpPublishedAt.Equal(at))
}
