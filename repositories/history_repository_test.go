package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junzhij/esports-tournament-live/models"
)

func TestPublishHistoryVersioning(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLitePublishHistoryRepository(conn)
	ctx := context.Background()

	version, err := repo.NextVersion(ctx, nil, 1, models.PublishKindBp)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	now := time.Now().UTC()
	require.NoError(t, repo.Append(ctx, nil, &models.PublishRecord{
		GameNo:    1,
		Kind:      models.PublishKindBp,
		Version:   1,
		Payload:   []byte(`{"teamA":null,"teamB":null}`),
		CreatedAt: now,
	}))

	// Versions are per (game, kind) chain.
	version, err = repo.NextVersion(ctx, nil, 1, models.PublishKindBp)
	require.NoError(t, err)
	require.Equal(t, 2, version)

	version, err = repo.NextVersion(ctx, nil, 1, models.PublishKindResult)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	version, err = repo.NextVersion(ctx, nil, 2, models.PublishKindBp)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	record, err := repo.GetVersion(ctx, nil, 1, models.PublishKindBp, 1)
	require.NoError(t, err)
	require.Equal(t, 1, record.Version)
	require.JSONEq(t, `{"teamA":null,"teamB":null}`, string(record.Payload))

	_, err = repo.GetVersion(ctx, nil, 1, models.PublishKindBp, 7)
	require.ErrorIs(t, err, ErrPublishRecordNotFound)
}
