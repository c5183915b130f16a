package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/models"
)

func TestSaveBpDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("partial draft is accepted", func(t *testing.T) {
		draft := models.BpPayload{
			TeamA: &models.BpTeamPayload{Bans: []string{"only-one"}},
			TeamB: &models.BpTeamPayload{},
		}
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, draft))

		game, err := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, err)
		require.NotNil(t, game.BpDraft)
		require.Equal(t, []string{"only-one"}, game.BpDraft.TeamA.Bans)
	})

	t.Run("draft saves emit no broadcast", func(t *testing.T) {
		env.bus.reset()
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, completeBp()))
		require.Empty(t, env.bus.all())
	})

	t.Run("missing sides are rejected", func(t *testing.T) {
		err := env.game.SaveBpDraft(ctx, 1, models.BpPayload{})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Details, "teamA is required")
		require.Contains(t, validationErr.Details, "teamB is required")
	})

	t.Run("game number beyond best_of is rejected", func(t *testing.T) {
		err := env.game.SaveBpDraft(ctx, 4, completeBp())
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestPublishBp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("no draft is a conflict", func(t *testing.T) {
		require.ErrorIs(t, env.game.PublishBp(ctx, 2), ErrNoDraftToPublish)
	})

	t.Run("incomplete draft reports every violation and mutates nothing", func(t *testing.T) {
		draft := completeBp()
		draft.TeamA.Bans = draft.TeamA.Bans[:2]   // one ban short
		draft.TeamB.Picks = draft.TeamB.Picks[:4] // one pick short
		draft.TeamA.Picks[0].Player = ""          // incomplete pick
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, draft))

		err := env.game.PublishBp(ctx, 1)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Details, "teamA bans length must be 3")
		require.Contains(t, validationErr.Details, "teamB picks length must be 5")
		require.Contains(t, validationErr.Details, "teamA picks[0] must include pos, hero and player")

		game, getErr := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, getErr)
		require.Nil(t, game.BpPublished)
		require.Zero(t, game.BpPublishedVersion)
	})

	t.Run("publish copies draft, appends history and broadcasts", func(t *testing.T) {
		env.bus.reset()
		draft := completeBp()
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, draft))
		require.NoError(t, env.game.PublishBp(ctx, 1))

		game, err := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, err)
		require.NotNil(t, game.BpPublished)
		require.Equal(t, draft.TeamA.Bans, game.BpPublished.TeamA.Bans)
		require.Equal(t, 1, game.BpPublishedVersion)
		require.NotNil(t, game.BpPublishedAt)
		require.False(t, game.BpLocked)

		records, err := env.historyRepo.ListByGame(ctx, nil, 1, models.PublishKindBp)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, 1, records[0].Version)

		messages := env.bus.all()
		require.Len(t, messages, 1)
		require.Equal(t, broadcast.EventBpUpdate, messages[0].Type)
		payload, ok := messages[0].Payload.(broadcast.BpUpdatePayload)
		require.True(t, ok)
		require.Equal(t, 1, payload.GameNo)
		require.NotNil(t, payload.Locked)
		require.False(t, *payload.Locked)
	})

	t.Run("republish allocates the next version", func(t *testing.T) {
		draft := completeBp()
		draft.TeamA.Bans[0] = "different-ban"
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, draft))
		require.NoError(t, env.game.PublishBp(ctx, 1))

		game, err := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, err)
		require.Equal(t, 2, game.BpPublishedVersion)

		records, err := env.historyRepo.ListByGame(ctx, nil, 1, models.PublishKindBp)
		require.NoError(t, err)
		require.Len(t, records, 2)
		// Newest first.
		require.Equal(t, 2, records[0].Version)
	})
}

func TestLockBp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("lock without publish broadcasts nothing", func(t *testing.T) {
		env.bus.reset()
		require.NoError(t, env.game.LockBp(ctx, 2))
		require.Empty(t, env.bus.all())

		game, err := env.gameRepo.GetByNo(ctx, nil, 2)
		require.NoError(t, err)
		require.True(t, game.BpLocked)
	})

	t.Run("locked absorbs draft saves and publishes for any payload", func(t *testing.T) {
		require.ErrorIs(t, env.game.SaveBpDraft(ctx, 2, completeBp()), ErrBpLocked)
		require.ErrorIs(t, env.game.PublishBp(ctx, 2), ErrBpLocked)
	})

	t.Run("lock is idempotent", func(t *testing.T) {
		require.NoError(t, env.game.LockBp(ctx, 2))
		require.NoError(t, env.game.LockBp(ctx, 2))
	})

	t.Run("lock after publish broadcasts locked=true", func(t *testing.T) {
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, completeBp()))
		require.NoError(t, env.game.PublishBp(ctx, 1))

		env.bus.reset()
		require.NoError(t, env.game.LockBp(ctx, 1))
		messages := env.bus.all()
		require.Len(t, messages, 1)
		payload, ok := messages[0].Payload.(broadcast.BpUpdatePayload)
		require.True(t, ok)
		require.NotNil(t, payload.Locked)
		require.True(t, *payload.Locked)
	})
}

func TestPublishResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("violations are collected", func(t *testing.T) {
		err := env.game.PublishResult(ctx, 1, models.ResultPayload{Winner: "C"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Len(t, validationErr.Details, 3)
		require.Contains(t, validationErr.Details, "winner must be A or B")
	})

	t.Run("publish writes draft and published, recomputes score", func(t *testing.T) {
		env.bus.reset()
		require.NoError(t, env.game.PublishResult(ctx, 1, completeResult(models.TeamSideA)))

		game, err := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, err)
		require.NotNil(t, game.ResultDraft)
		require.NotNil(t, game.ResultPublished)
		require.Equal(t, models.TeamSideA, game.ResultPublished.Winner)
		require.Equal(t, 1, game.ResultPublishedVersion)

		match, err := env.matchRepo.Get(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 1, match.ScoreA)
		require.Equal(t, 0, match.ScoreB)
		require.Equal(t, models.MatchStatusRunning, match.Status)

		messages := env.bus.all()
		require.Len(t, messages, 2)
		require.Equal(t, broadcast.EventResultUpdate, messages[0].Type)
		require.Equal(t, broadcast.EventScoreUpdate, messages[1].Type)
	})

	t.Run("reaching the win target finishes the match", func(t *testing.T) {
		require.NoError(t, env.game.PublishResult(ctx, 2, completeResult(models.TeamSideA)))

		match, err := env.matchRepo.Get(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 2, match.ScoreA)
		require.Equal(t, models.MatchStatusFinished, match.Status)

		// A further result for the remaining game does not move the
		// status away from finished.
		require.NoError(t, env.game.PublishResult(ctx, 3, completeResult(models.TeamSideB)))
		match, err = env.matchRepo.Get(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, models.MatchStatusFinished, match.Status)
	})
}

func TestRollback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("invalid kind", func(t *testing.T) {
		var validationErr *ValidationError
		require.ErrorAs(t, env.game.Rollback(ctx, 1, "nope"), &validationErr)
	})

	t.Run("nothing published is a conflict", func(t *testing.T) {
		require.ErrorIs(t, env.game.Rollback(ctx, 1, models.PublishKindBp), ErrNothingPublished)
	})

	t.Run("single snapshot is a conflict", func(t *testing.T) {
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, completeBp()))
		require.NoError(t, env.game.PublishBp(ctx, 1))
		require.ErrorIs(t, env.game.Rollback(ctx, 1, models.PublishKindBp), ErrNoEarlierSnapshot)
	})

	t.Run("bp rollback restores the previous snapshot without touching history", func(t *testing.T) {
		second := completeBp()
		second.TeamA.Bans[0] = "second-ban"
		require.NoError(t, env.game.SaveBpDraft(ctx, 1, second))
		require.NoError(t, env.game.PublishBp(ctx, 1))

		env.bus.reset()
		require.NoError(t, env.game.Rollback(ctx, 1, models.PublishKindBp))

		game, err := env.gameRepo.GetByNo(ctx, nil, 1)
		require.NoError(t, err)
		require.Equal(t, 1, game.BpPublishedVersion)
		require.Equal(t, completeBp().TeamA.Bans, game.BpPublished.TeamA.Bans)

		records, err := env.historyRepo.ListByGame(ctx, nil, 1, models.PublishKindBp)
		require.NoError(t, err)
		require.Len(t, records, 2)

		messages := env.bus.all()
		require.Len(t, messages, 1)
		payload, ok := messages[0].Payload.(broadcast.BpUpdatePayload)
		require.True(t, ok)
		// Lock state is unspecified on rollback: viewers keep theirs.
		require.Nil(t, payload.Locked)
	})

	t.Run("rolling back past the first snapshot is a conflict", func(t *testing.T) {
		require.ErrorIs(t, env.game.Rollback(ctx, 1, models.PublishKindBp), ErrNoEarlierSnapshot)
	})

	t.Run("result rollback recomputes score and status", func(t *testing.T) {
		require.NoError(t, env.game.PublishResult(ctx, 1, completeResult(models.TeamSideA)))
		require.NoError(t, env.game.PublishResult(ctx, 2, completeResult(models.TeamSideA)))
		// Correct game 2: B actually won it.
		require.NoError(t, env.game.PublishResult(ctx, 2, completeResult(models.TeamSideB)))

		match, err := env.matchRepo.Get(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 1, match.ScoreA)
		require.Equal(t, 1, match.ScoreB)
		require.Equal(t, models.MatchStatusRunning, match.Status)

		env.bus.reset()
		// Roll game 2 back to the A win.
		require.NoError(t, env.game.Rollback(ctx, 2, models.PublishKindResult))

		match, err = env.matchRepo.Get(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 2, match.ScoreA)
		require.Equal(t, 0, match.ScoreB)
		require.Equal(t, models.MatchStatusFinished, match.Status)

		messages := env.bus.all()
		require.Len(t, messages, 2)
		require.Equal(t, broadcast.EventResultUpdate, messages[0].Type)
		require.Equal(t, broadcast.EventScoreUpdate, messages[1].Type)

		game, err := env.gameRepo.GetByNo(ctx, nil, 2)
		require.NoError(t, err)
		require.Equal(t, models.TeamSideA, game.ResultPublished.Winner)
		// The draft keeps the last admin edit; rollback only moves the
		// published side.
		require.Equal(t, models.TeamSideB, game.ResultDraft.Winner)
	})
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("invalid kind", func(t *testing.T) {
		var validationErr *ValidationError
		_, err := env.game.History(ctx, 1, "nope")
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("newest first", func(t *testing.T) {
		require.NoError(t, env.game.PublishResult(ctx, 1, completeResult(models.TeamSideA)))
		require.NoError(t, env.game.PublishResult(ctx, 1, completeResult(models.TeamSideB)))

		records, err := env.game.History(ctx, 1, models.PublishKindResult)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, 2, records[0].Version)
		require.Equal(t, 1, records[1].Version)
	})
}
