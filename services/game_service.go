package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/repositories"
)

const picksPerSide = 5

// GameService owns the per-game draft/publish/lock/rollback lifecycle.
type GameService interface {
	SaveBpDraft(ctx context.Context, gameNo int, payload models.BpPayload) error
	PublishBp(ctx context.Context, gameNo int) error
	LockBp(ctx context.Context, gameNo int) error
	PublishResult(ctx context.Context, gameNo int, payload models.ResultPayload) error
	Rollback(ctx context.Context, gameNo int, kind models.PublishKind) error
	History(ctx context.Context, gameNo int, kind models.PublishKind) ([]*models.PublishRecord, error)
}

type gameService struct {
	db          *sql.DB
	matchRepo   repositories.MatchRepository
	gameRepo    repositories.GameRepository
	historyRepo repositories.PublishHistoryRepository
	bus         Broadcaster
	mu          *sync.Mutex
}

// NewGameService wires the per-game lifecycle. mu is the per-match
// write lock shared with the match service; db is needed because
// publish and rollback span multiple tables in one transaction.
func NewGameService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	gameRepo repositories.GameRepository,
	historyRepo repositories.PublishHistoryRepository,
	bus Broadcaster,
	mu *sync.Mutex,
) GameService {
	return &gameService{
		db:          db,
		matchRepo:   matchRepo,
		gameRepo:    gameRepo,
		historyRepo: historyRepo,
		bus:         bus,
		mu:          mu,
	}
}

func (s *gameService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadGame resolves gameNo against the current best_of, backfilling
// missing game rows first so a freshly-grown series is addressable.
func (s *gameService) loadGame(ctx context.Context, gameNo int) (*models.Match, *models.Game, error) {
	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMatchNotFound, err)
	}
	if gameNo < 1 || gameNo > match.BestOf {
		return nil, nil, newValidationError(fmt.Sprintf("game_no must be between 1 and best_of (%d)", match.BestOf))
	}
	if err := s.gameRepo.EnsureForBestOf(ctx, nil, match.BestOf); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure game rows: %w", err)
	}
	game, err := s.gameRepo.GetByNo(ctx, nil, gameNo)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, fmt.Errorf("failed to load game %d: %w", gameNo, err)
	}
	return match, game, nil
}

func (s *gameService) SaveBpDraft(ctx context.Context, gameNo int, payload models.BpPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, game, err := s.loadGame(ctx, gameNo)
	if err != nil {
		return err
	}
	if game.BpLocked {
		return ErrBpLocked
	}

	var details []string
	if payload.TeamA == nil {
		details = append(details, "teamA is required")
	}
	if payload.TeamB == nil {
		details = append(details, "teamB is required")
	}
	if len(details) > 0 {
		return newValidationError(details...)
	}

	// Drafts are intentionally loose: partial bans/picks are fine, they
	// only have to be complete at publish time.
	if err := s.gameRepo.SaveBpDraft(ctx, nil, gameNo, &payload); err != nil {
		return fmt.Errorf("failed to save ban/pick draft: %w", err)
	}
	return nil
}

func (s *gameService) PublishBp(ctx context.Context, gameNo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, game, err := s.loadGame(ctx, gameNo)
	if err != nil {
		return err
	}
	if game.BpLocked {
		return ErrBpLocked
	}
	if game.BpDraft == nil {
		return ErrNoDraftToPublish
	}
	if details := validateBpForPublish(game.BpDraft, match.BanCount); len(details) > 0 {
		return newValidationError(details...)
	}

	raw, err := json.Marshal(game.BpDraft)
	if err != nil {
		return fmt.Errorf("failed to encode ban/pick payload: %w", err)
	}

	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		version, err := s.historyRepo.NextVersion(ctx, tx, gameNo, models.PublishKindBp)
		if err != nil {
			return fmt.Errorf("failed to allocate publish version: %w", err)
		}
		if err := s.gameRepo.SetBpPublished(ctx, tx, gameNo, raw, now, version); err != nil {
			return fmt.Errorf("failed to publish ban/pick: %w", err)
		}
		return s.historyRepo.Append(ctx, tx, &models.PublishRecord{
			GameNo:    gameNo,
			Kind:      models.PublishKindBp,
			Version:   version,
			Payload:   raw,
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	locked := false
	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventBpUpdate,
		Payload: broadcast.BpUpdatePayload{
			GameNo:      gameNo,
			TeamA:       game.BpDraft.TeamA,
			TeamB:       game.BpDraft.TeamB,
			Locked:      &locked,
			PublishedAt: now,
		},
	})
	return nil
}

func (s *gameService) LockBp(ctx context.Context, gameNo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, game, err := s.loadGame(ctx, gameNo)
	if err != nil {
		return err
	}

	// One-way and idempotent: locking an already locked game succeeds.
	if err := s.gameRepo.SetBpLocked(ctx, nil, gameNo); err != nil {
		return fmt.Errorf("failed to lock ban/pick: %w", err)
	}

	// Viewers only ever see published data, so there is nothing to
	// announce until something has been published.
	if game.BpPublished == nil || game.BpPublishedAt == nil {
		return nil
	}
	locked := true
	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventBpUpdate,
		Payload: broadcast.BpUpdatePayload{
			GameNo:      gameNo,
			TeamA:       game.BpPublished.TeamA,
			TeamB:       game.BpPublished.TeamB,
			Locked:      &locked,
			PublishedAt: *game.BpPublishedAt,
		},
	})
	return nil
}

func (s *gameService) PublishResult(ctx context.Context, gameNo int, payload models.ResultPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, _, err := s.loadGame(ctx, gameNo)
	if err != nil {
		return err
	}
	if details := validateResult(payload); len(details) > 0 {
		return newValidationError(details...)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode result payload: %w", err)
	}

	now := time.Now().UTC()
	var scoreA, scoreB int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		version, err := s.historyRepo.NextVersion(ctx, tx, gameNo, models.PublishKindResult)
		if err != nil {
			return fmt.Errorf("failed to allocate publish version: %w", err)
		}
		if err := s.gameRepo.SetResultDraftAndPublished(ctx, tx, gameNo, raw, now, version); err != nil {
			return fmt.Errorf("failed to publish result: %w", err)
		}
		if err := s.historyRepo.Append(ctx, tx, &models.PublishRecord{
			GameNo:    gameNo,
			Kind:      models.PublishKindResult,
			Version:   version,
			Payload:   raw,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		games, err := s.gameRepo.ListByMatch(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to load games for score recompute: %w", err)
		}
		var status models.MatchStatus
		scoreA, scoreB, status = recalcFromPublished(games, match.BestOf)
		return s.matchRepo.UpdateScore(ctx, tx, scoreA, scoreB, status, now)
	})
	if err != nil {
		return err
	}

	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventResultUpdate,
		Payload: broadcast.ResultUpdatePayload{
			GameNo:        gameNo,
			ResultPayload: payload,
		},
	})
	s.bus.Broadcast(broadcast.Message{
		Type:    broadcast.EventScoreUpdate,
		Payload: broadcast.ScoreUpdatePayload{ScoreA: scoreA, ScoreB: scoreB},
	})
	return nil
}

func (s *gameService) Rollback(ctx context.Context, gameNo int, kind models.PublishKind) error {
	if !kind.Valid() {
		return newValidationError("kind must be bp or result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, game, err := s.loadGame(ctx, gameNo)
	if err != nil {
		return err
	}

	current := game.BpPublishedVersion
	if kind == models.PublishKindResult {
		current = game.ResultPublishedVersion
	}
	if current == 0 {
		return ErrNothingPublished
	}
	if current <= 1 {
		return ErrNoEarlierSnapshot
	}

	target := current - 1
	record, err := s.historyRepo.GetVersion(ctx, nil, gameNo, kind, target)
	if err != nil {
		if errors.Is(err, repositories.ErrPublishRecordNotFound) {
			return ErrNoEarlierSnapshot
		}
		return fmt.Errorf("failed to load snapshot version %d: %w", target, err)
	}

	now := time.Now().UTC()
	if kind == models.PublishKindBp {
		if err := s.gameRepo.SetBpPublished(ctx, nil, gameNo, record.Payload, now, target); err != nil {
			return fmt.Errorf("failed to roll back ban/pick: %w", err)
		}
		var restored models.BpPayload
		if err := json.Unmarshal(record.Payload, &restored); err != nil {
			return fmt.Errorf("corrupt snapshot version %d: %w", target, err)
		}
		// Locked is deliberately unset: rollback restores content, the
		// lock flag keeps whatever value viewers already hold.
		s.bus.Broadcast(broadcast.Message{
			Type: broadcast.EventBpUpdate,
			Payload: broadcast.BpUpdatePayload{
				GameNo:      gameNo,
				TeamA:       restored.TeamA,
				TeamB:       restored.TeamB,
				PublishedAt: now,
			},
		})
		return nil
	}

	var restored models.ResultPayload
	if err := json.Unmarshal(record.Payload, &restored); err != nil {
		return fmt.Errorf("corrupt snapshot version %d: %w", target, err)
	}

	var scoreA, scoreB int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.gameRepo.SetResultPublished(ctx, tx, gameNo, record.Payload, now, target); err != nil {
			return fmt.Errorf("failed to roll back result: %w", err)
		}
		games, err := s.gameRepo.ListByMatch(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to load games for score recompute: %w", err)
		}
		var status models.MatchStatus
		scoreA, scoreB, status = recalcFromPublished(games, match.BestOf)
		return s.matchRepo.UpdateScore(ctx, tx, scoreA, scoreB, status, now)
	})
	if err != nil {
		return err
	}

	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventResultUpdate,
		Payload: broadcast.ResultUpdatePayload{
			GameNo:        gameNo,
			ResultPayload: restored,
		},
	})
	s.bus.Broadcast(broadcast.Message{
		Type:    broadcast.EventScoreUpdate,
		Payload: broadcast.ScoreUpdatePayload{ScoreA: scoreA, ScoreB: scoreB},
	})
	return nil
}

func (s *gameService) History(ctx context.Context, gameNo int, kind models.PublishKind) ([]*models.PublishRecord, error) {
	if !kind.Valid() {
		return nil, newValidationError("kind must be bp or result")
	}
	if _, _, err := s.loadGame(ctx, gameNo); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByGame(ctx, nil, gameNo, kind)
}

// validateBpForPublish applies the publish-time constraints a draft is
// allowed to violate: exact ban count, exactly five complete picks per
// side. All violations are reported, not just the first.
func validateBpForPublish(payload *models.BpPayload, banCount int) []string {
	details := validateBpSide("teamA", payload.TeamA, banCount)
	return append(details, validateBpSide("teamB", payload.TeamB, banCount)...)
}

func validateBpSide(label string, side *models.BpTeamPayload, banCount int) []string {
	if side == nil {
		return []string{label + " is required"}
	}
	var details []string
	if len(side.Bans) != banCount {
		details = append(details, fmt.Sprintf("%s bans length must be %d", label, banCount))
	}
	for i, ban := range side.Bans {
		if isBlank(ban) {
			details = append(details, fmt.Sprintf("%s bans[%d] must be non-empty", label, i))
		}
	}
	if len(side.Picks) != picksPerSide {
		details = append(details, fmt.Sprintf("%s picks length must be %d", label, picksPerSide))
	}
	for i, pick := range side.Picks {
		if isBlank(pick.Pos) || isBlank(pick.Hero) || isBlank(pick.Player) {
			details = append(details, fmt.Sprintf("%s picks[%d] must include pos, hero and player", label, i))
		}
	}
	return details
}

func validateResult(payload models.ResultPayload) []string {
	var details []string
	if !payload.Winner.Valid() {
		details = append(details, "winner must be A or B")
	}
	if isBlank(payload.Mvp.Player) || isBlank(payload.Mvp.Hero) || isBlank(payload.Mvp.KDA) {
		details = append(details, "mvp player, hero and kda are required")
	}
	if isBlank(payload.KeyStats.DamageShare) || isBlank(payload.KeyStats.DamageTakenShare) || isBlank(payload.KeyStats.Participation) {
		details = append(details, "key_stats damage_share, damage_taken_share and participation are required")
	}
	return details
}
