package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/repositories"
	"github.com/junzhij/esports-tournament-live/storage"
)

// Broadcaster is the write side of the fan-out bus. Delivery is
// best-effort and must never fail the mutation that triggered it.
type Broadcaster interface {
	Broadcast(msg broadcast.Message)
}

// MatchConfigInput is a partial match config update; nil fields are
// left unchanged. At least one field must be present.
type MatchConfigInput struct {
	Title         *string `json:"title"`
	StreamURL     *string `json:"stream_url"`
	BestOf        *int    `json:"best_of"`
	BanCount      *int    `json:"ban_count"`
	CurrentGameNo *int    `json:"current_game_no"`
	Status        *string `json:"status"`
}

type ScoreInput struct {
	ScoreA *int `json:"score_a"`
	ScoreB *int `json:"score_b"`
}

type TimerResetInput struct {
	BaseSeconds *int `json:"base_seconds"`
}

type TeamUpdateInput struct {
	Name    *string `json:"name"`
	LogoURL *string `json:"logo_url"`
	Color   *string `json:"color"`
}

// MatchService owns the match-level mutations: config, manual score,
// timer and team identity.
type MatchService interface {
	UpdateConfig(ctx context.Context, input MatchConfigInput) error
	SetScore(ctx context.Context, input ScoreInput) error
	ResetTimer(ctx context.Context, input TimerResetInput) error
	UpdateTeam(ctx context.Context, side models.TeamSide, input TeamUpdateInput) error
	UploadTeamLogo(ctx context.Context, side models.TeamSide, file io.Reader, contentType string) (*models.Team, error)
}

type matchService struct {
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	gameRepo  repositories.GameRepository
	bus       Broadcaster
	uploader  storage.FileUploader
	mu        *sync.Mutex
}

// NewMatchService wires the match-level mutation handlers. mu is the
// per-match write lock shared with the game service; uploader may be
// nil when logo storage is not configured.
func NewMatchService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	gameRepo repositories.GameRepository,
	bus Broadcaster,
	uploader storage.FileUploader,
	mu *sync.Mutex,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		gameRepo:  gameRepo,
		bus:       bus,
		uploader:  uploader,
		mu:        mu,
	}
}

func (s *matchService) UpdateConfig(ctx context.Context, input MatchConfigInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMatchNotFound, err)
	}

	var details []string
	upd := repositories.MatchUpdate{
		Title:     input.Title,
		StreamURL: input.StreamURL,
	}
	if input.BestOf != nil {
		if *input.BestOf < 1 {
			details = append(details, "best_of must be a positive integer")
		}
		upd.BestOf = input.BestOf
	}
	if input.BanCount != nil {
		if *input.BanCount < 1 {
			details = append(details, "ban_count must be a positive integer")
		}
		upd.BanCount = input.BanCount
	}
	if input.CurrentGameNo != nil {
		bestOf := match.BestOf
		if input.BestOf != nil {
			bestOf = *input.BestOf
		}
		if *input.CurrentGameNo < 1 {
			details = append(details, "current_game_no must be a positive integer")
		} else if *input.CurrentGameNo > bestOf {
			details = append(details, fmt.Sprintf("current_game_no exceeds best_of (%d)", bestOf))
		}
		upd.CurrentGameNo = input.CurrentGameNo
	}
	if input.Status != nil {
		status := models.MatchStatus(*input.Status)
		if !status.Valid() {
			details = append(details, "status must be running or finished")
		}
		upd.Status = &status
	}
	if upd.Empty() {
		details = append(details, "no fields to update")
	}
	if len(details) > 0 {
		return newValidationError(details...)
	}

	if err := s.matchRepo.Update(ctx, nil, upd, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update match config: %w", err)
	}

	// best_of may have grown; backfill the game rows.
	refreshed, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to reload match: %w", err)
	}
	if err := s.gameRepo.EnsureForBestOf(ctx, nil, refreshed.BestOf); err != nil {
		return fmt.Errorf("failed to ensure game rows: %w", err)
	}

	return s.broadcastMatchUpdate(ctx, refreshed)
}

func (s *matchService) SetScore(ctx context.Context, input ScoreInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var details []string
	if input.ScoreA == nil || *input.ScoreA < 0 {
		details = append(details, "score_a must be a non-negative integer")
	}
	if input.ScoreB == nil || *input.ScoreB < 0 {
		details = append(details, "score_b must be a non-negative integer")
	}
	if len(details) > 0 {
		return newValidationError(details...)
	}

	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMatchNotFound, err)
	}

	// Manual override: status is derived from the given scores, not
	// recomputed from published results.
	scoreA, scoreB := *input.ScoreA, *input.ScoreB
	status := deriveStatus(match.BestOf, scoreA, scoreB)
	if err := s.matchRepo.UpdateScore(ctx, nil, scoreA, scoreB, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set score: %w", err)
	}

	s.bus.Broadcast(broadcast.Message{
		Type:    broadcast.EventScoreUpdate,
		Payload: broadcast.ScoreUpdatePayload{ScoreA: scoreA, ScoreB: scoreB},
	})

	refreshed, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to reload match: %w", err)
	}
	return s.broadcastMatchUpdate(ctx, refreshed)
}

func (s *matchService) ResetTimer(ctx context.Context, input TimerResetInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseSeconds := 0
	if input.BaseSeconds != nil {
		baseSeconds = *input.BaseSeconds
	}
	if baseSeconds < 0 {
		return newValidationError("base_seconds must be a non-negative integer")
	}

	now := time.Now().UTC()
	if err := s.matchRepo.UpdateTimer(ctx, nil, baseSeconds, now, now); err != nil {
		return fmt.Errorf("failed to reset timer: %w", err)
	}

	startedAt := now
	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventTimerUpdate,
		Payload: broadcast.TimerUpdatePayload{
			TimerBaseSeconds: baseSeconds,
			TimerStartedAt:   &startedAt,
		},
	})

	refreshed, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to reload match: %w", err)
	}
	return s.broadcastMatchUpdate(ctx, refreshed)
}

func (s *matchService) UpdateTeam(ctx context.Context, side models.TeamSide, input TeamUpdateInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var details []string
	if !side.Valid() {
		details = append(details, "side must be A or B")
	}
	upd := repositories.TeamUpdate{
		Name:    input.Name,
		LogoURL: input.LogoURL,
		Color:   input.Color,
	}
	if upd.Empty() {
		details = append(details, "no fields to update")
	}
	if len(details) > 0 {
		return newValidationError(details...)
	}

	if err := s.teamRepo.Update(ctx, nil, side, upd); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to update team %s: %w", side, err)
	}

	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to reload match: %w", err)
	}
	return s.broadcastMatchUpdate(ctx, match)
}

func (s *matchService) UploadTeamLogo(ctx context.Context, side models.TeamSide, file io.Reader, contentType string) (*models.Team, error) {
	if !side.Valid() {
		return nil, newValidationError("side must be A or B")
	}
	if s.uploader == nil {
		return nil, ErrLogoStorageNotConfigured
	}

	ext, err := extensionForContentType(contentType)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	key := fmt.Sprintf("teams/%s/logo-%d%s", side, time.Now().UnixNano(), ext)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logoURL := uploaded.Location
	if err := s.teamRepo.Update(ctx, nil, side, repositories.TeamUpdate{LogoURL: &logoURL}); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to store team logo url: %w", err)
	}

	team, err := s.teamRepo.Get(ctx, nil, side)
	if err != nil {
		return nil, fmt.Errorf("failed to reload team %s: %w", side, err)
	}

	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reload match: %w", err)
	}
	if err := s.broadcastMatchUpdate(ctx, match); err != nil {
		return nil, err
	}
	return team, nil
}

// broadcastMatchUpdate emits the refreshed match+teams (no games map,
// so viewers merge instead of replacing).
func (s *matchService) broadcastMatchUpdate(ctx context.Context, match *models.Match) error {
	teamRows, err := s.teamRepo.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	teams := make(map[models.TeamSide]models.Team, len(teamRows))
	for _, team := range teamRows {
		teams[team.Side] = *team
	}

	s.bus.Broadcast(broadcast.Message{
		Type: broadcast.EventMatchUpdate,
		Payload: broadcast.MatchUpdatePayload{
			Match: match,
			Teams: teams,
		},
	})
	return nil
}
