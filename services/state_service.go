package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/repositories"
)

// StateService projects the store into the two externally visible
// views. Both reads are side-effect-free.
type StateService interface {
	PublicState(ctx context.Context) (*models.PublicState, error)
	AdminState(ctx context.Context) (*models.AdminState, error)
}

type stateService struct {
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	gameRepo  repositories.GameRepository
}

func NewStateService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	gameRepo repositories.GameRepository,
) StateService {
	return &stateService{
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		gameRepo:  gameRepo,
	}
}

func (s *stateService) load(ctx context.Context) (*models.Match, map[models.TeamSide]models.Team, []*models.Game, error) {
	match, err := s.matchRepo.Get(ctx, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, nil, ErrMatchNotFound
		}
		return nil, nil, nil, fmt.Errorf("failed to load match: %w", err)
	}

	teamRows, err := s.teamRepo.List(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load teams: %w", err)
	}
	teams := map[models.TeamSide]models.Team{
		models.TeamSideA: {Side: models.TeamSideA},
		models.TeamSideB: {Side: models.TeamSideB},
	}
	for _, team := range teamRows {
		teams[team.Side] = *team
	}

	games, err := s.gameRepo.ListByMatch(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load games: %w", err)
	}

	return match, teams, games, nil
}

func (s *stateService) PublicState(ctx context.Context) (*models.PublicState, error) {
	match, teams, games, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	state := &models.PublicState{
		Match: *match,
		Teams: teams,
		Games: make(map[string]*models.GameView, len(games)),
	}
	for _, game := range games {
		state.Games[strconv.Itoa(game.GameNo)] = &models.GameView{
			Bp:       game.BpPublished,
			BpLocked: game.BpLocked,
			Result:   game.ResultPublished,
		}
	}
	return state, nil
}

func (s *stateService) AdminState(ctx context.Context) (*models.AdminState, error) {
	match, teams, games, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	state := &models.AdminState{
		Match: *match,
		Teams: teams,
		Games: make(map[string]*models.AdminGameView, len(games)),
	}
	for _, game := range games {
		state.Games[strconv.Itoa(game.GameNo)] = &models.AdminGameView{
			GameView: models.GameView{
				Bp:       game.BpPublished,
				BpLocked: game.BpLocked,
				Result:   game.ResultPublished,
			},
			BpDraft:     game.BpDraft,
			ResultDraft: game.ResultDraft,
		}
	}
	return state, nil
}
