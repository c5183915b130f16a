package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/config"
	"github.com/junzhij/esports-tournament-live/db"
	"github.com/junzhij/esports-tournament-live/handlers"
	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/repositories"
	api "github.com/junzhij/esports-tournament-live/routes"
	"github.com/junzhij/esports-tournament-live/services"
	"github.com/junzhij/esports-tournament-live/storage"
)

const (
	defaultBestOf   = 3
	defaultBanCount = 3
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("db_path", cfg.DBPath))

	dbConn, err := db.Connect(cfg.DBPath, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()

	ctx := context.Background()
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database ready")

	var uploader storage.FileUploader
	if cfg.R2 != nil {
		uploader, err = storage.NewCloudflareR2Uploader(*cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("logo storage not configured, uploads disabled")
	}

	hub := broadcast.NewHub(logger)
	go hub.Run()

	matchRepo := repositories.NewSQLiteMatchRepository(dbConn)
	teamRepo := repositories.NewSQLiteTeamRepository(dbConn)
	gameRepo := repositories.NewSQLiteGameRepository(dbConn)
	historyRepo := repositories.NewSQLitePublishHistoryRepository(dbConn)

	if err := seedIfEmpty(ctx, matchRepo, teamRepo, gameRepo); err != nil {
		logger.Error("failed to seed initial match", slog.Any("error", err))
		os.Exit(1)
	}

	var writeLock sync.Mutex
	stateService := services.NewStateService(matchRepo, teamRepo, gameRepo)
	matchService := services.NewMatchService(matchRepo, teamRepo, gameRepo, hub, uploader, &writeLock)
	gameService := services.NewGameService(dbConn, matchRepo, gameRepo, historyRepo, hub, &writeLock)

	stateHandler := handlers.NewStateHandler(stateService, gameService)
	matchHandler := handlers.NewMatchHandler(matchService)
	gameHandler := handlers.NewGameHandler(gameService)
	wsHandler := handlers.NewWebSocketHandler(hub, stateService, logger)

	router := api.SetupRoutes(stateHandler, matchHandler, gameHandler, wsHandler)

	// Full-state frame so any viewer already connected through a proxy
	// replay or a previous process picks up the fresh state.
	if state, err := stateService.PublicState(ctx); err == nil {
		hub.Broadcast(broadcast.Message{
			Type: broadcast.EventMatchUpdate,
			Payload: broadcast.MatchUpdatePayload{
				Match: &state.Match,
				Teams: state.Teams,
				Games: state.Games,
			},
		})
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			_ = server.Close()
		}
	}
	logger.Info("server stopped")
}

// seedIfEmpty creates the single live match, both team rows and the
// initial game rows on first boot. Subsequent boots find the match and
// leave everything alone.
func seedIfEmpty(
	ctx context.Context,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	gameRepo repositories.GameRepository,
) error {
	_, err := matchRepo.Get(ctx, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrMatchNotFound) {
		return err
	}

	now := time.Now().UTC()
	match := &models.Match{
		ID:            models.LiveMatchID,
		Title:         "Live Match",
		BestOf:        defaultBestOf,
		BanCount:      defaultBanCount,
		CurrentGameNo: 1,
		Status:        models.MatchStatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := matchRepo.Create(ctx, nil, match); err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	teams := []*models.Team{
		{Side: models.TeamSideA, Name: "Team A", Color: "#E53935"},
		{Side: models.TeamSideB, Name: "Team B", Color: "#1E88E5"},
	}
	for _, team := range teams {
		if err := teamRepo.Create(ctx, nil, team); err != nil {
			return fmt.Errorf("failed to create team %s: %w", team.Side, err)
		}
	}

	if err := gameRepo.EnsureForBestOf(ctx, nil, match.BestOf); err != nil {
		return fmt.Errorf("failed to create game rows: %w", err)
	}
	return nil
}
